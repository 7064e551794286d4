// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tagkeep/tagkeep/internal/config"
	"github.com/tagkeep/tagkeep/internal/generate"
	"github.com/tagkeep/tagkeep/internal/tagfile"
	"github.com/tagkeep/tagkeep/internal/utils"
)

const (
	versionFlagName       = "version"
	versionTemplate       = "tagkeep version: %s\n"
	configFlagName        = "config"
	tagFileFlagName       = "tag-file"
	languageFlagName      = "language"
	optionsFlagName       = "options"
	asyncFlagName         = "async"
	maxDuplicatesFlagName = "max-duplicates"

	rootUse              = "tagkeep"
	rootShortDescription = "tagkeep command line interface"
	rootLongDescription  = `tagkeep maintains ctags-style tags files.
It invokes an external generator for full, single-file, or subdirectory scopes,
then validates the resulting file and trims excess duplicate tag names.`

	generateUse              = "generate [path]"
	generateAlias            = "g"
	generateShortDescription = "run the tag generator and post-process its output (" + generateAlias + ")"
	generateLongDescription  = `Run the external tag generator and repair its output.
With no path the configured root directory is rebuilt. A file path appends tags
for that file into the existing tags file; a directory path rebuilds tags for
that subdirectory only.`
	generateUsageExample = `  # Rebuild tags for the configured root
  tagkeep generate

  # Append tags for one file
  tagkeep generate --language go internal/server/server.go

  # Rebuild tags for a subdirectory asynchronously
  tagkeep generate --async internal/server`

	validateUse              = "validate"
	validateAlias            = "v"
	validateShortDescription = "repair the tags file structure (" + validateAlias + ")"
	validateLongDescription  = `Scan the tags file, drop lines that are neither headers nor valid
records, and rewrite it with headers first. A fully corrupt file is deleted.`

	dedupUse              = "dedup"
	dedupAlias            = "d"
	dedupShortDescription = "trim duplicate tag names above the ceiling (" + dedupAlias + ")"
	dedupLongDescription  = `Trim records so no tag name keeps more than the configured number of
occurrences, preserving header lines and the earliest records per name.`

	versionFlagDescription       = "display application version"
	configFlagDescription        = "configuration file path"
	tagFileFlagDescription       = "tags file path"
	languageFlagDescription      = "language passed to the generator"
	optionsFlagDescription       = "generator options file"
	asyncFlagDescription         = "run the generator asynchronously"
	maxDuplicatesFlagDescription = "duplicate ceiling per tag name (0 disables deduplication)"

	repairedMessageFormat       = "repaired %s: %d header lines, %d records kept"
	cleanMessageFormat          = "%s is well formed: %d header lines, %d records"
	removedMessageFormat        = "removed %d duplicate tag records from %s"
	noDuplicatesMessageFormat   = "no duplicate tag records above ceiling %d in %s"
	dedupDisabledMessage        = "deduplication is disabled (ceiling is not positive)"
	generationTargetErrorFormat = "stat generation target '%s': %w"
	generationFailedLogFormat   = "tag generation failed for language %q: %s"
	duplicatesRemovedLogFormat  = "removed %d duplicate tag records from %s"
)

// Execute runs the tagkeep application.
func Execute(logger *zap.Logger) error {
	rootCommand := createRootCommand(logger)
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand(logger *zap.Logger) *cobra.Command {
	var showVersion bool
	var configPath string

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&configPath, configFlagName, "", configFlagDescription)
	rootCommand.AddCommand(
		createGenerateCommand(logger, &configPath),
		createValidateCommand(logger, &configPath),
		createDedupCommand(logger, &configPath),
		createDoctorCommand(logger, &configPath),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// generateFlagOptions stores flag values for the generate command.
type generateFlagOptions struct {
	tagFilePath   string
	language      string
	optionsPath   string
	async         bool
	maxDuplicates int
}

// createGenerateCommand returns the generate subcommand.
func createGenerateCommand(logger *zap.Logger, configPath *string) *cobra.Command {
	var flagOptions generateFlagOptions

	generateCommand := &cobra.Command{
		Use:     generateUse,
		Aliases: []string{generateAlias},
		Short:   generateShortDescription,
		Long:    generateLongDescription,
		Example: generateUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			applicationConfig, loadError := loadConfiguration(*configPath)
			if loadError != nil {
				return loadError
			}
			options := buildGenerationOptions(applicationConfig.Generate, command, flagOptions)
			request, requestError := buildGenerationRequest(applicationConfig, flagOptions, arguments)
			if requestError != nil {
				return requestError
			}

			orchestrator := generate.NewOrchestrator(options, zapReporter{logger: logger})
			if generateError := orchestrator.Generate(command.Context(), request); generateError != nil {
				return generateError
			}
			// The process must outlive an asynchronous invocation; draining the
			// executor here keeps the async path exercised end to end.
			return orchestrator.Wait()
		},
	}

	generateCommand.Flags().StringVar(&flagOptions.tagFilePath, tagFileFlagName, "", tagFileFlagDescription)
	generateCommand.Flags().StringVar(&flagOptions.language, languageFlagName, "", languageFlagDescription)
	generateCommand.Flags().StringVar(&flagOptions.optionsPath, optionsFlagName, "", optionsFlagDescription)
	generateCommand.Flags().IntVar(&flagOptions.maxDuplicates, maxDuplicatesFlagName, tagfile.DefaultMaxDuplicates, maxDuplicatesFlagDescription)
	registerBooleanFlag(generateCommand.Flags(), &flagOptions.async, asyncFlagName, false, asyncFlagDescription)
	return generateCommand
}

// buildGenerationOptions folds configuration and changed flags into orchestrator options.
func buildGenerationOptions(generationConfig config.GenerationConfiguration, command *cobra.Command, flagOptions generateFlagOptions) generate.Options {
	options := generate.Options{
		Binary:                generationConfig.ResolvedBin(),
		BinaryOverrides:       generationConfig.BinMap,
		ExtraArguments:        generationConfig.Args,
		RootDirectory:         generationConfig.ResolvedRootDir(),
		Asynchronous:          generationConfig.AsyncEnabled(),
		MaxDuplicates:         generationConfig.DuplicateCeiling(),
		HasLanguageDefinition: generationConfig.LanguageDefinitionProvided(),
	}
	if command.Flags().Changed(asyncFlagName) {
		options.Asynchronous = flagOptions.async
	}
	if command.Flags().Changed(maxDuplicatesFlagName) {
		options.MaxDuplicates = flagOptions.maxDuplicates
	}
	return options
}

// buildGenerationRequest derives the generation mode from the optional path argument.
func buildGenerationRequest(applicationConfig config.ApplicationConfiguration, flagOptions generateFlagOptions, arguments []string) (generate.Request, error) {
	request := generate.Request{
		Language:    flagOptions.language,
		TagFilePath: resolveTagFilePath(applicationConfig, flagOptions.tagFilePath),
		OptionsPath: flagOptions.optionsPath,
		Mode:        generate.ModeFull,
	}
	if len(arguments) == 0 {
		return request, nil
	}
	target := arguments[0]
	targetInfo, statError := os.Stat(target)
	if statError != nil {
		return generate.Request{}, fmt.Errorf(generationTargetErrorFormat, target, statError)
	}
	request.Target = target
	if targetInfo.IsDir() {
		request.Mode = generate.ModeSubdirectory
	} else {
		request.Mode = generate.ModeAppend
	}
	return request, nil
}

// createValidateCommand returns the validate subcommand.
func createValidateCommand(logger *zap.Logger, configPath *string) *cobra.Command {
	var tagFilePath string

	validateCommand := &cobra.Command{
		Use:     validateUse,
		Aliases: []string{validateAlias},
		Short:   validateShortDescription,
		Long:    validateLongDescription,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			applicationConfig, loadError := loadConfiguration(*configPath)
			if loadError != nil {
				return loadError
			}
			resolvedPath := resolveTagFilePath(applicationConfig, tagFilePath)
			fixed, validateError := tagfile.Validate(resolvedPath)
			if validateError != nil {
				return validateError
			}
			headerCount, recordCount, statsError := tagfile.Stats(resolvedPath)
			if statsError != nil {
				return statsError
			}
			if fixed {
				logger.Info(fmt.Sprintf(repairedMessageFormat, resolvedPath, headerCount, recordCount))
			} else {
				logger.Info(fmt.Sprintf(cleanMessageFormat, resolvedPath, headerCount, recordCount))
			}
			return nil
		},
	}

	validateCommand.Flags().StringVar(&tagFilePath, tagFileFlagName, "", tagFileFlagDescription)
	return validateCommand
}

// createDedupCommand returns the dedup subcommand.
func createDedupCommand(logger *zap.Logger, configPath *string) *cobra.Command {
	var tagFilePath string
	var maxDuplicates int

	dedupCommand := &cobra.Command{
		Use:     dedupUse,
		Aliases: []string{dedupAlias},
		Short:   dedupShortDescription,
		Long:    dedupLongDescription,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			applicationConfig, loadError := loadConfiguration(*configPath)
			if loadError != nil {
				return loadError
			}
			ceiling := applicationConfig.Generate.DuplicateCeiling()
			if command.Flags().Changed(maxDuplicatesFlagName) {
				ceiling = maxDuplicates
			}
			if ceiling <= 0 {
				logger.Info(dedupDisabledMessage)
				return nil
			}
			resolvedPath := resolveTagFilePath(applicationConfig, tagFilePath)
			removedCount, dedupeError := tagfile.Deduplicate(resolvedPath, ceiling)
			if dedupeError != nil {
				return dedupeError
			}
			if removedCount > 0 {
				logger.Info(fmt.Sprintf(removedMessageFormat, removedCount, resolvedPath))
			} else {
				logger.Info(fmt.Sprintf(noDuplicatesMessageFormat, ceiling, resolvedPath))
			}
			return nil
		},
	}

	dedupCommand.Flags().StringVar(&tagFilePath, tagFileFlagName, "", tagFileFlagDescription)
	dedupCommand.Flags().IntVar(&maxDuplicates, maxDuplicatesFlagName, tagfile.DefaultMaxDuplicates, maxDuplicatesFlagDescription)
	return dedupCommand
}

// loadConfiguration loads the merged application configuration.
func loadConfiguration(explicitPath string) (config.ApplicationConfiguration, error) {
	return config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: explicitPath})
}

// resolveTagFilePath prefers the flag value over configuration and defaults.
func resolveTagFilePath(applicationConfig config.ApplicationConfiguration, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return applicationConfig.ResolvedTagFile()
}

// Package config loads and merges tagkeep configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/tagkeep/tagkeep/internal/tagfile"
	"github.com/tagkeep/tagkeep/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds every recognized tagkeep option.
type ApplicationConfiguration struct {
	Generate GenerationConfiguration `mapstructure:"generate"`
	TagFile  string                  `mapstructure:"tag_file"`
}

// GenerationConfiguration configures the external tag generator invocation.
type GenerationConfiguration struct {
	Bin                   string            `mapstructure:"bin"`
	BinMap                map[string]string `mapstructure:"bin_map"`
	Args                  []string          `mapstructure:"args"`
	RootDir               string            `mapstructure:"root_dir"`
	Async                 *bool             `mapstructure:"async"`
	MaxDuplicates         *int              `mapstructure:"max_duplicates"`
	HasLanguageDefinition *bool             `mapstructure:"has_langdef"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.LocalConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Generate = result.Generate.merge(override.Generate)
	if override.TagFile != "" {
		result.TagFile = override.TagFile
	}
	return result
}

func (config GenerationConfiguration) merge(override GenerationConfiguration) GenerationConfiguration {
	result := config
	if override.Bin != "" {
		result.Bin = override.Bin
	}
	if len(override.BinMap) > 0 {
		combined := make(map[string]string, len(result.BinMap)+len(override.BinMap))
		for language, binary := range result.BinMap {
			combined[language] = binary
		}
		for language, binary := range override.BinMap {
			combined[language] = binary
		}
		result.BinMap = combined
	}
	if len(override.Args) > 0 {
		result.Args = append([]string{}, override.Args...)
	}
	if override.RootDir != "" {
		result.RootDir = override.RootDir
	}
	if override.Async != nil {
		result.Async = cloneBool(override.Async)
	}
	if override.MaxDuplicates != nil {
		result.MaxDuplicates = cloneInt(override.MaxDuplicates)
	}
	if override.HasLanguageDefinition != nil {
		result.HasLanguageDefinition = cloneBool(override.HasLanguageDefinition)
	}
	return result
}

// ResolvedBin returns the configured default generator binary or "ctags".
func (config GenerationConfiguration) ResolvedBin() string {
	if config.Bin != "" {
		return config.Bin
	}
	return utils.DefaultGeneratorBinary
}

// ResolvedRootDir returns the configured full-rebuild root or the working directory.
func (config GenerationConfiguration) ResolvedRootDir() string {
	if config.RootDir != "" {
		return config.RootDir
	}
	return utils.DefaultRootDirectory
}

// AsyncEnabled reports whether asynchronous generation is configured.
func (config GenerationConfiguration) AsyncEnabled() bool {
	return config.Async != nil && *config.Async
}

// DuplicateCeiling returns the configured duplicate ceiling, defaulting to
// tagfile.DefaultMaxDuplicates when unset. An explicit non-positive value
// disables deduplication.
func (config GenerationConfiguration) DuplicateCeiling() int {
	if config.MaxDuplicates == nil {
		return tagfile.DefaultMaxDuplicates
	}
	return *config.MaxDuplicates
}

// LanguageDefinitionProvided reports whether custom language-definition
// directives are present among the extra arguments, suppressing the default
// --languages flag.
func (config GenerationConfiguration) LanguageDefinitionProvided() bool {
	return config.HasLanguageDefinition != nil && *config.HasLanguageDefinition
}

// ResolvedTagFile returns the configured tags file path or the conventional "tags".
func (config ApplicationConfiguration) ResolvedTagFile() string {
	if config.TagFile != "" {
		return config.TagFile
	}
	return utils.DefaultTagFileName
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

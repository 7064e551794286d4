package cli

import (
	"fmt"
	"os/exec"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tagkeep/tagkeep/internal/utils"
)

const (
	doctorUse              = "doctor"
	doctorShortDescription = "check that configured generator binaries are available"
	doctorLongDescription  = `Resolve the default generator binary and every per-language override
on PATH and report anything missing.`

	doctorBinaryFoundFormat   = "found %s at %s"
	doctorBinaryMissingFormat = "missing %s (%s); install it or adjust bin/bin_map in %s"
	doctorMissingBinariesText = "missing generator binaries"
	doctorDefaultBinaryLabel  = "default binary"
	doctorOverrideLabelFormat = "override for %s"
)

// createDoctorCommand returns the doctor subcommand.
func createDoctorCommand(logger *zap.Logger, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   doctorUse,
		Short: doctorShortDescription,
		Long:  doctorLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			applicationConfig, loadError := loadConfiguration(*configPath)
			if loadError != nil {
				return loadError
			}

			generationConfig := applicationConfig.Generate
			missingCount := 0
			checkBinary := func(binary string, label string) {
				resolvedPath, lookupError := exec.LookPath(binary)
				if lookupError != nil {
					missingCount++
					logger.Warn(fmt.Sprintf(doctorBinaryMissingFormat, binary, label, configSourceName(*configPath)))
					return
				}
				logger.Info(fmt.Sprintf(doctorBinaryFoundFormat, binary, resolvedPath))
			}

			checkBinary(generationConfig.ResolvedBin(), doctorDefaultBinaryLabel)
			languages := make([]string, 0, len(generationConfig.BinMap))
			for language := range generationConfig.BinMap {
				languages = append(languages, language)
			}
			sort.Strings(languages)
			for _, language := range languages {
				checkBinary(generationConfig.BinMap[language], fmt.Sprintf(doctorOverrideLabelFormat, language))
			}

			if missingCount > 0 {
				return fmt.Errorf("%s: %d", doctorMissingBinariesText, missingCount)
			}
			return nil
		},
	}
}

// configSourceName names the configuration file the suggestion should point at.
func configSourceName(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	return utils.LocalConfigFileName
}

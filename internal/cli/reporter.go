package cli

import (
	"fmt"

	"go.uber.org/zap"
)

// zapReporter surfaces generation outcomes through the application logger.
type zapReporter struct {
	logger *zap.Logger
}

func (reporter zapReporter) GenerationFailed(language string, message string) {
	reporter.logger.Error(fmt.Sprintf(generationFailedLogFormat, language, message))
}

func (reporter zapReporter) DuplicatesRemoved(tagFilePath string, removedCount int) {
	reporter.logger.Info(fmt.Sprintf(duplicatesRemovedLogFormat, removedCount, tagFilePath))
}

package utils

const (
	// GlobalConfigDirectoryName is the per-user configuration directory under $HOME.
	GlobalConfigDirectoryName = ".tagkeep"
	// GlobalConfigFileName is the configuration file name inside the global directory.
	GlobalConfigFileName = "config.yaml"
	// LocalConfigFileName is the per-project configuration file name.
	LocalConfigFileName = ".tagkeep.yaml"
	// DefaultGeneratorBinary is the generator invoked when no binary is configured.
	DefaultGeneratorBinary = "ctags"
	// DefaultRootDirectory is the full-rebuild target when no root is configured.
	DefaultRootDirectory = "."
	// DefaultTagFileName is the conventional tags file name.
	DefaultTagFileName = "tags"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)

// LoggerInitializationFailedMessageFormat reports a logger construction failure.
const LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"

// ApplicationExecutionFailedMessage prefixes fatal command failures.
const ApplicationExecutionFailedMessage = "application execution failed"

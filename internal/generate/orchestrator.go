// Package generate invokes the external tag generator and post-processes its output.
package generate

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tagkeep/tagkeep/internal/tagfile"
)

// Mode selects how a generation invocation scopes the external generator.
type Mode int

const (
	// ModeFull rebuilds tags for the configured root directory.
	ModeFull Mode = iota
	// ModeAppend incrementally appends tags for a single source file.
	ModeAppend
	// ModeSubdirectory rebuilds tags for an explicit subdirectory.
	ModeSubdirectory
)

const (
	optionsFlagPrefix   = "--options="
	languagesFlagPrefix = "--languages="
	tagFileFlag         = "-f"
	appendFlag          = "-a"
	recurseFlag         = "-R"
)

// Reporter receives generation outcomes worth surfacing to the user.
type Reporter interface {
	// GenerationFailed delivers the captured generator output after a non-zero exit.
	GenerationFailed(language string, message string)
	// DuplicatesRemoved announces how many records deduplication dropped.
	DuplicatesRemoved(tagFilePath string, removedCount int)
}

// commandRunner abstracts the external generator process invocation.
type commandRunner interface {
	Run(ctx context.Context, binary string, arguments []string) (string, error)
}

// execCommandRunner runs the generator as a child process and captures its output.
type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, binary string, arguments []string) (string, error) {
	// #nosec G204
	command := exec.CommandContext(ctx, binary, arguments...)
	outputBytes, runError := command.CombinedOutput()
	return strings.TrimSpace(string(outputBytes)), runError
}

// Options holds the immutable per-orchestrator generation settings.
type Options struct {
	Binary                string
	BinaryOverrides       map[string]string
	ExtraArguments        []string
	RootDirectory         string
	Asynchronous          bool
	MaxDuplicates         int
	HasLanguageDefinition bool
}

// Request describes a single generation invocation.
type Request struct {
	Language    string
	TagFilePath string
	OptionsPath string
	// Target is the single source file for ModeAppend or the subdirectory for
	// ModeSubdirectory; it is ignored for ModeFull.
	Target string
	Mode   Mode
}

// Orchestrator owns generator invocation and the validate/deduplicate chain.
// Concurrent invocations targeting the same tag file from distinct
// orchestrators are the caller's responsibility to serialize.
type Orchestrator struct {
	options  Options
	reporter Reporter
	executor *Executor
	runner   commandRunner
}

// NewOrchestrator constructs an Orchestrator from explicit options and a reporter.
func NewOrchestrator(options Options, reporter Reporter) *Orchestrator {
	return &Orchestrator{
		options:  options,
		reporter: reporter,
		executor: NewExecutor(),
		runner:   execCommandRunner{},
	}
}

// Generate runs one generation invocation. In synchronous mode it blocks
// through post-processing and returns any failure; in asynchronous mode it
// schedules the invocation on the orchestrator's serial executor and returns
// immediately, with failures reported through the Reporter and surfaced again
// by Wait.
func (orchestrator *Orchestrator) Generate(ctx context.Context, request Request) error {
	arguments := orchestrator.buildArguments(request)
	binary := orchestrator.resolveBinary(request.Language)
	invocation := func() error {
		return orchestrator.runAndPostProcess(ctx, binary, arguments, request)
	}
	if orchestrator.options.Asynchronous {
		orchestrator.executor.Submit(invocation)
		return nil
	}
	return invocation()
}

// Wait drains the asynchronous executor, returning the first invocation error.
func (orchestrator *Orchestrator) Wait() error {
	return orchestrator.executor.Wait()
}

// buildArguments assembles the generator command line. Ordering is load-bearing
// for the generator's own argument parsing: extra arguments first so later
// flags can reference language definitions they introduce, then the options
// file or --languages flag, then the output flag, then the mode flag.
func (orchestrator *Orchestrator) buildArguments(request Request) []string {
	arguments := append([]string{}, orchestrator.options.ExtraArguments...)
	switch {
	case request.OptionsPath != "":
		arguments = append(arguments, optionsFlagPrefix+request.OptionsPath)
	case !orchestrator.options.HasLanguageDefinition && request.Language != "":
		arguments = append(arguments, languagesFlagPrefix+request.Language)
	}
	arguments = append(arguments, tagFileFlag, request.TagFilePath)
	switch request.Mode {
	case ModeAppend:
		arguments = append(arguments, appendFlag, request.Target)
	case ModeSubdirectory:
		arguments = append(arguments, recurseFlag, request.Target)
	default:
		arguments = append(arguments, recurseFlag, orchestrator.options.RootDirectory)
	}
	return arguments
}

// resolveBinary returns the per-language override when configured, else the default.
func (orchestrator *Orchestrator) resolveBinary(language string) string {
	if override, exists := orchestrator.options.BinaryOverrides[language]; exists && override != "" {
		return override
	}
	return orchestrator.options.Binary
}

func (orchestrator *Orchestrator) runAndPostProcess(ctx context.Context, binary string, arguments []string, request Request) error {
	// Appending to a structurally corrupt file would compound the corruption,
	// so append mode repairs the existing file before the generator runs.
	if request.Mode == ModeAppend {
		if _, validateError := tagfile.Validate(request.TagFilePath); validateError != nil {
			return validateError
		}
	}

	capturedOutput, runError := orchestrator.runner.Run(ctx, binary, arguments)
	if runError != nil {
		message := capturedOutput
		if message == "" {
			message = runError.Error()
		}
		orchestrator.reporter.GenerationFailed(request.Language, message)
		return fmt.Errorf("run %s: %w", binary, runError)
	}

	if _, validateError := tagfile.Validate(request.TagFilePath); validateError != nil {
		return validateError
	}
	if orchestrator.options.MaxDuplicates > 0 {
		removedCount, dedupeError := tagfile.Deduplicate(request.TagFilePath, orchestrator.options.MaxDuplicates)
		if dedupeError != nil {
			return dedupeError
		}
		if removedCount > 0 {
			orchestrator.reporter.DuplicatesRemoved(request.TagFilePath, removedCount)
		}
	}
	return nil
}

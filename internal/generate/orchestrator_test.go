package generate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
)

type recordingReporter struct {
	mutex            sync.Mutex
	failureMessages  []string
	failureLanguages []string
	removedCounts    []int
}

func (reporter *recordingReporter) GenerationFailed(language string, message string) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	reporter.failureLanguages = append(reporter.failureLanguages, language)
	reporter.failureMessages = append(reporter.failureMessages, message)
}

func (reporter *recordingReporter) DuplicatesRemoved(tagFilePath string, removedCount int) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	reporter.removedCounts = append(reporter.removedCounts, removedCount)
}

type fakeCommandRunner struct {
	mutex           sync.Mutex
	binaries        []string
	argumentsPerRun [][]string
	output          string
	runError        error
	onRun           func()
}

func (runner *fakeCommandRunner) Run(_ context.Context, binary string, arguments []string) (string, error) {
	runner.mutex.Lock()
	runner.binaries = append(runner.binaries, binary)
	runner.argumentsPerRun = append(runner.argumentsPerRun, append([]string{}, arguments...))
	runner.mutex.Unlock()
	if runner.onRun != nil {
		runner.onRun()
	}
	return runner.output, runner.runError
}

func newTestOrchestrator(options Options, reporter Reporter, runner commandRunner) *Orchestrator {
	orchestrator := NewOrchestrator(options, reporter)
	orchestrator.runner = runner
	return orchestrator
}

// TestBuildArgumentsOrdering verifies the frozen argument order for every mode
// and the interaction between options files, language flags, and has_langdef.
func TestBuildArgumentsOrdering(t *testing.T) {
	testCases := []struct {
		name              string
		options           Options
		request           Request
		expectedArguments []string
	}{
		{
			name: "FullRebuild",
			options: Options{
				ExtraArguments: []string{"--tag-relative=yes", "--exclude=vendor"},
				RootDirectory:  "/project",
			},
			request: Request{
				Language:    "c",
				TagFilePath: "/project/tags",
				Mode:        ModeFull,
			},
			expectedArguments: []string{
				"--tag-relative=yes", "--exclude=vendor",
				"--languages=c",
				"-f", "/project/tags",
				"-R", "/project",
			},
		},
		{
			name: "SingleFileAppend",
			options: Options{
				RootDirectory: "/project",
			},
			request: Request{
				Language:    "go",
				TagFilePath: "/project/tags",
				Target:      "/project/main.go",
				Mode:        ModeAppend,
			},
			expectedArguments: []string{
				"--languages=go",
				"-f", "/project/tags",
				"-a", "/project/main.go",
			},
		},
		{
			name: "SubdirectoryRebuild",
			options: Options{
				RootDirectory: "/project",
			},
			request: Request{
				Language:    "python",
				TagFilePath: "/project/tags",
				Target:      "/project/lib",
				Mode:        ModeSubdirectory,
			},
			expectedArguments: []string{
				"--languages=python",
				"-f", "/project/tags",
				"-R", "/project/lib",
			},
		},
		{
			name: "OptionsFileSuppressesLanguages",
			options: Options{
				RootDirectory: "/project",
			},
			request: Request{
				Language:    "c",
				TagFilePath: "/project/tags",
				OptionsPath: "/project/.ctags.d/extra.ctags",
				Mode:        ModeFull,
			},
			expectedArguments: []string{
				"--options=/project/.ctags.d/extra.ctags",
				"-f", "/project/tags",
				"-R", "/project",
			},
		},
		{
			name: "LanguageDefinitionSuppressesLanguages",
			options: Options{
				ExtraArguments:        []string{"--langdef=mylang"},
				RootDirectory:         "/project",
				HasLanguageDefinition: true,
			},
			request: Request{
				Language:    "mylang",
				TagFilePath: "/project/tags",
				Mode:        ModeFull,
			},
			expectedArguments: []string{
				"--langdef=mylang",
				"-f", "/project/tags",
				"-R", "/project",
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			orchestrator := NewOrchestrator(testCase.options, &recordingReporter{})
			actualArguments := orchestrator.buildArguments(testCase.request)
			if !reflect.DeepEqual(actualArguments, testCase.expectedArguments) {
				t.Fatalf("arguments = %v, expected %v", actualArguments, testCase.expectedArguments)
			}
		})
	}
}

// TestResolveBinary verifies the per-language override and the default fallback.
func TestResolveBinary(t *testing.T) {
	orchestrator := NewOrchestrator(Options{
		Binary:          "ctags",
		BinaryOverrides: map[string]string{"go": "gotags"},
	}, &recordingReporter{})

	if resolved := orchestrator.resolveBinary("go"); resolved != "gotags" {
		t.Fatalf("resolved = %q, expected gotags", resolved)
	}
	if resolved := orchestrator.resolveBinary("c"); resolved != "ctags" {
		t.Fatalf("resolved = %q, expected ctags", resolved)
	}
}

// TestGenerateFailureSkipsPostProcessing verifies that a non-zero generator
// exit surfaces its output and leaves the tags file alone.
func TestGenerateFailureSkipsPostProcessing(t *testing.T) {
	tagFilePath := filepath.Join(t.TempDir(), "tags")
	corruptContent := "garbage line without delimiters\n"
	if writeError := os.WriteFile(tagFilePath, []byte(corruptContent), 0o644); writeError != nil {
		t.Fatalf("write tags file: %v", writeError)
	}

	reporter := &recordingReporter{}
	runner := &fakeCommandRunner{output: "ctags: unknown option", runError: errors.New("exit status 1")}
	orchestrator := newTestOrchestrator(Options{Binary: "ctags", MaxDuplicates: 10}, reporter, runner)

	generateError := orchestrator.Generate(context.Background(), Request{
		Language:    "c",
		TagFilePath: tagFilePath,
		Mode:        ModeFull,
	})
	if generateError == nil {
		t.Fatal("expected generation error")
	}
	if len(reporter.failureMessages) != 1 || reporter.failureMessages[0] != "ctags: unknown option" {
		t.Fatalf("failure messages = %v", reporter.failureMessages)
	}
	contentBytes, readError := os.ReadFile(tagFilePath)
	if readError != nil {
		t.Fatalf("read tags file: %v", readError)
	}
	if string(contentBytes) != corruptContent {
		t.Fatal("post-processing ran despite generator failure")
	}
}

// TestGenerateSuccessChainsValidationAndDeduplication verifies the full
// post-processing chain after a successful generator run.
func TestGenerateSuccessChainsValidationAndDeduplication(t *testing.T) {
	tagFilePath := filepath.Join(t.TempDir(), "tags")
	var generatedLines []string
	generatedLines = append(generatedLines, "!_TAG_FILE_FORMAT\t2\t//")
	generatedLines = append(generatedLines, "broken line")
	for index := 0; index < 4; index++ {
		generatedLines = append(generatedLines, "foo\tfile.c\t/^foo$/;\"\tf")
	}
	generatedContent := strings.Join(generatedLines, "\n") + "\n"

	reporter := &recordingReporter{}
	runner := &fakeCommandRunner{}
	runner.onRun = func() {
		if writeError := os.WriteFile(tagFilePath, []byte(generatedContent), 0o644); writeError != nil {
			t.Errorf("write generated tags: %v", writeError)
		}
	}
	orchestrator := newTestOrchestrator(Options{Binary: "ctags", MaxDuplicates: 2}, reporter, runner)

	if generateError := orchestrator.Generate(context.Background(), Request{
		Language:    "c",
		TagFilePath: tagFilePath,
		Mode:        ModeFull,
	}); generateError != nil {
		t.Fatalf("Generate: %v", generateError)
	}

	contentBytes, readError := os.ReadFile(tagFilePath)
	if readError != nil {
		t.Fatalf("read tags file: %v", readError)
	}
	expectedContent := "!_TAG_FILE_FORMAT\t2\t//\n" +
		"foo\tfile.c\t/^foo$/;\"\tf\n" +
		"foo\tfile.c\t/^foo$/;\"\tf\n"
	if string(contentBytes) != expectedContent {
		t.Fatalf("content = %q, expected %q", string(contentBytes), expectedContent)
	}
	if len(reporter.removedCounts) != 1 || reporter.removedCounts[0] != 2 {
		t.Fatalf("removed counts = %v, expected [2]", reporter.removedCounts)
	}
}

// TestGenerateAppendValidatesExistingFile verifies that append mode repairs
// the tags file before the generator runs.
func TestGenerateAppendValidatesExistingFile(t *testing.T) {
	tagFilePath := filepath.Join(t.TempDir(), "tags")
	existingContent := "not a valid line\nbar\tfile.c\t/^bar$/;\"\tf\n"
	if writeError := os.WriteFile(tagFilePath, []byte(existingContent), 0o644); writeError != nil {
		t.Fatalf("write tags file: %v", writeError)
	}

	var contentSeenByGenerator string
	runner := &fakeCommandRunner{}
	runner.onRun = func() {
		contentBytes, readError := os.ReadFile(tagFilePath)
		if readError != nil {
			t.Errorf("read tags file during run: %v", readError)
			return
		}
		contentSeenByGenerator = string(contentBytes)
	}
	orchestrator := newTestOrchestrator(Options{Binary: "ctags"}, &recordingReporter{}, runner)

	if generateError := orchestrator.Generate(context.Background(), Request{
		Language:    "c",
		TagFilePath: tagFilePath,
		Target:      "file.c",
		Mode:        ModeAppend,
	}); generateError != nil {
		t.Fatalf("Generate: %v", generateError)
	}
	if contentSeenByGenerator != "bar\tfile.c\t/^bar$/;\"\tf\n" {
		t.Fatalf("generator saw unrepaired file: %q", contentSeenByGenerator)
	}
}

// TestGenerateAsynchronous verifies that async invocations return immediately,
// run serially on the executor, and surface failures through Wait.
func TestGenerateAsynchronous(t *testing.T) {
	tagFilePath := filepath.Join(t.TempDir(), "tags")
	reporter := &recordingReporter{}
	runner := &fakeCommandRunner{output: "permission denied", runError: errors.New("exit status 2")}
	orchestrator := newTestOrchestrator(Options{Binary: "ctags", Asynchronous: true}, reporter, runner)

	if generateError := orchestrator.Generate(context.Background(), Request{
		Language:    "c",
		TagFilePath: tagFilePath,
		Mode:        ModeFull,
	}); generateError != nil {
		t.Fatalf("async Generate returned %v", generateError)
	}
	waitError := orchestrator.Wait()
	if waitError == nil {
		t.Fatal("expected Wait to surface the invocation error")
	}
	if len(reporter.failureMessages) != 1 || reporter.failureMessages[0] != "permission denied" {
		t.Fatalf("failure messages = %v", reporter.failureMessages)
	}
}

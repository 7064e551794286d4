package tagfile

import (
	"fmt"
	"os"
	"strings"
)

const (
	lineSeparator      = "\n"
	tagsFilePermission = 0o644
)

// Validate scans the tags file at path and repairs it in place.
//
// Header lines and valid records are retained; anything else is dropped. When
// every line is already well formed the file is left untouched so its bytes and
// timestamps stay stable. When nothing well formed survives the file is deleted
// outright so the next generation starts clean. A missing file is not an error.
// The returned boolean reports whether the file was rewritten or deleted.
func Validate(path string) (bool, error) {
	lines, exists, readError := readLines(path)
	if readError != nil {
		return false, readError
	}
	if !exists {
		return false, nil
	}

	var headerLines []string
	var recordLines []string
	invalidCount := 0
	for _, line := range lines {
		switch Classify(line) {
		case LineKindHeader:
			headerLines = append(headerLines, line)
		case LineKindRecord:
			recordLines = append(recordLines, line)
		default:
			invalidCount++
		}
	}

	if invalidCount == 0 {
		return false, nil
	}
	if len(headerLines) == 0 && len(recordLines) == 0 {
		if removeError := os.Remove(path); removeError != nil {
			return false, fmt.Errorf("remove corrupt tags file %s: %w", path, removeError)
		}
		return true, nil
	}
	if writeError := writeLines(path, headerLines, recordLines); writeError != nil {
		return false, writeError
	}
	return true, nil
}

// Stats reports the number of header lines and valid records in the tags file.
// A missing file yields zero counts.
func Stats(path string) (int, int, error) {
	lines, exists, readError := readLines(path)
	if readError != nil || !exists {
		return 0, 0, readError
	}
	headerCount := 0
	recordCount := 0
	for _, line := range lines {
		switch Classify(line) {
		case LineKindHeader:
			headerCount++
		case LineKindRecord:
			recordCount++
		}
	}
	return headerCount, recordCount, nil
}

// readLines loads the file at path and splits it into lines. The boolean
// reports whether the file exists; a trailing newline does not produce a
// final empty line.
func readLines(path string) ([]string, bool, error) {
	contentBytes, readError := os.ReadFile(path)
	if readError != nil {
		if os.IsNotExist(readError) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read tags file %s: %w", path, readError)
	}
	content := string(contentBytes)
	if content == "" {
		return nil, true, nil
	}
	content = strings.TrimSuffix(content, lineSeparator)
	return strings.Split(content, lineSeparator), true, nil
}

// writeLines rewrites the file at path with header lines first and record
// lines after, each newline-terminated.
func writeLines(path string, headerLines []string, recordLines []string) error {
	var builder strings.Builder
	for _, line := range headerLines {
		builder.WriteString(line)
		builder.WriteString(lineSeparator)
	}
	for _, line := range recordLines {
		builder.WriteString(line)
		builder.WriteString(lineSeparator)
	}
	if writeError := os.WriteFile(path, []byte(builder.String()), tagsFilePermission); writeError != nil {
		return fmt.Errorf("write tags file %s: %w", path, writeError)
	}
	return nil
}

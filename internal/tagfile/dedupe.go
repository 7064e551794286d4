package tagfile

import (
	"strings"
)

// DefaultMaxDuplicates is the duplicate ceiling applied when none is configured.
const DefaultMaxDuplicates = 10

// Deduplicate trims records in the tags file at path so that no tag name keeps
// more than maxDuplicates occurrences, preserving the first occurrences in
// their original order. Header lines are never trimmed and are written before
// all records on rewrite. It returns the number of records removed; when
// nothing exceeds the ceiling the file is left untouched. A missing file
// yields zero without error.
//
// Name extraction here is deliberately looser than Classify: any substring
// before the first tab counts as the name, and a line without a tab passes
// through uncounted. Deduplication runs on validator output, where every
// record already carries an identifier-shaped name.
func Deduplicate(path string, maxDuplicates int) (int, error) {
	lines, exists, readError := readLines(path)
	if readError != nil {
		return 0, readError
	}
	if !exists {
		return 0, nil
	}

	var headerLines []string
	var recordLines []string
	totalOccurrences := map[string]int{}
	for _, line := range lines {
		if strings.HasPrefix(line, headerPrefix) {
			headerLines = append(headerLines, line)
			continue
		}
		recordLines = append(recordLines, line)
		if tagName, extractable := extractTagName(line); extractable {
			totalOccurrences[tagName]++
		}
	}

	keptOccurrences := map[string]int{}
	var survivingRecords []string
	removedCount := 0
	for _, line := range recordLines {
		tagName, extractable := extractTagName(line)
		if !extractable || totalOccurrences[tagName] <= maxDuplicates {
			survivingRecords = append(survivingRecords, line)
			continue
		}
		if keptOccurrences[tagName] < maxDuplicates {
			keptOccurrences[tagName]++
			survivingRecords = append(survivingRecords, line)
			continue
		}
		removedCount++
	}

	if removedCount == 0 {
		return 0, nil
	}
	if writeError := writeLines(path, headerLines, survivingRecords); writeError != nil {
		return 0, writeError
	}
	return removedCount, nil
}

// extractTagName returns the substring before the first field delimiter and
// whether the line carried one at all.
func extractTagName(line string) (string, bool) {
	delimiterIndex := strings.Index(line, fieldDelimiter)
	if delimiterIndex < 0 {
		return "", false
	}
	return line[:delimiterIndex], true
}

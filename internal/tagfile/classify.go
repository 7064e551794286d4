// Package tagfile validates and trims ctags-style tags files.
package tagfile

import (
	"regexp"
	"strings"
)

// LineKind identifies the structural role of a single tags-file line.
type LineKind int

const (
	// LineKindInvalid marks a line that is neither a header nor a well-formed record.
	LineKindInvalid LineKind = iota
	// LineKindHeader marks a generator metadata line prefixed with '!'.
	LineKindHeader
	// LineKindRecord marks a syntactically valid tag record.
	LineKindRecord
)

const (
	// headerPrefix introduces generator metadata lines such as !_TAG_FILE_FORMAT.
	headerPrefix = "!"
	// fieldDelimiter separates the name, location, and pattern fields of a record.
	fieldDelimiter = "\t"
	// minimumDelimiterCount is the smallest delimiter count a record can carry:
	// a record needs at least name, location, and pattern fields.
	minimumDelimiterCount = 2
)

// tagNamePattern matches identifier-shaped tag names.
var tagNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Classify reports whether line is a header line, a valid tag record, or invalid.
// Header lines are always accepted regardless of their remaining content.
func Classify(line string) LineKind {
	if line == "" {
		return LineKindInvalid
	}
	if strings.HasPrefix(line, headerPrefix) {
		return LineKindHeader
	}
	if strings.Count(line, fieldDelimiter) < minimumDelimiterCount {
		return LineKindInvalid
	}
	tagName := line[:strings.Index(line, fieldDelimiter)]
	if !tagNamePattern.MatchString(tagName) {
		return LineKindInvalid
	}
	return LineKindRecord
}

// Package errors provides error messages that carry hints for fixing the problem.
package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// SuggestiveError is an error that includes suggestions for fixing the problem.
type SuggestiveError struct {
	Message     string
	Suggestions []string
	HelpCommand string
	// Err is the underlying cause, if any.
	Err error
}

func (e *SuggestiveError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nTry one of these:\n")
		for _, s := range e.Suggestions {
			b.WriteString("  ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	if e.HelpCommand != "" {
		b.WriteString("\nRun '")
		b.WriteString(e.HelpCommand)
		b.WriteString("' for more information.")
	}

	return b.String()
}

func (e *SuggestiveError) Unwrap() error {
	return e.Err
}

// UnknownFormatError reports an output format outside the supported set,
// suggesting the closest supported names.
func UnknownFormatError(format string, supported []string) error {
	similar := findSimilar(format, supported, 2)
	if len(similar) == 0 {
		similar = supported
	}
	return &SuggestiveError{
		Message:     fmt.Sprintf("unknown output format %q", format),
		Suggestions: similar,
		HelpCommand: "quire build --help",
	}
}

// NoScenesError reports a drafts directory without any BookN/ActN scenes.
func NoScenesError(draftsDir string, cause error) error {
	return &SuggestiveError{
		Message: fmt.Sprintf("no scenes found under %s", draftsDir),
		Suggestions: []string{
			"Place scenes at " + draftsDir + "/Book1/Act1/Scene01.md",
			"Set drafts_dir in config.yaml to your drafts folder",
			"quire scan   - show what quire sees",
		},
		Err: cause,
	}
}

// FileTooLargeError reports a scene that exceeds max_file_size.
func FileTooLargeError(path string, size, limit int64, cause error) error {
	return &SuggestiveError{
		Message: fmt.Sprintf("%s is %s, over the %s limit",
			path, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit))),
		Suggestions: []string{
			"Split the scene into smaller files",
			"Raise max_file_size in config.yaml",
		},
		Err: cause,
	}
}

// ConverterNotFoundError reports a missing document converter binary.
func ConverterNotFoundError(path string, cause error) error {
	return &SuggestiveError{
		Message: fmt.Sprintf("document converter %q not found", path),
		Suggestions: []string{
			"Install pandoc: https://pandoc.org/installing.html",
			"Set compilation.pandoc_path in config.yaml",
			"quire build --no-compile   - skip manuscript conversion",
		},
		Err: cause,
	}
}

// findSimilar finds strings similar to target using Levenshtein distance.
func findSimilar(target string, candidates []string, maxDistance int) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	targetLower := strings.ToLower(target)

	for _, c := range candidates {
		d := levenshtein(targetLower, strings.ToLower(c))
		if d <= maxDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	var result []string
	for i := 0; i < len(matches) && i < 3; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// levenshtein calculates the edit distance between two strings, per rune.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

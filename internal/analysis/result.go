package analysis

import (
	"errors"
	"fmt"
)

// Result is the analysis of one scene file.
type Result struct {
	WordCount int            `json:"word_count"`
	TopWords  []string       `json:"top_words"`
	TODOs     []string       `json:"todos"`
	Frequency map[string]int `json:"frequency"`
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	freq := make(map[string]int, len(r.Frequency))
	for k, v := range r.Frequency {
		freq[k] = v
	}
	return &Result{
		WordCount: r.WordCount,
		TopWords:  append([]string{}, r.TopWords...),
		TODOs:     append([]string{}, r.TODOs...),
		Frequency: freq,
	}
}

// ErrFileTooLarge is matched by errors.Is for every *SizeLimitError.
var ErrFileTooLarge = errors.New("file too large")

// SizeLimitError reports a file whose size exceeds the analyzer's limit.
type SizeLimitError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file too large: %s is %d bytes (limit %d)", e.Path, e.Size, e.Limit)
}

// Is lets errors.Is(err, ErrFileTooLarge) match.
func (e *SizeLimitError) Is(target error) bool {
	return target == ErrFileTooLarge
}

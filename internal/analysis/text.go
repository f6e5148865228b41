package analysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MinTokenLength is the shortest token, in runes, counted by WordFrequency.
const MinTokenLength = 3

var (
	wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	todoRe = regexp.MustCompile(`(?i)TODO[:\-\s]*(.+)`)
)

// CountWords returns the number of word tokens in text. A word is a maximal
// run of letters, digits and underscores.
func CountWords(text string) int {
	return len(wordRe.FindAllStringIndex(text, -1))
}

// WordFrequency counts lowercased tokens, skipping stopwords and tokens
// shorter than MinTokenLength. It also returns the distinct tokens in the
// order they first appear, which TopWords uses to break ties.
func WordFrequency(text string, stopwords map[string]struct{}) (map[string]int, []string) {
	freq := make(map[string]int)
	var order []string

	for _, tok := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(tok) < MinTokenLength {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if freq[tok] == 0 {
			order = append(order, tok)
		}
		freq[tok]++
	}
	return freq, order
}

// TopWords returns up to n tokens by descending count. Tokens with equal
// counts keep their first-occurrence order.
func TopWords(freq map[string]int, order []string, n int) []string {
	if n <= 0 || len(order) == 0 {
		return []string{}
	}

	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return freq[ranked[i]] > freq[ranked[j]]
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// ExtractTODOs returns the text following a TODO marker on each line, in line
// order. Lines where nothing follows the marker are skipped.
func ExtractTODOs(text string) []string {
	todos := []string{}
	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		m := todoRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if task := strings.TrimSpace(m[1]); task != "" {
			todos = append(todos, task)
		}
	}
	return todos
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// NewStopwordSet lowercases and indexes a stopword list.
func NewStopwordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Package outline renders the project outline report as Markdown.
package outline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmurray2011/quire/internal/project"
)

// TimeLayout is the format of the Generated line.
const TimeLayout = "2006-01-02 15:04:05"

// Options controls outline generation.
type Options struct {
	// Now stamps the Generated line; zero means time.Now.
	Now time.Time
}

// Totals are the project-wide figures reported at the end of the outline.
type Totals struct {
	Scenes int
	Words  int
	TODOs  int
}

// Generate renders the outline for s. Scenes without analysis count as zero
// words and no TODOs.
func Generate(s *project.Structure, opts Options) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	lines := []string{
		"# Book Project Outline\n",
		fmt.Sprintf("Generated: %s\n", now.Format(TimeLayout)),
	}

	for _, book := range s.Books {
		lines = append(lines, fmt.Sprintf("\n## Book %d", book.Number))
		bookWords := 0

		for _, act := range book.Acts {
			lines = append(lines, fmt.Sprintf("\n### Act %d", act.Number))

			for _, sc := range act.Scenes {
				lines = append(lines, sceneLines(sc)...)
			}

			actWords := project.WordCount(act.Scenes)
			bookWords += actWords
			lines = append(lines, fmt.Sprintf("\nAct %d total words: %s", act.Number, comma(actWords)))
		}

		lines = append(lines, fmt.Sprintf("\nBook %d total words: %s", book.Number, comma(bookWords)))
	}

	t := Summarize(s)
	lines = append(lines,
		"\n## Project Statistics",
		"- Total scenes: "+comma(t.Scenes),
		"- Total word count: "+comma(t.Words),
		"- Outstanding TODOs: "+comma(t.TODOs),
	)

	return strings.Join(lines, "\n")
}

func sceneLines(sc *project.Scene) []string {
	var words int
	var top, todos []string
	if sc.Analysis != nil {
		words = sc.Analysis.WordCount
		top = sc.Analysis.TopWords
		todos = sc.Analysis.TODOs
	}

	out := []string{
		"\n#### " + sc.Name,
		"- Words: " + comma(words),
	}
	if len(top) > 0 {
		out = append(out, "- Frequent terms: "+strings.Join(top, ", "))
	}
	if len(todos) > 0 {
		out = append(out, "\nTODOs:")
		for _, todo := range todos {
			out = append(out, "- [ ] "+todo)
		}
	}
	return out
}

// Summarize computes the project totals.
func Summarize(s *project.Structure) Totals {
	scenes := s.Scenes()
	return Totals{
		Scenes: len(scenes),
		Words:  project.WordCount(scenes),
		TODOs:  project.TODOCount(scenes),
	}
}

// Save writes content to path, creating the parent directory.
func Save(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create outline directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to save outline: %w", err)
	}
	return nil
}

func comma(n int) string {
	return humanize.Comma(int64(n))
}

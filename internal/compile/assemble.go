// Package compile assembles scenes into a single manuscript and converts it
// into the configured output formats.
package compile

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/jmurray2011/quire/internal/project"
)

// Error reports a scene that could not be included in the manuscript.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to read scene %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Assemble writes the Markdown manuscript for s to w: a heading per book,
// act and scene followed by each scene's text in reading order.
func Assemble(s *project.Structure, w io.Writer) error {
	bw := bufio.NewWriter(w)

	for _, book := range s.Books {
		fmt.Fprintf(bw, "\n# Book %d\n\n", book.Number)
		for _, act := range book.Acts {
			fmt.Fprintf(bw, "\n## Act %d\n\n", act.Number)
			for _, sc := range act.Scenes {
				fmt.Fprintf(bw, "\n### %s\n\n", sc.Name)
				content, err := os.ReadFile(sc.Path)
				if err != nil {
					return &Error{Path: sc.Path, Err: err}
				}
				if _, err := bw.Write(content); err != nil {
					return err
				}
				if _, err := bw.WriteString("\n\n"); err != nil {
					return err
				}
			}
		}
	}

	return bw.Flush()
}

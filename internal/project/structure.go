// Package project discovers the books, acts and scenes of a drafts tree.
package project

import (
	"path/filepath"
	"strings"

	"github.com/jmurray2011/quire/internal/analysis"
)

// Scene is a single markdown file in the drafts tree.
type Scene struct {
	Path string
	// Name is the file name without its extension.
	Name   string
	Book   int
	Act    int
	Number int

	// Analysis is filled in by the workflow; nil until the scene is analyzed.
	Analysis *analysis.Result
}

func sceneName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Act groups the scenes of one act in reading order.
type Act struct {
	Number int
	Scenes []*Scene
}

// Book groups acts in ascending order.
type Book struct {
	Number int
	Acts   []*Act
}

// Structure is the scanned drafts tree.
type Structure struct {
	Root  string
	Books []*Book
}

// Scenes returns every scene in reading order.
func (s *Structure) Scenes() []*Scene {
	var out []*Scene
	for _, b := range s.Books {
		for _, a := range b.Acts {
			out = append(out, a.Scenes...)
		}
	}
	return out
}

// SceneCount returns the number of scenes.
func (s *Structure) SceneCount() int {
	n := 0
	for _, b := range s.Books {
		for _, a := range b.Acts {
			n += len(a.Scenes)
		}
	}
	return n
}

// Empty reports whether no scenes were found.
func (s *Structure) Empty() bool {
	return s.SceneCount() == 0
}

// WordCount sums the analyzed word counts of a set of scenes.
func WordCount(scenes []*Scene) int {
	total := 0
	for _, sc := range scenes {
		if sc.Analysis != nil {
			total += sc.Analysis.WordCount
		}
	}
	return total
}

// TODOCount sums the outstanding TODO items of a set of scenes.
func TODOCount(scenes []*Scene) int {
	total := 0
	for _, sc := range scenes {
		if sc.Analysis != nil {
			total += len(sc.Analysis.TODOs)
		}
	}
	return total
}

// Scenes returns the book's scenes in reading order.
func (b *Book) Scenes() []*Scene {
	var out []*Scene
	for _, a := range b.Acts {
		out = append(out, a.Scenes...)
	}
	return out
}

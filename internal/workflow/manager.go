// Package workflow runs the scan, analyze, outline, compile and publish
// pipeline for a project.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmurray2011/quire/internal/analysis"
	"github.com/jmurray2011/quire/internal/compile"
	"github.com/jmurray2011/quire/internal/config"
	"github.com/jmurray2011/quire/internal/logging"
	"github.com/jmurray2011/quire/internal/outline"
	"github.com/jmurray2011/quire/internal/project"
)

var (
	// ErrNoScenes is returned when the drafts tree holds no BookN/ActN scenes.
	ErrNoScenes = errors.New("no valid book structure found")
	// ErrAnalysisFailed is returned when a scene produced no analysis.
	ErrAnalysisFailed = errors.New("failed to analyze scene")
	// ErrNoPublisher is returned when publishing was requested but not configured.
	ErrNoPublisher = errors.New("publishing is not configured")
)

// SceneAnalyzer analyzes one scene file.
type SceneAnalyzer interface {
	Analyze(path string, useCache bool) (*analysis.Result, error)
}

// Compiler produces manuscript files from a structure.
type Compiler interface {
	Compile(ctx context.Context, s *project.Structure, formats []string) (compile.Output, error)
}

// Publisher uploads compiled files and reports project totals.
type Publisher interface {
	Publish(ctx context.Context, files []string) ([]string, error)
	ReportTotals(ctx context.Context, projectName string, t outline.Totals, at time.Time) error
}

// Progress is told the scene total before analysis starts and receives one
// tick per analyzed scene.
type Progress interface {
	ChangeMax(max int)
	Add(n int) error
}

// RunOptions selects which stages Run performs.
type RunOptions struct {
	// ReportOnly skips analysis and compilation and writes the outline only.
	ReportOnly bool
	NoCompile  bool
	// Force bypasses the analysis cache.
	Force bool
	// Formats overrides pandoc_output_formats when non-empty.
	Formats []string
	Publish bool
}

// Summary describes a completed run.
type Summary struct {
	Scenes     int
	Words      int
	TODOs      int
	Outline    string
	Manuscript string
	Files      []string
	Published  []string
	Duration   time.Duration
}

// Manager wires the pipeline stages together. Analyzer is required; Compiler
// and Publisher are only needed by the stages that use them.
type Manager struct {
	Config    *config.Config
	Analyzer  SceneAnalyzer
	Compiler  Compiler
	Publisher Publisher
	Progress  Progress
	Logger    logging.Logger
	// Project names the project in published metrics.
	Project string
	Now     func() time.Time
}

func (m *Manager) log() logging.Logger {
	return logging.OrNop(m.Logger)
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Scan reads the drafts tree. An empty tree is reported as ErrNoScenes.
func (m *Manager) Scan() (*project.Structure, error) {
	m.log().Info("scanning project structure")
	s, err := project.Scan(m.Config.DraftsDir, m.Logger)
	if err != nil {
		return nil, err
	}
	if s.Empty() {
		return s, fmt.Errorf("%w in %s", ErrNoScenes, m.Config.DraftsDir)
	}
	return s, nil
}

// AnalyzeScenes analyzes every scene of s through the shared analyzer on a
// bounded pool of workers, storing each result on its scene. The first
// scene without a result cancels the remaining work.
func (m *Manager) AnalyzeScenes(ctx context.Context, s *project.Structure, useCache bool) error {
	if m.Progress != nil {
		m.Progress.ChangeMax(s.SceneCount())
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.Config.WorkerCount())

	for _, sc := range s.Scenes() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := m.Analyzer.Analyze(sc.Path, useCache)
			if err != nil {
				return fmt.Errorf("%w %s: %w", ErrAnalysisFailed, sc.Path, err)
			}
			if res == nil {
				return fmt.Errorf("%w %s", ErrAnalysisFailed, sc.Path)
			}
			sc.Analysis = res
			if m.Progress != nil {
				_ = m.Progress.Add(1)
			}
			return nil
		})
	}

	return g.Wait()
}

// Run executes the pipeline selected by opts.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	start := m.now()
	log := m.log()
	sum := Summary{Outline: m.Config.OutlineFile}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = m.Config.PandocOutputFormats
	}
	for _, f := range formats {
		if err := config.CheckFormat(f); err != nil {
			return sum, err
		}
	}

	s, err := m.Scan()
	if err != nil {
		return sum, err
	}

	if !opts.ReportOnly {
		if err := m.AnalyzeScenes(ctx, s, !opts.Force); err != nil {
			return sum, err
		}
	}

	content := outline.Generate(s, outline.Options{Now: m.now()})
	if err := outline.Save(m.Config.OutlineFile, content); err != nil {
		return sum, err
	}
	log.Info("outline saved to %s", m.Config.OutlineFile)

	totals := outline.Summarize(s)
	sum.Scenes, sum.Words, sum.TODOs = totals.Scenes, totals.Words, totals.TODOs

	if !opts.ReportOnly && !opts.NoCompile {
		if m.Compiler == nil {
			return sum, errors.New("compiler is not configured")
		}
		log.Info("compiling manuscript to: %v", formats)
		out, err := m.Compiler.Compile(ctx, s, formats)
		if err != nil {
			return sum, fmt.Errorf("manuscript compilation failed: %w", err)
		}
		sum.Manuscript = out.Manuscript
		sum.Files = out.Files
		log.Info("created files: %v", out.Files)
	}

	if opts.Publish {
		if m.Publisher == nil {
			return sum, ErrNoPublisher
		}
		if len(sum.Files) > 0 {
			uris, err := m.Publisher.Publish(ctx, sum.Files)
			sum.Published = uris
			if err != nil {
				return sum, fmt.Errorf("publish failed: %w", err)
			}
		} else {
			log.Warn("nothing compiled, skipping upload")
		}
		if err := m.Publisher.ReportTotals(ctx, m.projectName(), totals, m.now()); err != nil {
			log.Warn("could not report totals: %v", err)
		}
	}

	sum.Duration = m.now().Sub(start)
	log.Info("completed in %.1fs", sum.Duration.Seconds())
	return sum, nil
}

func (m *Manager) projectName() string {
	if m.Project != "" {
		return m.Project
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Base(wd)
	}
	return "quire"
}

package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/jmurray2011/quire/internal/config"
	"github.com/jmurray2011/quire/internal/logging"
	"github.com/jmurray2011/quire/internal/project"
)

const (
	// ManuscriptBase is the file name, without extension, of every output.
	ManuscriptBase = "manuscript"
	lockFile       = ".quire.lock"
)

var (
	// ErrNoOutput is returned when every attempt produced no converted file.
	ErrNoOutput = errors.New("manuscript compilation produced no files")
	// ErrLocked is returned when another process is compiling into the same directory.
	ErrLocked = errors.New("compiled directory is locked by another build")
)

// Output lists what a compilation produced.
type Output struct {
	Manuscript string
	Files      []string
	Attempts   int
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithBackoff sets the delay before the first retry; it doubles on each
// further retry.
func WithBackoff(d time.Duration) Option {
	return func(c *Compiler) {
		c.backoff = d
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Compiler) {
		c.logger = logging.OrNop(l).WithField("component", "compile")
	}
}

// Compiler writes the manuscript and converts it per format.
type Compiler struct {
	converter Converter
	outputDir string
	settings  config.Compilation
	timeout   time.Duration
	backoff   time.Duration
	logger    logging.Logger
}

// New builds a Compiler writing into outputDir.
func New(conv Converter, outputDir string, settings config.Compilation, opts ...Option) *Compiler {
	c := &Compiler{
		converter: conv,
		outputDir: outputDir,
		settings:  settings,
		timeout:   time.Duration(settings.Timeout) * time.Second,
		backoff:   time.Second,
		logger:    logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile assembles s and converts it to each requested format that is
// enabled. A run that yields no converted file is retried with exponential
// backoff up to the configured number of retries.
func (c *Compiler) Compile(ctx context.Context, s *project.Structure, formats []string) (Output, error) {
	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		return Output{}, fmt.Errorf("create compiled directory: %w", err)
	}

	lock := flock.New(filepath.Join(c.outputDir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return Output{}, fmt.Errorf("acquire compile lock: %w", err)
	}
	if !ok {
		return Output{}, fmt.Errorf("%w: %s", ErrLocked, c.outputDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			c.logger.Warn("failed to release compile lock: %v", err)
		}
	}()

	var lastErr error
	out := Output{}
	for attempt := 0; attempt <= c.settings.Retries; attempt++ {
		out.Attempts = attempt + 1
		if attempt > 0 {
			c.logger.Info("retry attempt %d/%d", attempt, c.settings.Retries)
		}

		manuscript, files, err := c.compileOnce(ctx, s, formats)
		out.Manuscript = manuscript
		if len(files) > 0 {
			out.Files = files
			return out, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}

		if attempt < c.settings.Retries {
			delay := c.backoff << attempt
			c.logger.Warn("compilation failed, retrying in %s", delay)
			if err := sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}
	}

	c.logger.Error("all compilation attempts failed")
	if lastErr != nil {
		return out, fmt.Errorf("%w: %v", ErrNoOutput, lastErr)
	}
	return out, ErrNoOutput
}

func (c *Compiler) compileOnce(ctx context.Context, s *project.Structure, formats []string) (string, []string, error) {
	manuscript := filepath.Join(c.outputDir, ManuscriptBase+".md")
	if err := c.writeManuscript(s, manuscript); err != nil {
		return "", nil, err
	}

	var files []string
	var lastErr error
	for _, format := range formats {
		fc, known := c.settings.Formats[format]
		if known && !fc.Enabled {
			c.logger.Info("skipping disabled format %s", format)
			continue
		}

		output := filepath.Join(c.outputDir, ManuscriptBase+"."+format)
		if err := c.convert(ctx, manuscript, output, format, fc.ExtraArgs); err != nil {
			c.logger.WithField("format", format).Error("failed to compile: %v", err)
			lastErr = err
			if errors.Is(err, ErrConverterNotFound) || ctx.Err() != nil {
				return manuscript, files, err
			}
			continue
		}
		c.logger.WithField("format", format).Debug("created %s", output)
		files = append(files, output)
	}

	if len(files) == 0 && lastErr == nil {
		lastErr = errors.New("no enabled output formats")
	}
	return manuscript, files, lastErr
}

func (c *Compiler) writeManuscript(s *project.Structure, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manuscript: %w", err)
	}
	if err := Assemble(s, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (c *Compiler) convert(ctx context.Context, input, output, format string, extraArgs []string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.converter.Convert(ctx, input, output, format, extraArgs)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrConverterNotFound)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

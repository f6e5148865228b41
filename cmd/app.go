package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jmurray2011/quire/internal/analysis"
	"github.com/jmurray2011/quire/internal/compile"
	"github.com/jmurray2011/quire/internal/config"
	qerrors "github.com/jmurray2011/quire/internal/errors"
	"github.com/jmurray2011/quire/internal/logging"
	"github.com/jmurray2011/quire/internal/ui"
	"github.com/jmurray2011/quire/internal/workflow"
)

// appContextKey is the context key for the App instance.
type appContextKey struct{}

// Options holds the global flag values.
type Options struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	NoColor    bool
}

// App holds the application dependencies that can be injected for testing.
type App struct {
	Options Options
	Config  *config.Config
	Render  *ui.Renderer
	Logger  logging.Logger
	// ConfigMissing is set when Options.ConfigFile did not exist at startup.
	ConfigMissing bool

	analyzerOnce sync.Once
	analyzer     *analysis.Analyzer
	analyzerErr  error
}

// NewApp loads the configuration named by the global flags.
func NewApp() (*App, error) {
	opts := Options{
		ConfigFile: cfgFile,
		Verbose:    verbose,
		Quiet:      quiet,
		NoColor:    noColor,
	}

	cfg, err := config.Load(opts.ConfigFile)
	missing := errors.Is(err, config.ErrConfigNotFound)
	if err != nil && !missing {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg, opts, os.Stderr)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logger)

	renderer := render
	if renderer == nil {
		renderer = ui.NewRenderer()
	}

	app := NewAppWithConfig(opts, cfg, renderer, logger)
	app.ConfigMissing = missing
	if missing {
		logger.Debug("config file %s not found, using defaults", opts.ConfigFile)
	}
	return app, nil
}

// NewAppWithConfig creates a new App with the given configuration.
// This is primarily used for testing.
func NewAppWithConfig(opts Options, cfg *config.Config, renderer *ui.Renderer, logger logging.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	return &App{
		Options: opts,
		Config:  cfg,
		Render:  renderer,
		Logger:  logging.OrNop(logger),
	}
}

// newLogger builds the process logger. --verbose and --quiet override the
// configured level. Every record carries a run id.
func newLogger(cfg *config.Config, opts Options, w io.Writer) (logging.Logger, error) {
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithFormat(w, format)

	level := logging.ParseLevel(cfg.LogLevel)
	switch {
	case opts.Verbose:
		level = logging.LevelDebug
	case opts.Quiet:
		level = logging.LevelError
	}
	logger.SetLevel(level)

	return logger.WithField("run", uuid.NewString()), nil
}

// GetApp retrieves the App from the command context.
// If no App is set, it creates a new default one.
func GetApp(cmd *cobra.Command) (*App, error) {
	if app, ok := appFromContext(cmd); ok {
		return app, nil
	}
	return NewApp()
}

func appFromContext(cmd *cobra.Command) (*App, bool) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, false
	}
	app, ok := ctx.Value(appContextKey{}).(*App)
	return app, ok
}

// SetApp stores the App in the context for a command.
func SetApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appContextKey{}, app)
}

// Analyzer returns the process-wide analyzer, building it on first use.
func (a *App) Analyzer() (*analysis.Analyzer, error) {
	a.analyzerOnce.Do(func() {
		a.analyzer, a.analyzerErr = analysis.New(a.Config.AnalysisOptions(a.Logger))
	})
	return a.analyzer, a.analyzerErr
}

// Compiler returns a pandoc-backed compiler for the configured output
// directory.
func (a *App) Compiler() *compile.Compiler {
	conv := compile.Pandoc{Path: a.Config.Compilation.PandocPath}
	return compile.New(conv, a.Config.CompiledDir, a.Config.Compilation, compile.WithLogger(a.Logger))
}

// Manager wires the shared analyzer and a compiler into a workflow manager.
func (a *App) Manager() (*workflow.Manager, error) {
	an, err := a.Analyzer()
	if err != nil {
		return nil, err
	}
	return &workflow.Manager{
		Config:   a.Config,
		Analyzer: an,
		Compiler: a.Compiler(),
		Logger:   a.Logger,
	}, nil
}

// ensureConfig writes the default configuration when the config file is
// missing.
func (a *App) ensureConfig() error {
	if !a.ConfigMissing || a.Options.ConfigFile == "" {
		return nil
	}
	created, err := config.WriteDefault(a.Options.ConfigFile, false)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if created {
		a.Logger.Info("created default configuration at %s", a.Options.ConfigFile)
	}
	a.ConfigMissing = false
	return nil
}

// explain attaches suggestions to errors a user can act on.
func (a *App) explain(err error) error {
	var sizeErr *analysis.SizeLimitError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, workflow.ErrNoScenes):
		return qerrors.NoScenesError(a.Config.DraftsDir, err)
	case errors.As(err, &sizeErr):
		return qerrors.FileTooLargeError(sizeErr.Path, sizeErr.Size, sizeErr.Limit, err)
	case errors.Is(err, compile.ErrConverterNotFound):
		return qerrors.ConverterNotFoundError(a.Config.Compilation.PandocPath, err)
	}
	return err
}

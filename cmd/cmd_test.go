package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmurray2011/quire/internal/analysis"
	"github.com/jmurray2011/quire/internal/config"
	qerrors "github.com/jmurray2011/quire/internal/errors"
	"github.com/jmurray2011/quire/internal/ui"
)

// testApp returns an App rooted in a temp project whose renderer writes to
// the returned buffers.
func testApp(t *testing.T) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.DraftsDir = filepath.Join(root, "Drafts")
	cfg.OutlineFile = filepath.Join(root, "Outline", "outline.md")
	cfg.CompiledDir = filepath.Join(root, "Compiled")

	var out, errOut bytes.Buffer
	renderer := ui.NewRendererWithOptions(ui.WithOutput(&out), ui.WithError(&errOut), ui.WithNoColor(true))
	app := NewAppWithConfig(Options{ConfigFile: filepath.Join(root, "config.yaml")}, cfg, renderer, nil)
	return app, &out, &errOut
}

func writeScene(t *testing.T, app *App, rel, content string) string {
	t.Helper()
	path := filepath.Join(app.Config.DraftsDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

// resetCommand restores every flag under c to its default and points every
// command at ctx, so the command tree can be executed once per test.
func resetCommand(c *cobra.Command, ctx context.Context) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	c.SetContext(ctx)
	for _, sub := range c.Commands() {
		resetCommand(sub, ctx)
	}
}

func execute(t *testing.T, app *App, args ...string) error {
	t.Helper()
	ctx := SetApp(t.Context(), app)
	resetCommand(rootCmd, ctx)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func TestNewAppWithConfig(t *testing.T) {
	app := NewAppWithConfig(Options{ConfigFile: "book.yaml", Verbose: true}, nil, nil, nil)

	if app.Options.ConfigFile != "book.yaml" {
		t.Errorf("ConfigFile = %q, want %q", app.Options.ConfigFile, "book.yaml")
	}
	if !app.Options.Verbose {
		t.Error("expected verbose to be true")
	}
	if app.Config == nil || app.Config.TopWordsCount != 5 {
		t.Errorf("nil config should fall back to defaults, got %+v", app.Config)
	}
	if app.Logger == nil {
		t.Error("Logger should never be nil")
	}
}

func TestSetAndGetApp(t *testing.T) {
	app := NewAppWithConfig(Options{ConfigFile: "context-test.yaml"}, nil, nil, nil)

	cmd := &cobra.Command{}
	cmd.SetContext(SetApp(t.Context(), app))

	retrieved, err := GetApp(cmd)
	if err != nil {
		t.Fatalf("GetApp() error = %v", err)
	}
	if retrieved != app {
		t.Error("GetApp() should return the App stored in the context")
	}
}

func TestAppAnalyzerIsShared(t *testing.T) {
	app, _, _ := testApp(t)

	a1, err := app.Analyzer()
	if err != nil {
		t.Fatalf("Analyzer() error = %v", err)
	}
	a2, _ := app.Analyzer()
	if a1 != a2 {
		t.Error("Analyzer() should return the same instance")
	}

	m, err := app.Manager()
	if err != nil {
		t.Fatalf("Manager() error = %v", err)
	}
	if m.Analyzer != a1 {
		t.Error("Manager should use the shared analyzer")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		opts      Options
		wantDebug bool
		wantInfo  bool
	}{
		{"config level", "info", Options{}, false, true},
		{"config debug", "debug", Options{}, true, true},
		{"verbose overrides", "warn", Options{Verbose: true}, true, true},
		{"quiet overrides", "debug", Options{Quiet: true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.LogLevel = tt.level

			var buf bytes.Buffer
			logger, err := newLogger(cfg, tt.opts, &buf)
			if err != nil {
				t.Fatalf("newLogger() error = %v", err)
			}
			logger.Debug("debug line")
			logger.Info("info line")
			logger.Error("error line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "info line"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
			if !strings.Contains(out, "error line") {
				t.Error("errors should always be logged")
			}
			if !strings.Contains(out, "run=") {
				t.Errorf("records should carry a run id:\n%s", out)
			}
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"

	var buf bytes.Buffer
	logger, err := newLogger(cfg, Options{}, &buf)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["run"] == nil {
		t.Errorf("record = %v", rec)
	}
}

func TestExplain(t *testing.T) {
	app, _, _ := testApp(t)

	sizeErr := &analysis.SizeLimitError{Path: "big.md", Size: 2048, Limit: 1024}
	var suggestive *qerrors.SuggestiveError
	if err := app.explain(sizeErr); !errors.As(err, &suggestive) || !errors.Is(err, analysis.ErrFileTooLarge) {
		t.Errorf("explain(size) = %v, want suggestions wrapping the size error", err)
	}

	plain := errors.New("boom")
	if err := app.explain(plain); err != plain {
		t.Errorf("explain(plain) = %v, want unchanged", err)
	}
	if app.explain(nil) != nil {
		t.Error("explain(nil) should be nil")
	}
}

func TestAnalyzeCommand(t *testing.T) {
	app, out, _ := testApp(t)
	path := writeScene(t, app, "Book1/Act1/Scene01.md", "The dragon and the dragon slept.\nTODO: name the dragon")

	if err := execute(t, app, "analyze", path); err != nil {
		t.Fatalf("analyze error = %v", err)
	}

	got := out.String()
	for _, want := range []string{path, "Words: 10", "dragon", "[ ] name the dragon"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestAnalyzeCommand_JSONUsesCache(t *testing.T) {
	app, out, _ := testApp(t)
	path := writeScene(t, app, "Book1/Act1/Scene01.md", "Rain fell on the harbor.")

	if err := execute(t, app, "analyze", "--json", path, path); err != nil {
		t.Fatalf("analyze error = %v", err)
	}

	var reports []sceneReport
	if err := json.Unmarshal(out.Bytes(), &reports); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(reports) != 2 || reports[0].Result.WordCount != 5 {
		t.Errorf("reports = %+v", reports)
	}

	an, _ := app.Analyzer()
	if got := an.Stats().ContentReads; got != 1 {
		t.Errorf("ContentReads = %d, want 1", got)
	}
}

func TestAnalyzeCommand_Failures(t *testing.T) {
	app, _, errOut := testApp(t)
	good := writeScene(t, app, "Book1/Act1/Scene01.md", "fine")

	err := execute(t, app, "analyze", good, filepath.Join(app.Config.DraftsDir, "missing.md"))
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files") {
		t.Errorf("analyze error = %v, want 1 of 2 files", err)
	}
	if !strings.Contains(errOut.String(), "failed to analyze") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestAnalyzeCommand_TooLarge(t *testing.T) {
	app, _, _ := testApp(t)
	app.Config.MaxFileSize = 4
	path := writeScene(t, app, "big.md", "far too long")

	err := execute(t, app, "analyze", path)
	if !errors.Is(err, analysis.ErrFileTooLarge) {
		t.Fatalf("analyze error = %v, want ErrFileTooLarge", err)
	}
	if !strings.Contains(err.Error(), "max_file_size") {
		t.Errorf("error should suggest max_file_size:\n%v", err)
	}
}

func TestScanCommand(t *testing.T) {
	app, out, _ := testApp(t)
	writeScene(t, app, "Book1/Act1/Scene02.md", "b")
	writeScene(t, app, "Book1/Act1/Scene01.md", "a")
	writeScene(t, app, "Notes/ideas.md", "ignored")

	if err := execute(t, app, "scan"); err != nil {
		t.Fatalf("scan error = %v", err)
	}

	got := out.String()
	first := strings.Index(got, "Scene01")
	second := strings.Index(got, "Scene02")
	if first < 0 || second < 0 || first > second {
		t.Errorf("scenes missing or out of order:\n%s", got)
	}
	if strings.Contains(got, "ideas") {
		t.Errorf("scene outside BookN/ActN listed:\n%s", got)
	}
}

func TestBuildCommand_ReportOnly(t *testing.T) {
	app, out, _ := testApp(t)
	writeScene(t, app, "Book1/Act1/Scene01.md", "Once upon a time.")

	if err := execute(t, app, "build", "--report-only"); err != nil {
		t.Fatalf("build error = %v", err)
	}

	data, err := os.ReadFile(app.Config.OutlineFile)
	if err != nil {
		t.Fatalf("outline not written: %v", err)
	}
	if !strings.Contains(string(data), "#### Scene01") {
		t.Errorf("outline missing scene:\n%s", data)
	}
	if !strings.Contains(out.String(), "Scenes: 1") {
		t.Errorf("summary missing:\n%s", out.String())
	}
}

func TestBuildCommand_NoCompile(t *testing.T) {
	app, out, _ := testApp(t)
	writeScene(t, app, "Book1/Act1/Scene01.md", "Once upon a time there was a dragon.")
	app.ConfigMissing = true

	if err := execute(t, app, "build", "--no-compile", "--workers", "2"); err != nil {
		t.Fatalf("build error = %v", err)
	}

	if !strings.Contains(out.String(), "Words: 8") {
		t.Errorf("summary missing words:\n%s", out.String())
	}
	if app.Config.Workers != 2 {
		t.Errorf("Workers = %d, want 2", app.Config.Workers)
	}
	if _, err := os.Stat(app.Options.ConfigFile); err != nil {
		t.Errorf("missing config should be created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(app.Config.CompiledDir, "manuscript.md")); err == nil {
		t.Error("--no-compile should not write a manuscript")
	}
}

func TestBuildCommand_NoScenes(t *testing.T) {
	app, _, _ := testApp(t)

	err := execute(t, app, "build", "--no-compile")
	var suggestive *qerrors.SuggestiveError
	if !errors.As(err, &suggestive) {
		t.Fatalf("build error = %v, want suggestions", err)
	}
	if !strings.Contains(err.Error(), "Book1/Act1/Scene01.md") {
		t.Errorf("error should show the expected layout:\n%v", err)
	}
}

func TestBuildCommand_InvalidFormat(t *testing.T) {
	app, _, _ := testApp(t)
	writeScene(t, app, "Book1/Act1/Scene01.md", "text")

	err := execute(t, app, "build", "--output-format", "epbu")
	if err == nil || !strings.Contains(err.Error(), "epub") {
		t.Errorf("build error = %v, want a suggestion of epub", err)
	}
}

func TestVerboseAndQuietAreExclusive(t *testing.T) {
	app, _, _ := testApp(t)
	if err := execute(t, app, "scan", "--verbose", "--quiet"); err == nil {
		t.Error("--verbose with --quiet should fail")
	}
}

func TestInitCommand(t *testing.T) {
	app, out, errOut := testApp(t)

	if err := execute(t, app, "init"); err != nil {
		t.Fatalf("init error = %v", err)
	}
	if !strings.Contains(out.String(), "Created") {
		t.Errorf("stdout = %q", out.String())
	}

	cfg, err := config.Load(app.Options.ConfigFile)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.DraftsDir != config.Default().DraftsDir {
		t.Errorf("DraftsDir = %q", cfg.DraftsDir)
	}

	if err := execute(t, app, "init"); err != nil {
		t.Fatalf("second init error = %v", err)
	}
	if !strings.Contains(errOut.String(), "already exists") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestCompletionCommand(t *testing.T) {
	app, _, _ := testApp(t)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	if err := execute(t, app, "completion", "fish"); err != nil {
		t.Errorf("completion error = %v", err)
	}
	if !strings.Contains(buf.String(), "quire") {
		t.Errorf("fish completion does not mention quire:\n%s", buf.String())
	}
	if err := execute(t, app, "completion", "tcsh"); err == nil {
		t.Error("unsupported shell should fail")
	}
}


package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmurray2011/quire/internal/analysis"
	"github.com/jmurray2011/quire/internal/compile"
	"github.com/jmurray2011/quire/internal/config"
	"github.com/jmurray2011/quire/internal/outline"
	"github.com/jmurray2011/quire/internal/project"
)

type fakeCompiler struct {
	formats []string
	calls   int
	err     error
}

func (f *fakeCompiler) Compile(ctx context.Context, s *project.Structure, formats []string) (compile.Output, error) {
	f.calls++
	f.formats = formats
	if f.err != nil {
		return compile.Output{}, f.err
	}
	var files []string
	for _, fm := range formats {
		files = append(files, "Compiled/manuscript."+fm)
	}
	return compile.Output{Manuscript: "Compiled/manuscript.md", Files: files, Attempts: 1}, nil
}

type fakePublisher struct {
	files   []string
	totals  outline.Totals
	project string
}

func (f *fakePublisher) Publish(ctx context.Context, files []string) ([]string, error) {
	f.files = files
	var uris []string
	for _, file := range files {
		uris = append(uris, "s3://books/"+filepath.Base(file))
	}
	return uris, nil
}

func (f *fakePublisher) ReportTotals(ctx context.Context, projectName string, t outline.Totals, at time.Time) error {
	f.project = projectName
	f.totals = t
	return nil
}

type countingProgress struct {
	max int
	n   atomic.Int64
}

func (p *countingProgress) ChangeMax(max int) { p.max = max }

func (p *countingProgress) Add(n int) error {
	p.n.Add(int64(n))
	return nil
}

// stubAnalyzer returns a canned result per path and records cache use.
type stubAnalyzer struct {
	mu       sync.Mutex
	results  map[string]*analysis.Result
	useCache []bool
}

func (s *stubAnalyzer) Analyze(path string, useCache bool) (*analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useCache = append(s.useCache, useCache)
	return s.results[filepath.Base(path)], nil
}

func newProject(t *testing.T, scenes map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.DraftsDir = filepath.Join(root, "Drafts")
	cfg.OutlineFile = filepath.Join(root, "Outline", "outline.md")
	cfg.CompiledDir = filepath.Join(root, "Compiled")
	cfg.Workers = 4

	for rel, content := range scenes {
		path := filepath.Join(cfg.DraftsDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return cfg
}

func realAnalyzer(t *testing.T, cfg *config.Config) *analysis.Analyzer {
	t.Helper()
	a, err := analysis.New(cfg.AnalysisOptions(nil))
	if err != nil {
		t.Fatalf("analysis.New() error = %v", err)
	}
	return a
}

var twoBooks = map[string]string{
	"Book1/Act1/Scene01.md": "The dragon slept in the castle.\nTODO: name the dragon",
	"Book1/Act1/Scene02.md": "Morning came to the castle.",
	"Book2/Act1/Scene01.md": "An epilogue of sorts.",
}

func TestScan_NoScenes(t *testing.T) {
	cfg := newProject(t, map[string]string{"Notes/idea.md": "nothing"})
	m := &Manager{Config: cfg}

	_, err := m.Scan()
	if !errors.Is(err, ErrNoScenes) {
		t.Fatalf("Scan() error = %v, want ErrNoScenes", err)
	}
}

func TestAnalyzeScenes(t *testing.T) {
	cfg := newProject(t, twoBooks)
	progress := &countingProgress{}
	m := &Manager{Config: cfg, Analyzer: realAnalyzer(t, cfg), Progress: progress}

	s, err := m.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if err := m.AnalyzeScenes(t.Context(), s, true); err != nil {
		t.Fatalf("AnalyzeScenes() error = %v", err)
	}

	for _, sc := range s.Scenes() {
		if sc.Analysis == nil {
			t.Errorf("%s has no analysis", sc.Path)
		}
	}
	if got := progress.n.Load(); got != 3 || progress.max != 3 {
		t.Errorf("progress = %d/%d, want 3/3", got, progress.max)
	}
	first := s.Books[0].Acts[0].Scenes[0].Analysis
	if len(first.TODOs) != 1 || first.TODOs[0] != "name the dragon" {
		t.Errorf("Scene01 TODOs = %v", first.TODOs)
	}
}

func TestAnalyzeScenes_MissingResultFails(t *testing.T) {
	cfg := newProject(t, twoBooks)
	stub := &stubAnalyzer{results: map[string]*analysis.Result{
		"Scene01.md": {WordCount: 1},
	}}
	m := &Manager{Config: cfg, Analyzer: stub}

	s, _ := m.Scan()
	err := m.AnalyzeScenes(t.Context(), s, true)
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("AnalyzeScenes() error = %v, want ErrAnalysisFailed", err)
	}
	if !strings.Contains(err.Error(), "Scene02.md") {
		t.Errorf("error should name the scene: %v", err)
	}
}

func TestAnalyzeScenes_SizeLimit(t *testing.T) {
	cfg := newProject(t, map[string]string{"Book1/Act1/Scene01.md": strings.Repeat("word ", 10)})
	cfg.MaxFileSize = 8
	m := &Manager{Config: cfg, Analyzer: realAnalyzer(t, cfg)}

	s, _ := m.Scan()
	err := m.AnalyzeScenes(t.Context(), s, true)
	if !errors.Is(err, analysis.ErrFileTooLarge) {
		t.Fatalf("AnalyzeScenes() error = %v, want ErrFileTooLarge", err)
	}
	var sizeErr *analysis.SizeLimitError
	if !errors.As(err, &sizeErr) || sizeErr.Limit != 8 {
		t.Errorf("error should carry the size limit: %v", err)
	}
}

func TestRun(t *testing.T) {
	cfg := newProject(t, twoBooks)
	comp := &fakeCompiler{}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m := &Manager{
		Config:   cfg,
		Analyzer: realAnalyzer(t, cfg),
		Compiler: comp,
		Now:      func() time.Time { return now },
	}

	sum, err := m.Run(t.Context(), RunOptions{Formats: []string{"docx"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Scenes != 3 {
		t.Errorf("Scenes = %d, want 3", sum.Scenes)
	}
	if sum.Words != 19 {
		t.Errorf("Words = %d, want 19", sum.Words)
	}
	if sum.TODOs != 1 {
		t.Errorf("TODOs = %d, want 1", sum.TODOs)
	}
	if comp.calls != 1 || strings.Join(comp.formats, ",") != "docx" {
		t.Errorf("compiler calls = %d formats = %v", comp.calls, comp.formats)
	}
	if len(sum.Files) != 1 {
		t.Errorf("Files = %v", sum.Files)
	}

	data, err := os.ReadFile(cfg.OutlineFile)
	if err != nil {
		t.Fatalf("outline not written: %v", err)
	}
	if !strings.Contains(string(data), "Generated: 2026-05-01 12:00:00") {
		t.Errorf("outline missing timestamp:\n%s", data)
	}
	if !strings.Contains(string(data), "- [ ] name the dragon") {
		t.Errorf("outline missing TODO:\n%s", data)
	}
}

func TestRun_ReportOnly(t *testing.T) {
	cfg := newProject(t, twoBooks)
	stub := &stubAnalyzer{}
	comp := &fakeCompiler{}
	m := &Manager{Config: cfg, Analyzer: stub, Compiler: comp}

	sum, err := m.Run(t.Context(), RunOptions{ReportOnly: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(stub.useCache) != 0 {
		t.Error("report-only must not analyze scenes")
	}
	if comp.calls != 0 {
		t.Error("report-only must not compile")
	}
	if sum.Scenes != 3 || sum.Words != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if _, err := os.Stat(cfg.OutlineFile); err != nil {
		t.Errorf("outline should still be written: %v", err)
	}
}

func TestRun_ForceBypassesCache(t *testing.T) {
	cfg := newProject(t, twoBooks)
	stub := &stubAnalyzer{results: map[string]*analysis.Result{
		"Scene01.md": {}, "Scene02.md": {},
	}}
	m := &Manager{Config: cfg, Analyzer: stub}

	if _, err := m.Run(t.Context(), RunOptions{NoCompile: true, Force: true}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, useCache := range stub.useCache {
		if useCache {
			t.Fatal("--force should analyze without the cache")
		}
	}
}

func TestRun_CachedRerunSkipsReads(t *testing.T) {
	cfg := newProject(t, twoBooks)
	a := realAnalyzer(t, cfg)
	m := &Manager{Config: cfg, Analyzer: a}

	for i := 0; i < 2; i++ {
		if _, err := m.Run(t.Context(), RunOptions{NoCompile: true}); err != nil {
			t.Fatalf("Run() #%d error = %v", i+1, err)
		}
	}
	if got := a.Stats().ContentReads; got != 3 {
		t.Errorf("ContentReads = %d, want 3 across two runs", got)
	}
}

func TestRun_InvalidFormat(t *testing.T) {
	cfg := newProject(t, twoBooks)
	m := &Manager{Config: cfg, Analyzer: &stubAnalyzer{}}

	_, err := m.Run(t.Context(), RunOptions{Formats: []string{"html"}})
	if err == nil || !strings.Contains(err.Error(), `unknown output format "html"`) {
		t.Errorf("Run() error = %v, want unknown format", err)
	}
}

func TestRun_CompileFailure(t *testing.T) {
	cfg := newProject(t, twoBooks)
	m := &Manager{
		Config:   cfg,
		Analyzer: realAnalyzer(t, cfg),
		Compiler: &fakeCompiler{err: compile.ErrNoOutput},
	}

	_, err := m.Run(t.Context(), RunOptions{})
	if !errors.Is(err, compile.ErrNoOutput) {
		t.Errorf("Run() error = %v, want ErrNoOutput", err)
	}
}

func TestRun_Publish(t *testing.T) {
	cfg := newProject(t, twoBooks)
	pub := &fakePublisher{}
	m := &Manager{
		Config:    cfg,
		Analyzer:  realAnalyzer(t, cfg),
		Compiler:  &fakeCompiler{},
		Publisher: pub,
		Project:   "trilogy",
	}

	sum, err := m.Run(t.Context(), RunOptions{Formats: []string{"docx", "epub"}, Publish: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"s3://books/manuscript.docx", "s3://books/manuscript.epub"}
	if strings.Join(sum.Published, ",") != strings.Join(want, ",") {
		t.Errorf("Published = %v, want %v", sum.Published, want)
	}
	if pub.project != "trilogy" || pub.totals.Scenes != 3 {
		t.Errorf("reported totals = %+v for %q", pub.totals, pub.project)
	}
}

func TestRun_PublishWithoutPublisher(t *testing.T) {
	cfg := newProject(t, twoBooks)
	m := &Manager{Config: cfg, Analyzer: realAnalyzer(t, cfg)}

	_, err := m.Run(t.Context(), RunOptions{NoCompile: true, Publish: true})
	if !errors.Is(err, ErrNoPublisher) {
		t.Errorf("Run() error = %v, want ErrNoPublisher", err)
	}
}

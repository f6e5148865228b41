package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmurray2011/quire/internal/analysis"
	"github.com/jmurray2011/quire/internal/project"
	"github.com/jmurray2011/quire/internal/workflow"
)

// Renderer handles all terminal output with consistent styling.
type Renderer struct {
	out     io.Writer
	err     io.Writer
	noColor bool
	quiet   bool
}

// NewRenderer creates a new Renderer with default settings.
func NewRenderer() *Renderer {
	return &Renderer{
		out: os.Stdout,
		err: os.Stderr,
	}
}

// Option is a functional option for configuring the Renderer.
type Option func(*Renderer)

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) {
		r.out = w
	}
}

// WithError sets the error writer.
func WithError(w io.Writer) Option {
	return func(r *Renderer) {
		r.err = w
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) Option {
	return func(r *Renderer) {
		r.noColor = noColor
	}
}

// WithQuiet enables quiet mode (suppresses status messages).
func WithQuiet(quiet bool) Option {
	return func(r *Renderer) {
		r.quiet = quiet
	}
}

// NewRendererWithOptions creates a new Renderer with the given options.
func NewRendererWithOptions(opts ...Option) *Renderer {
	r := NewRenderer()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// render applies styling if color is enabled.
func (r *Renderer) render(style lipgloss.Style, text string) string {
	if r.noColor {
		return text
	}
	return style.Render(text)
}

// --- Status and Messages ---

// Status prints a status message (suppressed in quiet mode).
func (r *Renderer) Status(format string, args ...any) {
	if r.quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(StatusStyle, msg))
}

// Info prints an informational message.
func (r *Renderer) Info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.out, msg)
}

// Success prints a success message.
func (r *Renderer) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.out, r.render(SuccessStyle, msg))
}

// Warning prints a warning message.
func (r *Renderer) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(WarningStyle, "Warning: "+msg))
}

// Error prints an error message.
func (r *Renderer) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(ErrorStyle, "Error: "+msg))
}

// Debug prints a debug message (only when verbose).
func (r *Renderer) Debug(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(MutedStyle, "[DEBUG] "+msg))
}

// --- Formatted Output ---

// KeyValue prints a key-value pair.
func (r *Renderer) KeyValue(key, value string) {
	fmt.Fprintln(r.out, r.field(key, value))
}

func (r *Renderer) field(key, value string) string {
	return r.render(LabelStyle, key+":") + " " + r.render(ValueStyle, value)
}

// KeyValueIndent prints an indented key-value pair.
func (r *Renderer) KeyValueIndent(key, value string, indent int) {
	prefix := strings.Repeat("  ", indent)
	label := r.render(LabelStyle, key+":")
	fmt.Fprintf(r.out, "%s%s %s\n", prefix, label, value)
}

// Section prints a section title.
func (r *Renderer) Section(title string) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.render(SectionTitleStyle, title))
}

// Divider prints a horizontal divider.
func (r *Renderer) Divider() {
	fmt.Fprintln(r.out, r.render(MutedStyle, strings.Repeat("─", 40)))
}

// Newline prints a blank line.
func (r *Renderer) Newline() {
	fmt.Fprintln(r.out)
}

// --- Table Rendering ---

// Table renders a simple table.
func (r *Renderer) Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Print header
	headerParts := make([]string, len(headers))
	for i, h := range headers {
		headerParts[i] = r.render(LabelStyle, fmt.Sprintf("%-*s", widths[i], h))
	}
	fmt.Fprintln(r.out, strings.Join(headerParts, "  "))

	// Print separator
	sepParts := make([]string, len(headers))
	for i, w := range widths {
		sepParts[i] = strings.Repeat("-", w)
	}
	fmt.Fprintln(r.out, r.render(MutedStyle, strings.Join(sepParts, "  ")))

	// Print rows
	for _, row := range rows {
		rowParts := make([]string, len(headers))
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			rowParts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		fmt.Fprintln(r.out, strings.Join(rowParts, "  "))
	}
}

// --- Specialized Renderers ---

// SceneAnalysis renders the analysis of one scene file.
func (r *Renderer) SceneAnalysis(path string, res *analysis.Result) {
	fmt.Fprintln(r.out, r.render(PathStyle, path))
	r.KeyValueIndent("Words", humanize.Comma(int64(res.WordCount)), 1)
	if len(res.TopWords) > 0 {
		terms := make([]string, len(res.TopWords))
		for i, w := range res.TopWords {
			terms[i] = r.render(TermStyle, w)
		}
		r.KeyValueIndent("Frequent terms", strings.Join(terms, ", "), 1)
	}
	if len(res.TODOs) > 0 {
		r.KeyValueIndent("TODOs", strconv.Itoa(len(res.TODOs)), 1)
		for _, todo := range res.TODOs {
			fmt.Fprintf(r.out, "    %s %s\n", r.render(TODOStyle, "[ ]"), todo)
		}
	}
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Structure renders the scanned book/act/scene tree as a table.
func (r *Renderer) Structure(s *project.Structure) {
	if s.Empty() {
		r.NoResults()
		return
	}
	var rows [][]string
	for _, sc := range s.Scenes() {
		num := strconv.Itoa(sc.Number)
		if sc.Number == project.UnnumberedScene {
			num = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(sc.Book),
			strconv.Itoa(sc.Act),
			num,
			sc.Name,
			sc.Path,
		})
	}
	r.Table([]string{"BOOK", "ACT", "#", "SCENE", "PATH"}, rows)
	r.Newline()
	r.Info("%s", r.render(MutedStyle, fmt.Sprintf("%d scenes in %d books", s.SceneCount(), len(s.Books))))
}

// Summary renders the result of a workflow run.
func (r *Renderer) Summary(sum workflow.Summary) {
	lines := []string{
		r.render(HeadingStyle, "Build summary"),
		r.field("Scenes", humanize.Comma(int64(sum.Scenes))),
		r.field("Words", humanize.Comma(int64(sum.Words))),
		r.field("TODOs", humanize.Comma(int64(sum.TODOs))),
		r.field("Outline", sum.Outline),
	}
	if sum.Manuscript != "" {
		lines = append(lines, r.field("Manuscript", sum.Manuscript))
	}
	for _, f := range sum.Files {
		lines = append(lines, r.field("Created", f))
	}
	for _, uri := range sum.Published {
		lines = append(lines, r.field("Published", uri))
	}
	lines = append(lines, r.render(MutedStyle, "Completed in "+sum.Duration.Round(100*time.Millisecond).String()))

	body := strings.Join(lines, "\n")
	if !r.noColor {
		body = InfoBoxStyle.Render(body)
	}
	fmt.Fprintln(r.out, body)
}

// CacheStats renders analyzer cache counters.
func (r *Renderer) CacheStats(st analysis.Stats) {
	r.Section("Analysis cache")
	r.KeyValue("Entries", fmt.Sprintf("%d / %d", st.CacheLen, st.CacheCap))
	r.KeyValue("Hits", humanize.Comma(int64(st.Cache.Hits)))
	r.KeyValue("Misses", humanize.Comma(int64(st.Cache.Misses)))
	r.KeyValue("Evictions", humanize.Comma(int64(st.Cache.Evictions)))
	r.KeyValue("Files read", humanize.Comma(int64(st.ContentReads)))
}

// Failure renders an error in a bordered box.
func (r *Renderer) Failure(err error) {
	msg := "Error: " + err.Error()
	if r.noColor {
		fmt.Fprintln(r.err, msg)
		return
	}
	fmt.Fprintln(r.err, ErrorBoxStyle.Render(r.render(ErrorStyle, msg)))
}

// NoResults prints a "no results" message.
func (r *Renderer) NoResults() {
	fmt.Fprintln(r.out, r.render(MutedStyle, "No scenes found."))
}

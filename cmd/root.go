package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jmurray2011/quire/internal/ui"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	quiet   bool

	// render is the global renderer for all output
	render *ui.Renderer
)

var rootCmd = &cobra.Command{
	Use:   "quire",
	Short: "Outline, analyze and compile a multi-book manuscript",
	Long: `quire - a gathering of folded sheets, the unit a book is bound from.

Manages a writing project laid out as books, acts and scenes:

  4_Scenes_and_Chapters/Drafts/
    Book1/
      Act1/
        Scene01.md
        Scene02.md
      Act2/
        ...

Each scene is analyzed for word count, frequent terms and TODO markers.
Results are cached by content, so unchanged scenes are not re-read on the
next run. The outline is regenerated from the analysis and the scenes are
compiled into a single manuscript with pandoc.

Configuration:
  Settings are read from config.yaml in the current directory (see --config)
  and can be overridden with QUIRE_* environment variables:

    QUIRE_CACHE_SIZE=500
    QUIRE_COMPILATION_TIMEOUT=600

Examples:
  # Create a default config.yaml
  quire init

  # Analyze every scene, write the outline and compile the manuscript
  quire build

  # Only regenerate the outline
  quire build --report-only

  # Compile to PDF and EPUB, ignoring cached analysis
  quire build --output-format pdf,epub --force

  # Keep the outline current while writing
  quire watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if render != nil {
			render.Failure(err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

// SetVersion sets the version string for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	cobra.OnInitialize(initRenderer)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Increase output verbosity")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// initRenderer initializes the global renderer with current settings.
func initRenderer() {
	render = ui.NewRendererWithOptions(
		ui.WithNoColor(noColor || os.Getenv("NO_COLOR") != ""),
		ui.WithQuiet(quiet),
	)
}

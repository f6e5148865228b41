package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jmurray2011/quire/internal/publish"
	"github.com/jmurray2011/quire/internal/workflow"
)

var (
	buildNoCompile  bool
	buildReportOnly bool
	buildForce      bool
	buildPublish    bool
	buildFormats    []string
	buildWorkers    int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Analyze scenes, write the outline and compile the manuscript",
	Long: `Run the full project workflow:

  1. Scan the drafts directory for BookN/ActN scenes
  2. Analyze each scene (cached by content)
  3. Write the outline to outline_file
  4. Compile the manuscript with pandoc into compiled_dir

A default config.yaml is created if the config file does not exist.

Examples:
  # Everything, with the formats from config.yaml
  quire build

  # Outline only; no analysis, no compilation
  quire build --report-only

  # Analysis and outline, skip pandoc
  quire build --no-compile

  # Re-read every scene and compile to PDF
  quire build --force --output-format pdf

  # Upload the compiled files to the configured S3 bucket
  quire build --publish`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildNoCompile, "no-compile", false, "Skip manuscript compilation")
	buildCmd.Flags().BoolVar(&buildReportOnly, "report-only", false, "Only generate the outline report")
	buildCmd.Flags().StringSliceVar(&buildFormats, "output-format", nil, "Comma-separated output formats (pdf,docx,epub)")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Force reanalysis of all scenes")
	buildCmd.Flags().BoolVar(&buildPublish, "publish", false, "Upload compiled files to S3 and report totals")
	buildCmd.Flags().IntVarP(&buildWorkers, "workers", "w", 0, "Scenes analyzed in parallel (default: workers from config)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}
	if err := app.ensureConfig(); err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		app.Config.Workers = buildWorkers
		if err := app.Config.Validate(); err != nil {
			return err
		}
	}

	m, err := app.Manager()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if buildPublish {
		pub, err := publish.FromConfig(ctx, app.Config.Publish, app.Logger)
		if err != nil {
			return err
		}
		m.Publisher = pub
	}

	var bar *progressbar.ProgressBar
	if !buildReportOnly && showProgress(app) {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Analyzing scenes"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		m.Progress = bar
	}

	app.Render.Status("Building project...")
	sum, err := m.Run(ctx, workflow.RunOptions{
		ReportOnly: buildReportOnly,
		NoCompile:  buildNoCompile,
		Force:      buildForce,
		Formats:    buildFormats,
		Publish:    buildPublish,
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return app.explain(err)
	}

	app.Render.Summary(sum)
	if app.Options.Verbose {
		an, _ := app.Analyzer()
		app.Render.CacheStats(an.Stats())
	}
	return nil
}

// showProgress reports whether a progress bar should be drawn on stderr.
func showProgress(app *App) bool {
	if app.Options.Quiet {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

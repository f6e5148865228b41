package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmurray2011/quire/internal/analysis"
)

var (
	analyzeNoCache bool
	analyzeJSON    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Analyze individual scene files",
	Long: `Print the word count, most frequent terms and TODO markers of scene files.

Files are analyzed in order through the shared content cache, so a file
given twice (or two files with identical content) is read only once.

Examples:
  quire analyze 4_Scenes_and_Chapters/Drafts/Book1/Act1/Scene01.md

  # Machine-readable output
  quire analyze --json Drafts/Book1/Act2/*.md

  # Bypass the cache
  quire analyze --no-cache Scene01.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "Do not read or populate the analysis cache")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output results as JSON")
}

// sceneReport is the JSON shape of one analyzed file.
type sceneReport struct {
	Path   string           `json:"path"`
	Result *analysis.Result `json:"result"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}
	an, err := app.Analyzer()
	if err != nil {
		return err
	}

	reports := make([]sceneReport, 0, len(args))
	failed := 0
	for i, path := range args {
		res, err := an.Analyze(path, !analyzeNoCache)
		if err != nil {
			return app.explain(err)
		}
		if res == nil {
			app.Render.Error("failed to analyze %s", path)
			failed++
			continue
		}

		if analyzeJSON {
			reports = append(reports, sceneReport{Path: path, Result: res})
			continue
		}
		if i > 0 {
			app.Render.Divider()
		}
		app.Render.SceneAnalysis(path, res)
	}

	if analyzeJSON {
		if err := app.Render.JSON(reports); err != nil {
			return err
		}
	}
	if app.Options.Verbose {
		app.Render.CacheStats(an.Stats())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be analyzed", failed, len(args))
	}
	return nil
}

package cmd

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmurray2011/quire/internal/watch"
	"github.com/jmurray2011/quire/internal/workflow"
)

var (
	watchCompile  bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the outline whenever a scene changes",
	Long: `Watch drafts_dir and re-run analysis and the outline after every batch of
scene edits. Only changed scenes are re-read; the rest come from the cache.

New book and act directories are picked up automatically.
Press Ctrl+C to stop.

Examples:
  quire watch

  # Also recompile the manuscript on every change
  quire watch --compile

  # Wait longer for edits to settle
  quire watch --debounce 2s`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchCompile, "compile", false, "Recompile the manuscript on each change")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before refreshing")
}

func runWatch(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}
	m, err := app.Manager()
	if err != nil {
		return err
	}

	opts := workflow.RunOptions{NoCompile: !watchCompile}
	refresh := func(ctx context.Context) error {
		sum, err := m.Run(ctx, opts)
		if err != nil {
			return app.explain(err)
		}
		app.Render.Success("%s  outline updated: %d scenes, %s words, %d TODOs",
			time.Now().Format(time.TimeOnly), sum.Scenes, humanize.Comma(int64(sum.Words)), sum.TODOs)
		return nil
	}

	ctx := cmd.Context()
	if err := refresh(ctx); err != nil {
		return err
	}

	w := &watch.Watcher{
		Dir:      app.Config.DraftsDir,
		Debounce: watchDebounce,
		Refresh:  refresh,
		Logger:   app.Logger,
	}
	app.Render.Status("Watching %s (Ctrl+C to stop)", app.Config.DraftsDir)
	return w.Run(ctx)
}

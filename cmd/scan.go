package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jmurray2011/quire/internal/project"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the books, acts and scenes quire finds",
	Long: `Walk drafts_dir and list every scene found under a BookN/ActN path,
in the order used for the outline and the manuscript.

Scenes are ordered by the first number in their file name; files without a
number sort after the numbered ones.

Examples:
  quire scan
  quire scan --config ../trilogy/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}

	app.Render.Status("Scanning %s...", app.Config.DraftsDir)
	s, err := project.Scan(app.Config.DraftsDir, app.Logger)
	if err != nil {
		return err
	}
	app.Render.Structure(s)
	return nil
}

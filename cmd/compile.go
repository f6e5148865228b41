package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jmurray2011/quire/internal/config"
	"github.com/jmurray2011/quire/internal/workflow"
)

var compileFormats []string

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile the manuscript without analyzing scenes",
	Long: `Concatenate every scene into compiled_dir/manuscript.md and convert it
with pandoc. The outline is not touched.

Formats disabled under compilation.formats in config.yaml are skipped.

Examples:
  quire compile
  quire compile --output-format epub`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringSliceVar(&compileFormats, "output-format", nil, "Comma-separated output formats (pdf,docx,epub)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}

	formats := compileFormats
	if len(formats) == 0 {
		formats = app.Config.PandocOutputFormats
	}
	for _, f := range formats {
		if err := config.CheckFormat(f); err != nil {
			return err
		}
	}

	m := &workflow.Manager{Config: app.Config, Logger: app.Logger}
	s, err := m.Scan()
	if err != nil {
		return app.explain(err)
	}

	app.Render.Status("Compiling %d scenes to %v...", s.SceneCount(), formats)
	out, err := app.Compiler().Compile(cmd.Context(), s, formats)
	if err != nil {
		return app.explain(err)
	}

	app.Render.KeyValue("Manuscript", out.Manuscript)
	for _, f := range out.Files {
		app.Render.Success("Created %s", f)
	}
	if out.Attempts > 1 {
		app.Render.Warning("succeeded after %d attempts", out.Attempts)
	}
	return nil
}

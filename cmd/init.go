package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jmurray2011/quire/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config.yaml",
	Long: `Write the default configuration to the --config path (config.yaml in the
current directory unless given). The file is created readable and writable
by the owner only.

Examples:
  # Create default config (won't overwrite existing)
  quire init

  # Force overwrite existing config
  quire init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	// An existing file is not loaded; it may be the broken one --force replaces.
	app, ok := appFromContext(cmd)
	if !ok {
		app = NewAppWithConfig(Options{ConfigFile: cfgFile, Quiet: quiet, NoColor: noColor}, nil, render, nil)
	}

	path := app.Options.ConfigFile
	created, err := config.WriteDefault(path, initForce)
	if err != nil {
		return err
	}
	if !created {
		app.Render.Warning("%s already exists (use --force to overwrite)", path)
		return nil
	}

	app.Render.Success("Created %s", path)
	app.Render.Info("\nEdit %s to customize your project layout and output formats.", path)
	return nil
}

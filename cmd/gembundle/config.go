// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gembundle/gembundle/internal/config"
)

// newConfigCommand creates the `gembundle config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gembundle configuration",
		Long: `Manage gembundle configuration.

Configuration is stored in:
  - Linux: ~/.config/gembundle/config.cue
  - macOS: ~/Library/Application Support/gembundle/config.cue
  - Windows: %APPDATA%\gembundle\config.cue

Every key can be overridden with a GEMBUNDLE_<SECTION>_<KEY> environment
variable, e.g. GEMBUNDLE_OUTPUT_PATH.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	var force, printOnly bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app, force, printOnly)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&printOnly, "print", false, "print the defaults instead of writing them")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.FilePath(config.LoadOptions{ConfigFilePath: app.configPath})
			if err != nil {
				return failure(err, "resolve configuration path", "")
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, path, err := app.loadConfig(ctx)
	if err != nil {
		return failure(err, "load configuration", app.configPath)
	}

	source := SubtitleStyle.Render("(defaults and environment)")
	if path != "" {
		source = path
	}
	fmt.Fprintf(app.stderr, "%s %s\n\n", KeyStyle.Render("Config file:"), source)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))

	return nil
}

func initConfig(app *App, force, printOnly bool) error {
	if printOnly {
		fmt.Fprint(app.stdout, config.GenerateCUE(config.DefaultConfig()))
		return nil
	}

	path, err := config.FilePath(config.LoadOptions{ConfigFilePath: app.configPath})
	if err != nil {
		return failure(err, "resolve configuration path", "")
	}
	if err := config.WriteDefault(path, force); err != nil {
		return failure(err, "create configuration", path)
	}

	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

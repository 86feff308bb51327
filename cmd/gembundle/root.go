// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gembundle",
		Short: "Bundle the Gemini CLI with a prebuilt node-pty",
		Long: TitleStyle.Render("gembundle") + SubtitleStyle.Render(" - bundle the Gemini CLI with a prebuilt node-pty") + `

gembundle downloads the gemini.js release asset from GitHub, lifts the
prebuilt node-pty module out of the Windows VS Code archive, writes a
package.json tying the two together and packs everything into a tarball.

` + SubtitleStyle.Render("Examples:") + `
  gembundle build                        Bundle the latest releases
  gembundle build --tag v0.9.0 -o out.tgz
  gembundle extract code.zip --prefix node_modules/node-pty/ --dest pty
  gembundle inspect gemini-cli-dist.tgz  List the artifact entries
  gembundle config show                  Show the effective configuration`,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/gembundle/config.cue)")

	rootCmd.AddCommand(
		newBuildCommand(app),
		newExtractCommand(app),
		newInspectCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the classified status.
// It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.errorHandler),
	)
	if err != nil {
		os.Exit(int(exitCode(err)))
	}
}

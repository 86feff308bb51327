// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gembundle/gembundle/pkg/subtree"
)

type extractFlags struct {
	prefix     string
	dest       string
	overwrite  string
	manifest   string
	versionKey string
}

func newExtractCommand(app *App) *cobra.Command {
	var f extractFlags

	extractCmd := &cobra.Command{
		Use:   "extract <archive.zip>",
		Short: "Extract a subtree from a ZIP archive",
		Long: `Extract every entry whose path contains --prefix into --dest, keeping
the part of the path after the prefix. The version found in the subtree's
manifest is printed on stdout (0.0.0 when the manifest is missing).

Defaults come from the extract section of the configuration.`,
		Example: `  gembundle extract VSCode-win32-x64.zip --dest pty
  gembundle extract app.zip --prefix vendor/lib/ --dest lib --overwrite fail`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, app, &f, args[0])
		},
	}

	fl := extractCmd.Flags()
	fl.StringVar(&f.prefix, "prefix", "", "path marker selecting the subtree")
	fl.StringVar(&f.dest, "dest", "", "destination directory")
	fl.StringVar(&f.overwrite, "overwrite", "", "existing file policy (replace|fail|skip)")
	fl.StringVar(&f.manifest, "manifest", "", "manifest path relative to the subtree")
	fl.StringVar(&f.versionKey, "version-key", "", "manifest version field (dotted path)")

	return extractCmd
}

func runExtract(cmd *cobra.Command, app *App, f *extractFlags, archive string) error {
	cfg, _, err := app.loadConfig(cmd.Context())
	if err != nil {
		return failure(err, "load configuration", app.configPath)
	}

	ext := cfg.Extract
	fl := cmd.Flags()
	if fl.Changed("prefix") {
		ext.Prefix = f.prefix
	}
	if fl.Changed("dest") {
		ext.TargetDir = f.dest
	}
	if fl.Changed("overwrite") {
		ext.Overwrite = f.overwrite
	}
	if fl.Changed("manifest") {
		ext.Manifest = f.manifest
	}
	if fl.Changed("version-key") {
		ext.VersionKey = f.versionKey
	}

	policy, err := subtree.ParseOverwritePolicy(ext.Overwrite)
	if err != nil {
		return failure(err, "parse flags", "--overwrite")
	}

	logger := app.logger()
	res, err := subtree.ExtractFile(cmd.Context(), archive, ext.Prefix, ext.TargetDir,
		subtree.WithLogger(logger),
		subtree.WithOverwrite(policy),
		subtree.WithManifest(ext.Manifest),
		subtree.WithVersionKey(ext.VersionKey),
	)
	if err != nil {
		return failure(err, "extract "+ext.Prefix, archive)
	}

	for _, w := range res.Warnings {
		logger.Warn("manifest ignored", "entry", w.Entry, "error", w.Err)
	}
	if !res.ManifestFound {
		logger.Warn("no manifest in subtree", "manifest", ext.Manifest, "version", res.Version)
	}
	logger.Info("extracted", "dest", ext.TargetDir, "files", len(res.Files), "dirs", len(res.Dirs), "skipped", len(res.Skipped))

	fmt.Fprintln(app.stdout, res.Version)
	return nil
}

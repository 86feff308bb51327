// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/gembundle/gembundle/internal/manifest"
	"github.com/gembundle/gembundle/pkg/tarball"
)

func newInspectCommand(app *App) *cobra.Command {
	var (
		compression  string
		showManifest bool
	)

	inspectCmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "List the entries of a bundle artifact",
		Long: `List the entries of a bundle artifact. The compression is detected from
the file extension unless --compression is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(app, args[0], compression, showManifest)
		},
	}

	inspectCmd.Flags().StringVar(&compression, "compression", "", "archive compression (gzip|xz|lz4|zstd)")
	inspectCmd.Flags().BoolVar(&showManifest, "manifest", false, "print the bundled package.json instead of the listing")

	return inspectCmd
}

func runInspect(app *App, artifact, compression string, showManifest bool) error {
	var (
		c   tarball.Compression
		err error
	)
	if compression != "" {
		c, err = tarball.ParseCompression(compression)
	} else {
		c, err = tarball.Detect(artifact)
	}
	if err != nil {
		return failure(err, "detect compression", artifact)
	}

	if showManifest {
		data, err := tarball.ReadFile(artifact, c, "./"+manifest.FileName)
		if err != nil {
			return failure(err, "read "+manifest.FileName, artifact)
		}
		_, err = app.stdout.Write(pretty.Pretty(data))
		return err
	}

	entries, err := tarball.List(artifact, c)
	if err != nil {
		return failure(err, "list artifact", artifact)
	}

	tw := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Mode, e.Size, e.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(app.stderr, "%s %d entries, %s\n", SuccessStyle.Render("✓"), len(entries), c)

	return nil
}

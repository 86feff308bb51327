// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gembundle/gembundle/internal/bundle"
	"github.com/gembundle/gembundle/internal/config"
	"github.com/gembundle/gembundle/internal/editor"
	"github.com/gembundle/gembundle/internal/issue"
	"github.com/gembundle/gembundle/internal/outputs"
	"github.com/gembundle/gembundle/internal/release"
	"github.com/gembundle/gembundle/pkg/subtree"
	"github.com/gembundle/gembundle/pkg/tarball"
)

const (
	formatText  = "text"
	formatShell = "shell"
)

// buildFlags holds the flags that need parsing or have no config key.
// Plain string flags are read back from the FlagSet, and only flags the
// user set override the configuration.
type buildFlags struct {
	overwrite    string
	compression  string
	checksum     bool
	keepWork     bool
	githubOutput string
	format       string
}

func newBuildCommand(app *App) *cobra.Command {
	var f buildFlags

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Download, assemble and pack the bundle",
		Long: `Download the CLI release asset and the editor archive, extract node-pty,
write package.json and pack the result.

Step outputs (GEMINI_VERSION, VSCODE_VERSION, NODEPTY_VERSION, ARTIFACT,
ARTIFACT_SHA256) are appended to the file named by --github-output, which
defaults to $GITHUB_OUTPUT. Set GITHUB_TOKEN to authenticate API calls.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, app, &f)
		},
	}

	fl := buildCmd.Flags()
	fl.String("repo", "", "GitHub repository of the CLI (owner/name)")
	fl.String("tag", "", "release tag (default latest)")
	fl.String("asset", "", "release asset to bundle")
	fl.String("bin", "", "executable name in package.json")
	fl.String("package-name", "", "package name in package.json")
	fl.String("editor-platform", "", "VS Code update platform")
	fl.String("editor-quality", "", "VS Code update quality (stable|insider)")
	fl.String("editor-version", "", "pin the VS Code version instead of the latest")
	fl.String("prefix", "", "archive path marker of the node-pty subtree")
	fl.String("pty-dir", "", "node-pty directory inside the bundle")
	fl.String("manifest", "", "manifest file name inside the subtree")
	fl.String("version-key", "", "manifest version field (dotted path)")
	fl.StringVar(&f.overwrite, "overwrite", "", "existing file policy (replace|fail|skip)")
	fl.StringP("output", "o", "", "artifact path")
	fl.StringVar(&f.compression, "compression", "", "artifact compression (gzip|xz|lz4|zstd)")
	fl.BoolVar(&f.checksum, "checksum", false, "also write <output>.sha256")
	fl.String("work-dir", "", "assemble in this directory instead of a temp dir")
	fl.BoolVar(&f.keepWork, "keep-work", false, "keep the work directory after the build")
	fl.String("prepack", "", "shell snippet run in the work directory before packing")
	fl.StringVar(&f.githubOutput, "github-output", "", "step output file (default $GITHUB_OUTPUT)")
	fl.StringVar(&f.format, "format", formatText, "stdout format (text|shell)")

	return buildCmd
}

func runBuild(cmd *cobra.Command, app *App, f *buildFlags) error {
	ctx := cmd.Context()

	if f.format != formatText && f.format != formatShell {
		return failure(fmt.Errorf("%w: unknown format %q", bundle.ErrInvalidOptions, f.format), "parse flags", "--format")
	}

	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return failure(err, "load configuration", app.configPath)
	}

	opts, err := buildOptions(cmd.Flags(), cfg, f)
	if err != nil {
		return failure(err, "parse flags", "")
	}

	logger := app.logger()
	userAgent := config.AppName + "/" + Version

	gh := release.NewGitHubClient(
		release.WithHTTPClient(app.HTTPClient),
		release.WithBaseURL(cfg.GitHub.APIURL),
		release.WithToken(app.Getenv("GITHUB_TOKEN")),
		release.WithUserAgent(userAgent),
	)
	ed := editor.NewClient(
		editor.WithHTTPClient(app.HTTPClient),
		editor.WithBaseURL(cfg.Editor.BaseURL),
		editor.WithUserAgent(userAgent),
		editor.WithLogger(logger),
	)

	builder := bundle.NewBuilder(gh, ed,
		bundle.WithLogger(logger),
		bundle.WithHookOutput(app.stderr, app.stderr),
	)

	sum, err := builder.Run(ctx, opts)
	if err != nil {
		return failure(err, "build bundle", opts.Output)
	}

	for _, w := range sum.Warnings {
		logger.Warn(w)
	}

	if err := publishOutputs(app, f, sum); err != nil {
		return failure(err, "write step outputs", "")
	}

	return nil
}

// buildOptions layers the flags the user set over the configuration.
func buildOptions(fl *pflag.FlagSet, cfg *config.Config, f *buildFlags) (bundle.Options, error) {
	opts := cfg.BundleOptions()

	for name, dst := range map[string]*string{
		"repo":            &opts.Repo,
		"tag":             &opts.Tag,
		"asset":           &opts.Asset,
		"bin":             &opts.Bin,
		"package-name":    &opts.PackageName,
		"editor-platform": &opts.EditorPlatform,
		"editor-quality":  &opts.EditorQuality,
		"editor-version":  &opts.EditorVersion,
		"prefix":          &opts.Prefix,
		"pty-dir":         &opts.PtyDir,
		"manifest":        &opts.Manifest,
		"version-key":     &opts.VersionKey,
		"output":          &opts.Output,
		"work-dir":        &opts.WorkDir,
		"prepack":         &opts.Prepack,
	} {
		if fl.Changed(name) {
			*dst = fl.Lookup(name).Value.String()
		}
	}

	if fl.Changed("overwrite") {
		p, err := subtree.ParseOverwritePolicy(f.overwrite)
		if err != nil {
			return opts, err
		}
		opts.Overwrite = p
	}
	if fl.Changed("compression") {
		c, err := tarball.ParseCompression(f.compression)
		if err != nil {
			return opts, err
		}
		opts.Compression = c
	}
	if fl.Changed("checksum") {
		opts.Checksum = f.checksum
	}
	opts.KeepWork = f.keepWork
	opts.HookEnv = os.Environ()

	return opts, nil
}

func publishOutputs(app *App, f *buildFlags, sum *bundle.Summary) error {
	var writers []outputs.Writer

	path := f.githubOutput
	if path == "" {
		path = app.Getenv("GITHUB_OUTPUT")
	}
	if path != "" {
		writers = append(writers, outputs.GitHubWriter(path))
	}

	if f.format == formatShell {
		writers = append(writers, outputs.ShellWriter(app.stdout))
	}

	if err := outputs.Multi(writers...).Write(sum.Records()...); err != nil {
		return issue.NewErrorContext().
			WithOperation("write step outputs").
			WithResource(path).
			WithSuggestion("Check that the --github-output file is writable").
			WithIssue(issue.OutputWriteFailedId).
			Wrap(err).
			BuildError()
	}

	if f.format == formatText {
		fmt.Fprint(app.stdout, renderSummary(sum))
	}
	return nil
}

// renderSummary renders the build summary as a Markdown table through
// glamour, falling back to the raw Markdown.
func renderSummary(sum *bundle.Summary) string {
	md := summaryMarkdown(sum)
	out, err := glamour.Render(md, markdownStyle)
	if err != nil {
		return md
	}
	return out
}

func summaryMarkdown(sum *bundle.Summary) string {
	var sb strings.Builder

	sb.WriteString("# Bundle built\n\n")
	sb.WriteString("| Component | Value |\n|---|---|\n")
	rows := [][2]string{
		{"Gemini CLI", sum.CLIVersion},
		{"VS Code", sum.EditorVersion},
		{"node-pty", sum.PtyVersion},
		{"Artifact", sum.Artifact},
		{"SHA-256", sum.SHA256},
		{"Files", fmt.Sprint(sum.Files)},
	}
	if sum.ChecksumFile != "" {
		rows = append(rows, [2]string{"Checksum file", sum.ChecksumFile})
	}
	if sum.WorkDir != "" {
		rows = append(rows, [2]string{"Work directory", sum.WorkDir})
	}
	for _, r := range rows {
		fmt.Fprintf(&sb, "| %s | `%s` |\n", r[0], r[1])
	}

	if len(sum.Warnings) > 0 {
		sb.WriteString("\n## Warnings\n\n")
		for _, w := range sum.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
	}

	return sb.String()
}

// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/gembundle/gembundle/internal/editor"
	"github.com/gembundle/gembundle/internal/hook"
	"github.com/gembundle/gembundle/internal/manifest"
	"github.com/gembundle/gembundle/internal/outputs"
	"github.com/gembundle/gembundle/internal/release"
	"github.com/gembundle/gembundle/pkg/subtree"
	"github.com/gembundle/gembundle/pkg/tarball"
)

type (
	// Summary describes a finished build.
	Summary struct {
		CLIVersion    string
		EditorVersion string
		PtyVersion    string
		Artifact      string
		SHA256        string
		ChecksumFile  string // empty unless Options.Checksum
		Files         int    // regular files in the artifact
		WorkDir       string // set only when the work dir was kept
		Warnings      []string
	}

	// Builder runs builds with injected clients.
	Builder struct {
		github *release.GitHubClient
		editor *editor.Client
		logger *log.Logger
		stdout io.Writer
		stderr io.Writer
	}

	// BuilderOption configures a Builder.
	BuilderOption func(*Builder)
)

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithHookOutput routes prepack hook output.
func WithHookOutput(stdout, stderr io.Writer) BuilderOption {
	return func(b *Builder) {
		b.stdout, b.stderr = stdout, stderr
	}
}

// NewBuilder returns a Builder using the given clients.
func NewBuilder(gh *release.GitHubClient, ed *editor.Client, opts ...BuilderOption) *Builder {
	b := &Builder{
		github: gh,
		editor: ed,
		logger: log.New(io.Discard),
		stdout: io.Discard,
		stderr: io.Discard,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Records returns the step outputs for s.
func (s *Summary) Records() []outputs.Record {
	return []outputs.Record{
		{Key: outputs.KeyCLIVersion, Value: s.CLIVersion},
		{Key: outputs.KeyEditorVersion, Value: s.EditorVersion},
		{Key: outputs.KeyPtyVersion, Value: s.PtyVersion},
		{Key: outputs.KeyArtifact, Value: s.Artifact},
		{Key: outputs.KeyArtifactSHA256, Value: s.SHA256},
	}
}

// Run performs a full build. On failure a temporary work dir is removed
// unless opts.KeepWork is set; the artifact is only created on success.
func (b *Builder) Run(ctx context.Context, opts Options) (_ *Summary, err error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	work, cleanup, err := prepareWorkDir(opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if opts.KeepWork {
			b.logger.Info("keeping work directory", "path", work)
			return
		}
		if cleanupErr := cleanup(); cleanupErr != nil {
			b.logger.Warn("could not remove work directory", "path", work, "error", cleanupErr)
		}
	}()

	sum := &Summary{}
	if opts.KeepWork {
		sum.WorkDir = work
	}

	if sum.CLIVersion, err = b.fetchCLI(ctx, opts, work); err != nil {
		return nil, err
	}

	if err = b.fetchPty(ctx, opts, work, sum); err != nil {
		return nil, err
	}

	spec := manifest.Spec{
		Name:       opts.PackageName,
		Version:    sum.CLIVersion,
		Bin:        opts.Bin,
		Entry:      opts.Asset,
		PtyVersion: sum.PtyVersion,
	}
	if _, err = manifest.Write(work, spec); err != nil {
		return nil, err
	}

	if err = b.runPrepack(ctx, opts, work, sum); err != nil {
		return nil, err
	}

	if err = b.pack(ctx, opts, work, sum); err != nil {
		return nil, err
	}

	return sum, nil
}

func (b *Builder) fetchCLI(ctx context.Context, opts Options, work string) (string, error) {
	owner, repo, _ := release.ParseRepo(opts.Repo) //nolint:errcheck // validated in Options.Validate
	gh := b.github.ForRepo(owner, repo)

	rel, err := gh.Resolve(ctx, opts.Tag)
	if err != nil {
		return "", fmt.Errorf("resolving %s release: %w", opts.Repo, err)
	}
	b.logger.Info("resolved CLI release", "repo", opts.Repo, "tag", rel.TagName)

	asset, err := rel.Asset(opts.Asset)
	if err != nil {
		return "", err
	}

	d, err := gh.DownloadToFile(ctx, asset, filepath.Join(work, opts.Asset))
	if err != nil {
		return "", err
	}
	b.logger.Debug("downloaded CLI asset", "asset", asset.Name, "bytes", d.Size, "sha256", d.SHA256)

	return rel.Version(), nil
}

func (b *Builder) fetchPty(ctx context.Context, opts Options, work string, sum *Summary) error {
	ed := b.editor.With(editor.WithPlatform(opts.EditorPlatform), editor.WithQuality(opts.EditorQuality))

	build, err := ed.Resolve(ctx, opts.EditorVersion)
	if err != nil {
		return fmt.Errorf("resolving editor build: %w", err)
	}
	sum.EditorVersion = build.Version
	b.logger.Info("resolved editor build", "version", build.Version, "platform", opts.EditorPlatform)

	scratch, err := os.MkdirTemp("", "gembundle-editor-*")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	archive, err := ed.Download(ctx, build, scratch)
	if err != nil {
		return err
	}

	res, err := subtree.ExtractFile(ctx, archive, opts.Prefix, filepath.Join(work, filepath.FromSlash(opts.PtyDir)),
		subtree.WithLogger(b.logger),
		subtree.WithOverwrite(opts.Overwrite),
		subtree.WithManifest(opts.Manifest),
		subtree.WithVersionKey(opts.VersionKey),
	)
	if err != nil {
		return fmt.Errorf("extracting %s from editor %s: %w", opts.Prefix, build.Version, err)
	}

	sum.PtyVersion = res.Version
	for _, w := range res.Warnings {
		sum.Warnings = append(sum.Warnings, w.Error())
	}
	if !res.ManifestFound {
		sum.Warnings = append(sum.Warnings, fmt.Sprintf("no %s under %s, node-pty version defaults to %s",
			opts.Manifest, opts.Prefix, subtree.DefaultVersion))
	}
	b.logger.Info("extracted node-pty", "version", res.Version, "files", len(res.Files))

	return nil
}

func (b *Builder) runPrepack(ctx context.Context, opts Options, work string, sum *Summary) error {
	if opts.Prepack == "" {
		return nil
	}

	vars := make(map[string]string, 4)
	for _, r := range sum.Records()[:3] {
		vars[r.Key] = r.Value
	}
	vars["BUNDLE_DIR"] = work

	b.logger.Info("running prepack hook")
	return hook.Run(ctx, hook.Script{Name: "prepack", Source: opts.Prepack}, work,
		hook.Env{Base: opts.HookEnv, Vars: vars}, b.stdout, b.stderr)
}

func (b *Builder) pack(ctx context.Context, opts Options, work string, sum *Summary) error {
	out, err := filepath.Abs(opts.Output)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if sum.Files, err = tarball.Pack(ctx, work, out, opts.Compression); err != nil {
		return err
	}
	if sum.SHA256, err = release.HashFile(out); err != nil {
		return err
	}
	sum.Artifact = out

	if opts.Checksum {
		sum.ChecksumFile = out + ".sha256"
		if err := release.WriteChecksumFile(sum.ChecksumFile, out, sum.SHA256); err != nil {
			return err
		}
	}

	b.logger.Info("wrote artifact", "path", out, "files", sum.Files, "sha256", sum.SHA256)
	return nil
}

// prepareWorkDir returns the work directory and a cleanup that removes what
// this run created. A caller-supplied directory is created if missing and
// only removed when it did not exist before.
func prepareWorkDir(opts Options) (string, func() error, error) {
	if opts.WorkDir == "" {
		dir, err := os.MkdirTemp("", "gembundle-work-*")
		if err != nil {
			return "", nil, fmt.Errorf("creating work directory: %w", err)
		}
		return dir, func() error { return os.RemoveAll(dir) }, nil
	}

	dir, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving work directory: %w", err)
	}

	_, statErr := os.Stat(dir)
	existed := statErr == nil
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating work directory: %w", err)
	}

	if existed {
		return dir, func() error { return nil }, nil
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}

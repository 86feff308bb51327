// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gembundle/gembundle/internal/issue"
	"github.com/gembundle/gembundle/internal/testutil"
	"github.com/gembundle/gembundle/pkg/subtree"
	"github.com/gembundle/gembundle/pkg/tarball"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), []byte(`
github: tag: "v0.8.0"
editor: version: "1.98.0"
extract: overwrite: "skip"
output: {
	compression: "xz"
	checksum:    true
}
hooks: prepack: "rm -rf node_modules/node-pty/deps"
`))

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("resolved path = %q", path)
	}

	want := DefaultConfig()
	want.GitHub.Tag = "v0.8.0"
	want.Editor.Version = "1.98.0"
	want.Extract.Overwrite = "skip"
	want.Output.Compression = "xz"
	want.Output.Checksum = true
	want.Hooks.Prepack = "rm -rf node_modules/node-pty/deps"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	opts := cfg.BundleOptions()
	if opts.Overwrite != subtree.OverwriteSkip || opts.Compression != tarball.XZ || !opts.Checksum {
		t.Errorf("BundleOptions() = %+v", opts)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMBUNDLE_OUTPUT_PATH", "dist/custom.tgz")
	t.Setenv("GEMBUNDLE_UI_VERBOSE", "true")

	cfg, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Path != "dist/custom.tgz" || !cfg.UI.Verbose {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("GEMBUNDLE_OUTPUT_COMPRESSION", "bzip2")

	_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	var ice *InvalidConfigError
	if !errors.As(err, &ice) || ice.Field != "output.compression" {
		t.Errorf("InvalidConfigError = %+v", ice)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{name: "bad enum", content: `extract: overwrite: "merge"`, wantSub: "extract.overwrite"},
		{name: "unknown field", content: `output: colour: "red"`, wantSub: "colour"},
		{name: "bad repo", content: `github: repo: "no-slash"`, wantSub: "github.repo"},
		{name: "syntax", content: `output: {`, wantSub: "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), []byte(tt.content))

			_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("expected error")
			}

			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *issue.ActionableError, got %T", err)
			}
			if ae.Issue != issue.ConfigLoadFailedId || len(ae.Suggestions) == 0 {
				t.Errorf("ActionableError = %+v", ae)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	t.Parallel()

	_, _, err := Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "config.cue")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	if err := WriteDefault(path, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second WriteDefault() = %v, want ErrConfigExists", err)
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("forced WriteDefault() error = %v", err)
	}

	cfg, resolved, err := Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() of generated file error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q", resolved)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateCUE_OptionalFields(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if out := GenerateCUE(cfg); strings.Contains(out, "hooks") || strings.Contains(out, "tag:") {
		t.Errorf("empty optional fields rendered:\n%s", out)
	}

	cfg.GitHub.Tag = "v1.0.0"
	cfg.Hooks.Prepack = `echo "done"`
	out := GenerateCUE(cfg)
	for _, want := range []string{`tag:          "v1.0.0"`, `prepack: "echo \"done\""`} {
		if !strings.Contains(out, want) {
			t.Errorf("GenerateCUE() missing %q:\n%s", want, out)
		}
	}
}

func TestConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Cleanup(testutil.SetConfigHome(t, home))

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if filepath.Base(dir) != AppName {
		t.Errorf("ConfigDir() = %q, want .../%s", dir, AppName)
	}
	if runtime.GOOS == "linux" && !strings.HasPrefix(dir, home) {
		t.Errorf("ConfigDir() = %q, want under %q", dir, home)
	}

	path, err := FilePath(LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("FilePath() = %q", path)
	}
}

// SPDX-License-Identifier: MPL-2.0

package tarball

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gembundle/gembundle/internal/testutil"
)

func bundleTree(t *testing.T) string {
	t.Helper()

	src := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(src, "gemini.js"), []byte("#!/usr/bin/env node\n"))
	testutil.MustWriteFile(t, filepath.Join(src, "package.json"), []byte("{}\n"))
	testutil.MustWriteFile(t, filepath.Join(src, "node_modules", "node-pty", "package.json"), []byte(`{"version":"1.0.0"}`))
	testutil.MustWriteFile(t, filepath.Join(src, "node_modules", "node-pty", "build", "Release", "pty.node"), []byte("\x7fELF"))
	return src
}

func TestPack_AllCompressions(t *testing.T) {
	t.Parallel()

	wantNames := []string{
		"./",
		"./gemini.js",
		"./node_modules/",
		"./node_modules/node-pty/",
		"./node_modules/node-pty/build/",
		"./node_modules/node-pty/build/Release/",
		"./node_modules/node-pty/build/Release/pty.node",
		"./node_modules/node-pty/package.json",
		"./package.json",
	}

	for _, c := range []Compression{Gzip, XZ, LZ4, Zstd} {
		t.Run(string(c), func(t *testing.T) {
			t.Parallel()

			src := bundleTree(t)
			out := filepath.Join(t.TempDir(), "bundle"+c.Extension())

			n, err := Pack(context.Background(), src, out, c)
			if err != nil {
				t.Fatalf("Pack() error = %v", err)
			}
			if n != 4 {
				t.Errorf("Pack() wrote %d files, want 4", n)
			}

			entries, err := List(out, c)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var names []string
			for _, e := range entries {
				names = append(names, e.Name)
			}
			if diff := cmp.Diff(wantNames, names); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}

			data, err := ReadFile(out, c, "gemini.js")
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if string(data) != "#!/usr/bin/env node\n" {
				t.Errorf("gemini.js = %q", data)
			}

			if _, err := ReadFile(out, c, "missing.js"); !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("expected fs.ErrNotExist, got %v", err)
			}
		})
	}
}

func TestPack_OutputInsideSource(t *testing.T) {
	t.Parallel()

	src := bundleTree(t)
	out := filepath.Join(src, "gemini-cli-dist.tgz")

	// Two runs: the second must not pick up the first artifact either.
	for run := range 2 {
		n, err := Pack(context.Background(), src, out, Gzip)
		if err != nil {
			t.Fatalf("run %d: Pack() error = %v", run, err)
		}
		if n != 4 {
			t.Errorf("run %d: Pack() wrote %d files, want 4", run, n)
		}

		entries, err := List(out, Gzip)
		if err != nil {
			t.Fatalf("run %d: List() error = %v", run, err)
		}
		for _, e := range entries {
			if strings.Contains(e.Name, "gemini-cli-dist.tgz") {
				t.Errorf("run %d: archive contains itself as %q", run, e.Name)
			}
		}
	}
}

func TestPack_PreservesMode(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("POSIX permission bits")
	}

	src := t.TempDir()
	script := filepath.Join(src, "gemini.js")
	testutil.MustWriteFile(t, script, []byte("x"))
	if err := os.Chmod(script, 0o755); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "b.tgz")
	if _, err := Pack(context.Background(), src, out, Gzip); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	entries, err := List(out, Gzip)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name == "./gemini.js" && e.Mode.Perm() != 0o755 {
			t.Errorf("mode = %v, want 0755", e.Mode.Perm())
		}
	}
}

func TestPack_SkipsSymlinks(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}

	src := bundleTree(t)
	if err := os.Symlink("gemini.js", filepath.Join(src, "link.js")); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "b.tgz")
	if _, err := Pack(context.Background(), src, out, Gzip); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	entries, err := List(out, Gzip)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name == "./link.js" {
			t.Error("symlink was packed")
		}
	}
}

func TestPack_FailureLeavesNoArtifact(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	out := filepath.Join(outDir, "b.tgz")

	if _, err := Pack(context.Background(), filepath.Join(t.TempDir(), "missing"), out, Gzip); err == nil {
		t.Fatal("expected error for missing source")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Pack(ctx, bundleTree(t), out, Gzip)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output directory not empty: %v", entries)
	}
}

func TestPack_UnknownCompression(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	_, err := Pack(context.Background(), bundleTree(t), filepath.Join(outDir, "b.tar"), Compression("bzip2"))
	if !errors.Is(err, ErrUnknownCompression) {
		t.Fatalf("expected ErrUnknownCompression, got %v", err)
	}
	testutil.AssertNotExist(t, filepath.Join(outDir, "b.tar"))
}

func TestParseCompression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{in: "", want: Gzip},
		{in: "GZIP", want: Gzip},
		{in: ".tgz", want: Gzip},
		{in: "xz", want: XZ},
		{in: "lz4", want: LZ4},
		{in: "zst", want: Zstd},
		{in: "bzip2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseCompression(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCompression) {
					t.Fatalf("expected ErrUnknownCompression, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseCompression(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := map[string]Compression{
		"gemini.tgz":    Gzip,
		"dist/b.TAR.GZ": Gzip,
		"b.tar.xz":      XZ,
		"b.tar.lz4":     LZ4,
		"b.tar.zst":     Zstd,
	}
	for name, want := range tests {
		got, err := Detect(name)
		if err != nil || got != want {
			t.Errorf("Detect(%q) = %q, %v; want %q", name, got, err, want)
		}
	}

	if _, err := Detect("b.zip"); !errors.Is(err, ErrUnknownCompression) {
		t.Errorf("expected ErrUnknownCompression, got %v", err)
	}
}

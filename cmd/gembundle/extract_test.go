// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"path/filepath"
	"testing"

	"github.com/gembundle/gembundle/internal/config"
	"github.com/gembundle/gembundle/internal/testutil"
	"github.com/gembundle/gembundle/pkg/types"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := testutil.WriteZip(t, dir, "code.zip", []testutil.ZipEntry{
		{Name: "app/vendor/lib/meta.toml", Body: []byte("[package]\nversion = \"2.3.4\"\n")},
		{Name: "app/vendor/lib/src/main.js", Body: []byte("x")},
		{Name: "app/other.js", Body: []byte("y")},
	})
	dest := filepath.Join(dir, "out")

	res := runCLI(t, config.DefaultConfig(), nil, "extract", archive,
		"--prefix", "vendor/lib/", "--dest", dest,
		"--manifest", "meta.toml", "--version-key", "package.version")
	if res.err != nil {
		t.Fatalf("extract error = %v\nstderr:\n%s", res.err, res.stderr)
	}

	if res.stdout != "2.3.4\n" {
		t.Errorf("stdout = %q, want version", res.stdout)
	}
	if got := string(testutil.MustReadFile(t, filepath.Join(dest, "src", "main.js"))); got != "x" {
		t.Errorf("main.js = %q", got)
	}
	testutil.AssertNotExist(t, filepath.Join(dest, "other.js"))
}

func TestExtract_Failures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := testutil.WriteZip(t, dir, "code.zip", []testutil.ZipEntry{
		{Name: "node_modules/node-pty/package.json", Body: []byte(`{"version":"1.0.0"}`)},
	})
	existing := filepath.Join(dir, "existing")
	testutil.MustWriteFile(t, filepath.Join(existing, "package.json"), []byte("{}"))

	tests := []struct {
		name string
		args []string
		want types.ExitCode
	}{
		{
			name: "missing prefix",
			args: []string{"extract", archive, "--prefix", "node_modules/winpty/", "--dest", filepath.Join(dir, "a")},
			want: types.ExitLayoutChanged,
		},
		{
			name: "not a zip",
			args: []string{"extract", filepath.Join(dir, "missing.zip"), "--dest", filepath.Join(dir, "b")},
			want: types.ExitMalformedArchive,
		},
		{
			name: "conflict",
			args: []string{"extract", archive, "--dest", existing, "--overwrite", "fail"},
			want: types.ExitGeneric,
		},
		{
			name: "bad policy",
			args: []string{"extract", archive, "--dest", filepath.Join(dir, "c"), "--overwrite", "merge"},
			want: types.ExitUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := runCLI(t, config.DefaultConfig(), nil, tt.args...)
			if got := exitCode(res.err); got != tt.want {
				t.Errorf("exit code = %d, want %d (err %v)", got, tt.want, res.err)
			}
		})
	}
}

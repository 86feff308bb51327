// SPDX-License-Identifier: MPL-2.0

package subtree

import (
	"context"
	"errors"
	"testing"

	"github.com/gembundle/gembundle/internal/testutil"
)

func TestManifestVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		file        string
		data        string
		key         string
		want        string
		wantMissing bool
		wantErr     bool
	}{
		{name: "json string", file: "package.json", data: `{"version":"1.2.3"}`, key: "version", want: "1.2.3"},
		{name: "json number", file: "package.json", data: `{"version":2}`, key: "version", want: "2"},
		{name: "json nested key", file: "manifest.json", data: `{"package":{"version":"0.4.0"}}`, key: "package.version", want: "0.4.0"},
		{name: "json missing", file: "package.json", data: `{}`, key: "version", wantMissing: true},
		{name: "json null", file: "package.json", data: `{"version":null}`, key: "version", wantMissing: true},
		{name: "json invalid", file: "package.json", data: `{"version":`, key: "version", wantErr: true},
		{name: "toml nested", file: "Cargo.toml", data: "[package]\nname = \"pty\"\nversion = \"0.9.1\"\n", key: "package.version", want: "0.9.1"},
		{name: "toml missing", file: "Cargo.toml", data: "[package]\nname = \"pty\"\n", key: "package.version", wantMissing: true},
		{name: "toml invalid", file: "Cargo.toml", data: "[package\nversion=", key: "package.version", wantErr: true},
		{name: "yaml", file: "pubspec.yaml", data: "name: pty\nversion: 3.1.0\n", key: "version", want: "3.1.0"},
		{name: "yml nested", file: "meta.yml", data: "release:\n  version: \"5\"\n", key: "release.version", want: "5"},
		{name: "yaml list version", file: "pubspec.yaml", data: "version:\n  - 1\n  - 2\n", key: "version", wantErr: true},
		{name: "unsupported", file: "setup.cfg", data: "[metadata]\nversion = 1.0\n", key: "version", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ManifestVersion(tt.file, []byte(tt.data), tt.key)
			switch {
			case tt.wantMissing:
				if !errors.Is(err, errVersionMissing) {
					t.Fatalf("expected errVersionMissing, got %q, %v", got, err)
				}
			case tt.wantErr:
				if err == nil || errors.Is(err, errVersionMissing) {
					t.Fatalf("expected a decode error, got %q, %v", got, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("ManifestVersion() = %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestExtract_CustomManifest(t *testing.T) {
	t.Parallel()

	zr := testutil.OpenZip(t, testutil.BuildZip(t, []testutil.ZipEntry{
		{Name: "crate/vendor/pty/Cargo.toml", Body: []byte("[package]\nversion = \"0.7.0\"\n")},
		{Name: "crate/vendor/pty/package.json", Body: []byte(`{"version":"9.9.9"}`)},
	}))

	res, err := Extract(context.Background(), zr, "vendor/pty/", t.TempDir(),
		WithManifest("Cargo.toml"), WithVersionKey("package.version"))
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if res.Version != "0.7.0" {
		t.Errorf("Version = %q, want 0.7.0", res.Version)
	}
}

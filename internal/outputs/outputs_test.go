// SPDX-License-Identifier: MPL-2.0

package outputs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gembundle/gembundle/internal/testutil"
)

func TestGitHubWriter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "github_output")
	testutil.MustWriteFile(t, path, []byte("EXISTING=1\n"))

	w := &githubWriter{path: path, delimiter: func() string { return "EOF" }}
	err := w.Write(
		Record{Key: KeyCLIVersion, Value: "0.9.0"},
		Record{Key: KeyEditorVersion, Value: "1.99.0"},
		Record{Key: "NOTES", Value: "line one\nline two"},
	)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := "EXISTING=1\nGEMINI_VERSION=0.9.0\nVSCODE_VERSION=1.99.0\nNOTES<<EOF\nline one\nline two\nEOF\n"
	if got := string(testutil.MustReadFile(t, path)); got != want {
		t.Errorf("file =\n%q\nwant\n%q", got, want)
	}
}

func TestGitHubWriter_DelimiterCollision(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out")
	delims := []string{"A", "B"}
	w := &githubWriter{path: path, delimiter: func() string {
		d := delims[0]
		delims = delims[1:]
		return d
	}}

	if err := w.Write(Record{Key: "K", Value: "xAx\ny"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got, want := string(testutil.MustReadFile(t, path)), "K<<B\nxAx\ny\nB\n"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestGitHubWriter_CreatesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fresh")
	if err := GitHubWriter(path).Write(Record{Key: KeyArtifact, Value: "gemini.tgz"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := string(testutil.MustReadFile(t, path)); got != "ARTIFACT=gemini.tgz\n" {
		t.Errorf("file = %q", got)
	}
}

func TestShellWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := ShellWriter(&buf).Write(
		Record{Key: KeyPtyVersion, Value: "1.1.0"},
		Record{Key: KeyArtifact, Value: "/tmp/it's here.tgz"},
		Record{Key: "EMPTY", Value: ""},
		Record{Key: "NOTES", Value: "a\nb"},
	)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := "export NODEPTY_VERSION=1.1.0\n" +
		"export ARTIFACT=\"/tmp/it's here.tgz\"\n" +
		"export EMPTY=''\n" +
		"export NOTES=$'a\\nb'\n"
	if buf.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestInvalidKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out")
	for _, w := range []Writer{GitHubWriter(path), ShellWriter(&bytes.Buffer{})} {
		if err := w.Write(Record{Key: "BAD KEY", Value: "x"}); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("output file created despite invalid key: %v", err)
	}
}

func TestMulti(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	if err := Multi(ShellWriter(&a), Discard(), ShellWriter(&b)).Write(Record{Key: "K", Value: "v"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if a.String() != "export K=v\n" || a.String() != b.String() {
		t.Errorf("outputs = %q, %q", a.String(), b.String())
	}
}

// SPDX-License-Identifier: MPL-2.0

// Package outputs publishes build results as key/value step outputs, either
// into a GitHub Actions output file or as shell export statements.
package outputs

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Keys written after a bundle build.
const (
	KeyCLIVersion     = "GEMINI_VERSION"
	KeyEditorVersion  = "VSCODE_VERSION"
	KeyPtyVersion     = "NODEPTY_VERSION"
	KeyArtifact       = "ARTIFACT"
	KeyArtifactSHA256 = "ARTIFACT_SHA256"
)

// ErrInvalidKey is returned for keys that are not shell-style identifiers.
var ErrInvalidKey = errors.New("invalid output key")

var keyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type (
	// Record is one output value.
	Record struct {
		Key   string
		Value string
	}

	// Writer publishes records.
	Writer interface {
		Write(records ...Record) error
	}

	githubWriter struct {
		path      string
		delimiter func() string
	}

	shellWriter struct {
		w io.Writer
	}
)

// GitHubWriter appends records to the GitHub Actions output file at path
// (the file named by GITHUB_OUTPUT). Multi-line values use the
// "KEY<<DELIM" heredoc form.
func GitHubWriter(path string) Writer {
	return &githubWriter{path: path, delimiter: randomDelimiter}
}

// ShellWriter prints "export KEY=value" lines, quoted for bash, suitable
// for eval.
func ShellWriter(w io.Writer) Writer {
	return &shellWriter{w: w}
}

func (g *githubWriter) Write(records ...Record) (err error) {
	var b strings.Builder
	for _, r := range records {
		if err := validateKey(r.Key); err != nil {
			return err
		}
		if !strings.ContainsAny(r.Value, "\r\n") {
			fmt.Fprintf(&b, "%s=%s\n", r.Key, r.Value)
			continue
		}

		delim := g.delimiter()
		for strings.Contains(r.Value, delim) {
			delim = g.delimiter()
		}
		fmt.Fprintf(&b, "%s<<%s\n%s\n%s\n", r.Key, delim, r.Value, delim)
	}

	f, err := os.OpenFile(g.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file %s: %w", g.path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing output file %s: %w", g.path, closeErr)
		}
	}()

	if _, err := io.WriteString(f, b.String()); err != nil {
		return fmt.Errorf("writing output file %s: %w", g.path, err)
	}
	return nil
}

func (s *shellWriter) Write(records ...Record) error {
	var b strings.Builder
	for _, r := range records {
		if err := validateKey(r.Key); err != nil {
			return err
		}
		quoted, err := syntax.Quote(r.Value, syntax.LangBash)
		if err != nil {
			return fmt.Errorf("quoting %s: %w", r.Key, err)
		}
		fmt.Fprintf(&b, "export %s=%s\n", r.Key, quoted)
	}

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return fmt.Errorf("writing shell outputs: %w", err)
	}
	return nil
}

// Discard accepts and drops records.
func Discard() Writer { return discard{} }

type discard struct{}

func (discard) Write(...Record) error { return nil }

// Multi fans records out to every writer, stopping at the first error.
func Multi(writers ...Writer) Writer { return multi(writers) }

type multi []Writer

func (m multi) Write(records ...Record) error {
	for _, w := range m {
		if err := w.Write(records...); err != nil {
			return err
		}
	}
	return nil
}

func validateKey(k string) error {
	if !keyRegex.MatchString(k) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, k)
	}
	return nil
}

func randomDelimiter() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf) // crypto/rand.Read never fails on supported platforms
	return "ghadelimiter_" + hex.EncodeToString(buf)
}

// SPDX-License-Identifier: MPL-2.0

// Package manifest synthesizes the package.json that makes a bundle
// installable with npm.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

const (
	// FileName is the manifest written at the bundle root.
	FileName = "package.json"

	// PtyRepository is the git source npm resolves node-pty from.
	PtyRepository = "github:microsoft/node-pty"
)

// ErrInvalidSpec is returned when a required Spec field is empty.
var ErrInvalidSpec = errors.New("invalid manifest spec")

// Spec describes the bundle manifest.
type Spec struct {
	Name       string // npm package name, e.g. "gemini-cli"
	Version    string // CLI version without "v"
	Bin        string // executable name, e.g. "gemini"
	Entry      string // script the executable runs, e.g. "gemini.js"
	PtyVersion string // node-pty version; the dependency is omitted when empty
}

// Validate checks that every required field is set.
func (s Spec) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", s.Name},
		{"version", s.Version},
		{"bin", s.Bin},
		{"entry", s.Entry},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidSpec, strings.Join(missing, ", "))
	}
	return nil
}

// PtyDependency is the dependency specifier for node-pty at version.
func PtyDependency(version string) string {
	return PtyRepository + "#v" + strings.TrimPrefix(version, "v")
}

// Build renders the manifest with keys in a fixed order and two-space
// indentation.
func Build(s Spec) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	doc := []byte("{}")
	sets := []struct {
		path  string
		value string
	}{
		{"name", s.Name},
		{"version", s.Version},
		{"bin." + escapeKey(s.Bin), s.Entry},
	}
	if s.PtyVersion != "" {
		sets = append(sets, struct{ path, value string }{"dependencies.node-pty", PtyDependency(s.PtyVersion)})
	}

	var err error
	for _, set := range sets {
		if doc, err = sjson.SetBytes(doc, set.path, set.value); err != nil {
			return nil, fmt.Errorf("setting %s: %w", set.path, err)
		}
	}

	return pretty.PrettyOptions(doc, &pretty.Options{Width: 80, Indent: "  "}), nil
}

// Write renders s into dir/package.json.
func Write(dir string, s Spec) (string, error) {
	data, err := Build(s)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// escapeKey protects sjson path metacharacters in an object key.
func escapeKey(k string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return r.Replace(k)
}

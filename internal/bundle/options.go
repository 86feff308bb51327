// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gembundle/gembundle/internal/editor"
	"github.com/gembundle/gembundle/internal/release"
	"github.com/gembundle/gembundle/pkg/subtree"
	"github.com/gembundle/gembundle/pkg/tarball"
)

const (
	DefaultAsset       = "gemini.js"
	DefaultBin         = "gemini"
	DefaultPackageName = "gemini-cli"
	DefaultPrefix      = "node_modules/node-pty/"
	DefaultPtyDir      = "node_modules/node-pty"
	DefaultOutput      = "gemini-cli-dist.tgz"
)

// ErrInvalidOptions wraps every Options validation failure.
var ErrInvalidOptions = errors.New("invalid bundle options")

// Options configures a build. Zero values select the defaults above.
type Options struct {
	// CLI release source.
	Repo        string // "owner/name"
	Tag         string // empty means latest
	Asset       string
	Bin         string
	PackageName string

	// Editor archive source.
	EditorPlatform string
	EditorQuality  string
	EditorVersion  string // pinned version; empty means latest

	// Subtree extraction.
	Prefix     string
	PtyDir     string // relative to the work dir
	Manifest   string
	VersionKey string
	Overwrite  subtree.OverwritePolicy

	// Artifact.
	Output      string
	Compression tarball.Compression
	Checksum    bool // also write <Output>.sha256

	// Work directory handling.
	WorkDir  string // empty means a fresh temp dir
	KeepWork bool

	// Prepack runs in the work dir after package.json is written.
	Prepack string
	// HookEnv is the base environment for Prepack, e.g. os.Environ().
	HookEnv []string
}

func (o *Options) applyDefaults() {
	setDefault(&o.Repo, release.DefaultOwner+"/"+release.DefaultRepo)
	setDefault(&o.Asset, DefaultAsset)
	setDefault(&o.Bin, DefaultBin)
	setDefault(&o.PackageName, DefaultPackageName)
	setDefault(&o.EditorPlatform, editor.DefaultPlatform)
	setDefault(&o.EditorQuality, editor.DefaultQuality)
	setDefault(&o.Prefix, DefaultPrefix)
	setDefault(&o.PtyDir, DefaultPtyDir)
	setDefault(&o.Manifest, subtree.DefaultManifest)
	setDefault(&o.VersionKey, subtree.DefaultVersionKey)
	setDefault(&o.Output, DefaultOutput)
	if o.Overwrite == "" {
		o.Overwrite = subtree.OverwriteReplace
	}
	if o.Compression == "" {
		o.Compression = tarball.Gzip
	}
}

// Validate applies defaults and checks the options for consistency.
func (o *Options) Validate() error {
	o.applyDefaults()

	if _, _, err := release.ParseRepo(o.Repo); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if strings.ContainsAny(o.Asset, `/\`) {
		return fmt.Errorf("%w: asset %q must be a plain file name", ErrInvalidOptions, o.Asset)
	}
	if !filepath.IsLocal(filepath.FromSlash(o.PtyDir)) {
		return fmt.Errorf("%w: pty dir %q must be relative to the bundle root", ErrInvalidOptions, o.PtyDir)
	}
	if err := o.Overwrite.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if _, err := tarball.ParseCompression(string(o.Compression)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.WorkDir != "" {
		inside, err := within(o.WorkDir, o.Output)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		if inside {
			return fmt.Errorf("%w: output %q is inside work dir %q", ErrInvalidOptions, o.Output, o.WorkDir)
		}
	}

	return nil
}

func setDefault(s *string, def string) {
	if strings.TrimSpace(*s) == "" {
		*s = def
	}
}

// within reports whether p resolves to dir or a path below it.
func within(dir, p string) (bool, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(p)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel == "." || filepath.IsLocal(rel), nil
}

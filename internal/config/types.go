// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/gembundle/gembundle/internal/bundle"
	"github.com/gembundle/gembundle/internal/editor"
	"github.com/gembundle/gembundle/internal/release"
	"github.com/gembundle/gembundle/pkg/subtree"
	"github.com/gembundle/gembundle/pkg/tarball"
)

// ErrInvalidConfig is wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// InvalidConfigError reports a field that fails validation after
	// environment overrides were applied.
	InvalidConfigError struct {
		Field string
		Err   error
	}

	// Config is the full gembundle configuration.
	Config struct {
		GitHub  GitHubConfig  `json:"github" mapstructure:"github"`
		Editor  EditorConfig  `json:"editor" mapstructure:"editor"`
		Extract ExtractConfig `json:"extract" mapstructure:"extract"`
		Output  OutputConfig  `json:"output" mapstructure:"output"`
		Hooks   HooksConfig   `json:"hooks" mapstructure:"hooks"`
		UI      UIConfig      `json:"ui" mapstructure:"ui"`
	}

	// GitHubConfig selects the CLI release.
	GitHubConfig struct {
		Repo        string `json:"repo" mapstructure:"repo"`
		Tag         string `json:"tag" mapstructure:"tag"`
		Asset       string `json:"asset" mapstructure:"asset"`
		Bin         string `json:"bin" mapstructure:"bin"`
		PackageName string `json:"package_name" mapstructure:"package_name"`
		APIURL      string `json:"api_url" mapstructure:"api_url"`
	}

	// EditorConfig selects the VS Code build carrying node-pty.
	EditorConfig struct {
		Platform string `json:"platform" mapstructure:"platform"`
		Quality  string `json:"quality" mapstructure:"quality"`
		Version  string `json:"version" mapstructure:"version"`
		BaseURL  string `json:"base_url" mapstructure:"base_url"`
	}

	// ExtractConfig controls the subtree extraction.
	ExtractConfig struct {
		Prefix     string `json:"prefix" mapstructure:"prefix"`
		TargetDir  string `json:"target_dir" mapstructure:"target_dir"`
		Manifest   string `json:"manifest" mapstructure:"manifest"`
		VersionKey string `json:"version_key" mapstructure:"version_key"`
		Overwrite  string `json:"overwrite" mapstructure:"overwrite"`
	}

	// OutputConfig controls the artifact.
	OutputConfig struct {
		Path        string `json:"path" mapstructure:"path"`
		Compression string `json:"compression" mapstructure:"compression"`
		Checksum    bool   `json:"checksum" mapstructure:"checksum"`
	}

	// HooksConfig holds shell snippets run during a build.
	HooksConfig struct {
		Prepack string `json:"prepack" mapstructure:"prepack"`
	}

	// UIConfig holds presentation settings.
	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %v", e.Field, e.Err)
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			Repo:        release.DefaultOwner + "/" + release.DefaultRepo,
			Asset:       bundle.DefaultAsset,
			Bin:         bundle.DefaultBin,
			PackageName: bundle.DefaultPackageName,
			APIURL:      release.DefaultBaseURL,
		},
		Editor: EditorConfig{
			Platform: editor.DefaultPlatform,
			Quality:  editor.DefaultQuality,
			BaseURL:  editor.DefaultBaseURL,
		},
		Extract: ExtractConfig{
			Prefix:     bundle.DefaultPrefix,
			TargetDir:  bundle.DefaultPtyDir,
			Manifest:   subtree.DefaultManifest,
			VersionKey: subtree.DefaultVersionKey,
			Overwrite:  string(subtree.OverwriteReplace),
		},
		Output: OutputConfig{
			Path:        bundle.DefaultOutput,
			Compression: string(tarball.Gzip),
		},
	}
}

// Validate checks values that environment overrides could have set
// without passing through the CUE schema.
func (c *Config) Validate() error {
	if _, _, err := release.ParseRepo(c.GitHub.Repo); err != nil {
		return &InvalidConfigError{Field: "github.repo", Err: err}
	}
	if _, err := subtree.ParseOverwritePolicy(c.Extract.Overwrite); err != nil {
		return &InvalidConfigError{Field: "extract.overwrite", Err: err}
	}
	if _, err := tarball.ParseCompression(c.Output.Compression); err != nil {
		return &InvalidConfigError{Field: "output.compression", Err: err}
	}
	return nil
}

// BundleOptions maps the configuration onto bundle.Options.
func (c *Config) BundleOptions() bundle.Options {
	overwrite, _ := subtree.ParseOverwritePolicy(c.Extract.Overwrite) //nolint:errcheck // checked in Validate
	compression, _ := tarball.ParseCompression(c.Output.Compression) //nolint:errcheck // checked in Validate

	return bundle.Options{
		Repo:           c.GitHub.Repo,
		Tag:            c.GitHub.Tag,
		Asset:          c.GitHub.Asset,
		Bin:            c.GitHub.Bin,
		PackageName:    c.GitHub.PackageName,
		EditorPlatform: c.Editor.Platform,
		EditorQuality:  c.Editor.Quality,
		EditorVersion:  c.Editor.Version,
		Prefix:         c.Extract.Prefix,
		PtyDir:         c.Extract.TargetDir,
		Manifest:       c.Extract.Manifest,
		VersionKey:     c.Extract.VersionKey,
		Overwrite:      overwrite,
		Output:         c.Output.Path,
		Compression:    compression,
		Checksum:       c.Output.Checksum,
		Prepack:        c.Hooks.Prepack,
	}
}

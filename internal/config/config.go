// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/gembundle/gembundle/internal/cueutil"
	"github.com/gembundle/gembundle/internal/issue"
)

const (
	AppName        = "gembundle"
	ConfigFileName = "config"
	ConfigFileExt  = "cue"
	// EnvPrefix prefixes environment overrides: GEMBUNDLE_OUTPUT_PATH sets output.path.
	EnvPrefix = "GEMBUNDLE"
)

// ErrConfigExists is returned by WriteDefault when the file exists and
// force is not set.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema string

// LoadOptions selects the configuration source.
type LoadOptions struct {
	// ConfigFilePath loads exactly this file; it must exist.
	ConfigFilePath string
	// ConfigDirPath replaces the platform config directory.
	ConfigDirPath string
}

// ConfigDir returns the platform configuration directory for gembundle.
//
//nolint:revive // config.ConfigDir reads better at call sites than config.Dir
func ConfigDir() (string, error) {
	var base string

	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, AppName), nil
}

// FilePath returns the config file Load would read for opts, whether or
// not it exists.
func FilePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// Load resolves the configuration and returns it with the path of the file
// that was read ("" when only defaults and environment applied).
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("load config canceled: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := FilePath(opts)
	if err != nil {
		return nil, "", err
	}

	resolved := ""
	switch {
	case fileExists(path):
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Compare it with the output of 'gembundle config init --print'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		resolved = path
	case opts.ConfigFilePath != "":
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the --config path").
			WithSuggestion("Run 'gembundle config init' to create the default file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %w", fs.ErrNotExist)).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check " + EnvPrefix + "_* environment variables").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolved, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	for key, val := range map[string]any{
		"github.repo":         d.GitHub.Repo,
		"github.tag":          d.GitHub.Tag,
		"github.asset":        d.GitHub.Asset,
		"github.bin":          d.GitHub.Bin,
		"github.package_name": d.GitHub.PackageName,
		"github.api_url":      d.GitHub.APIURL,
		"editor.platform":     d.Editor.Platform,
		"editor.quality":      d.Editor.Quality,
		"editor.version":      d.Editor.Version,
		"editor.base_url":     d.Editor.BaseURL,
		"extract.prefix":      d.Extract.Prefix,
		"extract.target_dir":  d.Extract.TargetDir,
		"extract.manifest":    d.Extract.Manifest,
		"extract.version_key": d.Extract.VersionKey,
		"extract.overwrite":   d.Extract.Overwrite,
		"output.path":         d.Output.Path,
		"output.compression":  d.Output.Compression,
		"output.checksum":     d.Output.Checksum,
		"hooks.prepack":       d.Hooks.Prepack,
		"ui.verbose":          d.UI.Verbose,
	} {
		v.SetDefault(key, val)
	}
}

// loadCUEIntoViper validates the file against #Config and merges it over
// the defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var m map[string]any
	if err := cueutil.Decode(configSchema, data, "#Config", path, &m); err != nil {
		return err
	}

	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes GenerateCUE(DefaultConfig()) to path. An existing
// file is kept unless force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a config.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// gembundle configuration\n")
	sb.WriteString("// Every field is optional; omitted fields keep their defaults.\n\n")

	sb.WriteString("github: {\n")
	fmt.Fprintf(&sb, "\trepo:         %q\n", cfg.GitHub.Repo)
	if cfg.GitHub.Tag != "" {
		fmt.Fprintf(&sb, "\ttag:          %q\n", cfg.GitHub.Tag)
	}
	fmt.Fprintf(&sb, "\tasset:        %q\n", cfg.GitHub.Asset)
	fmt.Fprintf(&sb, "\tbin:          %q\n", cfg.GitHub.Bin)
	fmt.Fprintf(&sb, "\tpackage_name: %q\n", cfg.GitHub.PackageName)
	fmt.Fprintf(&sb, "\tapi_url:      %q\n", cfg.GitHub.APIURL)
	sb.WriteString("}\n")

	sb.WriteString("\neditor: {\n")
	fmt.Fprintf(&sb, "\tplatform: %q\n", cfg.Editor.Platform)
	fmt.Fprintf(&sb, "\tquality:  %q\n", cfg.Editor.Quality)
	if cfg.Editor.Version != "" {
		fmt.Fprintf(&sb, "\tversion:  %q\n", cfg.Editor.Version)
	}
	fmt.Fprintf(&sb, "\tbase_url: %q\n", cfg.Editor.BaseURL)
	sb.WriteString("}\n")

	sb.WriteString("\nextract: {\n")
	fmt.Fprintf(&sb, "\tprefix:      %q\n", cfg.Extract.Prefix)
	fmt.Fprintf(&sb, "\ttarget_dir:  %q\n", cfg.Extract.TargetDir)
	fmt.Fprintf(&sb, "\tmanifest:    %q\n", cfg.Extract.Manifest)
	fmt.Fprintf(&sb, "\tversion_key: %q\n", cfg.Extract.VersionKey)
	fmt.Fprintf(&sb, "\toverwrite:   %q\n", cfg.Extract.Overwrite)
	sb.WriteString("}\n")

	sb.WriteString("\noutput: {\n")
	fmt.Fprintf(&sb, "\tpath:        %q\n", cfg.Output.Path)
	fmt.Fprintf(&sb, "\tcompression: %q\n", cfg.Output.Compression)
	fmt.Fprintf(&sb, "\tchecksum:    %v\n", cfg.Output.Checksum)
	sb.WriteString("}\n")

	if cfg.Hooks.Prepack != "" {
		sb.WriteString("\nhooks: {\n")
		fmt.Fprintf(&sb, "\tprepack: %q\n", cfg.Hooks.Prepack)
		sb.WriteString("}\n")
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

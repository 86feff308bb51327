// SPDX-License-Identifier: MPL-2.0

package subtree

import (
	"io"

	"github.com/charmbracelet/log"
)

const (
	// OverwriteReplace truncates and rewrites existing destination files.
	OverwriteReplace OverwritePolicy = "replace"
	// OverwriteFail aborts before writing anything when a destination file exists.
	OverwriteFail OverwritePolicy = "fail"
	// OverwriteSkip leaves existing destination files untouched.
	OverwriteSkip OverwritePolicy = "skip"

	// DefaultManifest is the manifest filename consulted for a version.
	DefaultManifest = "package.json"
	// DefaultVersionKey is the dotted path of the version field in the manifest.
	DefaultVersionKey = "version"
	// DefaultVersion is reported when the manifest is absent, has no version
	// field, or cannot be parsed.
	DefaultVersion = "0.0.0"

	// defaultMaxEntryBytes bounds the size of a single extracted entry (1 GiB).
	defaultMaxEntryBytes int64 = 1 << 30

	dirPerm  = 0o755
	filePerm = 0o644
)

type (
	// OverwritePolicy decides what happens when a destination file already exists.
	OverwritePolicy string

	// Option configures Extract.
	Option func(*options)

	options struct {
		logger        *log.Logger
		overwrite     OverwritePolicy
		manifest      string
		versionKey    string
		maxEntryBytes int64
	}
)

// Validate returns an InvalidOverwritePolicyError for unrecognized values.
func (p OverwritePolicy) Validate() error {
	switch p {
	case OverwriteReplace, OverwriteFail, OverwriteSkip:
		return nil
	default:
		return &InvalidOverwritePolicyError{Value: p}
	}
}

// String returns the policy name.
func (p OverwritePolicy) String() string { return string(p) }

// ParseOverwritePolicy converts a flag or config value into an OverwritePolicy.
// The empty string selects OverwriteReplace.
func ParseOverwritePolicy(s string) (OverwritePolicy, error) {
	if s == "" {
		return OverwriteReplace, nil
	}
	p := OverwritePolicy(s)
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// WithLogger sets the logger used for per-entry debug output and manifest warnings.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOverwrite sets the overwrite policy. Defaults to OverwriteReplace.
func WithOverwrite(p OverwritePolicy) Option {
	return func(o *options) {
		o.overwrite = p
	}
}

// WithManifest sets the residual path treated as the manifest (e.g. "package.json",
// "Cargo.toml"). The decoder is chosen from the file extension.
func WithManifest(name string) Option {
	return func(o *options) {
		o.manifest = name
	}
}

// WithVersionKey sets the dotted path of the version field inside the manifest.
func WithVersionKey(key string) Option {
	return func(o *options) {
		o.versionKey = key
	}
}

// WithMaxEntryBytes bounds the decompressed size of a single entry.
func WithMaxEntryBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntryBytes = n
		}
	}
}

func defaultOptions() options {
	return options{
		logger:        log.New(io.Discard),
		overwrite:     OverwriteReplace,
		manifest:      DefaultManifest,
		versionKey:    DefaultVersionKey,
		maxEntryBytes: defaultMaxEntryBytes,
	}
}

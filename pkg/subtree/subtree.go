// SPDX-License-Identifier: MPL-2.0

package subtree

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type (
	// Result describes a completed extraction.
	Result struct {
		// Version is the manifest version, or DefaultVersion.
		Version string
		// ManifestFound is true when the manifest was among the extracted entries.
		ManifestFound bool
		// Files lists the residual paths written, in archive order.
		Files []string
		// Dirs lists the residual paths of directory entries created.
		Dirs []string
		// Skipped lists residual paths left untouched under OverwriteSkip.
		Skipped []string
		// Warnings collects non-fatal manifest problems.
		Warnings []ManifestParseWarning
	}

	// planned is a validated entry ready to be materialized.
	planned struct {
		file     *zip.File
		residual string // slash-separated, cleaned
		target   string // absolute destination path
		isDir    bool
		exists   bool
	}
)

// ExtractFile opens the ZIP archive at archivePath and calls Extract.
// zip.ErrInsecurePath is not fatal here: Extract applies its own path checks
// to the entries under the prefix and ignores the rest.
func ExtractFile(ctx context.Context, archivePath, prefix, dest string, opts ...Option) (_ *Result, err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, &MalformedArchiveError{Reason: "opening " + archivePath, Err: err}
	}
	defer func() { _ = zr.Close() }() // read-only handle

	return Extract(ctx, &zr.Reader, prefix, dest, opts...)
}

// ExtractBytes reads a ZIP archive held in memory and calls Extract.
func ExtractBytes(ctx context.Context, data []byte, prefix, dest string, opts ...Option) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, &MalformedArchiveError{Reason: "reading in-memory archive", Err: err}
	}
	return Extract(ctx, zr, prefix, dest, opts...)
}

// Extract writes every archive entry whose name contains prefix into dest,
// keeping the part of the name after the prefix as the relative path.
//
// Entries are validated before anything is written: a missing subtree
// (NotFoundError), an entry escaping dest (MalformedArchiveError) or, under
// OverwriteFail, an existing file (ConflictError) leave dest untouched.
// A read failure while writing aborts immediately; the caller must discard
// the partially written directory.
func Extract(ctx context.Context, archive *zip.Reader, prefix, dest string, opts ...Option) (*Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if prefix == "" {
		return nil, ErrEmptyPrefix
	}
	if archive == nil {
		return nil, &MalformedArchiveError{Reason: "nil archive reader"}
	}
	if err := o.overwrite.Validate(); err != nil {
		return nil, err
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("resolving destination %s: %w", dest, err)
	}

	plan, err := planEntries(archive, prefix, absDest, o.overwrite)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absDest, dirPerm); err != nil {
		return nil, fmt.Errorf("creating destination %s: %w", absDest, err)
	}

	res := &Result{Version: DefaultVersion}
	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction canceled: %w", err)
		}
		if err := materialize(p, &o, res); err != nil {
			return nil, err
		}
	}

	o.logger.Debug("extracted subtree", "prefix", prefix, "dest", absDest,
		"files", len(res.Files), "dirs", len(res.Dirs), "version", res.Version)

	return res, nil
}

// planEntries selects and validates the entries to extract. It never touches
// the destination apart from stat calls.
func planEntries(archive *zip.Reader, prefix, absDest string, policy OverwritePolicy) ([]planned, error) {
	var (
		plan    []planned
		matched bool
		// planned file targets; a repeat is treated like an existing file
		seen = make(map[string]struct{})
	)

	for _, f := range archive.File {
		_, rest, found := strings.Cut(f.Name, prefix)
		if !found {
			continue
		}
		matched = true

		isDir := strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()

		rest = strings.TrimLeft(rest, "/")
		if rest == "" {
			// The prefix directory marker itself.
			continue
		}

		residual := path.Clean(rest)
		local := filepath.FromSlash(residual)
		if !filepath.IsLocal(local) {
			return nil, &MalformedArchiveError{Entry: f.Name, Reason: "path escapes destination"}
		}

		p := planned{
			file:     f,
			residual: residual,
			target:   filepath.Join(absDest, local),
			isDir:    isDir,
		}

		if !isDir {
			info, statErr := os.Lstat(p.target)
			switch {
			case statErr == nil && info.IsDir():
				return nil, &ConflictError{Entry: f.Name, Path: p.target}
			case statErr == nil:
				p.exists = true
				if policy == OverwriteFail {
					return nil, &ConflictError{Entry: f.Name, Path: p.target}
				}
			case !errors.Is(statErr, os.ErrNotExist):
				return nil, fmt.Errorf("checking %s: %w", p.target, statErr)
			}

			if _, dup := seen[p.target]; dup {
				if policy == OverwriteFail {
					return nil, &ConflictError{Entry: f.Name, Path: p.target}
				}
				p.exists = true
			}
			seen[p.target] = struct{}{}
		}

		plan = append(plan, p)
	}

	if !matched {
		return nil, &NotFoundError{Prefix: prefix, Entries: len(archive.File)}
	}

	return plan, nil
}

// materialize writes a single planned entry and records it in res.
func materialize(p planned, o *options, res *Result) error {
	if p.isDir {
		if err := os.MkdirAll(p.target, dirPerm); err != nil {
			return fmt.Errorf("creating directory %s: %w", p.target, err)
		}
		res.Dirs = append(res.Dirs, p.residual)
		return nil
	}

	isManifest := p.residual == o.manifest && !res.ManifestFound
	skip := p.exists && o.overwrite == OverwriteSkip

	// Skipped entries are still read when they carry the manifest, so the
	// reported version always reflects the archive.
	if skip && !isManifest {
		res.Skipped = append(res.Skipped, p.residual)
		o.logger.Debug("skipping existing file", "entry", p.file.Name, "path", p.target)
		return nil
	}

	data, err := readEntry(p.file, o.maxEntryBytes)
	if err != nil {
		return err
	}

	if isManifest {
		res.ManifestFound = true
		captureVersion(p, data, o, res)
	}

	if skip {
		res.Skipped = append(res.Skipped, p.residual)
		o.logger.Debug("skipping existing file", "entry", p.file.Name, "path", p.target)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(p.target), dirPerm); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", p.target, err)
	}

	perm := p.file.Mode().Perm()
	if perm == 0 {
		perm = filePerm
	}
	if err := os.WriteFile(p.target, data, perm); err != nil {
		return fmt.Errorf("writing %s: %w", p.target, err)
	}

	res.Files = append(res.Files, p.residual)
	o.logger.Debug("extracted", "entry", p.file.Name, "bytes", len(data))

	return nil
}

// readEntry reads the full decompressed content of f, bounded by limit.
func readEntry(f *zip.File, limit int64) (_ []byte, err error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &MalformedArchiveError{Entry: f.Name, Reason: "opening entry", Err: err}
	}
	defer func() { _ = rc.Close() }() // read-only entry reader

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, &MalformedArchiveError{Entry: f.Name, Reason: "reading entry", Err: err}
	}
	if int64(len(data)) > limit {
		return nil, &MalformedArchiveError{Entry: f.Name, Reason: fmt.Sprintf("entry exceeds %d bytes", limit)}
	}

	return data, nil
}

// captureVersion stores the manifest version in res, downgrading decode
// failures to warnings.
func captureVersion(p planned, data []byte, o *options, res *Result) {
	version, err := ManifestVersion(p.residual, data, o.versionKey)
	switch {
	case err == nil:
		res.Version = version
	case errors.Is(err, errVersionMissing):
		o.logger.Debug("manifest has no version field", "entry", p.file.Name, "key", o.versionKey)
	default:
		w := ManifestParseWarning{Entry: p.file.Name, Err: err}
		res.Warnings = append(res.Warnings, w)
		o.logger.Warn("could not read manifest version", "entry", p.file.Name, "error", err, "default", DefaultVersion)
	}
}

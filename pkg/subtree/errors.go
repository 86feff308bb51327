// SPDX-License-Identifier: MPL-2.0

package subtree

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no archive entry contains the prefix.
	ErrNotFound = errors.New("subtree not found in archive")

	// ErrMalformedArchive is returned when the archive cannot be opened, an entry
	// cannot be read, or an entry would be written outside the destination.
	ErrMalformedArchive = errors.New("malformed archive")

	// ErrConflict is returned under OverwriteFail when a destination file already exists.
	ErrConflict = errors.New("destination file already exists")

	// ErrEmptyPrefix is returned when Extract is called with an empty prefix.
	ErrEmptyPrefix = errors.New("prefix must not be empty")

	// ErrInvalidOverwritePolicy is the sentinel wrapped by InvalidOverwritePolicyError.
	ErrInvalidOverwritePolicy = errors.New("invalid overwrite policy")
)

type (
	// NotFoundError reports that the expected subtree is absent, which usually
	// means the upstream distribution changed its layout.
	NotFoundError struct {
		Prefix  string
		Entries int // number of entries scanned
	}

	// MalformedArchiveError reports an unreadable archive or entry.
	MalformedArchiveError struct {
		Entry  string // empty when the archive itself is at fault
		Reason string
		Err    error
	}

	// ConflictError reports an existing destination file under OverwriteFail.
	ConflictError struct {
		Entry string
		Path  string
	}

	// ManifestParseWarning describes a manifest that could not be decoded.
	// It is never returned as an error; it is logged and collected in Result.Warnings.
	ManifestParseWarning struct {
		Entry string
		Err   error
	}

	// InvalidOverwritePolicyError is returned when an OverwritePolicy value is not recognized.
	InvalidOverwritePolicyError struct {
		Value OverwritePolicy
	}
)

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no entry matching %q among %d archive entries", e.Prefix, e.Entries)
}

// Unwrap returns ErrNotFound so callers can use errors.Is.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *MalformedArchiveError) Error() string {
	msg := "malformed archive"
	if e.Entry != "" {
		msg += ": entry " + e.Entry
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports ErrMalformedArchive as a match, keeping Err reachable through Unwrap.
func (e *MalformedArchiveError) Is(target error) bool { return target == ErrMalformedArchive }

// Unwrap returns the underlying cause.
func (e *MalformedArchiveError) Unwrap() error { return e.Err }

func (e *ConflictError) Error() string {
	return fmt.Sprintf("entry %s: %s already exists", e.Entry, e.Path)
}

// Unwrap returns ErrConflict so callers can use errors.Is.
func (e *ConflictError) Unwrap() error { return ErrConflict }

func (w ManifestParseWarning) Error() string {
	return fmt.Sprintf("manifest %s: %v", w.Entry, w.Err)
}

func (e *InvalidOverwritePolicyError) Error() string {
	return fmt.Sprintf("invalid overwrite policy %q (valid: replace, fail, skip)", string(e.Value))
}

// Unwrap returns ErrInvalidOverwritePolicy so callers can use errors.Is.
func (e *InvalidOverwritePolicyError) Unwrap() error { return ErrInvalidOverwritePolicy }

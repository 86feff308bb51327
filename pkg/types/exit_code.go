// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared by the command layer and
// library packages.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Process exit codes reported by gembundle.
const (
	ExitSuccess ExitCode = iota
	ExitGeneric
	ExitUsage
	// ExitLayoutChanged means the node-pty subtree was not found in the
	// editor archive.
	ExitLayoutChanged
	ExitMalformedArchive
	// ExitNetwork covers HTTP failures, missing releases and rate limiting.
	ExitNetwork
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status in the range 0-255.
	ExitCode int

	// InvalidExitCodeError is returned for codes outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate rejects codes outside 0-255.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// Description is a short human label for the known codes.
func (c ExitCode) Description() string {
	switch c {
	case ExitSuccess:
		return "success"
	case ExitGeneric:
		return "error"
	case ExitUsage:
		return "usage error"
	case ExitLayoutChanged:
		return "archive layout changed"
	case ExitMalformedArchive:
		return "malformed archive"
	case ExitNetwork:
		return "network error"
	default:
		return "exit status " + c.String()
	}
}

func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

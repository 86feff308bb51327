// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/gembundle/gembundle/pkg/types"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
// Execute turns Code into the process status after fang has rendered Err.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the wrapped error's message, or the bare status when there is none.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// SPDX-License-Identifier: MPL-2.0

// Package issue turns failures into user-facing guidance: ActionableError
// carries the failed operation, the resource involved and suggestions, and
// the issue catalog holds Markdown remediation pages rendered with glamour.
package issue

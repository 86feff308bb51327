// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/charmbracelet/fang"

	"github.com/gembundle/gembundle/internal/bundle"
	"github.com/gembundle/gembundle/internal/config"
	"github.com/gembundle/gembundle/internal/editor"
	"github.com/gembundle/gembundle/internal/hook"
	"github.com/gembundle/gembundle/internal/issue"
	"github.com/gembundle/gembundle/internal/release"
	"github.com/gembundle/gembundle/pkg/subtree"
	"github.com/gembundle/gembundle/pkg/tarball"
	"github.com/gembundle/gembundle/pkg/types"
)

// markdownStyle is the glamour style for issue pages; "auto" degrades to
// plain text when stdout is not a terminal.
const markdownStyle = "auto"

// suggestions holds the default remediation hints per catalog entry.
var suggestions = map[issue.Id][]string{
	issue.LayoutChangedId: {
		"List the editor archive with 'unzip -l' and pass the new location with --prefix",
		"Pin a known-good editor build with --editor-version",
	},
	issue.MalformedArchiveId: {"Retry the download; the archive may be truncated"},
	issue.ExtractConflictId:  {"Use --overwrite replace or --overwrite skip"},
	issue.ReleaseNotFoundId:  {"Check --repo and --tag", "Omit --tag to use the latest release"},
	issue.AssetNotFoundId:    {"Check --asset against the release's asset list"},
	issue.RateLimitedId:      {"Export GITHUB_TOKEN to raise the API rate limit"},
	issue.ChecksumMismatchId: {"Retry the download", "Check for a proxy rewriting responses"},
	issue.NetworkFailedId:    {"Check network connectivity and proxy settings"},
	issue.HookFailedId:       {"Re-run with --keep-work and run the hook by hand in the work directory"},
}

// classifyError maps a failure to its catalog entry and process exit code.
// An Id of zero means no catalog entry applies.
func classifyError(err error) (issue.Id, types.ExitCode) {
	var (
		rateErr *release.RateLimitError
		hookErr *hook.ExitError
		netErr  net.Error
		ae      *issue.ActionableError
	)

	switch {
	case errors.Is(err, subtree.ErrNotFound):
		return issue.LayoutChangedId, types.ExitLayoutChanged
	case errors.Is(err, subtree.ErrMalformedArchive):
		return issue.MalformedArchiveId, types.ExitMalformedArchive
	case errors.Is(err, subtree.ErrConflict):
		return issue.ExtractConflictId, types.ExitGeneric
	case errors.As(err, &rateErr):
		return issue.RateLimitedId, types.ExitNetwork
	case errors.Is(err, release.ErrReleaseNotFound), errors.Is(err, editor.ErrBuildNotFound):
		return issue.ReleaseNotFoundId, types.ExitNetwork
	case errors.Is(err, release.ErrAssetNotFound):
		return issue.AssetNotFoundId, types.ExitNetwork
	case errors.Is(err, release.ErrChecksumMismatch):
		return issue.ChecksumMismatchId, types.ExitNetwork
	case errors.As(err, &hookErr):
		return issue.HookFailedId, types.ExitGeneric
	case errors.Is(err, context.Canceled):
		return 0, types.ExitGeneric
	case isNetworkError(err), errors.As(err, &netErr):
		return issue.NetworkFailedId, types.ExitNetwork
	case errors.Is(err, bundle.ErrInvalidOptions), errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, subtree.ErrInvalidOverwritePolicy), errors.Is(err, subtree.ErrEmptyPrefix),
		errors.Is(err, tarball.ErrUnknownCompression):
		return issue.ConfigLoadFailedId, types.ExitUsage
	case errors.As(err, &ae) && ae.Issue != 0:
		if ae.Issue == issue.ConfigLoadFailedId {
			return ae.Issue, types.ExitUsage
		}
		return ae.Issue, types.ExitGeneric
	default:
		return 0, types.ExitGeneric
	}
}

func isNetworkError(err error) bool {
	var (
		ghStatus *release.StatusError
		edStatus *editor.StatusError
	)
	return errors.As(err, &ghStatus) || errors.As(err, &edStatus)
}

// failure wraps err for return from a RunE handler: it becomes an
// ActionableError carrying the catalog entry, inside an ExitError with the
// classified code. An existing ActionableError keeps its own suggestions.
func failure(err error, operation, resource string) error {
	if err == nil {
		return nil
	}

	id, code := classifyError(err)

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		ec := issue.NewErrorContext().
			WithOperation(operation).
			WithResource(resource).
			WithIssue(id).
			Wrap(err)
		for _, s := range suggestions[id] {
			ec.WithSuggestion(s)
		}
		err = ec.BuildError()
	}

	return &ExitError{Code: code, Err: err}
}

// formatErrorForDisplay formats an error for user display, using
// ActionableError.Format when available.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// errorHandler renders command failures. Errors that did not pass through
// failure (flag parsing, argument counts) get fang's default rendering.
func (a *App) errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fang.DefaultErrorHandler(w, styles, err)
		return
	}
	renderError(w, exitErr, a.verbose)
}

func renderError(w io.Writer, exitErr *ExitError, verbose bool) {
	if exitErr.Err == nil {
		return
	}
	fmt.Fprintf(w, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(exitErr.Err, verbose))

	var ae *issue.ActionableError
	if !errors.As(exitErr.Err, &ae) || ae.Issue == 0 {
		return
	}
	entry := issue.Get(ae.Issue)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(markdownStyle)
	if err != nil {
		fmt.Fprintf(w, "%s could not render help for issue %d: %v\n", WarningStyle.Render("Warning:"), ae.Issue, err)
		return
	}
	fmt.Fprint(w, rendered)
}

// exitCode returns the process exit status for an error returned by
// fang.Execute.
func exitCode(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return types.ExitUsage
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/gembundle/gembundle/internal/bundle"
	"github.com/gembundle/gembundle/internal/editor"
	"github.com/gembundle/gembundle/internal/hook"
	"github.com/gembundle/gembundle/internal/issue"
	"github.com/gembundle/gembundle/internal/release"
	"github.com/gembundle/gembundle/pkg/subtree"
	"github.com/gembundle/gembundle/pkg/types"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantID   issue.Id
		wantCode types.ExitCode
	}{
		{
			name:     "subtree not found",
			err:      fmt.Errorf("extracting: %w", &subtree.NotFoundError{Prefix: "node_modules/node-pty/"}),
			wantID:   issue.LayoutChangedId,
			wantCode: types.ExitLayoutChanged,
		},
		{
			name:     "malformed archive",
			err:      &subtree.MalformedArchiveError{Entry: "../x", Reason: "path escapes destination"},
			wantID:   issue.MalformedArchiveId,
			wantCode: types.ExitMalformedArchive,
		},
		{
			name:     "conflict",
			err:      &subtree.ConflictError{Entry: "a", Path: "/tmp/a"},
			wantID:   issue.ExtractConflictId,
			wantCode: types.ExitGeneric,
		},
		{
			name:     "rate limited",
			err:      fmt.Errorf("resolving: %w", &release.RateLimitError{Limit: 60}),
			wantID:   issue.RateLimitedId,
			wantCode: types.ExitNetwork,
		},
		{
			name:     "release not found",
			err:      fmt.Errorf("resolving: %w", release.ErrReleaseNotFound),
			wantID:   issue.ReleaseNotFoundId,
			wantCode: types.ExitNetwork,
		},
		{
			name:     "editor build not found",
			err:      editor.ErrBuildNotFound,
			wantID:   issue.ReleaseNotFoundId,
			wantCode: types.ExitNetwork,
		},
		{
			name:     "asset not found",
			err:      fmt.Errorf("release v1: %w", release.ErrAssetNotFound),
			wantID:   issue.AssetNotFoundId,
			wantCode: types.ExitNetwork,
		},
		{
			name:     "checksum mismatch",
			err:      &release.ChecksumError{Path: "a.zip"},
			wantID:   issue.ChecksumMismatchId,
			wantCode: types.ExitNetwork,
		},
		{
			name:     "http status",
			err:      &editor.StatusError{URL: "https://example.com", Status: 502},
			wantID:   issue.NetworkFailedId,
			wantCode: types.ExitNetwork,
		},
		{
			name:     "transport",
			err:      &url.Error{Op: "Get", URL: "https://example.com", Err: errors.New("connection refused")},
			wantID:   issue.NetworkFailedId,
			wantCode: types.ExitNetwork,
		},
		{
			name:     "hook",
			err:      &hook.ExitError{Name: "prepack", Code: 3},
			wantID:   issue.HookFailedId,
			wantCode: types.ExitGeneric,
		},
		{
			name:     "invalid options",
			err:      fmt.Errorf("%w: bad", bundle.ErrInvalidOptions),
			wantID:   issue.ConfigLoadFailedId,
			wantCode: types.ExitUsage,
		},
		{
			name:     "canceled",
			err:      fmt.Errorf("download: %w", context.Canceled),
			wantCode: types.ExitGeneric,
		},
		{
			name:     "other",
			err:      errors.New("boom"),
			wantCode: types.ExitGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, code := classifyError(tt.err)
			if id != tt.wantID || code != tt.wantCode {
				t.Errorf("classifyError() = (%d, %d), want (%d, %d)", id, code, tt.wantID, tt.wantCode)
			}
		})
	}
}

func TestFailure(t *testing.T) {
	t.Parallel()

	if failure(nil, "op", "") != nil {
		t.Error("failure(nil) != nil")
	}

	cause := fmt.Errorf("extracting: %w", &subtree.NotFoundError{Prefix: "p/"})
	err := failure(cause, "build bundle", "gemini.tgz")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitLayoutChanged {
		t.Fatalf("failure() = %v, want ExitError with layout code", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatal("failure() did not wrap an ActionableError")
	}
	if ae.Operation != "build bundle" || ae.Resource != "gemini.tgz" || ae.Issue != issue.LayoutChangedId {
		t.Errorf("ActionableError = %+v", ae)
	}
	if len(ae.Suggestions) != len(suggestions[issue.LayoutChangedId]) {
		t.Errorf("suggestions = %v", ae.Suggestions)
	}
	if !errors.Is(err, subtree.ErrNotFound) {
		t.Error("cause lost from the chain")
	}

	// An existing ActionableError keeps its own suggestions.
	own := issue.NewErrorContext().
		WithOperation("load configuration").
		WithSuggestion("custom").
		WithIssue(issue.ConfigLoadFailedId).
		BuildError()
	err = failure(own, "ignored", "")
	if !errors.As(err, &ae) || ae.Operation != "load configuration" || len(ae.Suggestions) != 1 {
		t.Errorf("wrapped ActionableError = %+v", ae)
	}
	if exitCode(err) != types.ExitUsage {
		t.Errorf("exitCode() = %d, want usage", exitCode(err))
	}
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	err := failure(&release.RateLimitError{Limit: 60}, "resolve release", "google-gemini/gemini-cli")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatal("no ExitError")
	}

	var buf bytes.Buffer
	renderError(&buf, exitErr, false)
	out := buf.String()

	for _, want := range []string{"Error:", "resolve release", "GITHUB_TOKEN"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered error missing %q:\n%s", want, out)
		}
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	if exitCode(nil) != types.ExitSuccess {
		t.Error("nil error should succeed")
	}
	if exitCode(errors.New(`unknown flag: --nope`)) != types.ExitUsage {
		t.Error("plain cobra errors are usage errors")
	}
	if exitCode(&ExitError{Code: types.ExitNetwork}) != types.ExitNetwork {
		t.Error("ExitError code not honored")
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	bare := &ExitError{Code: types.ExitLayoutChanged}
	if got := bare.Error(); got != "exit status 3" {
		t.Errorf("Error() = %q, want %q", got, "exit status 3")
	}
	if bare.Unwrap() != nil {
		t.Error("Unwrap() should be nil without a cause")
	}

	wrapped := &ExitError{Code: types.ExitNetwork, Err: release.ErrChecksumMismatch}
	if got := wrapped.Error(); got != release.ErrChecksumMismatch.Error() {
		t.Errorf("Error() = %q, want the cause's message", got)
	}
	if !errors.Is(wrapped, release.ErrChecksumMismatch) {
		t.Error("errors.Is should see the wrapped cause")
	}
}

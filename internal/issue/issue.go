// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	LayoutChangedId Id = iota + 1
	MalformedArchiveId
	ExtractConflictId
	ReleaseNotFoundId
	AssetNotFoundId
	RateLimitedId
	ChecksumMismatchId
	NetworkFailedId
	ConfigLoadFailedId
	HookFailedId
	OutputWriteFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render returns the page as terminal-styled text. stylePath is a glamour
// style name ("dark", "light", "notty") or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	layoutChangedIssue = &Issue{
		id: LayoutChangedId,
		mdMsg: `
# The editor archive layout changed

No entry in the VS Code archive contains the node-pty prefix. Upstream most
likely moved or renamed the bundled add-on.

## Things you can try
- List the archive and look for the new location:
~~~
$ unzip -l VSCode-win32-x64.zip | grep node-pty
~~~
- Pass the new location explicitly:
~~~
$ gembundle build --prefix node_modules.asar.unpacked/node-pty/
~~~
- Pin a known good editor build with --editor-version`,
		docLinks: []HttpLink{"https://github.com/microsoft/vscode/tree/main/build"},
	}

	malformedArchiveIssue = &Issue{
		id: MalformedArchiveId,
		mdMsg: `
# The archive could not be read

The file is not a valid ZIP archive, an entry is corrupted, or an entry
would be written outside the destination directory.

## Things you can try
- Delete the cached download and retry
- Compare the archive against the published sha256 hash
- Re-run with --verbose to see which entry failed`,
	}

	extractConflictIssue = &Issue{
		id: ExtractConflictId,
		mdMsg: `
# Destination already contains files

The overwrite policy is **fail** and a file from the archive already exists.

## Things you can try
- Remove the destination directory first
- Use --overwrite replace to rewrite existing files
- Use --overwrite skip to keep them`,
	}

	releaseNotFoundIssue = &Issue{
		id: ReleaseNotFoundId,
		mdMsg: `
# Release not found

GitHub returned 404 for the requested release.

## Things you can try
- Check the tag spelling; both "v0.9.0" and "0.9.0" are accepted
- Check --repo points at the right repository
- Private repositories need GITHUB_TOKEN`,
		docLinks: []HttpLink{"https://github.com/google-gemini/gemini-cli/releases"},
	}

	assetNotFoundIssue = &Issue{
		id: AssetNotFoundId,
		mdMsg: `
# Release asset missing

The release exists but has no asset with the requested name.

## Things you can try
- Open the release page and check the asset list
- Pass the right file name with --asset`,
	}

	rateLimitedIssue = &Issue{
		id: RateLimitedId,
		mdMsg: `
# GitHub API rate limit exceeded

Unauthenticated requests are limited to 60 per hour.

## Things you can try
- Export a token to raise the limit to 5000 per hour:
~~~
$ export GITHUB_TOKEN=ghp_...
~~~
- Wait until the reset time shown above`,
		docLinks: []HttpLink{"https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api"},
	}

	checksumMismatchIssue = &Issue{
		id: ChecksumMismatchId,
		mdMsg: `
# Checksum mismatch

The downloaded file does not match its published SHA-256 hash. The download
was truncated or altered in transit.

## Things you can try
- Retry the build
- Check for a proxy rewriting downloads`,
	}

	networkFailedIssue = &Issue{
		id: NetworkFailedId,
		mdMsg: `
# Network request failed

A request to GitHub or the VS Code update service failed.

## Things you can try
- Check your connection and proxy settings (HTTPS_PROXY)
- Retry; the update service occasionally returns 5xx responses`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

The config file has invalid CUE syntax or a value outside the schema.

## Things you can try
- Print the effective configuration:
~~~
$ gembundle config show
~~~
- Regenerate a default file with 'gembundle config init --force'`,
		docLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	hookFailedIssue = &Issue{
		id: HookFailedId,
		mdMsg: `
# Prepack hook failed

The prepack script exited with a non-zero status, so no artifact was
written.

## Things you can try
- Re-run with --keep-work and inspect the work directory
- Run the hook by hand inside the work directory`,
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Step outputs could not be written

The artifact was built but the outputs file is not writable.

## Things you can try
- Check the path given by --github-output or GITHUB_OUTPUT
- Use --format shell to print outputs instead`,
	}

	issues = map[Id]*Issue{
		layoutChangedIssue.Id():     layoutChangedIssue,
		malformedArchiveIssue.Id():  malformedArchiveIssue,
		extractConflictIssue.Id():   extractConflictIssue,
		releaseNotFoundIssue.Id():   releaseNotFoundIssue,
		assetNotFoundIssue.Id():     assetNotFoundIssue,
		rateLimitedIssue.Id():       rateLimitedIssue,
		checksumMismatchIssue.Id():  checksumMismatchIssue,
		networkFailedIssue.Id():     networkFailedIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		hookFailedIssue.Id():        hookFailedIssue,
		outputWriteFailedIssue.Id(): outputWriteFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}

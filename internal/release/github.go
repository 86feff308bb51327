// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// DefaultBaseURL is the public GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultOwner and DefaultRepo identify the Gemini CLI repository.
	DefaultOwner = "google-gemini"
	DefaultRepo  = "gemini-cli"

	perPage  = 30
	maxPages = 3

	// maxJSONResponseBytes caps API response bodies (10 MB).
	maxJSONResponseBytes = 10 << 20
)

var (
	// ErrReleaseNotFound is returned when the requested release does not exist.
	ErrReleaseNotFound = errors.New("release not found")

	// ErrAssetNotFound is returned when a release or checksum list lacks the named asset.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrInvalidRepo is returned when a repository slug is not "owner/name".
	ErrInvalidRepo = errors.New("invalid repository slug")
)

type (
	// RateLimitError is returned when the GitHub API quota is exhausted.
	RateLimitError struct {
		Limit   int
		ResetAt time.Time
	}

	// StatusError reports an unexpected HTTP status.
	StatusError struct {
		Op     string
		Status int
	}

	// Release is a published GitHub release.
	Release struct {
		TagName    string
		Name       string
		Prerelease bool
		Draft      bool
		HTMLURL    string
		Assets     []Asset
	}

	// Asset is a downloadable file attached to a release.
	Asset struct {
		Name               string
		BrowserDownloadURL string
		Size               int64
		ContentType        string
	}

	wireRelease struct {
		TagName    string      `json:"tag_name"`
		Name       string      `json:"name"`
		Prerelease bool        `json:"prerelease"`
		Draft      bool        `json:"draft"`
		HTMLURL    string      `json:"html_url"`
		Assets     []wireAsset `json:"assets"`
	}

	wireAsset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
		ContentType        string `json:"content_type"`
	}

	// GitHubClient queries one repository's releases.
	GitHubClient struct {
		httpClient *http.Client
		baseURL    string
		owner      string
		repo       string
		token      string // attached to GitHub hosts only
		userAgent  string
	}

	// ClientOption configures a GitHubClient.
	ClientOption func(*GitHubClient)
)

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit of %d requests exhausted (resets at %s)",
		e.Limit, e.ResetAt.UTC().Format("15:04 UTC"))
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Op, e.Status)
}

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *GitHubClient) {
		g.httpClient = c
	}
}

// WithBaseURL overrides the API endpoint, mainly for test servers.
func WithBaseURL(base string) ClientOption {
	return func(g *GitHubClient) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken authenticates API requests (5000 requests/hour instead of 60).
func WithToken(token string) ClientOption {
	return func(g *GitHubClient) {
		g.token = token
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(g *GitHubClient) {
		g.userAgent = ua
	}
}

// WithRepo selects the repository.
func WithRepo(owner, repo string) ClientOption {
	return func(g *GitHubClient) {
		g.owner = owner
		g.repo = repo
	}
}

// ParseRepo splits an "owner/name" slug.
func ParseRepo(slug string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(slug), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: %q (expected owner/name)", ErrInvalidRepo, slug)
	}
	return owner, repo, nil
}

// NewGitHubClient returns a client for google-gemini/gemini-cli unless
// WithRepo says otherwise.
func NewGitHubClient(opts ...ClientOption) *GitHubClient {
	c := &GitHubClient{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		owner:      DefaultOwner,
		repo:       DefaultRepo,
		userAgent:  "gembundle/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForRepo returns a copy of c targeting owner/repo.
func (c *GitHubClient) ForRepo(owner, repo string) *GitHubClient {
	cp := *c
	cp.owner, cp.repo = owner, repo
	return &cp
}

// Repo returns the "owner/name" slug the client targets.
func (c *GitHubClient) Repo() string {
	return c.owner + "/" + c.repo
}

// LatestRelease returns the release GitHub marks as latest.
func (c *GitHubClient) LatestRelease(ctx context.Context) (*Release, error) {
	return c.getRelease(ctx, "latest release", fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo))
}

// GetReleaseByTag returns the release for tag (e.g. "v0.9.0").
func (c *GitHubClient) GetReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	return c.getRelease(ctx, "release "+tag,
		fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.baseURL, c.owner, c.repo, url.PathEscape(tag)))
}

// Resolve returns the release for tag, or the latest release when tag is empty.
// A tag without the leading "v" is retried with it.
func (c *GitHubClient) Resolve(ctx context.Context, tag string) (*Release, error) {
	if tag == "" {
		return c.LatestRelease(ctx)
	}

	r, err := c.GetReleaseByTag(ctx, tag)
	if errors.Is(err, ErrReleaseNotFound) && !strings.HasPrefix(tag, "v") {
		return c.GetReleaseByTag(ctx, "v"+tag)
	}
	return r, err
}

// ListReleases returns stable releases sorted by semantic version, newest
// first, following pagination for at most maxPages pages.
func (c *GitHubClient) ListReleases(ctx context.Context) ([]Release, error) {
	pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", c.baseURL, c.owner, c.repo, perPage)

	var stable []Release
	for page := 0; page < maxPages && pageURL != ""; page++ {
		var raw []wireRelease
		next, err := c.getJSON(ctx, "listing releases", pageURL, &raw)
		if err != nil {
			return nil, err
		}

		for _, wr := range raw {
			if !wr.Draft && !wr.Prerelease {
				stable = append(stable, toRelease(wr))
			}
		}
		pageURL = next
	}

	slices.SortStableFunc(stable, func(a, b Release) int {
		return semver.Compare(canonicalTag(b.TagName), canonicalTag(a.TagName))
	})

	return stable, nil
}

// DownloadAsset streams the asset at assetURL. The caller closes the body.
func (c *GitHubClient) DownloadAsset(ctx context.Context, assetURL string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, assetURL, "application/octet-stream")
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", redactURL(assetURL), err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &StatusError{Op: "downloading " + redactURL(assetURL), Status: resp.StatusCode}
	}

	return resp.Body, nil
}

// FindAsset returns the asset named name.
func FindAsset(assets []Asset, name string) (*Asset, error) {
	for i := range assets {
		if assets[i].Name == name {
			return &assets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrAssetNotFound, name)
}

// Asset returns the release asset named name.
func (r *Release) Asset(name string) (*Asset, error) {
	a, err := FindAsset(r.Assets, name)
	if err != nil {
		return nil, fmt.Errorf("release %s: %w", r.TagName, err)
	}
	return a, nil
}

// Version returns the release's tag as a bare version.
func (r *Release) Version() string {
	return Version(r.TagName)
}

// Version strips the leading "v" from a tag ("v0.9.0" -> "0.9.0").
func Version(tag string) string {
	return strings.TrimPrefix(tag, "v")
}

func (c *GitHubClient) getRelease(ctx context.Context, op, reqURL string) (*Release, error) {
	var wr wireRelease
	if _, err := c.getJSON(ctx, op, reqURL, &wr); err != nil {
		return nil, err
	}
	if wr.TagName == "" {
		return nil, fmt.Errorf("%s: response carries no tag_name", op)
	}

	r := toRelease(wr)
	return &r, nil
}

// getJSON decodes a JSON API response into v and returns the next page URL
// from the Link header, if any.
func (c *GitHubClient) getJSON(ctx context.Context, op, reqURL string, v any) (string, error) {
	resp, err := c.do(ctx, reqURL, "application/vnd.github+json")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if rlErr := checkRateLimit(resp); rlErr != nil {
		return "", rlErr
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("%s: %w", op, ErrReleaseNotFound)
	default:
		return "", &StatusError{Op: op, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(v); err != nil {
		return "", fmt.Errorf("%s: decoding response: %w", op, err)
	}

	return nextPage(resp.Header.Get("Link")), nil
}

func (c *GitHubClient) do(ctx context.Context, reqURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	// Asset downloads redirect to a CDN; never hand the token to it.
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

// checkRateLimit returns a RateLimitError when X-RateLimit-Remaining is zero.
func checkRateLimit(resp *http.Response) error {
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil || remaining > 0 {
		return nil //nolint:nilerr // absent or malformed header means no limit information
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // diagnostic only
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // diagnostic only

	return &RateLimitError{Limit: limit, ResetAt: time.Unix(resetUnix, 0)}
}

// nextPage extracts the rel="next" URL from a Link header.
//
//	<https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func nextPage(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		link, params, ok := strings.Cut(strings.TrimSpace(part), ";")
		if !ok || !strings.Contains(params, `rel="next"`) {
			continue
		}
		link = strings.TrimSpace(link)
		if strings.HasPrefix(link, "<") && strings.HasSuffix(link, ">") {
			return link[1 : len(link)-1]
		}
	}
	return ""
}

func toRelease(wr wireRelease) Release {
	assets := make([]Asset, 0, len(wr.Assets))
	for _, wa := range wr.Assets {
		assets = append(assets, Asset(wa))
	}
	return Release{
		TagName:    wr.TagName,
		Name:       wr.Name,
		Prerelease: wr.Prerelease,
		Draft:      wr.Draft,
		HTMLURL:    wr.HTMLURL,
		Assets:     assets,
	}
}

// canonicalTag prefixes "v" so x/mod/semver accepts bare versions.
func canonicalTag(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}

// isGitHubHost reports whether reqURL may receive the auth token: the
// configured API host, or github.com when talking to api.github.com.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "github.com")
}

// redactURL drops query and fragment before a URL appears in an error.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// SPDX-License-Identifier: MPL-2.0

// Package editor resolves and downloads VS Code builds from the update
// service. The Windows x64 archive ships a prebuilt node-pty add-on that
// bundles reuse.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gembundle/gembundle/internal/release"
)

const (
	DefaultBaseURL  = "https://update.code.visualstudio.com"
	DefaultPlatform = "win32-x64-archive"
	DefaultQuality  = "stable"

	maxJSONResponseBytes = 1 << 20
)

var (
	// ErrNoVersion is returned when the update service names no version.
	ErrNoVersion = errors.New("update service response carries no version")

	// ErrBuildNotFound is returned for a platform/quality/version the service does not know.
	ErrBuildNotFound = errors.New("editor build not found")
)

type (
	// Build is one downloadable editor build.
	Build struct {
		Version string
		URL     string
		// SHA256 is empty when the service did not publish a hash or the
		// version was pinned without a lookup.
		SHA256 string
	}

	// StatusError reports an unexpected HTTP status from the update service.
	StatusError struct {
		URL    string
		Status int
	}

	updateResponse struct {
		Name           string `json:"name"`
		ProductVersion string `json:"productVersion"`
		URL            string `json:"url"`
		SHA256Hash     string `json:"sha256hash"`
	}

	// Client talks to the update service.
	Client struct {
		httpClient *http.Client
		baseURL    string
		platform   string
		quality    string
		userAgent  string
		logger     *log.Logger
	}

	// Option configures a Client.
	Option func(*Client)
)

func (e *StatusError) Error() string {
	return fmt.Sprintf("update service %s: unexpected HTTP status %d", e.URL, e.Status)
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBaseURL overrides the update service endpoint.
func WithBaseURL(base string) Option {
	return func(cl *Client) { cl.baseURL = strings.TrimRight(base, "/") }
}

// WithPlatform selects the build platform, e.g. "win32-x64-archive".
func WithPlatform(p string) Option {
	return func(cl *Client) {
		if p != "" {
			cl.platform = p
		}
	}
}

// WithQuality selects the release channel, "stable" or "insider".
func WithQuality(q string) Option {
	return func(cl *Client) {
		if q != "" {
			cl.quality = q
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) { cl.userAgent = ua }
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient returns a client for stable win32-x64 archives.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		platform:   DefaultPlatform,
		quality:    DefaultQuality,
		userAgent:  "gembundle/dev",
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// With returns a copy of c with opts applied.
func (c *Client) With(opts ...Option) *Client {
	cp := *c
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// LatestBuild asks the update service for the newest build.
func (c *Client) LatestBuild(ctx context.Context) (*Build, error) {
	reqURL := fmt.Sprintf("%s/api/update/%s/%s/latest", c.baseURL, c.platform, c.quality)

	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s/%s", ErrBuildNotFound, c.platform, c.quality)
	default:
		return nil, &StatusError{URL: reqURL, Status: resp.StatusCode}
	}

	var ur updateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&ur); err != nil {
		return nil, fmt.Errorf("decoding update response: %w", err)
	}

	version := ur.Name
	if version == "" {
		version = ur.ProductVersion
	}
	if version == "" {
		return nil, ErrNoVersion
	}

	b := &Build{Version: version, URL: ur.URL, SHA256: strings.ToLower(ur.SHA256Hash)}
	if b.URL == "" {
		b.URL = c.DownloadURL(version)
	}
	if b.SHA256 != "" && !release.ValidHash(b.SHA256) {
		c.logger.Warn("ignoring malformed sha256hash from update service", "hash", ur.SHA256Hash)
		b.SHA256 = ""
	}

	return b, nil
}

// Resolve returns the pinned version's build without a lookup, or the
// latest build when version is empty.
func (c *Client) Resolve(ctx context.Context, version string) (*Build, error) {
	if version == "" {
		return c.LatestBuild(ctx)
	}
	return &Build{Version: version, URL: c.DownloadURL(version)}, nil
}

// DownloadURL is the direct download location of version.
func (c *Client) DownloadURL(version string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.baseURL, url.PathEscape(version), c.platform, c.quality)
}

// Download fetches the build archive into dir and returns its path. When the
// build carries a hash the file is verified; a mismatch deletes it.
func (c *Client) Download(ctx context.Context, b *Build, dir string) (string, error) {
	resp, err := c.get(ctx, b.URL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: version %s", ErrBuildNotFound, b.Version)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: b.URL, Status: resp.StatusCode}
	}

	dest := filepath.Join(dir, fmt.Sprintf("vscode-%s-%s.zip", c.platform, b.Version))
	c.logger.Info("downloading editor archive", "version", b.Version, "size", resp.ContentLength)

	d, err := release.WriteStream(resp.Body, dest)
	if err != nil {
		return "", err
	}

	if b.SHA256 != "" && !strings.EqualFold(d.SHA256, b.SHA256) {
		_ = os.Remove(dest)
		return "", &release.ChecksumError{Path: dest, Expected: b.SHA256, Got: d.SHA256}
	}

	c.logger.Debug("editor archive ready", "path", dest, "bytes", d.Size, "sha256", d.SHA256)
	return dest, nil
}

func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", reqURL, err)
	}
	return resp, nil
}

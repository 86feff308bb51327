// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gembundle/gembundle/internal/config"
	"github.com/gembundle/gembundle/internal/testutil"
)

// cliFixture serves the GitHub release and update APIs used by build.
type cliFixture struct {
	srv       *httptest.Server
	editorZip []byte
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()

	f := &cliFixture{editorZip: testutil.BuildZip(t, []testutil.ZipEntry{
		{Name: "resources/app/node_modules/node-pty/package.json", Body: []byte(`{"version":"1.1.0-beta34"}`)},
		{Name: "resources/app/node_modules/node-pty/lib/index.js", Body: []byte("module.exports = {}\n")},
	})}
	sum := sha256.Sum256(f.editorZip)

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/google-gemini/gemini-cli/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"tag_name": "v0.9.0",
			"assets": []map[string]any{
				{"name": "gemini.js", "browser_download_url": f.srv.URL + "/download/gemini.js"},
			},
		})
	})
	mux.HandleFunc("/download/gemini.js", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("console.log('gemini')\n"))
	})
	mux.HandleFunc("/api/update/win32-x64-archive/stable/latest", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]string{
			"name":       "1.99.0",
			"url":        f.srv.URL + "/1.99.0/win32-x64-archive/stable",
			"sha256hash": hex.EncodeToString(sum[:]),
		})
	})
	mux.HandleFunc("/1.99.0/win32-x64-archive/stable", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(f.editorZip)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// config returns defaults pointed at the fixture server.
func (f *cliFixture) config() *config.Config {
	cfg := config.DefaultConfig()
	cfg.GitHub.APIURL = f.srv.URL
	cfg.Editor.BaseURL = f.srv.URL
	return cfg
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

type cliResult struct {
	stdout, stderr string
	err            error
}

// runCLI executes the command tree with the given configuration and a
// controlled environment. A nil cfg loads the real configuration.
func runCLI(t *testing.T, cfg *config.Config, env map[string]string, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	deps := Dependencies{
		Stdout: &stdout,
		Stderr: &stderr,
		Getenv: func(k string) string { return env[k] },
	}
	if cfg != nil {
		deps.Config = configProviderFunc(func(context.Context, config.LoadOptions) (*config.Config, string, error) {
			c := *cfg
			return &c, "", nil
		})
	}

	root := NewRootCommand(NewApp(deps))
	root.SilenceErrors = true
	root.SilenceUsage = true
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())

	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

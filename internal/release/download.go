// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// maxAssetBytes caps a single downloaded asset (512 MB).
const maxAssetBytes = 512 << 20

// Download is a file fetched to disk.
type Download struct {
	Path   string
	Size   int64
	SHA256 string
}

// DownloadToFile streams the asset into dest. The data goes to a temporary
// file in the same directory first and is renamed only after a complete read.
func (c *GitHubClient) DownloadToFile(ctx context.Context, a *Asset, dest string) (_ *Download, err error) {
	body, err := c.DownloadAsset(ctx, a.BrowserDownloadURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }() // read-only response body

	return WriteStream(body, dest)
}

// WriteStream copies r into dest atomically while hashing it.
func WriteStream(r io.Reader, dest string) (_ *Download, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return nil, fmt.Errorf("creating temp file for %s: %w", dest, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), io.LimitReader(r, maxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", dest, err)
	}
	if n > maxAssetBytes {
		return nil, fmt.Errorf("writing %s: download exceeds %d bytes", dest, int64(maxAssetBytes))
	}

	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("moving download into place: %w", err)
	}

	return &Download{Path: dest, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// ZipEntry is a single member of a fixture archive. Names ending in "/" are
// written as directory entries and Body is ignored for them.
type ZipEntry struct {
	Name string
	Body []byte
	Mode fs.FileMode // zero means 0o644 for files and 0o755 for directories
}

// BuildZip returns an in-memory ZIP archive containing entries in order.
func BuildZip(t testing.TB, entries []ZipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		isDir := len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/'

		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		mode := e.Mode
		switch {
		case isDir:
			hdr.Method = zip.Store
			if mode == 0 {
				mode = 0o755
			}
			mode |= fs.ModeDir
		case mode == 0:
			mode = 0o644
		}
		hdr.SetMode(mode)

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", e.Name, err)
		}
		if isDir {
			continue
		}
		if _, err := w.Write(e.Body); err != nil {
			t.Fatalf("writing zip entry %s: %v", e.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}

	return buf.Bytes()
}

// WriteZip builds a ZIP archive from entries and writes it to dir/name,
// returning the full path.
func WriteZip(t testing.TB, dir, name string, entries []ZipEntry) string {
	t.Helper()

	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, BuildZip(t, entries), 0o644); err != nil {
		t.Fatalf("writing zip %s: %v", p, err)
	}
	return p
}

// OpenZip parses an in-memory archive produced by BuildZip.
func OpenZip(t testing.TB, data []byte) *zip.Reader {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && zr == nil {
		t.Fatalf("opening zip: %v", err)
	}
	return zr
}

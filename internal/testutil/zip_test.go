// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io"
	"testing"
)

func TestBuildZip(t *testing.T) {
	t.Parallel()

	data := BuildZip(t, []ZipEntry{
		{Name: "root/"},
		{Name: "root/a.txt", Body: []byte("alpha")},
		{Name: "root/bin/tool", Body: []byte("#!/bin/sh\n"), Mode: 0o755},
	})

	zr := OpenZip(t, data)
	if len(zr.File) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(zr.File))
	}

	if !zr.File[0].FileInfo().IsDir() {
		t.Errorf("entry %s should be a directory", zr.File[0].Name)
	}
	if got := zr.File[2].Mode().Perm(); got != 0o755 {
		t.Errorf("entry %s mode = %o, want 755", zr.File[2].Name, got)
	}

	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("opening entry: %v", err)
	}
	defer DeferClose(t, rc)()

	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading entry: %v", err)
	}
	if string(body) != "alpha" {
		t.Errorf("body = %q, want %q", body, "alpha")
	}
}

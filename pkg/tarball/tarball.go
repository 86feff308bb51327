// SPDX-License-Identifier: MPL-2.0

package tarball

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"
)

// Entry is one member of a packed archive.
type Entry struct {
	Name string
	Mode fs.FileMode
	Size int64
	Dir  bool
}

// Pack archives the contents of srcDir into outPath. Entry names are rooted
// at "." ("./gemini.js", "./node_modules/..."), the walk is lexical, modes
// are kept and anything that is neither a regular file nor a directory is
// skipped. It returns the number of regular files written.
func Pack(ctx context.Context, srcDir, outPath string, c Compression) (files int, err error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return 0, fmt.Errorf("reading source directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("source %s is not a directory", srcDir)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	cw, err := c.newWriter(tmp)
	if err != nil {
		return 0, fmt.Errorf("creating %s writer: %w", c, err)
	}

	// The archive may be written inside srcDir; it must not pack itself or
	// an artifact left by a previous run.
	exclude := make(map[string]struct{}, 2)
	for _, p := range []string{tmp.Name(), outPath} {
		if abs, absErr := filepath.Abs(p); absErr == nil {
			exclude[abs] = struct{}{}
		}
	}

	tw := tar.NewWriter(cw)
	if files, err = writeTree(ctx, tw, srcDir, exclude); err != nil {
		return 0, err
	}

	if err = tw.Close(); err != nil {
		return 0, fmt.Errorf("finishing tar stream: %w", err)
	}
	if err = cw.Close(); err != nil {
		return 0, fmt.Errorf("finishing %s stream: %w", c, err)
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp archive: %w", err)
	}
	if err = os.Rename(tmp.Name(), outPath); err != nil {
		return 0, fmt.Errorf("moving archive into place: %w", err)
	}

	return files, nil
}

func writeTree(ctx context.Context, tw *tar.Writer, srcDir string, exclude map[string]struct{}) (int, error) {
	var files int

	// WalkDir visits entries in lexical order.
	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if abs, err := filepath.Abs(p); err == nil && !d.IsDir() {
			if _, skip := exclude[abs]; skip {
				return nil
			}
		}

		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("building header for %s: %w", p, err)
		}
		hdr.Name = archiveName(rel, info.IsDir())
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""
		hdr.ModTime = info.ModTime().Truncate(time.Second)
		hdr.Format = tar.FormatPAX

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing header for %s: %w", hdr.Name, err)
		}
		if info.IsDir() {
			return nil
		}

		if err := copyFile(tw, p); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("packing %s: %w", srcDir, err)
	}

	return files, nil
}

func archiveName(rel string, dir bool) string {
	name := "./" + filepath.ToSlash(rel)
	if rel == "." {
		name = "./"
	} else if dir {
		name += "/"
	}
	return name
}

func copyFile(w io.Writer, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }() // read-only handle

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copying %s: %w", p, err)
	}
	return nil
}

// List returns the entries of the archive at archivePath in stream order.
func List(archivePath string, c Compression) (_ []Entry, err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() // read-only handle

	cr, err := c.newReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening %s stream: %w", c, err)
	}
	defer func() { _ = cr.Close() }()

	var entries []Entry
	tr := tar.NewReader(cr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", archivePath, err)
		}
		entries = append(entries, Entry{
			Name: hdr.Name,
			Mode: hdr.FileInfo().Mode(),
			Size: hdr.Size,
			Dir:  hdr.Typeflag == tar.TypeDir,
		})
	}

	return entries, nil
}

// ReadFile returns the content of the member named name, matched with or
// without the leading "./".
func ReadFile(archivePath string, c Compression, name string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() // read-only handle

	cr, err := c.newReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening %s stream: %w", c, err)
	}
	defer func() { _ = cr.Close() }()

	want := path.Clean(name)
	tr := tar.NewReader(cr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", archivePath, err)
		}
		if hdr.Typeflag == tar.TypeReg && path.Clean(hdr.Name) == want {
			return io.ReadAll(tr)
		}
	}
}

// SPDX-License-Identifier: MPL-2.0

package tarball

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

const (
	Gzip Compression = "gzip"
	XZ   Compression = "xz"
	LZ4  Compression = "lz4"
	Zstd Compression = "zstd"
)

// ErrUnknownCompression is returned for an unsupported compression name.
var ErrUnknownCompression = errors.New("unknown compression")

// Compression names the codec wrapped around the tar stream.
type Compression string

// ParseCompression maps a name or file extension to a Compression.
// The empty string selects Gzip.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "gzip", "gz", "tgz":
		return Gzip, nil
	case "xz", "txz":
		return XZ, nil
	case "lz4":
		return LZ4, nil
	case "zstd", "zst", "tzst":
		return Zstd, nil
	default:
		return "", fmt.Errorf("%w: %q (want gzip, xz, lz4 or zstd)", ErrUnknownCompression, s)
	}
}

// Detect guesses the compression from an archive file name.
func Detect(name string) (Compression, error) {
	lower := strings.ToLower(name)
	for _, c := range []struct {
		suffix string
		comp   Compression
	}{
		{".tgz", Gzip}, {".tar.gz", Gzip},
		{".txz", XZ}, {".tar.xz", XZ},
		{".tar.lz4", LZ4},
		{".tzst", Zstd}, {".tar.zst", Zstd},
	} {
		if strings.HasSuffix(lower, c.suffix) {
			return c.comp, nil
		}
	}
	return "", fmt.Errorf("%w: cannot tell from file name %q", ErrUnknownCompression, name)
}

// Extension is the conventional file suffix, e.g. ".tgz".
func (c Compression) Extension() string {
	switch c {
	case XZ:
		return ".tar.xz"
	case LZ4:
		return ".tar.lz4"
	case Zstd:
		return ".tar.zst"
	default:
		return ".tgz"
	}
}

func (c Compression) String() string { return string(c) }

// newWriter wraps w with the compressor. Closing the returned writer flushes
// the compressed stream but leaves w open.
func (c Compression) newWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case XZ:
		return xz.NewWriter(w)
	case LZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, err
		}
		return zw, nil
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, string(c))
	}
}

func (c Compression) newReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewReader(r)
	case XZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, string(c))
	}
}

// SPDX-License-Identifier: MPL-2.0

package release

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrChecksumMismatch is wrapped by every *ChecksumError.
var ErrChecksumMismatch = errors.New("checksum mismatch")

var errNoChecksums = errors.New("no checksum lines found")

type (
	// Checksum is one line of a sha256sum listing.
	Checksum struct {
		Hash     string // lowercase hex
		Filename string
	}

	// ChecksumError reports a file whose digest differs from the expected one.
	ChecksumError struct {
		Path     string
		Expected string
		Got      string
	}
)

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sha256 of %s is %s, expected %s", e.Path, e.Got, e.Expected)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// ParseChecksums reads sha256sum output: "<hex>  <name>" or "<hex> *<name>"
// for binary mode. Lines that do not parse are skipped.
func ParseChecksums(r io.Reader) ([]Checksum, error) {
	var sums []Checksum

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		hash, name, ok := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		if !ok || !ValidHash(hash) {
			continue
		}

		name = strings.TrimPrefix(strings.TrimLeft(name, " "), "*")
		if name == "" {
			continue
		}

		sums = append(sums, Checksum{Hash: strings.ToLower(hash), Filename: name})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading checksums: %w", err)
	}

	if len(sums) == 0 {
		return nil, errNoChecksums
	}
	return sums, nil
}

// FindChecksum returns the hash listed for filename.
func FindChecksum(sums []Checksum, filename string) (string, error) {
	for _, s := range sums {
		if s.Filename == filename {
			return s.Hash, nil
		}
	}
	return "", fmt.Errorf("%w: no checksum for %q", ErrAssetNotFound, filename)
}

// VerifyFile hashes the file at path and compares it with expected,
// ignoring case.
func VerifyFile(path, expected string) error {
	got, err := HashFile(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, expected) {
		return &ChecksumError{Path: path, Expected: strings.ToLower(expected), Got: got}
	}
	return nil
}

// HashFile returns the lowercase hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only handle

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksumFile writes "<hash>  <base name of path>\n" to sumPath, the
// format sha256sum -c accepts from the same directory.
func WriteChecksumFile(sumPath, path, hash string) error {
	line := fmt.Sprintf("%s  %s\n", strings.ToLower(hash), filepath.Base(path))
	if err := os.WriteFile(sumPath, []byte(line), 0o644); err != nil {
		return fmt.Errorf("writing checksum file %s: %w", sumPath, err)
	}
	return nil
}

// ValidHash reports whether s is a 64-character hex SHA-256 digest.
func ValidHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

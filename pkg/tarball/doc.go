// SPDX-License-Identifier: MPL-2.0

// Package tarball packs a directory into a compressed tar archive rooted at
// "." and lists the entries of such archives.
//
// Supported compressions are gzip (the npm-compatible default), xz, lz4 and
// zstd. Archives are written to a temporary file beside the output and
// renamed into place, so a failed Pack never leaves a partial archive.
package tarball

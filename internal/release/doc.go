// SPDX-License-Identifier: MPL-2.0

// Package release talks to the GitHub Releases API to locate and download
// the script asset that goes into a bundle.
//
//   - github.go: HTTP client (latest, by tag, stable listing, asset download)
//   - download.go: streaming an asset into a file while hashing it
//   - checksum.go: sha256sum-format parsing, verification and sidecar files
package release

// SPDX-License-Identifier: MPL-2.0

// Package subtree re-extracts a single subtree out of a ZIP archive.
//
// Entries are selected when their name contains a literal prefix anywhere in
// the path, so archives with an unknown top-level folder are handled the same
// way as flat ones. The part of the name after the prefix (the residual path)
// is joined onto the destination directory:
//
//	archive entry:  VSCode-win32-x64/resources/app/node_modules/node-pty/build/Release/pty.node
//	prefix:         node_modules/node-pty/
//	written to:     <dest>/build/Release/pty.node
//
// When an extracted entry is the recognized manifest (package.json by default),
// its version field is captured and returned in Result.Version. A manifest that
// cannot be parsed never fails the extraction; DefaultVersion is reported instead.
package subtree

// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include environment isolation (MustSetenv, SetConfigHome),
// file assertions (MustReadFile, AssertNotExist), and ZIP fixture builders
// (BuildZip, WriteZip) used by the extraction and bundling tests.
package testutil

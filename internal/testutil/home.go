// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetHomeDir points the platform home variable (USERPROFILE on Windows, HOME
// elsewhere) at dir and returns a cleanup function restoring the original.
//
//	t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	switch runtime.GOOS {
	case "windows":
		return MustSetenv(t, "USERPROFILE", dir)
	default:
		return MustSetenv(t, "HOME", dir)
	}
}

// SetConfigHome isolates configuration lookups under dir: the home directory,
// XDG_CONFIG_HOME and APPDATA all point inside it.
func SetConfigHome(t testing.TB, dir string) func() {
	t.Helper()

	cleanups := []func(){
		SetHomeDir(t, dir),
		MustSetenv(t, "XDG_CONFIG_HOME", dir),
		MustSetenv(t, "APPDATA", dir),
	}
	return func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
}

// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/gembundle/gembundle/cmd/gembundle"

func main() {
	cmd.Execute()
}

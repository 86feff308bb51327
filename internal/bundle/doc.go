// SPDX-License-Identifier: MPL-2.0

// Package bundle assembles a CLI bundle end to end: it downloads the CLI
// script from GitHub Releases, lifts the node-pty add-on out of a VS Code
// archive, writes package.json, optionally runs a prepack hook and packs
// everything into a compressed tarball.
//
// The package never reads the process environment; every input arrives
// through Options.
package bundle

// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the gembundle CLI commands.
//
// The root command wires configuration, logging and error rendering; the
// build, extract, inspect and config subcommands delegate to the library
// packages under internal/ and pkg/.
package cmd

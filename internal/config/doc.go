// SPDX-License-Identifier: MPL-2.0

// Package config loads gembundle settings with Viper, using CUE as the file
// format.
//
// Precedence, lowest first: built-in defaults, the config file
// ($XDG_CONFIG_HOME/gembundle/config.cue, ~/Library/Application Support on
// macOS, %APPDATA% on Windows, or an explicit path), then GEMBUNDLE_*
// environment variables. Command-line flags are applied on top by the
// command layer. Files are validated against the embedded #Config schema.
package config

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"github.com/gembundle/gembundle/internal/config"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reaches configuration, HTTP and the environment
	// only through it.
	App struct {
		Config     ConfigProvider
		HTTPClient *http.Client
		Getenv     func(string) string
		stdout     io.Writer
		stderr     io.Writer

		// set by the root command's persistent flags
		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     ConfigProvider
		HTTPClient *http.Client
		Getenv     func(string) string
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	configProviderFunc func(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
)

func (f configProviderFunc) Load(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error) {
	return f(ctx, opts)
}

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = configProviderFunc(config.Load)
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}

	return &App{
		Config:     deps.Config,
		HTTPClient: deps.HTTPClient,
		Getenv:     deps.Getenv,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

// loadConfig reads the configuration selected by --config and folds
// ui.verbose into the --verbose flag.
func (a *App) loadConfig(ctx context.Context) (*config.Config, string, error) {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, "", err
	}
	if cfg.UI.Verbose {
		a.verbose = true
	}
	return cfg, path, nil
}

// logger returns the progress logger: info level by default, debug with
// timestamps when verbose.
func (a *App) logger() *log.Logger {
	l := log.NewWithOptions(a.stderr, log.Options{
		Prefix:          config.AppName,
		ReportTimestamp: a.verbose,
	})
	if a.verbose {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

// SPDX-License-Identifier: MPL-2.0

// Package hook runs user-supplied shell snippets with an embedded POSIX
// shell interpreter, so bundle hooks behave the same on every host.
package hook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type (
	// ExitError reports a script that finished with a non-zero status.
	ExitError struct {
		Name string
		Code int
	}

	// Script is a named shell snippet.
	Script struct {
		Name   string // used in errors and as the parser file name
		Source string
	}

	// Env is the variable set a script sees.
	Env struct {
		// Base entries in "KEY=value" form, usually the process environment.
		Base []string
		// Vars override Base.
		Vars map[string]string
	}
)

func (e *ExitError) Error() string {
	return fmt.Sprintf("hook %s exited with status %d", e.Name, e.Code)
}

// Validate parses the script without running it.
func (s Script) Validate() error {
	if _, err := syntax.NewParser().Parse(strings.NewReader(s.Source), s.Name); err != nil {
		return fmt.Errorf("hook %s: syntax error: %w", s.Name, err)
	}
	return nil
}

// List flattens the environment into "KEY=value" entries, Vars last and
// sorted so they take precedence deterministically.
func (e Env) List() []string {
	out := slices.Clone(e.Base)
	for _, k := range slices.Sorted(maps.Keys(e.Vars)) {
		out = append(out, k+"="+e.Vars[k])
	}
	return out
}

// Run executes s in dir. An empty script is a no-op.
func Run(ctx context.Context, s Script, dir string, env Env, stdout, stderr io.Writer) error {
	if strings.TrimSpace(s.Source) == "" {
		return nil
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(s.Source), s.Name)
	if err != nil {
		return fmt.Errorf("hook %s: syntax error: %w", s.Name, err)
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env.List()...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("hook %s: creating interpreter: %w", s.Name, err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &ExitError{Name: s.Name, Code: int(status)}
		}
		return fmt.Errorf("hook %s: %w", s.Name, err)
	}

	return nil
}

// Package runner executes the external programs of a simulation chain: the
// gmsh mesher and MOOSE applications. Runners are stateless with respect to
// individual runs so a single instance can be shared by every herd worker;
// the environment each program needs is passed explicitly to its subprocess
// and the process-wide environment is never modified.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/ctxlog"
)

// ExitError reports an external program that exited with a nonzero code.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Cmd, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// command describes one subprocess invocation.
type command struct {
	name string
	args []string
	dir  string
	env  []string
}

// maxStderr bounds how much of a failing program's stderr is kept.
const maxStderr = 2048

// execute runs cmd to completion and returns its captured stdout.
func execute(ctx context.Context, c command) ([]byte, error) {
	logger := ctxlog.FromContext(ctx)

	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Dir = c.dir
	cmd.Env = c.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Starting external program.", "cmd", c.name, "args", c.args, "dir", c.dir)
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &ExitError{
				Cmd:    c.name,
				Code:   exitErr.ExitCode(),
				Stderr: tail(strings.TrimSpace(stderr.String()), maxStderr),
			}
		}
		return stdout.Bytes(), fmt.Errorf("failed to execute %s: %w", c.name, err)
	}
	logger.Debug("External program finished.", "cmd", c.name)
	return stdout.Bytes(), nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

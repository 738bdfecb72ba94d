package main

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/cli"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const herdHCL = `
moose {
  main_path = "."
  app_path  = "bin"
  app_name  = "fake-opt"
}

herd {
  base_dir = "runs"
  num_dirs = 2
}

stage "solve" {
  runner = "moose"
  input  = "plate.i"
}

sweep "solve" {
  values = {
    e_modulus = [1e9, 2e9, 3e9]
  }
}
`

// fakeSolver stands in for a MOOSE app: it is called as
// fake-opt --n-threads=N -i FILE and touches FILE's output artifact.
const fakeSolver = `#!/bin/sh
in="$3"
touch "${in%.i}_out.e"
`

func writeProject(t *testing.T) *testutil.Project {
	t.Helper()
	p := testutil.WriteProject(t, "herd.hcl", map[string]string{
		"herd.hcl":     herdHCL,
		"plate.i":      "#_*\ne_modulus = 1e9\n#**\n[Mesh]\n[]\n",
		"bin/fake-opt": fakeSolver,
		"runs/.dir":    "",
	})
	require.NoError(t, os.Chmod(p.Path("bin/fake-opt"), 0o755))
	return p
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, []string{"run", "--this-is-not-a-valid-flag"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestRun_StartupError(t *testing.T) {
	t.Parallel()

	p := testutil.WriteProject(t, "main.hcl", map[string]string{
		"main.hcl": "herd {\n  num_dirs = \n",
	})

	err := run(context.Background(), &bytes.Buffer{}, []string{"run", p.ConfigPath})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed")
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestRun_ReadBeforeAnySweep(t *testing.T) {
	t.Parallel()

	p := writeProject(t)
	err := run(context.Background(), &bytes.Buffer{}, []string{"read", p.ConfigPath})

	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, 1, cli.ExitCode(err))
}

func TestRun_SweepWithFakeSolver(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake solver is a shell script")
	}
	t.Parallel()

	p := writeProject(t)
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"run", "--log-format", "json", p.ConfigPath})
	require.NoError(t, err, out.String())

	for i := 1; i <= 3; i++ {
		matches, err := filepath.Glob(filepath.Join(p.Dir, "runs", "sim-workdir-*", "solve-"+string(rune('0'+i))+"_out.e"))
		require.NoError(t, err)
		assert.Len(t, matches, 1, "sim %d output", i)
	}
	assert.FileExists(t, filepath.Join(p.Dir, "runs", "sim-workdir-1", "output-key-1.json"))
	assert.Contains(t, out.String(), `"msg":"🏁 Sweep finished."`)
}

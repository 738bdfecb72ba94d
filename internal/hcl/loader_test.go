package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
moose {
  main_path       = "/opt/moose"
  app_path        = "/opt/proteus"
  app_name        = "proteus-opt"
  threads         = 4
  redirect_stdout = true
}

gmsh {
  app_path = "/usr/bin/gmsh"
}

herd {
  base_dir      = "runs"
  num_dirs      = 4
  num_para_sims = 2
  mode          = "parallel"
}

stage "mesh" {
  runner       = "gmsh"
  input        = "plate.geo"
  comment_char = "//"
  end_char     = ";"
}

stage "solve" {
  runner = "moose"
  input  = "/abs/plate.i"
}

sweep "mesh" {
  values = {
    p1 = [1.5e-3, 2e-3]
  }
}

sweep "solve" {
  values = {
    e_modulus = [1e9, 2e9]
    p_ratio   = 0.3
  }
}

read {
  num_para_read = 3
  skip_connect  = true
  node_vars     = ["disp_x", "disp_y"]
  glob_vars     = []
  elem_vars     = [{ name = "stress_yy", block = 1 }, { name = "stress_yy", block = 2 }]
  time_inds     = [0, 5]
}
`

func writeHCL(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeHCL(t, dir, "herd.hcl", fullConfig)

	m, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	expected := &config.Model{
		Moose: &config.MooseConfig{
			MainPath:       "/opt/moose",
			AppPath:        "/opt/proteus",
			AppName:        "proteus-opt",
			Threads:        4,
			RedirectStdout: true,
		},
		Gmsh: &config.GmshConfig{AppPath: "/usr/bin/gmsh"},
		Herd: config.HerdConfig{
			BaseDir:     filepath.Join(dir, "runs"),
			NumDirs:     4,
			NumParaSims: 2,
			KeepAll:     true,
			Mode:        config.ModeParallel,
		},
		Stages: []config.StageConfig{
			{Name: "mesh", Runner: "gmsh", Input: filepath.Join(dir, "plate.geo"), CommentChar: "//", EndChar: ";"},
			{Name: "solve", Runner: "moose", Input: "/abs/plate.i"},
		},
		Sweeps: map[string]config.SweepGrid{
			"mesh":  {"p1": {1.5e-3, 2e-3}},
			"solve": {"e_modulus": {1e9, 2e9}, "p_ratio": {0.3}},
		},
		Read: &config.ReadSettings{
			NumParaRead: 3,
			SkipConnect: true,
			NodeVars:    []string{"disp_x", "disp_y"},
			GlobVars:    []string{},
			ElemVars:    []config.ElemVarSetting{{Name: "stress_yy", Block: 1}, {Name: "stress_yy", Block: 2}},
			TimeInds:    []int{0, 5},
		},
	}
	if diff := cmp.Diff(expected, m); diff != "" {
		t.Errorf("model mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, m.Read.SideSets, "omitted list reads everything")
}

func TestLoadKeepAllFalse(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "herd.hcl", `herd {
  keep_all = false
}
stage "solve" {
  runner = "moose"
  input  = "plate.i"
}
`)

	m, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, m.Herd.KeepAll)
	assert.Equal(t, dir, m.Herd.BaseDir, "base dir defaults to the config directory")
	assert.Empty(t, m.Sweeps)
}

func TestLoadMergesDirectory(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "a_herd.hcl", `herd {
  num_dirs = 2
}`)
	writeHCL(t, dir, "stages/b_mesh.hcl", `stage "mesh" {
  runner = "gmsh"
  input  = "mesh.geo"
}`)
	writeHCL(t, dir, "stages/c_solve.hcl", `stage "solve" {
  runner = "moose"
  input  = "plate.i"
}`)
	writeHCL(t, dir, "notes.txt", "not hcl")

	m, err := NewLoader().Load(context.Background(), dir, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Len(t, m.Stages, 2)
	assert.Equal(t, "mesh", m.Stages[0].Name)
	assert.Equal(t, filepath.Join(dir, "stages", "mesh.geo"), m.Stages[0].Input)
	assert.Equal(t, "solve", m.Stages[1].Name)
	assert.Equal(t, 2, m.Herd.NumDirs)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		field string
	}{
		{
			name:  "duplicate herd",
			files: map[string]string{"a.hcl": "herd {\n  num_dirs = 1\n}\n", "b.hcl": "herd {\n  num_dirs = 2\n}\n"},
			field: "herd",
		},
		{
			name: "duplicate sweep",
			files: map[string]string{
				"a.hcl": "sweep \"s\" {\n  values = { k = [1] }\n}\n",
				"b.hcl": "sweep \"s\" {\n  values = { k = [2] }\n}\n",
			},
			field: "sweep.s",
		},
		{
			name:  "sweep values not an object",
			files: map[string]string{"a.hcl": "sweep \"s\" {\n  values = [1, 2]\n}\n"},
			field: "sweep.s",
		},
		{
			name:  "fractional time index",
			files: map[string]string{"a.hcl": "read {\n  time_inds = [1.5]\n}\n"},
			field: "read.time_inds",
		},
		{
			name:  "bad elem vars",
			files: map[string]string{"a.hcl": "read {\n  elem_vars = [\"stress\"]\n}\n"},
			field: "read.elem_vars",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tc.files {
				writeHCL(t, dir, name, content)
			}
			_, err := NewLoader().Load(context.Background(), dir)
			var cfgErr *config.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestLoadSyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "bad.hcl", "herd {\n  num_dirs = \n")

	_, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse HCL file")
}

func TestLoadNoFiles(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), t.TempDir())
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

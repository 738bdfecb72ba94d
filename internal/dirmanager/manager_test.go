package dirmanager

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, n int) *Manager {
	t.Helper()
	m := New(n)
	require.NoError(t, m.SetBaseDir(t.TempDir(), false))
	return m
}

func TestRunDirNaming(t *testing.T) {
	m := newManager(t, 3)

	dirs := m.AllRunDirs()
	require.Len(t, dirs, 3)
	for i, d := range dirs {
		assert.Equal(t, filepath.Join(m.BaseDir(), "sim-workdir-"+string(rune('1'+i))), d)
	}

	m.SetSubDirName("worker")
	assert.Equal(t, filepath.Join(m.BaseDir(), "worker-2"), m.RunDir(1))
}

func TestRunDirWrapsAround(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7} {
		m := newManager(t, n)
		created, err := m.CreateDirs()
		require.NoError(t, err)

		for k := 0; k < 3*n+2; k++ {
			dir := m.RunDir(k)
			assert.Contains(t, created, dir)
			assert.Equal(t, dir, m.RunDir(k+n), "n=%d k=%d", n, k)
			assert.DirExists(t, dir)
		}
		assert.Equal(t, m.RunDir(0), m.RunDir(-5))
	}
}

func TestSetBaseDirErrors(t *testing.T) {
	m := New(2)
	err := m.SetBaseDir(filepath.Join(t.TempDir(), "no-exist"), false)

	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "base_dir", cfgErr.Field)
}

func TestSetBaseDirClearsOld(t *testing.T) {
	m := newManager(t, 2)
	_, err := m.CreateDirs()
	require.NoError(t, err)
	old := m.AllRunDirs()

	require.NoError(t, m.SetBaseDir(t.TempDir(), true))
	for _, d := range old {
		assert.NoDirExists(t, d)
	}
}

func TestCreateDirsIsIdempotent(t *testing.T) {
	m := newManager(t, 2)
	_, err := m.CreateDirs()
	require.NoError(t, err)

	marker := filepath.Join(m.RunDir(0), "keep.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	_, err = m.CreateDirs()
	require.NoError(t, err)
	assert.FileExists(t, marker)
}

func TestClearDirsOnlyTouchesTaggedDirs(t *testing.T) {
	m := newManager(t, 2)
	_, err := m.CreateDirs()
	require.NoError(t, err)

	other := filepath.Join(m.BaseDir(), "results")
	require.NoError(t, os.Mkdir(other, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(m.RunDir(1), "sim-1.i"), []byte("x"), 0o644))

	require.NoError(t, m.ClearDirs())
	for _, d := range m.AllRunDirs() {
		assert.NoDirExists(t, d)
	}
	assert.DirExists(t, other)
}

func TestEmptySubDirNameKeepsClearScoped(t *testing.T) {
	m := newManager(t, 1)
	m.SetSubDirName("")
	assert.Equal(t, DefaultSubDir, m.SubDirName())
	assert.Equal(t, filepath.Join(m.BaseDir(), DefaultSubDir+"-1"), m.RunDir(0))

	_, err := m.CreateDirs()
	require.NoError(t, err)
	other := filepath.Join(m.BaseDir(), "meshes")
	require.NoError(t, os.Mkdir(other, 0o755))

	require.NoError(t, m.ClearDirs())
	assert.NoDirExists(t, m.RunDir(0))
	assert.DirExists(t, other)
}

func TestOutputKeyRoundTrip(t *testing.T) {
	m := newManager(t, 2)
	_, err := m.CreateDirs()
	require.NoError(t, err)

	paths := OutputPaths{
		{NullPath{}, PathOf(filepath.Join(m.RunDir(0), "sim-1_out.e"))},
		{NullPath{}, PathOf(filepath.Join(m.RunDir(1), "sim-2_out.e"))},
	}
	m.SetOutputPaths(paths)
	require.NoError(t, m.WriteOutputKey(1))

	raw, err := os.ReadFile(m.OutputKeyFile(1))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "null")
	assert.NotContains(t, string(raw), `""`)

	got, err := m.ReadOutputKey(1)
	require.NoError(t, err)
	assert.Equal(t, paths, got)
}

func TestSweepVarsRoundTrip(t *testing.T) {
	m := newManager(t, 1)
	_, err := m.CreateDirs()
	require.NoError(t, err)

	vars := [][]config.Vars{
		{nil, {"e_modulus": 1e9, "p_ratio": 0.3}},
		{nil, {"e_modulus": 2e9, "p_ratio": 0.35}},
	}
	require.NoError(t, m.WriteSweepVars(vars, 3))
	assert.Equal(t, filepath.Join(m.RunDir(0), "sweep-vars-3.json"), m.SweepVarFile(3))

	got, err := m.ReadSweepVars(3)
	require.NoError(t, err)
	assert.Equal(t, vars, got)
}

func TestNullPathJSON(t *testing.T) {
	var n NullPath
	require.NoError(t, n.UnmarshalJSON([]byte("null")))
	assert.False(t, n.Valid)

	require.NoError(t, n.UnmarshalJSON([]byte(`"/tmp/a.e"`)))
	assert.Equal(t, PathOf("/tmp/a.e"), n)

	data, err := NullPath{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
	assert.Equal(t, "<none>", NullPath{}.String())
}

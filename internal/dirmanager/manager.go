// Package dirmanager owns the fixed pool of numbered working directories a
// herd runs its simulations in, and the per-sweep manifests ("output key"
// and "sweep vars" files) that record which artifact each simulation chain
// produced.
package dirmanager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
)

// Default names used for the working directories and manifest files.
const (
	DefaultSubDir = config.DefaultSubDir
	OutputKeyTag  = "output-key"
	SweepVarTag   = "sweep-vars"
)

// Manager maps worker numbers onto a fixed set of n directories named
// {base}/{sub_dir}-{1..n}. The number of directories never changes over the
// lifetime of a Manager.
type Manager struct {
	numDirs     int
	subDir      string
	baseDir     string
	runDirs     []string
	outputPaths OutputPaths
}

// New creates a Manager for numDirs directories under the current working
// directory. numDirs below one is raised to one.
func New(numDirs int) *Manager {
	if numDirs < 1 {
		numDirs = 1
	}
	base, err := os.Getwd()
	if err != nil {
		base = "."
	}
	m := &Manager{
		numDirs: numDirs,
		subDir:  DefaultSubDir,
		baseDir: base,
	}
	m.runDirs = m.buildRunDirs()
	return m
}

func (m *Manager) buildRunDirs() []string {
	dirs := make([]string, m.numDirs)
	for i := range dirs {
		dirs[i] = filepath.Join(m.baseDir, fmt.Sprintf("%s-%d", m.subDir, i+1))
	}
	return dirs
}

// NumDirs returns the size of the directory pool.
func (m *Manager) NumDirs() int { return m.numDirs }

// BaseDir returns the directory the working directories live in.
func (m *Manager) BaseDir() string { return m.baseDir }

// SubDirName returns the prefix of the working directory names.
func (m *Manager) SubDirName() string { return m.subDir }

// SetSubDirName changes the prefix used to name the working directories.
// An empty name restores DefaultSubDir, since ClearDirs matches every
// directory against it.
func (m *Manager) SetSubDirName(name string) {
	if name == "" {
		name = DefaultSubDir
	}
	m.subDir = name
	m.runDirs = m.buildRunDirs()
}

// SetBaseDir points the manager at a new base directory, which must exist.
// With clearOld the working directories under the previous base directory
// are deleted first.
func (m *Manager) SetBaseDir(path string, clearOld bool) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return config.Errorf("base_dir", "specified base directory %q does not exist", path)
	}
	if clearOld {
		if err := m.ClearDirs(); err != nil {
			return err
		}
	}
	m.baseDir = path
	m.runDirs = m.buildRunDirs()
	return nil
}

// CreateDirs creates every working directory that does not exist yet and
// returns the full list.
func (m *Manager) CreateDirs() ([]string, error) {
	for _, dir := range m.runDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run dir %s: %w", dir, err)
		}
	}
	return m.AllRunDirs(), nil
}

// ClearDirs recursively deletes every directory directly under the base
// directory whose name contains the sub-directory name. Results inside them
// are lost.
func (m *Manager) ClearDirs() error {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return fmt.Errorf("list base dir %s: %w", m.baseDir, err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.Contains(e.Name(), m.subDir) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.baseDir, e.Name())); err != nil {
			return fmt.Errorf("remove run dir %s: %w", e.Name(), err)
		}
	}
	return nil
}

// AllRunDirs returns a copy of the working directory paths.
func (m *Manager) AllRunDirs() []string {
	out := make([]string, len(m.runDirs))
	copy(out, m.runDirs)
	return out
}

// RunDir returns the working directory for a zero-based directory number.
// Numbers past the pool size wrap around so that more workers than
// directories share slots; negative numbers map to the first directory.
func (m *Manager) RunDir(n int) string {
	if n < 0 {
		n = 0
	}
	return m.runDirs[n%m.numDirs]
}

// SetOutputPaths stages the manifest written by WriteOutputKey.
func (m *Manager) SetOutputPaths(paths OutputPaths) {
	m.outputPaths = paths
}

// OutputPaths returns the staged manifest.
func (m *Manager) OutputPaths() OutputPaths {
	return m.outputPaths
}

// OutputKeyFile returns the path of the output key for a sweep iteration.
func (m *Manager) OutputKeyFile(sweepIter int) string {
	return filepath.Join(m.runDirs[0], fmt.Sprintf("%s-%d.json", OutputKeyTag, sweepIter))
}

// SweepVarFile returns the path of the sweep variable file for a sweep
// iteration.
func (m *Manager) SweepVarFile(sweepIter int) string {
	return filepath.Join(m.runDirs[0], fmt.Sprintf("%s-%d.json", SweepVarTag, sweepIter))
}

// WriteOutputKey serialises the staged manifest for sweepIter.
func (m *Manager) WriteOutputKey(sweepIter int) error {
	paths := m.outputPaths
	if paths == nil {
		paths = OutputPaths{}
	}
	return writeJSON(m.OutputKeyFile(sweepIter), paths)
}

// WriteSweepVars records the variables a sweep call was run with.
func (m *Manager) WriteSweepVars(vars [][]config.Vars, sweepIter int) error {
	if vars == nil {
		vars = [][]config.Vars{}
	}
	return writeJSON(m.SweepVarFile(sweepIter), vars)
}

// ReadOutputKey loads the manifest written for sweepIter.
func (m *Manager) ReadOutputKey(sweepIter int) (OutputPaths, error) {
	var paths OutputPaths
	if err := readJSON(m.OutputKeyFile(sweepIter), &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

// ReadSweepVars loads the variables recorded for sweepIter.
func (m *Manager) ReadSweepVars(sweepIter int) ([][]config.Vars, error) {
	var vars [][]config.Vars
	if err := readJSON(m.SweepVarFile(sweepIter), &vars); err != nil {
		return nil, err
	}
	return vars, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Package yamlconfig loads herd configurations written in YAML.
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/ctxlog"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// Extensions lists the file extensions picked up by the loader.
var Extensions = []string{".yaml", ".yml"}

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load decodes every YAML file under paths and merges them into one model.
// Unknown keys are rejected. Relative paths are resolved against the
// directory of the file that names them.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := findAllYAMLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, config.Errorf("path", "no .yaml files found in %v", paths)
	}

	model := &config.Model{Sweeps: make(map[string]config.SweepGrid)}
	keepAllSet := false

	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read YAML file %s: %w", file, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)

		var root fileRoot
		if err := dec.Decode(&root); err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("Skipping empty YAML file.", "file", file)
				continue
			}
			return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
		}
		if err := merge(model, &root, filepath.Dir(file), &keepAllSet); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	if !keepAllSet {
		model.Herd.KeepAll = true
	}
	logger.Debug("YAML loading complete.", "files", len(files), "stages", len(model.Stages), "sweeps", len(model.Sweeps))
	return model, nil
}

func merge(model *config.Model, root *fileRoot, dir string, keepAllSet *bool) error {
	if m := root.Moose; m != nil {
		if model.Moose != nil {
			return config.Errorf("moose", "section defined more than once")
		}
		model.Moose = &config.MooseConfig{
			MainPath:       resolve(dir, m.MainPath),
			AppPath:        resolve(dir, m.AppPath),
			AppName:        m.AppName,
			Tasks:          m.Tasks,
			Threads:        m.Threads,
			RedirectStdout: m.RedirectStdout,
		}
	}
	if g := root.Gmsh; g != nil {
		if model.Gmsh != nil {
			return config.Errorf("gmsh", "section defined more than once")
		}
		model.Gmsh = &config.GmshConfig{AppPath: resolve(dir, g.AppPath)}
	}
	if h := root.Herd; h != nil {
		if model.Herd != (config.HerdConfig{}) || *keepAllSet {
			return config.Errorf("herd", "section defined more than once")
		}
		model.Herd = config.HerdConfig{
			BaseDir:     resolve(dir, h.BaseDir),
			SubDir:      h.SubDir,
			NumDirs:     h.NumDirs,
			NumParaSims: h.NumParaSims,
			Mode:        h.Mode,
		}
		if model.Herd.BaseDir == "" {
			model.Herd.BaseDir = dir
		}
		if h.KeepAll != nil {
			model.Herd.KeepAll = *h.KeepAll
			*keepAllSet = true
		}
	}

	for _, s := range root.Stages {
		if s.Name == "" {
			return config.Errorf("stages", "stage without a name")
		}
		model.Stages = append(model.Stages, config.StageConfig{
			Name:        s.Name,
			Runner:      s.Runner,
			Input:       resolve(dir, s.Input),
			CommentChar: s.CommentChar,
			EndChar:     s.EndChar,
		})
	}

	stages := make([]string, 0, len(root.Sweeps))
	for stage := range root.Sweeps {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		field := "sweep." + stage
		if _, dup := model.Sweeps[stage]; dup {
			return config.Errorf(field, "defined more than once")
		}
		grid, err := sweepGrid(root.Sweeps[stage], field)
		if err != nil {
			return err
		}
		model.Sweeps[stage] = grid
	}

	if r := root.Read; r != nil {
		if model.Read != nil {
			return config.Errorf("read", "section defined more than once")
		}
		read, err := translateRead(r)
		if err != nil {
			return err
		}
		model.Read = read
	}
	return nil
}

// sweepGrid normalises decoded values: integers become float64 and a
// scalar is a grid of one value.
func sweepGrid(raw map[string]any, field string) (config.SweepGrid, error) {
	grid := make(config.SweepGrid, len(raw))
	for name, v := range raw {
		list, ok := v.([]any)
		if !ok {
			list = []any{v}
		}
		values := make([]any, len(list))
		for i, item := range list {
			val, err := scalar(item)
			if err != nil {
				return nil, config.Errorf(field+"."+name, "entry %d: %v", i, err)
			}
			values[i] = val
		}
		grid[name] = values
	}
	return grid, nil
}

func scalar(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float64, string, bool:
		return x, nil
	case nil:
		return nil, errors.New("null value")
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

func translateRead(r *readSection) (*config.ReadSettings, error) {
	s := &config.ReadSettings{
		NumParaRead: r.NumParaRead,
		SkipTime:    r.SkipTime,
		SkipCoords:  r.SkipCoords,
		SkipConnect: r.SkipConnect,
		NodeVars:    r.NodeVars,
		GlobVars:    r.GlobVars,
		SideSets:    r.SideSets,
	}
	if r.TimeInds != nil {
		s.TimeInds = make([]int, len(r.TimeInds))
		for i, f := range r.TimeInds {
			if f != math.Trunc(f) {
				return nil, config.Errorf("read.time_inds", "%v is not a whole number", f)
			}
			s.TimeInds[i] = int(f)
		}
	}
	if r.ElemVars != nil {
		s.ElemVars = make([]config.ElemVarSetting, len(r.ElemVars))
		for i, ev := range r.ElemVars {
			s.ElemVars[i] = config.ElemVarSetting{Name: ev.Name, Block: ev.Block}
		}
	}
	return s, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// findAllYAMLFiles returns the YAML files named by paths, walking
// directories. Missing paths are skipped.
func findAllYAMLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			all = append(all, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if isYAML(path) {
				add(path)
			}
			continue
		}
		var found []string
		for _, ext := range Extensions {
			files, err := fsutil.FindFilesByExtension(path, ext)
			if err != nil {
				return nil, err
			}
			found = append(found, files...)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return all, nil
}

package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/ctxlog"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/fsutil"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and merges their blocks into one
// model. Relative paths inside a file are resolved against that file's
// directory. Defaults are not applied and the model is not validated.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, config.Errorf("path", "no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	model := &config.Model{Sweeps: make(map[string]config.SweepGrid)}
	keepAllSet := false
	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		dir := filepath.Dir(file)
		if err := l.translateSingletons(ctx, model, &root, dir, &keepAllSet); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		for _, s := range root.Stages {
			model.Stages = append(model.Stages, config.StageConfig{
				Name:        s.Name,
				Runner:      s.Runner,
				Input:       resolve(dir, s.Input),
				CommentChar: s.CommentChar,
				EndChar:     s.EndChar,
			})
		}
		for _, s := range root.Sweeps {
			if _, dup := model.Sweeps[s.Stage]; dup {
				return nil, config.Errorf("sweep."+s.Stage, "defined more than once")
			}
			val, diags := s.Values.Value(nil)
			if diags.HasErrors() {
				return nil, config.Errorf("sweep."+s.Stage, "%s", diags.Error())
			}
			grid, err := sweepGrid(val, "sweep."+s.Stage)
			if err != nil {
				return nil, err
			}
			model.Sweeps[s.Stage] = grid
		}
	}

	if !keepAllSet {
		model.Herd.KeepAll = true
	}
	logger.Debug("HCL loading complete.", "stages", len(model.Stages), "sweeps", len(model.Sweeps))
	return model, nil
}

// translateSingletons copies the blocks that may appear at most once across
// all files.
func (l *Loader) translateSingletons(ctx context.Context, model *config.Model, root *fileRoot, dir string, keepAllSet *bool) error {
	if m := root.Moose; m != nil {
		if model.Moose != nil {
			return config.Errorf("moose", "block defined more than once")
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
			return config.Errorf("gmsh", "block defined more than once")
		}
		model.Gmsh = &config.GmshConfig{AppPath: resolve(dir, g.AppPath)}
	}
	if h := root.Herd; h != nil {
		if model.Herd != (config.HerdConfig{}) || *keepAllSet {
			return config.Errorf("herd", "block defined more than once")
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
	if r := root.Read; r != nil {
		if model.Read != nil {
			return config.Errorf("read", "block defined more than once")
		}
		read, err := translateRead(ctx, r)
		if err != nil {
			return err
		}
		model.Read = read
	}
	return nil
}

func translateRead(ctx context.Context, r *readBlock) (*config.ReadSettings, error) {
	s := &config.ReadSettings{
		NumParaRead: r.NumParaRead,
		SkipTime:    r.SkipTime,
		SkipCoords:  r.SkipCoords,
		SkipConnect: r.SkipConnect,
	}
	var err error
	if s.NodeVars, err = stringList(ctx, r.NodeVars, "read.node_vars"); err != nil {
		return nil, err
	}
	if s.GlobVars, err = stringList(ctx, r.GlobVars, "read.glob_vars"); err != nil {
		return nil, err
	}
	if s.SideSets, err = stringList(ctx, r.SideSets, "read.side_sets"); err != nil {
		return nil, err
	}
	if s.TimeInds, err = intList(ctx, r.TimeInds, "read.time_inds"); err != nil {
		return nil, err
	}
	if s.ElemVars, err = elemVarList(ctx, r.ElemVars, "read.elem_vars"); err != nil {
		return nil, err
	}
	return s, nil
}

// resolve makes p relative to dir unless it is empty or absolute.
func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return allFiles, nil
}

// Package sweepreader reads back the outputs of the sweeps a herd ran,
// using the manifests the directory manager persisted.
package sweepreader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/ctxlog"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/dirmanager"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/exodus"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/fsutil"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/simdata"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/workerpool"
)

// ErrNoOutputKeys is returned when no manifest has been written yet.
var ErrNoOutputKeys = fmt.Errorf("no output key files found: %w", fs.ErrNotExist)

// Opener opens one output artifact.
type Opener func(path string) (*exodus.Reader, error)

// Reader loads sweep manifests and the outputs they list.
type Reader struct {
	dm          *dirmanager.Manager
	open        Opener
	numParaRead int

	mu          sync.Mutex
	outputFiles dirmanager.OutputPaths
}

// New returns a reader over the manifests of dm that reads with up to
// numParaRead workers in parallel mode.
func New(dm *dirmanager.Manager, numParaRead int) *Reader {
	return &Reader{
		dm:          dm,
		open:        exodus.Open,
		numParaRead: workerpool.ClampSize(numParaRead),
	}
}

// SetOpener replaces how output artifacts are opened.
func (r *Reader) SetOpener(o Opener) { r.open = o }

// SetNumParaRead sets the parallel read pool size, clamped to the number of
// CPUs.
func (r *Reader) SetNumParaRead(n int) { r.numParaRead = workerpool.ClampSize(n) }

// NumParaRead returns the parallel read pool size.
func (r *Reader) NumParaRead() int { return r.numParaRead }

// OutputFiles returns the manifest entries loaded by the last read.
func (r *Reader) OutputFiles() dirmanager.OutputPaths {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputFiles
}

// ReadOutputKey loads the manifest of one sweep.
func (r *Reader) ReadOutputKey(sweepIter int) (dirmanager.OutputPaths, error) {
	return r.dm.ReadOutputKey(sweepIter)
}

// sweepIters lists the sweep numbers that have a manifest of kind tag, in
// increasing order.
func (r *Reader) sweepIters(tag string) ([]int, error) {
	dir := r.dm.RunDir(0)
	files, err := fsutil.FindFilesByTag(dir, tag)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var iters []int
	for _, f := range files {
		var n int
		if _, err := fmt.Sscanf(filepath.Base(f), tag+"-%d.json", &n); err == nil {
			iters = append(iters, n)
		}
	}
	if len(iters) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoOutputKeys, dir)
	}
	sort.Ints(iters)
	return iters, nil
}

// ReadAllOutputKeys concatenates the manifests of every sweep in sweep
// order and caches the result.
func (r *Reader) ReadAllOutputKeys() (dirmanager.OutputPaths, error) {
	iters, err := r.sweepIters(dirmanager.OutputKeyTag)
	if err != nil {
		return nil, err
	}

	var all dirmanager.OutputPaths
	for _, it := range iters {
		paths, err := r.dm.ReadOutputKey(it)
		if err != nil {
			return nil, err
		}
		all = append(all, paths...)
	}

	r.mu.Lock()
	r.outputFiles = all
	r.mu.Unlock()
	return all, nil
}

// ReadAllSweepVars concatenates the variables of every sweep in sweep
// order, matching ReadAllOutputKeys entry for entry.
func (r *Reader) ReadAllSweepVars() ([][]config.Vars, error) {
	iters, err := r.sweepIters(dirmanager.SweepVarTag)
	if err != nil {
		return nil, err
	}

	var all [][]config.Vars
	for _, it := range iters {
		vars, err := r.dm.ReadSweepVars(it)
		if err != nil {
			return nil, err
		}
		all = append(all, vars...)
	}
	return all, nil
}

// ReadResultsOnce reads the outputs of one simulation chain. Stages without
// an output, or whose output is missing on disk, get a nil entry.
func (r *Reader) ReadResultsOnce(ctx context.Context, chain []dirmanager.NullPath, sel Selector) ([]*simdata.SimData, error) {
	logger := ctxlog.FromContext(ctx)
	results := make([]*simdata.SimData, len(chain))
	for i, p := range chain {
		if !p.Valid {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := r.readOne(p.Path, sel)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Output artifact missing.", "path", p.Path)
			continue
		}
		if err != nil {
			return nil, err
		}
		results[i] = data
	}
	return results, nil
}

func (r *Reader) readOne(path string, sel Selector) (*simdata.SimData, error) {
	er, err := r.open(path)
	if err != nil {
		return nil, err
	}
	defer er.Close()

	var cfg *simdata.ReadConfig
	if sel != nil {
		cfg = sel(er)
	}
	return er.ReadSimData(cfg)
}

// ReadResultsSequential reads every chain of sweep sweepIter in order; a
// sweepIter of zero reads every persisted sweep.
func (r *Reader) ReadResultsSequential(ctx context.Context, sweepIter int, sel Selector) ([][]*simdata.SimData, error) {
	return r.readResults(ctx, sweepIter, sel, false)
}

// ReadResultsPara is ReadResultsSequential on NumParaRead workers. Results
// keep manifest order.
func (r *Reader) ReadResultsPara(ctx context.Context, sweepIter int, sel Selector) ([][]*simdata.SimData, error) {
	return r.readResults(ctx, sweepIter, sel, true)
}

func (r *Reader) startRead(sweepIter int) (dirmanager.OutputPaths, error) {
	if sweepIter <= 0 {
		return r.ReadAllOutputKeys()
	}
	paths, err := r.dm.ReadOutputKey(sweepIter)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.outputFiles = paths
	r.mu.Unlock()
	return paths, nil
}

func (r *Reader) readResults(ctx context.Context, sweepIter int, sel Selector, para bool) ([][]*simdata.SimData, error) {
	chains, err := r.startRead(sweepIter)
	if err != nil {
		return nil, err
	}

	tasks := make([]workerpool.Task[[]*simdata.SimData], len(chains))
	for i, chain := range chains {
		tasks[i] = func(ctx context.Context) ([]*simdata.SimData, error) {
			return r.ReadResultsOnce(ctx, chain, sel)
		}
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("Reading sweep results.", "sweep_iter", sweepIter, "chains", len(chains), "parallel", para)

	var results []workerpool.Result[[]*simdata.SimData]
	if para {
		results = workerpool.Run(ctx, r.numParaRead, tasks)
	} else {
		results = workerpool.RunInline(ctx, tasks)
	}

	out := make([][]*simdata.SimData, len(results))
	var errs []error
	for i, res := range results {
		if res.Err != nil {
			logger.Error("Reading results failed.", "sim_index", i, "error", res.Err)
			errs = append(errs, fmt.Errorf("sim %d: %w", i, res.Err))
			continue
		}
		out[i] = res.Value
	}
	return out, errors.Join(errs...)
}

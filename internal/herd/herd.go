package herd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/ctxlog"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/dirmanager"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/fsutil"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/workerpool"
	"github.com/google/uuid"
)

// Runner executes one stage of a chain against a materialized input file.
type Runner interface {
	Name() string
	Run(ctx context.Context, inputPath string) error
	// OutputPath reports the artifact a run of inputPath produces, or false
	// for stages without one.
	OutputPath(inputPath string) (string, bool)
}

// Modifier materializes a stage's input file with new variable values.
type Modifier interface {
	InputFile() string
	UpdateVars(vars config.Vars) error
	WriteFile(path string) error
}

// Herd runs sweeps of a fixed chain of (Modifier, Runner) stages. A Herd
// must not run two sweeps at once.
type Herd struct {
	runners    []Runner
	modifiers  []Modifier
	inputNames []string
	dm         *dirmanager.Manager
	identity   workerpool.IdentityProvider

	// stageLocks serialize UpdateVars+WriteFile on a shared modifier.
	stageLocks []sync.Mutex

	mu           sync.Mutex
	numParaSims  int
	keepAll      bool
	simIter      int
	sweepIter    int
	iterRunTimes []time.Duration
	sweepRunTime time.Duration
}

// New builds a herd over a chain of stages. runners[i] runs the input that
// modifiers[i] writes; the two slices must have the same, non-zero length.
func New(runners []Runner, modifiers []Modifier, dm *dirmanager.Manager) (*Herd, error) {
	if len(runners) != len(modifiers) {
		return nil, config.Errorf("stage", "chain has %d runners but %d modifiers", len(runners), len(modifiers))
	}
	if len(runners) == 0 {
		return nil, config.Errorf("stage", "chain has no stages")
	}
	if dm == nil {
		return nil, config.Errorf("herd", "directory manager is required")
	}

	return &Herd{
		runners:     runners,
		modifiers:   modifiers,
		inputNames:  defaultInputNames(runners),
		dm:          dm,
		identity:    workerpool.ContextIdentity{},
		stageLocks:  make([]sync.Mutex, len(runners)),
		numParaSims: workerpool.ClampSize(dm.NumDirs()),
		keepAll:     true,
	}, nil
}

// defaultInputNames names stages after their runner, numbering repeats.
func defaultInputNames(runners []Runner) []string {
	seen := make(map[string]int)
	for _, r := range runners {
		seen[r.Name()]++
	}
	names := make([]string, len(runners))
	count := make(map[string]int)
	for i, r := range runners {
		name := r.Name()
		if seen[name] > 1 {
			count[name]++
			name = fmt.Sprintf("%s%d", name, count[name])
		}
		names[i] = name
	}
	return names
}

// SetInputNames sets the per-stage prefix of materialized input files.
func (h *Herd) SetInputNames(names []string) error {
	if len(names) != len(h.runners) {
		return config.Errorf("stage", "got %d input names for %d stages", len(names), len(h.runners))
	}
	h.inputNames = append([]string(nil), names...)
	return nil
}

// InputNames returns the per-stage input file prefixes.
func (h *Herd) InputNames() []string {
	return append([]string(nil), h.inputNames...)
}

// SetIdentityProvider replaces how the executing worker is identified.
func (h *Herd) SetIdentityProvider(p workerpool.IdentityProvider) {
	h.identity = p
}

// SetKeepFlag controls whether sweeps accumulate. With keepAll false every
// sweep clears the working directories and overwrites one file per worker.
func (h *Herd) SetKeepFlag(keepAll bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keepAll = keepAll
}

// KeepAll reports the keep flag.
func (h *Herd) KeepAll() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keepAll
}

// SetNumParaSims sets the parallel sweep pool size, clamped to the number
// of CPUs.
func (h *Herd) SetNumParaSims(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.numParaSims = workerpool.ClampSize(n)
}

// NumParaSims returns the parallel sweep pool size.
func (h *Herd) NumParaSims() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.numParaSims
}

// Reset restarts simulation and sweep numbering.
func (h *Herd) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.simIter = 0
	h.sweepIter = 0
	h.iterRunTimes = nil
	h.sweepRunTime = 0
}

// SweepIter returns the number of the last completed sweep.
func (h *Herd) SweepIter() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sweepIter
}

// IterRunTimes returns the wall time of each simulation of the last sweep,
// indexed like the sweep.
func (h *Herd) IterRunTimes() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Duration(nil), h.iterRunTimes...)
}

// SweepRunTime returns the wall time of the last sweep.
func (h *Herd) SweepRunTime() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sweepRunTime
}

// workerNum maps the current worker onto a 1-based directory number.
// Calls outside a pool always use directory 1.
func (h *Herd) workerNum(ctx context.Context) int {
	ordinal, ok := h.identity.WorkerOrdinal(ctx)
	if !ok || ordinal < 1 {
		return 1
	}
	return (ordinal-1)%h.dm.NumDirs() + 1
}

// RunOnce runs one simulation of the chain. simIndex is the position of
// the simulation within its sweep; vars holds one variable set per stage,
// where a nil set copies the stage input unmodified. The returned slice has
// one entry per stage, invalid for stages without an output artifact.
func (h *Herd) RunOnce(ctx context.Context, simIndex int, vars []config.Vars) ([]dirmanager.NullPath, error) {
	h.mu.Lock()
	offset, keepAll := h.simIter, h.keepAll
	h.mu.Unlock()

	paths, elapsed, err := h.runOnce(ctx, offset+simIndex, keepAll, vars)
	ctxlog.FromContext(ctx).Debug("Simulation run time.", "sim_index", simIndex, "duration", elapsed)
	return paths, err
}

func (h *Herd) runOnce(ctx context.Context, simNum int, keepAll bool, vars []config.Vars) ([]dirmanager.NullPath, time.Duration, error) {
	start := time.Now()
	worker := h.workerNum(ctx)
	runNum := worker
	if keepAll {
		runNum = simNum + 1
	}

	runDir := h.dm.RunDir(worker - 1)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, time.Since(start), fmt.Errorf("create run dir: %w", err)
	}

	logger := ctxlog.FromContext(ctx).With("dir_num", worker, "sim_num", simNum)
	outputs := make([]dirmanager.NullPath, len(h.runners))
	for i, runner := range h.runners {
		stage := h.inputNames[i]
		var stageVars config.Vars
		if i < len(vars) {
			stageVars = vars[i]
		}

		ext := filepath.Ext(h.modifiers[i].InputFile())
		input := filepath.Join(runDir, fmt.Sprintf("%s-%d%s", stage, runNum, ext))
		if err := h.writeInput(i, stageVars, input); err != nil {
			return nil, time.Since(start), fmt.Errorf("stage %s: %w", stage, err)
		}

		logger.Debug("Running stage.", "stage", stage, "runner", runner.Name(), "input", input)
		if err := runner.Run(ctx, input); err != nil {
			return nil, time.Since(start), fmt.Errorf("stage %s: %w", stage, err)
		}
		if out, ok := runner.OutputPath(input); ok {
			outputs[i] = dirmanager.PathOf(out)
		}
	}
	return outputs, time.Since(start), nil
}

// writeInput materializes stage i's input at path. Modifiers hold the
// variable state between UpdateVars and WriteFile, so both run under the
// stage lock.
func (h *Herd) writeInput(i int, vars config.Vars, path string) error {
	mod := h.modifiers[i]
	if vars == nil {
		return fsutil.CopyFile(mod.InputFile(), path)
	}

	h.stageLocks[i].Lock()
	defer h.stageLocks[i].Unlock()
	if err := mod.UpdateVars(vars); err != nil {
		return err
	}
	return mod.WriteFile(path)
}

// RunSequential runs every simulation of sweep in order on the calling
// goroutine, using working directory 1.
func (h *Herd) RunSequential(ctx context.Context, sweep [][]config.Vars) (dirmanager.OutputPaths, error) {
	return h.runSweep(ctx, sweep, config.ModeSequential)
}

// RunPara runs the simulations of sweep on NumParaSims workers. Results
// and manifests are ordered like sweep.
func (h *Herd) RunPara(ctx context.Context, sweep [][]config.Vars) (dirmanager.OutputPaths, error) {
	return h.runSweep(ctx, sweep, config.ModeParallel)
}

// Run dispatches to RunSequential or RunPara by mode.
func (h *Herd) Run(ctx context.Context, mode string, sweep [][]config.Vars) (dirmanager.OutputPaths, error) {
	switch mode {
	case config.ModeSequential:
		return h.RunSequential(ctx, sweep)
	case config.ModeParallel, "":
		return h.RunPara(ctx, sweep)
	}
	return nil, config.Errorf("herd.mode", "unknown mode %q", mode)
}

type simResult struct {
	paths   []dirmanager.NullPath
	elapsed time.Duration
}

func (h *Herd) runSweep(ctx context.Context, sweep [][]config.Vars, mode string) (dirmanager.OutputPaths, error) {
	h.mu.Lock()
	keepAll, size := h.keepAll, h.numParaSims
	h.mu.Unlock()

	if !keepAll {
		// Run numbers repeat per directory, so workers must not share one.
		size = min(size, h.dm.NumDirs())
		h.Reset()
		if err := h.dm.ClearDirs(); err != nil {
			return nil, fmt.Errorf("clear run dirs: %w", err)
		}
	}
	if _, err := h.dm.CreateDirs(); err != nil {
		return nil, fmt.Errorf("create run dirs: %w", err)
	}

	h.mu.Lock()
	offset := h.simIter
	h.mu.Unlock()

	sweepID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("sweep_id", sweepID)
	ctx = ctxlog.WithLogger(ctx, logger)

	tasks := make([]workerpool.Task[simResult], len(sweep))
	for i, vars := range sweep {
		tasks[i] = func(ctx context.Context) (simResult, error) {
			paths, elapsed, err := h.runOnce(ctx, offset+i, keepAll, vars)
			return simResult{paths: paths, elapsed: elapsed}, err
		}
	}

	logger.Info("Sweep starting.", "mode", mode, "sims", len(sweep), "workers", size, "keep_all", keepAll)
	start := time.Now()
	var results []workerpool.Result[simResult]
	if mode == config.ModeSequential {
		results = workerpool.RunInline(ctx, tasks)
	} else {
		results = workerpool.Run(ctx, size, tasks)
	}
	sweepTime := time.Since(start)

	paths := make(dirmanager.OutputPaths, len(sweep))
	times := make([]time.Duration, len(sweep))
	var failures []SimFailure
	for i, res := range results {
		times[i] = res.Value.elapsed
		if res.Err != nil {
			logger.Error("Simulation failed.", "sim_index", i, "worker", res.Worker, "error", res.Err)
			failures = append(failures, SimFailure{SimIndex: i, Worker: res.Worker, Err: res.Err})
			paths[i] = make([]dirmanager.NullPath, len(h.runners))
			continue
		}
		paths[i] = res.Value.paths
	}

	h.mu.Lock()
	h.simIter += len(sweep)
	h.sweepIter++
	iter := h.sweepIter
	h.iterRunTimes = times
	h.sweepRunTime = sweepTime
	h.mu.Unlock()

	h.dm.SetOutputPaths(paths)
	if err := h.dm.WriteOutputKey(iter); err != nil {
		return paths, fmt.Errorf("write output key: %w", err)
	}
	if err := h.dm.WriteSweepVars(sweep, iter); err != nil {
		return paths, fmt.Errorf("write sweep vars: %w", err)
	}

	logger.Info("Sweep finished.", "sweep_iter", iter, "sims", len(sweep), "failed", len(failures), "duration", sweepTime)
	if len(failures) > 0 {
		return paths, &SweepError{SweepIter: iter, Total: len(sweep), Failures: failures}
	}
	return paths, nil
}

// IsSweepError reports whether err carries per-simulation failures.
func IsSweepError(err error) (*SweepError, bool) {
	var se *SweepError
	ok := errors.As(err, &se)
	return se, ok
}

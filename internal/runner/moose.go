package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
)

// MooseRunner runs MOOSE input files (*.i) with a MOOSE application,
// optionally under mpirun.
type MooseRunner struct {
	cfg      config.MooseConfig
	tasks    int
	threads  int
	redirect bool
	env      []string
}

// NewMoose creates a runner for the given installation. Task and thread
// counts are clamped to [1, NumCPU].
func NewMoose(cfg config.MooseConfig) *MooseRunner {
	r := &MooseRunner{cfg: cfg}
	r.SetOpts(cfg.Tasks, cfg.Threads, cfg.RedirectStdout)
	r.env = mooseEnv(os.Environ(), cfg)
	return r
}

// mooseEnv returns base extended with the MPI compiler wrappers, MOOSE_DIR
// and the app directory on PATH.
func mooseEnv(base []string, cfg config.MooseConfig) []string {
	env := make([]string, 0, len(base)+7)
	path := ""
	for _, kv := range base {
		if strings.HasPrefix(kv, "PATH=") {
			path = strings.TrimPrefix(kv, "PATH=")
			continue
		}
		env = append(env, kv)
	}
	if path != "" {
		path += string(os.PathListSeparator)
	}
	return append(env,
		"CC=mpicc",
		"CXX=mpicxx",
		"F90=mpif90",
		"F77=mpif77",
		"FC=mpif90",
		"MOOSE_DIR="+cfg.MainPath,
		"PATH="+path+cfg.AppPath,
	)
}

func clampCPU(n int) int {
	if n <= 0 {
		return 1
	}
	if cpus := runtime.NumCPU(); n > cpus {
		return cpus
	}
	return n
}

// SetOpts sets the MPI task count, thread count and whether MOOSE redirects
// its console output to a file.
func (r *MooseRunner) SetOpts(tasks, threads int, redirect bool) {
	r.tasks = clampCPU(tasks)
	r.threads = clampCPU(threads)
	r.redirect = redirect
}

// Name implements herd.Runner.
func (r *MooseRunner) Name() string { return config.RunnerMoose }

// Env returns the environment passed to MOOSE subprocesses.
func (r *MooseRunner) Env() []string {
	out := make([]string, len(r.env))
	copy(out, r.env)
	return out
}

// Command returns the program and arguments used to run inputPath.
func (r *MooseRunner) Command(inputPath string) (string, []string) {
	args := []string{"--n-threads=" + strconv.Itoa(r.threads), "-i", inputPath}
	if r.redirect {
		args = append(args, "--redirect-stdout")
	}
	if r.tasks > 1 {
		return "mpirun", append([]string{"-np", strconv.Itoa(r.tasks), r.cfg.AppName}, args...)
	}
	return r.cfg.AppName, args
}

// Run solves inputPath in its own directory.
func (r *MooseRunner) Run(ctx context.Context, inputPath string) error {
	if info, err := os.Stat(inputPath); err != nil || info.IsDir() {
		return fmt.Errorf("moose input file %q does not exist", inputPath)
	}
	name, args := r.Command(inputPath)
	if name == r.cfg.AppName {
		name = filepath.Join(r.cfg.AppPath, r.cfg.AppName)
	}
	_, err := execute(ctx, command{
		name: name,
		args: args,
		dir:  filepath.Dir(inputPath),
		env:  r.env,
	})
	return err
}

// OutputPath implements herd.Runner: MOOSE writes {stem}_out.e next to the
// input file.
func (r *MooseRunner) OutputPath(inputPath string) (string, bool) {
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(filepath.Dir(inputPath), stem+"_out.e"), true
}

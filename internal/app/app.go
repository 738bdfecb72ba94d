package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/ctxlog"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/dirmanager"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/herd"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/modifier"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/runner"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/sweepreader"
)

// RunnerFactory builds the runner for one stage of the chain.
type RunnerFactory func(stage config.StageConfig, model *config.Model) (herd.Runner, error)

// Option customises an App at construction time.
type Option func(*App)

// WithRunnerFactory replaces how stage runners are built.
func WithRunnerFactory(f RunnerFactory) Option {
	return func(a *App) { a.newRunner = f }
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model

	newRunner RunnerFactory

	dm     *dirmanager.Manager
	herd   *herd.Herd
	reader *sweepreader.Reader
}

// NewApp is the constructor for the main application. It loads and
// validates the herd configuration and wires the directory manager, the
// stage chain and the sweep reader. Any error is a configuration problem.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    appConfig,
		newRunner: defaultRunner,
	}
	for _, opt := range opts {
		opt(a)
	}

	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	model.ApplyDefaults()
	if err := model.Validate(); err != nil {
		return nil, err
	}
	a.model = model
	logger.Debug("Configuration loaded and validated.", "stages", len(model.Stages), "base_dir", model.Herd.BaseDir)

	if err := a.wire(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Herd wired.", "input_names", a.herd.InputNames(), "num_dirs", a.dm.NumDirs())
	return a, nil
}

// wire builds the directory manager, one (modifier, runner) pair per stage,
// the herd and the reader.
func (a *App) wire(ctx context.Context) error {
	hc := a.model.Herd

	dm := dirmanager.New(hc.NumDirs)
	dm.SetSubDirName(hc.SubDir)
	if err := dm.SetBaseDir(hc.BaseDir, false); err != nil {
		return err
	}

	runners := make([]herd.Runner, len(a.model.Stages))
	modifiers := make([]herd.Modifier, len(a.model.Stages))
	names := make([]string, len(a.model.Stages))
	for i, stage := range a.model.Stages {
		r, err := a.newRunner(stage, a.model)
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}
		m, err := modifier.New(stage.Input, stage.CommentChar, stage.EndChar)
		if err != nil {
			return config.Errorf("stage."+stage.Name+".input", "%v", err)
		}
		ctxlog.FromContext(ctx).Debug("Stage wired.", "stage", stage.Name, "runner", r.Name(), "vars", m.VarKeys())
		runners[i], modifiers[i], names[i] = r, m, stage.Name
	}

	h, err := herd.New(runners, modifiers, dm)
	if err != nil {
		return err
	}
	if err := h.SetInputNames(names); err != nil {
		return err
	}
	h.SetKeepFlag(hc.KeepAll)
	h.SetNumParaSims(hc.NumParaSims)

	numParaRead := hc.NumParaSims
	if a.model.Read != nil {
		numParaRead = a.model.Read.NumParaRead
	}
	reader := sweepreader.New(dm, numParaRead)

	a.dm, a.herd, a.reader = dm, h, reader
	return nil
}

// defaultRunner builds the solver or mesher runner a stage names.
func defaultRunner(stage config.StageConfig, model *config.Model) (herd.Runner, error) {
	switch stage.Runner {
	case config.RunnerMoose:
		return runner.NewMoose(*model.Moose), nil
	case config.RunnerGmsh:
		return runner.NewGmsh(model.Gmsh.AppPath)
	}
	return nil, config.Errorf("stage."+stage.Name+".runner", "unknown runner %q", stage.Runner)
}

// Model returns the validated configuration. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Herd returns the wired herd. This is primarily for testing.
func (a *App) Herd() *herd.Herd {
	return a.herd
}

package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/exodus/exodustest"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/modifier"
)

// FixtureRunner is an in-process stand-in for a solver. Each run reads the
// variable block of the materialized input and writes a plate fixture whose
// fields scale with the value of LoadVar.
type FixtureRunner struct {
	// Label is returned by Name.
	Label string
	// LoadVar names the input variable that scales the output. Missing or
	// non-numeric values scale by one.
	LoadVar string
	// NumTime is the number of time steps written.
	NumTime int
	// NoOutput makes the runner behave like a mesher: it runs but reports no
	// output artifact.
	NoOutput bool
	// Fail, when set, is consulted before every run.
	Fail func(inputPath string) error

	mu    sync.Mutex
	calls []string
}

// Name implements the herd runner contract.
func (r *FixtureRunner) Name() string {
	if r.Label == "" {
		return "fixture"
	}
	return r.Label
}

// Run implements the herd runner contract.
func (r *FixtureRunner) Run(ctx context.Context, inputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.calls = append(r.calls, inputPath)
	r.mu.Unlock()

	if r.Fail != nil {
		if err := r.Fail(inputPath); err != nil {
			return err
		}
	}

	mod, err := modifier.New(inputPath, "#", "")
	if err != nil {
		return fmt.Errorf("fixture runner: %w", err)
	}
	if r.NoOutput {
		return nil
	}

	load := 1.0
	if v, ok := mod.Vars()[r.LoadVar].(float64); ok {
		load = v
	}
	numTime := r.NumTime
	if numTime < 1 {
		numTime = 1
	}
	out, _ := r.OutputPath(inputPath)
	return exodustest.WriteFile(out, exodustest.Plate(numTime, load))
}

// OutputPath implements the herd runner contract using the solver's
// {stem}_out.e convention.
func (r *FixtureRunner) OutputPath(inputPath string) (string, bool) {
	if r.NoOutput {
		return "", false
	}
	stem := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return stem + "_out.e", true
}

// Calls returns the input paths the runner was invoked with.
func (r *FixtureRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

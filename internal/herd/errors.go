package herd

import (
	"fmt"
	"strings"
)

// SimFailure records why one simulation of a sweep failed.
type SimFailure struct {
	SimIndex int
	Worker   int
	Err      error
}

// SweepError is returned when one or more simulations of a sweep failed.
// The manifest is still written; failed simulations have null outputs.
type SweepError struct {
	SweepIter int
	Total     int
	Failures  []SimFailure
}

func (e *SweepError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sweep %d: %d of %d simulations failed", e.SweepIter, len(e.Failures), e.Total)
	for i, f := range e.Failures {
		if i == 3 {
			fmt.Fprintf(&b, "; and %d more", len(e.Failures)-i)
			break
		}
		fmt.Fprintf(&b, "; sim %d (worker %d): %v", f.SimIndex, f.Worker, f.Err)
	}
	return b.String()
}

// Unwrap exposes the individual simulation errors to errors.Is and
// errors.As.
func (e *SweepError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

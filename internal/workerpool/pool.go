// Package workerpool runs independent tasks on a bounded set of worker
// goroutines. Each worker has a stable ordinal in [1, size] that it hands to
// every task it executes, and results come back in submission order no
// matter which worker finished first.
package workerpool

import (
	"context"
	"fmt"
	"runtime"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work. The context carries the executing worker's
// ordinal (see Ordinal) and a logger tagged with it.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the outcome of the task submitted at Index.
type Result[T any] struct {
	Index  int
	Worker int
	Value  T
	Err    error
}

// MaxSize is the largest useful pool size on this machine.
func MaxSize() int {
	return runtime.NumCPU()
}

// ClampSize bounds n to [1, MaxSize()].
func ClampSize(n int) int {
	if n < 1 {
		return 1
	}
	if limit := MaxSize(); n > limit {
		return limit
	}
	return n
}

// Run executes tasks on at most size workers and returns one Result per
// task, indexed like tasks. A failing or panicking task does not stop the
// others; once ctx is done, tasks not yet started are reported with the
// context's error.
func Run[T any](ctx context.Context, size int, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if size < 1 {
		size = 1
	}
	if size > len(tasks) {
		size = len(tasks)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker pool starting.", "workers", size, "tasks", len(tasks))

	jobs := make(chan int)
	var g errgroup.Group
	for w := 1; w <= size; w++ {
		ordinal := w
		g.Go(func() error {
			wctx := ctxlog.With(WithOrdinal(ctx, ordinal), "worker", ordinal)
			for i := range jobs {
				results[i].Index = i
				results[i].Worker = ordinal
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Value, results[i].Err = runTask(wctx, tasks[i])
			}
			return nil
		})
	}
	for i := range tasks {
		jobs <- i
	}
	close(jobs)
	_ = g.Wait()

	logger.Debug("Worker pool finished.", "tasks", len(tasks))
	return results
}

func runTask[T any](ctx context.Context, task Task[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}

// RunInline executes tasks one after another on the calling goroutine,
// outside any pool. Results mirror Run with every task on worker 1, except
// that tasks see no ordinal in their context.
func RunInline[T any](ctx context.Context, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	for i, task := range tasks {
		results[i].Index = i
		results[i].Worker = 1
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		results[i].Value, results[i].Err = runTask(ctx, task)
	}
	return results
}

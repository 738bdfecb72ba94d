package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunPreservesSubmissionOrder(t *testing.T) {
	const n = 20
	tasks := make([]Task[int], n)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			// Later tasks finish first.
			time.Sleep(time.Duration(n-i) * time.Millisecond)
			return i * i, nil
		}
	}

	results := Run(context.Background(), 4, tasks)
	require.Len(t, results, n)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, i*i, r.Value)
	}
}

func TestRunOrdinalsStayInRange(t *testing.T) {
	const size = 3
	var mu sync.Mutex
	running := map[int]bool{}
	var overlap atomic.Bool

	tasks := make([]Task[int], 12)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			n, ok := ContextIdentity{}.WorkerOrdinal(ctx)
			if !ok {
				return 0, errors.New("no ordinal")
			}
			mu.Lock()
			if running[n] {
				overlap.Store(true)
			}
			running[n] = true
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			running[n] = false
			mu.Unlock()
			return n, nil
		}
	}

	for _, r := range Run(context.Background(), size, tasks) {
		require.NoError(t, r.Err)
		assert.GreaterOrEqual(t, r.Value, 1)
		assert.LessOrEqual(t, r.Value, size)
		assert.Equal(t, r.Worker, r.Value)
	}
	assert.False(t, overlap.Load(), "two tasks ran concurrently on the same ordinal")
}

func TestRunIsolatesFailures(t *testing.T) {
	boom := errors.New("solver exited 1")
	tasks := []Task[string]{
		func(context.Context) (string, error) { return "a", nil },
		func(context.Context) (string, error) { return "", boom },
		func(context.Context) (string, error) { panic("bad input") },
		func(context.Context) (string, error) { return "d", nil },
	}

	results := Run(context.Background(), 2, tasks)
	assert.Equal(t, "a", results[0].Value)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.ErrorContains(t, results[2].Err, "panicked")
	assert.Equal(t, "d", results[3].Value)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	tasks := make([]Task[int], 5)
	for i := range tasks {
		tasks[i] = func(context.Context) (int, error) {
			ran.Add(1)
			return 1, nil
		}
	}

	for _, r := range Run(ctx, 2, tasks) {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Zero(t, ran.Load())
}

func TestRunEmpty(t *testing.T) {
	assert.Empty(t, Run[int](context.Background(), 4, nil))
}

func TestClampSize(t *testing.T) {
	assert.Equal(t, 1, ClampSize(0))
	assert.Equal(t, 1, ClampSize(-3))
	assert.Equal(t, MaxSize(), ClampSize(MaxSize()+10))
}

func TestFixedIdentity(t *testing.T) {
	n, ok := FixedIdentity(5).WorkerOrdinal(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	_, ok = ContextIdentity{}.WorkerOrdinal(context.Background())
	assert.False(t, ok)
}

func TestRunInline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var order []int
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) {
			_, inPool := Ordinal(ctx)
			assert.False(t, inPool)
			order = append(order, 0)
			return 10, nil
		},
		func(context.Context) (int, error) {
			order = append(order, 1)
			panic("boom")
		},
		func(context.Context) (int, error) {
			order = append(order, 2)
			cancel()
			return 30, nil
		},
		func(context.Context) (int, error) {
			order = append(order, 3)
			return 40, nil
		},
	}

	results := RunInline(ctx, tasks)
	require.Len(t, results, 4)
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, 10, results[0].Value)
	assert.ErrorContains(t, results[1].Err, "panicked")
	assert.Equal(t, 30, results[2].Value)
	assert.ErrorIs(t, results[3].Err, context.Canceled)
	for _, r := range results {
		assert.Equal(t, 1, r.Worker)
	}
}

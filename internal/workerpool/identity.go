package workerpool

import "context"

// IdentityProvider reports which pool worker is executing the current call.
// The herd uses it to pick a working directory; tests substitute a fake.
type IdentityProvider interface {
	// WorkerOrdinal returns the 1-based ordinal of the current worker, or
	// false when the call is not running inside a pool.
	WorkerOrdinal(ctx context.Context) (int, bool)
}

type ordinalKey struct{}

// WithOrdinal returns a context carrying the worker ordinal n.
func WithOrdinal(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, ordinalKey{}, n)
}

// Ordinal returns the worker ordinal stored in ctx by the pool.
func Ordinal(ctx context.Context) (int, bool) {
	n, ok := ctx.Value(ordinalKey{}).(int)
	return n, ok
}

// ContextIdentity is the IdentityProvider backed by the ordinal the pool
// stores in each task's context.
type ContextIdentity struct{}

// WorkerOrdinal implements IdentityProvider.
func (ContextIdentity) WorkerOrdinal(ctx context.Context) (int, bool) {
	return Ordinal(ctx)
}

// FixedIdentity always reports the same ordinal.
type FixedIdentity int

// WorkerOrdinal implements IdentityProvider.
func (f FixedIdentity) WorkerOrdinal(context.Context) (int, bool) {
	return int(f), true
}

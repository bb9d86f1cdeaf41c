// Package dbtest provides unit-of-work stand-ins for service tests.
package dbtest

import (
	"context"
	"sync"
)

// Passthrough runs fn directly, without a transaction.
type Passthrough struct{}

func (Passthrough) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type serialKey struct{}

// Serial runs one unit of work at a time, like a database serializing
// transactions on a shared row. Nested calls join the running unit.
type Serial struct {
	mu sync.Mutex
}

func (s *Serial) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(serialKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, serialKey{}, true))
}

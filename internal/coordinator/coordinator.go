package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"fundwatch/internal/fund"
)

// DefaultMaxConcurrent is the number of funds resolved at once.
const DefaultMaxConcurrent = 4

// Resolver produces the outcome for a single fund code.
type Resolver interface {
	Resolve(ctx context.Context, code string) fund.Outcome
}

// Coordinator fans a batch of fund codes out to a bounded pool of workers
// and collects exactly one outcome per code, in input order.
type Coordinator struct {
	resolver      Resolver
	maxConcurrent int
	log           *slog.Logger
}

// New creates a new Coordinator. A non-positive maxConcurrent uses
// DefaultMaxConcurrent.
func New(resolver Resolver, maxConcurrent int) *Coordinator {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Coordinator{
		resolver:      resolver,
		maxConcurrent: maxConcurrent,
		log:           slog.Default().With("component", "coordinator"),
	}
}

// FetchAll resolves every code and returns the outcomes in the order of codes.
// Each worker writes only its own slot, so no locking is needed; the pool's
// Wait is the barrier before the slice is returned. When the pool is full,
// FetchAll blocks until a worker frees up.
func (c *Coordinator) FetchAll(ctx context.Context, codes []string) []fund.Outcome {
	outcomes := make([]fund.Outcome, len(codes))
	if len(codes) == 0 {
		return outcomes
	}

	p := pool.New().WithMaxGoroutines(min(c.maxConcurrent, len(codes)))
	for i, code := range codes {
		p.Go(func() {
			outcomes[i] = c.resolveOne(ctx, code)
		})
	}
	p.Wait()

	c.log.Debug("batch complete", "total", len(codes), "succeeded", fund.CountSuccesses(outcomes))
	return outcomes
}

// resolveOne isolates a panicking resolver to its own fund.
func (c *Coordinator) resolveOne(ctx context.Context, code string) fund.Outcome {
	var out fund.Outcome
	var catcher panics.Catcher
	catcher.Try(func() {
		out = c.resolver.Resolve(ctx, code)
	})
	if r := catcher.Recovered(); r != nil {
		c.log.Error("resolver panicked", "code", code, "panic", r.Value)
		return fund.Failure(code, fmt.Errorf("resolve %s: %w", code, r.AsError()))
	}
	return out
}

package monitor

import (
	"context"
	"errors"

	"fundwatch/internal/fund"
)

// Publisher receives the outcomes of every successful fetch attempt.
type Publisher interface {
	Publish(ctx context.Context, outcomes []fund.Outcome) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, outcomes []fund.Outcome) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, outcomes []fund.Outcome) error {
	return f(ctx, outcomes)
}

// Publishers fans out to every publisher and joins their errors. A failing
// publisher does not stop the others.
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(ctx context.Context, outcomes []fund.Outcome) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, outcomes); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

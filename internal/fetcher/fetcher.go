package fetcher

import (
	"context"

	"fundwatch/internal/fund"
)

// Provider is the capability set every fund data source implements.
// Each call issues at most one outbound request and never retries.
type Provider interface {
	// Source identifies the provider in snapshots and logs.
	Source() fund.Source

	// ResolveIdentity looks up a fund by its 6-digit code.
	// Fails with NotFound, Unreachable, Timeout or ParseError.
	ResolveIdentity(ctx context.Context, code string) (fund.Identity, error)

	// FetchDetail returns the last published NAV of a resolved fund.
	// Fails with Unreachable, Timeout or ParseError.
	FetchDetail(ctx context.Context, id fund.Identity) (fund.Detail, error)

	// FetchIntradayEstimate returns the latest same-day estimate.
	// Fails with Unsupported when the source has no estimate for the fund,
	// which is an expected outcome rather than a provider failure.
	FetchIntradayEstimate(ctx context.Context, id fund.Identity) (fund.Estimate, error)
}

// Handshaker is implemented by providers that need a one-time session
// bootstrap before any other call succeeds.
type Handshaker interface {
	Handshake(ctx context.Context) error
}

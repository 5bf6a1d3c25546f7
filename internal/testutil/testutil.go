package testutil

import (
	"context"
	"sync/atomic"

	"fundwatch/internal/fetcher"
	"fundwatch/internal/fund"
)

// FakeProvider is a fetcher.Provider whose behavior is set per test through
// function fields. Every call is counted.
type FakeProvider struct {
	SourceValue   fund.Source
	ResolveFunc   func(ctx context.Context, code string) (fund.Identity, error)
	DetailFunc    func(ctx context.Context, id fund.Identity) (fund.Detail, error)
	EstimateFunc  func(ctx context.Context, id fund.Identity) (fund.Estimate, error)
	HandshakeFunc func(ctx context.Context) error

	resolveCalls   atomic.Int32
	detailCalls    atomic.Int32
	estimateCalls  atomic.Int32
	handshakeCalls atomic.Int32
}

// NewFakeProvider creates a provider that resolves every code, reports a net
// value of 1 and has no intraday estimate.
func NewFakeProvider(source fund.Source) *FakeProvider {
	return &FakeProvider{SourceValue: source}
}

// Source implements fetcher.Provider.
func (f *FakeProvider) Source() fund.Source {
	return f.SourceValue
}

// ResolveIdentity implements fetcher.Provider.
func (f *FakeProvider) ResolveIdentity(ctx context.Context, code string) (fund.Identity, error) {
	f.resolveCalls.Add(1)
	if f.ResolveFunc != nil {
		return f.ResolveFunc(ctx, code)
	}
	return fund.Identity{Code: code, ProviderKey: code, Name: "Fund " + code, ResolvedBy: f.SourceValue}, nil
}

// FetchDetail implements fetcher.Provider.
func (f *FakeProvider) FetchDetail(ctx context.Context, id fund.Identity) (fund.Detail, error) {
	f.detailCalls.Add(1)
	if f.DetailFunc != nil {
		return f.DetailFunc(ctx, id)
	}
	return fund.Detail{NetValue: fund.NumberFromFloat(1), NetValueDate: "2025-03-03"}, nil
}

// FetchIntradayEstimate implements fetcher.Provider.
func (f *FakeProvider) FetchIntradayEstimate(ctx context.Context, id fund.Identity) (fund.Estimate, error) {
	f.estimateCalls.Add(1)
	if f.EstimateFunc != nil {
		return f.EstimateFunc(ctx, id)
	}
	return fund.Estimate{}, fetcher.NewUnsupportedError(f.SourceValue, "fake has no estimate")
}

// Handshake implements fetcher.Handshaker. Without HandshakeFunc it succeeds.
func (f *FakeProvider) Handshake(ctx context.Context) error {
	f.handshakeCalls.Add(1)
	if f.HandshakeFunc != nil {
		return f.HandshakeFunc(ctx)
	}
	return nil
}

// ResolveCalls returns how many times ResolveIdentity ran.
func (f *FakeProvider) ResolveCalls() int { return int(f.resolveCalls.Load()) }

// DetailCalls returns how many times FetchDetail ran.
func (f *FakeProvider) DetailCalls() int { return int(f.detailCalls.Load()) }

// EstimateCalls returns how many times FetchIntradayEstimate ran.
func (f *FakeProvider) EstimateCalls() int { return int(f.estimateCalls.Load()) }

// HandshakeCalls returns how many times Handshake ran.
func (f *FakeProvider) HandshakeCalls() int { return int(f.handshakeCalls.Load()) }

// Calls returns the total number of data calls, handshake excluded.
func (f *FakeProvider) Calls() int {
	return f.ResolveCalls() + f.DetailCalls() + f.EstimateCalls()
}

// ResolverFunc adapts a function to the coordinator's Resolver interface.
type ResolverFunc func(ctx context.Context, code string) fund.Outcome

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, code string) fund.Outcome {
	return f(ctx, code)
}

// SnapshotFor builds a successful outcome for code with the given net value.
func SnapshotFor(code string, netValue float64) fund.Outcome {
	return fund.Success(fund.Snapshot{
		Code:              code,
		Name:              "Fund " + code,
		Type:              fund.TypeRegular,
		NetValue:          fund.NumberFromFloat(netValue),
		NetValueDate:      "2025-03-03",
		EstimateTime:      fund.UnavailableText,
		ForecastGrowthPct: fund.Unavailable(),
		ForecastNetValue:  fund.Unavailable(),
		Source:            fund.SourcePrimary,
	})
}

// Package resolver turns a fund code into a valuation snapshot, choosing
// between the primary and fallback providers.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fundwatch/internal/fetcher"
	"fundwatch/internal/fund"
)

//go:generate mockgen -package=resolver_test -destination=mock_provider_test.go fundwatch/internal/fetcher Provider,Handshaker

// ProviderHealth is the routing state established at startup. It never
// changes after Bootstrap returns.
type ProviderHealth struct {
	// PrimaryDegraded is set when the primary handshake failed. The resolver
	// then never calls the primary provider.
	PrimaryDegraded bool
}

// Bootstrap runs the primary provider's one-time handshake, if it has one,
// and reports the resulting health.
func Bootstrap(ctx context.Context, primary fetcher.Provider) ProviderHealth {
	h, ok := primary.(fetcher.Handshaker)
	if !ok {
		return ProviderHealth{}
	}
	if err := h.Handshake(ctx); err != nil {
		slog.Warn("primary provider degraded, all funds will use the fallback", "error", err)
		return ProviderHealth{PrimaryDegraded: true}
	}
	return ProviderHealth{}
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock sets the clock used for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// Resolver runs the per-fund pipeline. It is safe for concurrent use.
type Resolver struct {
	primary  fetcher.Provider
	fallback fetcher.Provider
	cache    *fund.IdentityCache
	health   ProviderHealth
	now      func() time.Time
	log      *slog.Logger
}

// New creates a resolver. A nil cache gets a private one.
func New(primary, fallback fetcher.Provider, cache *fund.IdentityCache, health ProviderHealth, opts ...Option) *Resolver {
	if cache == nil {
		cache = fund.NewIdentityCache()
	}
	r := &Resolver{
		primary:  primary,
		fallback: fallback,
		cache:    cache,
		health:   health,
		now:      time.Now,
		log:      slog.Default().With("component", "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Health returns the routing state the resolver was built with.
func (r *Resolver) Health() ProviderHealth {
	return r.health
}

// Resolve fetches one fund. It never returns a partial snapshot: any
// unrecovered failure becomes a Failure outcome.
//
// Routing is decided per call. Only a degraded primary is sticky: an identity
// that had to come from the fallback is served by the primary again on later
// cycles, and falls back for that cycle only when the primary detail fails.
func (r *Resolver) Resolve(ctx context.Context, code string) fund.Outcome {
	id, fresh, err := r.identity(ctx, code)
	if err != nil {
		return fund.Failure(code, err)
	}

	switch {
	case id.ResolvedBy == fund.SourcePrimary:
		return r.viaPrimary(ctx, id)
	case r.health.PrimaryDegraded || fresh:
		// the primary was just tried for this fund; don't call it again this cycle
		return r.viaFallback(ctx, id)
	default:
		return r.recoverPrimary(ctx, id)
	}
}

// Identify resolves only the identity of code, primary first, and caches it.
func (r *Resolver) Identify(ctx context.Context, code string) (fund.Identity, error) {
	id, _, err := r.identity(ctx, code)
	return id, err
}

// identity returns the cached identity for code or resolves it, primary
// first. fresh reports whether it was resolved by this call.
func (r *Resolver) identity(ctx context.Context, code string) (id fund.Identity, fresh bool, err error) {
	if id, ok := r.cache.Get(code); ok {
		return id, false, nil
	}

	var primaryErr error
	if !r.health.PrimaryDegraded {
		id, err := r.primary.ResolveIdentity(ctx, code)
		if err == nil {
			r.cache.Put(id)
			return id, true, nil
		}
		primaryErr = err
		r.log.Debug("primary resolve failed, trying fallback", "code", code, "error", err)
	}

	id, err = r.fallback.ResolveIdentity(ctx, code)
	if err != nil {
		return fund.Identity{}, false, fmt.Errorf("resolve identity: %w", errors.Join(primaryErr, err))
	}
	r.cache.Put(id)
	return id, true, nil
}

// recoverPrimary serves a fallback-resolved identity from the healthy
// primary. The primary detail page is keyed by code alone; the estimate needs
// the primary product key, which this identity lacks, so it is unavailable.
func (r *Resolver) recoverPrimary(ctx context.Context, id fund.Identity) fund.Outcome {
	detail, err := r.primary.FetchDetail(ctx, id)
	if err != nil {
		r.log.Debug("primary detail failed, using fallback this cycle", "code", id.Code, "error", err)
		return r.viaFallback(ctx, id)
	}
	return fund.Success(fund.NewSnapshot(id, detail, fund.UnavailableEstimate(), fund.SourcePrimary, r.now()))
}

func (r *Resolver) viaPrimary(ctx context.Context, id fund.Identity) fund.Outcome {
	detail, err := r.primary.FetchDetail(ctx, id)
	if err != nil {
		return fund.Failure(id.Code, fmt.Errorf("fetch detail: %w", err))
	}

	est, err := r.primary.FetchIntradayEstimate(ctx, id)
	if err != nil {
		if fetcher.IsType(err, fetcher.ErrorTypeUnsupported) {
			r.log.Debug("no intraday estimate", "code", id.Code)
		} else {
			r.log.Warn("intraday estimate failed", "code", id.Code, "error", err)
		}
		est = fund.UnavailableEstimate()
	}

	return fund.Success(fund.NewSnapshot(id, detail, est, fund.SourcePrimary, r.now()))
}

func (r *Resolver) viaFallback(ctx context.Context, id fund.Identity) fund.Outcome {
	detail, err := r.fallback.FetchDetail(ctx, id)
	if err != nil {
		return fund.Failure(id.Code, fmt.Errorf("fetch detail: %w", err))
	}

	est := fund.UnavailableEstimate()
	if detail.Estimate != nil {
		est = *detail.Estimate
	}

	return fund.Success(fund.NewSnapshot(id, detail, est, fund.SourceFallback, r.now()))
}

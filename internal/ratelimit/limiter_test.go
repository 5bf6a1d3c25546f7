package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundwatch/internal/fund"
)

func shortContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestLimiter_UnknownSourceIsUnlimited(t *testing.T) {
	l := New(map[fund.Source]Limit{fund.SourcePrimary: {PerSecond: 1, Burst: 1}})
	ctx := shortContext(t)

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(ctx, fund.SourceFallback))
	}
}

func TestLimiter_BurstThenBlock(t *testing.T) {
	l := New(map[fund.Source]Limit{fund.SourcePrimary: {PerSecond: 0.001, Burst: 2}})
	ctx := shortContext(t)

	require.NoError(t, l.Wait(ctx, fund.SourcePrimary))
	require.NoError(t, l.Wait(ctx, fund.SourcePrimary))
	// the next token is ~1000s away, well past the deadline
	assert.Error(t, l.Wait(ctx, fund.SourcePrimary))
}

func TestLimiter_WaitHonorsCancellation(t *testing.T) {
	l := New(map[fund.Source]Limit{fund.SourcePrimary: {PerSecond: 0.001, Burst: 1}})
	require.NoError(t, l.Wait(context.Background(), fund.SourcePrimary))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, l.Wait(ctx, fund.SourcePrimary))
}

func TestLimiter_NonPositiveRateIsUnlimited(t *testing.T) {
	l := New(map[fund.Source]Limit{fund.SourceFallback: {PerSecond: 0}})
	ctx := shortContext(t)

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(ctx, fund.SourceFallback))
	}
}

func TestLimiter_SetReplacesBudget(t *testing.T) {
	l := New(map[fund.Source]Limit{fund.SourcePrimary: {PerSecond: 0.001, Burst: 1}})
	ctx := shortContext(t)
	require.NoError(t, l.Wait(ctx, fund.SourcePrimary))

	l.Set(fund.SourcePrimary, Limit{PerSecond: 0})
	assert.NoError(t, l.Wait(ctx, fund.SourcePrimary))
}

func TestLimiter_NilIsUnlimited(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Wait(context.Background(), fund.SourcePrimary))
}

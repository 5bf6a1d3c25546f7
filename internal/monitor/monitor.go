// Package monitor re-runs the batch fetch on a fixed interval, retries whole
// cycles that fail, and keeps run statistics.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"fundwatch/internal/fetcher"
	"fundwatch/internal/fund"
)

var (
	// ErrAlreadyRunning is returned by Start and RunOnce while a loop or a
	// single run is active.
	ErrAlreadyRunning = errors.New("monitor is already running")
	// ErrNotRunning is returned by Stop when there is no loop to stop.
	ErrNotRunning = errors.New("monitor is not running")
	// ErrStopTimeout is returned by Stop when the loop did not exit within
	// Config.StopTimeout. The loop still exits once its current cycle ends.
	ErrStopTimeout = errors.New("timed out waiting for monitor loop to exit")

	errCycleAbandoned = errors.New("cycle abandoned during retry backoff")
)

// Fetcher runs one batch fetch.
type Fetcher interface {
	FetchAll(ctx context.Context, codes []string) []fund.Outcome
}

// Config controls the loop cadence and retry policy.
type Config struct {
	// Interval is the wait between the end of one cycle and the next.
	Interval time.Duration
	// MaxRetries is the number of extra attempts for a failed cycle.
	MaxRetries int
	// RetryBackoff is multiplied by the retry number: 1x, 2x, 3x, ...
	RetryBackoff time.Duration
	// StopTimeout bounds how long Stop waits for the loop to exit.
	StopTimeout time.Duration
}

// DefaultConfig returns the standard cadence.
func DefaultConfig() Config {
	return Config{
		Interval:     60 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 5 * time.Second,
		StopTimeout:  60 * time.Second,
	}
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopping
	stateOnce
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the clock used for statistics.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// withAfter replaces time.After for the interval, backoff and stop waits.
func withAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(m *Monitor) { m.after = after }
}

// Monitor drives periodic fetch-and-publish cycles.
type Monitor struct {
	fetcher   Fetcher
	publisher Publisher
	codes     []string
	cfg       Config
	now       func() time.Time
	after     func(time.Duration) <-chan time.Time
	log       *slog.Logger

	mu     sync.Mutex
	state  state
	stopCh chan struct{}
	wg     *conc.WaitGroup
	stats  Stats
}

// New creates a monitor for codes. Zero config fields take their defaults,
// except MaxRetries where zero means no retries.
func New(f Fetcher, publisher Publisher, codes []string, cfg Config, opts ...Option) *Monitor {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = def.StopTimeout
	}
	if publisher == nil {
		publisher = Publishers{}
	}

	m := &Monitor{
		fetcher:   f,
		publisher: publisher,
		codes:     append([]string(nil), codes...),
		cfg:       cfg,
		now:       time.Now,
		after:     time.After,
		log:       slog.Default().With("component", "monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs the first cycle immediately in a background goroutine and then
// one cycle per interval until Stop is called or ctx is done. Cancelling ctx
// also cancels in-flight fetches; Stop does not.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateIdle {
		return ErrAlreadyRunning
	}

	m.state = stateRunning
	m.stopCh = make(chan struct{})
	m.stats = Stats{StartedAt: m.now()}
	m.wg = conc.NewWaitGroup()

	stopCh := m.stopCh
	m.wg.Go(func() { m.loop(ctx, stopCh) })

	m.log.Info("monitor started", "funds", len(m.codes), "interval", m.cfg.Interval)
	return nil
}

// Stop asks the loop to exit and waits, up to StopTimeout, for the cycle in
// progress to finish. It returns the final statistics.
func (m *Monitor) Stop() (Stats, error) {
	m.mu.Lock()
	if m.state != stateRunning {
		stats := m.stats
		m.mu.Unlock()
		return stats, ErrNotRunning
	}
	m.state = stateStopping
	close(m.stopCh)
	wg := m.wg
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if r := wg.WaitAndRecover(); r != nil {
			m.log.Error("monitor loop panicked", "panic", r.Value)
		}
	}()

	select {
	case <-done:
		return m.Stats(), nil
	case <-m.after(m.cfg.StopTimeout):
		m.log.Warn("monitor loop still running after stop timeout", "timeout", m.cfg.StopTimeout)
		return m.Stats(), ErrStopTimeout
	}
}

// RunOnce performs exactly one cycle, retries included, without starting the
// periodic loop. It returns the outcomes of the last attempt and the cycle
// error, if any.
func (m *Monitor) RunOnce(ctx context.Context) ([]fund.Outcome, error) {
	m.mu.Lock()
	if m.state != stateIdle {
		m.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	m.state = stateOnce
	if m.stats.StartedAt.IsZero() {
		m.stats.StartedAt = m.now()
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.state = stateIdle
		m.mu.Unlock()
	}()

	return m.runCycle(ctx, nil)
}

// Running reports whether the periodic loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateRunning
}

// Stats returns a copy of the current statistics.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Monitor) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer m.finish()

	for {
		m.runCycle(ctx, stopCh)

		select {
		case <-stopCh:
			return
		default:
		}
		if !m.wait(ctx, stopCh, m.cfg.Interval) {
			return
		}
	}
}

// finish marks the loop as exited and logs the final statistics.
func (m *Monitor) finish() {
	m.mu.Lock()
	m.state = stateIdle
	stats := m.stats
	m.mu.Unlock()

	m.log.Info("monitor stopped",
		"total_updates", stats.TotalUpdates,
		"successful_updates", stats.SuccessfulUpdates,
		"failed_updates", stats.FailedUpdates,
		"success_rate", fmt.Sprintf("%.1f%%", stats.SuccessRate()),
		"uptime", stats.Uptime(m.now()).Round(time.Second))
}

// runCycle makes up to 1+MaxRetries attempts and records one cycle result.
// A nil stopCh is never closed.
func (m *Monitor) runCycle(ctx context.Context, stopCh <-chan struct{}) ([]fund.Outcome, error) {
	var (
		outcomes []fund.Outcome
		err      error
	)

	for attempt := 0; attempt <= m.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := m.cfg.RetryBackoff * time.Duration(attempt)
			m.log.Warn("cycle failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
			if !m.wait(ctx, stopCh, backoff) {
				err = fmt.Errorf("%w: %w", errCycleAbandoned, err)
				break
			}
		}

		outcomes, err = m.attempt(ctx)
		if err == nil {
			break
		}
	}

	m.record(err)
	if err != nil {
		m.log.Error("cycle failed", "retries", m.cfg.MaxRetries, "error", err)
	}
	return outcomes, err
}

// attempt fetches all codes and publishes the result. A batch with no
// successful fund is a total outage and is not published.
func (m *Monitor) attempt(ctx context.Context) ([]fund.Outcome, error) {
	outcomes := m.fetcher.FetchAll(ctx, m.codes)

	succeeded := fund.CountSuccesses(outcomes)
	if len(m.codes) > 0 && succeeded == 0 {
		return outcomes, fetcher.NewTotalOutageError(len(m.codes))
	}
	m.log.Info("cycle fetched", "total", len(outcomes), "succeeded", succeeded, "failed", len(outcomes)-succeeded)

	if err := m.publisher.Publish(ctx, outcomes); err != nil {
		return outcomes, fmt.Errorf("publish: %w", err)
	}
	return outcomes, nil
}

func (m *Monitor) record(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.TotalUpdates++
	m.stats.LastUpdateAt = m.now()
	if err != nil {
		m.stats.FailedUpdates++
		m.stats.LastError = err.Error()
		return
	}
	m.stats.SuccessfulUpdates++
	m.stats.LastError = ""
}

// wait blocks for d. It returns false when interrupted by stop or ctx.
func (m *Monitor) wait(ctx context.Context, stopCh <-chan struct{}, d time.Duration) bool {
	select {
	case <-m.after(d):
		return true
	case <-stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

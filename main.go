package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"fundwatch/internal/config"
	"fundwatch/internal/coordinator"
	"fundwatch/internal/eastmoney"
	"fundwatch/internal/fund"
	"fundwatch/internal/fund123"
	"fundwatch/internal/fundlist"
	"fundwatch/internal/monitor"
	"fundwatch/internal/ratelimit"
	"fundwatch/internal/report"
	"fundwatch/internal/resolver"
	"fundwatch/internal/store"
)

func main() {
	flags := pflag.NewFlagSet("fundwatch", pflag.ExitOnError)
	config.RegisterFlags(flags)
	once := flags.Bool("once", false, "run a single cycle, print the report and exit")
	createSample := flags.Bool("create-sample", false, "write a sample fund file and exit")
	classify := flags.Bool("classify", false, "identify and classify the funds, write the category file and exit")
	_ = flags.Parse(os.Args[1:])

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	fsys := afero.NewOsFs()
	if *createSample {
		if err := fundlist.WriteSample(fsys, cfg.FundFile); err != nil {
			slog.Error("could not write sample fund file", "error", err)
			os.Exit(1)
		}
		slog.Info("sample fund file written", "path", cfg.FundFile)
		return
	}

	// Create context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *classify {
		if err := runClassify(ctx, cfg, fsys); err != nil {
			slog.Error("classification failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, fsys, *once); err != nil {
		slog.Error("fundwatch failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, fsys afero.Fs, once bool) error {
	codes, err := fundCodes(cfg, fsys)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, fsys)
	if err != nil {
		return err
	}
	defer a.Close()

	mon := monitor.New(a.coordinator, a.publishers, codes, monitor.Config{
		Interval:     cfg.PollInterval(),
		MaxRetries:   cfg.MaxCycleRetries,
		RetryBackoff: cfg.RetryBackoff(),
		StopTimeout:  cfg.StopTimeout(),
	})

	if once {
		outcomes, err := mon.RunOnce(ctx)
		if len(outcomes) > 0 {
			if rerr := report.Text(os.Stdout, outcomes, time.Now()); rerr != nil {
				slog.Warn("could not print report", "error", rerr)
			}
		}
		return err
	}

	// The loop gets its own context so a signal lets the current cycle
	// finish; loopCancel only aborts fetches that outlive the stop timeout.
	loopCtx, loopCancel := context.WithCancel(context.Background())
	defer loopCancel()

	if err := mon.Start(loopCtx); err != nil {
		return err
	}
	slog.Info("monitoring funds", "funds", len(codes), "interval", cfg.PollInterval(), "output", cfg.OutputFile)

	<-ctx.Done()
	slog.Info("received interrupt signal, shutting down")

	stats, err := mon.Stop()
	if err != nil && !errors.Is(err, monitor.ErrNotRunning) {
		return err
	}
	slog.Info("final statistics",
		"total_updates", stats.TotalUpdates,
		"successful_updates", stats.SuccessfulUpdates,
		"failed_updates", stats.FailedUpdates,
		"success_rate", fmt.Sprintf("%.1f%%", stats.SuccessRate()),
		"last_error", stats.LastError)
	return nil
}

// runClassify identifies every fund, writes the category file and logs the
// type distribution.
func runClassify(ctx context.Context, cfg *config.Config, fsys afero.Fs) error {
	codes, err := sourceCodes(cfg, fsys)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, fsys)
	if err != nil {
		return err
	}
	defer a.Close()

	entries := fundlist.Classify(ctx, codes, a.resolver.Identify, cfg.MaxConcurrentFetches)
	if err := fundlist.WriteCategoryFile(fsys, cfg.CategoryFile, entries, time.Now()); err != nil {
		return err
	}

	types := make(map[fund.Type]int)
	failed := 0
	for _, e := range entries {
		types[e.Type]++
		if e.Status == fundlist.StatusFailed {
			failed++
		}
	}
	slog.Info("category file written", "path", cfg.CategoryFile, "funds", len(entries), "failed", failed, "types", types)
	return nil
}

// fundCodes returns the codes to monitor: configured codes first, then the
// category file when one exists, then the fund file.
func fundCodes(cfg *config.Config, fsys afero.Fs) ([]string, error) {
	if len(cfg.FundCodes) > 0 {
		return cfg.FundCodes, nil
	}
	if cfg.CategoryFile != "" {
		entries, err := fundlist.ReadCategoryFile(fsys, cfg.CategoryFile)
		switch {
		case err == nil:
			return fundlist.Codes(entries), nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}
	return sourceCodes(cfg, fsys)
}

// sourceCodes returns the configured codes or the fund file's, never the
// category file's.
func sourceCodes(cfg *config.Config, fsys afero.Fs) ([]string, error) {
	if len(cfg.FundCodes) > 0 {
		return cfg.FundCodes, nil
	}
	codes, err := fundlist.ParseFile(fsys, cfg.FundFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w (create one with --create-sample)", err)
	}
	return codes, err
}

// app holds the wired collaborators of one process.
type app struct {
	resolver    *resolver.Resolver
	coordinator *coordinator.Coordinator
	publishers  monitor.Publishers
	store       *store.Store
}

func newApp(ctx context.Context, cfg *config.Config, fsys afero.Fs) (*app, error) {
	limiter := ratelimit.New(map[fund.Source]ratelimit.Limit{
		fund.SourcePrimary:  {PerSecond: cfg.Fund123RequestsPerSecond, Burst: 1},
		fund.SourceFallback: {PerSecond: cfg.EastmoneyRequestsPerSecond, Burst: 1},
	})

	primary := fund123.New(fund123.Options{
		BaseURL: cfg.Fund123BaseURL,
		Timeout: cfg.PerCallTimeout(),
		Limiter: limiter,
	})
	fallback := eastmoney.New(eastmoney.Options{
		InfoBaseURL:     cfg.EastmoneyInfoBaseURL,
		EstimateBaseURL: cfg.EastmoneyEstimateBaseURL,
		Timeout:         cfg.PerCallTimeout(),
		Limiter:         limiter,
	})

	health := resolver.Bootstrap(ctx, primary)
	res := resolver.New(primary, fallback, fund.NewIdentityCache(), health)
	slog.Info("providers ready", "primary_degraded", res.Health().PrimaryDegraded)

	a := &app{
		resolver:    res,
		coordinator: coordinator.New(res, cfg.MaxConcurrentFetches),
		publishers:  monitor.Publishers{report.NewFileWriter(fsys, cfg.OutputFile, cfg.OutputFormat)},
	}
	if cfg.OutputDir != "" {
		a.publishers = append(a.publishers, report.NewDirWriter(fsys, cfg.OutputDir))
	}

	if cfg.SQLitePath != "" {
		st, err := store.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.store = st
		a.publishers = append(a.publishers, st)
	}
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

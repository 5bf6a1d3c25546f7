// Package store keeps the latest snapshot of every watched fund in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"fundwatch/internal/fund"
)

// ErrNotFound is returned by Latest for a code that was never stored.
var ErrNotFound = errors.New("snapshot not found")

// Store is a monitor publisher backed by a single latest_snapshot table,
// one row per fund code.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS latest_snapshot (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			net_value TEXT,
			net_value_date TEXT,
			day_growth_pct TEXT,
			estimate_time TEXT,
			forecast_growth_pct TEXT,
			forecast_net_value TEXT,
			is_qdii INTEGER NOT NULL,
			source TEXT NOT NULL,
			observed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_latest_snapshot_observed ON latest_snapshot(observed_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const upsertSnapshot = `INSERT INTO latest_snapshot (
		code, name, type, net_value, net_value_date, day_growth_pct,
		estimate_time, forecast_growth_pct, forecast_net_value, is_qdii, source, observed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(code) DO UPDATE SET
		name = excluded.name,
		type = excluded.type,
		net_value = excluded.net_value,
		net_value_date = excluded.net_value_date,
		day_growth_pct = excluded.day_growth_pct,
		estimate_time = excluded.estimate_time,
		forecast_growth_pct = excluded.forecast_growth_pct,
		forecast_net_value = excluded.forecast_net_value,
		is_qdii = excluded.is_qdii,
		source = excluded.source,
		observed_at = excluded.observed_at`

// Publish upserts every successful outcome in one transaction. Failed funds
// keep their previous row.
func (s *Store) Publish(ctx context.Context, outcomes []fund.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertSnapshot)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		snap := o.Snapshot
		_, err := stmt.ExecContext(ctx,
			snap.Code, snap.Name, string(snap.Type),
			nullable(snap.NetValue), snap.NetValueDate, nullable(snap.DayGrowthPct),
			snap.EstimateTime, nullable(snap.ForecastGrowthPct), nullable(snap.ForecastNetValue),
			snap.IsQDII, string(snap.Source), snap.ObservedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", snap.Code, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Debug("snapshots stored", "written", written, "skipped", len(outcomes)-written)
	return nil
}

const selectSnapshot = `SELECT code, name, type, net_value, net_value_date, day_growth_pct,
	estimate_time, forecast_growth_pct, forecast_net_value, is_qdii, source, observed_at
	FROM latest_snapshot`

// Latest returns the stored snapshot for code.
func (s *Store) Latest(ctx context.Context, code string) (fund.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, selectSnapshot+" WHERE code = ?", code)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fund.Snapshot{}, fmt.Errorf("%s: %w", code, ErrNotFound)
	}
	return snap, err
}

// All returns every stored snapshot ordered by code.
func (s *Store) All(ctx context.Context) ([]fund.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, selectSnapshot+" ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []fund.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows snapshot: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (fund.Snapshot, error) {
	var (
		snap                                        fund.Snapshot
		typ, source, observed                       string
		netValue, dayGrowth, forecastGrowth, fcstNV sql.NullString
	)
	err := row.Scan(&snap.Code, &snap.Name, &typ, &netValue, &snap.NetValueDate, &dayGrowth,
		&snap.EstimateTime, &forecastGrowth, &fcstNV, &snap.IsQDII, &source, &observed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fund.Snapshot{}, err
		}
		return fund.Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}

	snap.Type = fund.Type(typ)
	snap.Source = fund.Source(source)
	snap.NetValue = fromNullable(netValue)
	snap.DayGrowthPct = fromNullable(dayGrowth)
	snap.ForecastGrowthPct = fromNullable(forecastGrowth)
	snap.ForecastNetValue = fromNullable(fcstNV)
	if snap.ObservedAt, err = time.Parse(time.RFC3339Nano, observed); err != nil {
		return fund.Snapshot{}, fmt.Errorf("parse observed_at %q: %w", observed, err)
	}
	return snap, nil
}

// Numbers are stored as decimal text; NULL is unavailable.
func nullable(n fund.Number) any {
	if !n.Valid() {
		return nil
	}
	return n.String()
}

func fromNullable(ns sql.NullString) fund.Number {
	if !ns.Valid {
		return fund.Unavailable()
	}
	return fund.NumberOrUnavailable(ns.String)
}

// Package assets persists tracked assets and their last price refresh
// marks in SQLite. It is the concrete persistence collaborator behind
// the refresh policy.
package assets

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"marketfeed/internal/refresh"
)

// SQLiteStore implements refresh.Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database and runs migrations.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the refresher can write while readers poll.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] asset store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tracked_assets (
			symbol                  TEXT PRIMARY KEY,
			asset_class             TEXT NOT NULL,
			last_price_refreshed_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tracked_refreshed ON tracked_assets(last_price_refreshed_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Track inserts or updates a tracked asset, preserving any existing
// refresh mark.
func (s *SQLiteStore) Track(ctx context.Context, symbol, assetClass string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracked_assets(symbol, asset_class) VALUES(?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET asset_class=excluded.asset_class`,
		symbol, assetClass)
	if err != nil {
		return fmt.Errorf("track asset %q: %w", symbol, err)
	}
	return nil
}

func (s *SQLiteStore) ListTracked(ctx context.Context) ([]refresh.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, asset_class, last_price_refreshed_at FROM tracked_assets ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list tracked assets: %w", err)
	}
	defer rows.Close()

	var out []refresh.Asset
	for rows.Next() {
		var a refresh.Asset
		var refreshedAt sql.NullInt64
		if err := rows.Scan(&a.Symbol, &a.Class, &refreshedAt); err != nil {
			return nil, fmt.Errorf("scan tracked asset: %w", err)
		}
		if refreshedAt.Valid {
			t := time.Unix(refreshedAt.Int64, 0).UTC()
			a.LastRefreshedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecordRefresh(ctx context.Context, asset refresh.Asset, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tracked_assets SET last_price_refreshed_at=? WHERE symbol=?`,
		at.Unix(), asset.Symbol)
	if err != nil {
		return fmt.Errorf("record refresh for %q: %w", asset.Symbol, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("record refresh for %q: asset not tracked", asset.Symbol)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

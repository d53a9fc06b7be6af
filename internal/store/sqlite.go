// internal/store/sqlite.go
//
// SQLite implementation of Store.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - High score as text in the kv table; finished games in the games table.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/simon/assets"
)

// tsLayout is fixed-width so finished_at sorts lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is a Store backed by a SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (and creates if missing) the database at dsn and migrates it.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// DB exposes the handle (useful for tests).
func (s *SQLite) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

/**
 * openDB opens a SQLite database file.
 *
 * - Ensures parent directory exists for relative DSNs (e.g. ./data/simon.db).
 * - Configures busy timeout and WAL journaling mode.
 */
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

/**
 * migrate applies the embedded migrations.
 *
 * - Uses a _migrations table to track applied files.
 * - Each script runs in its own transaction, in lexical order.
 */
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	migs, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	for _, m := range migs {
		var done int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM _migrations WHERE name=?`, m.Name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", m.Name).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.Name, err)
		}
		log.Info().Str("migration", m.Name).Msg("applied")
	}
	return nil
}

// LoadHighScore reads HighScoreKey from kv. Missing row means 0.
func (s *SQLite) LoadHighScore(ctx context.Context) (int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, HighScoreKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load high score: %w", err)
	}
	return parseHighScore(raw)
}

// SaveHighScore upserts HighScoreKey.
func (s *SQLite) SaveHighScore(ctx context.Context, score int) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO kv (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		HighScoreKey, strconv.Itoa(score),
	)
	if err != nil {
		return fmt.Errorf("save high score: %w", err)
	}
	return nil
}

// RecordGame inserts or replaces a finished game row.
func (s *SQLite) RecordGame(ctx context.Context, r GameRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO games (id, started_at, finished_at, score, length)
        VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(tsLayout), r.FinishedAt.UTC().Format(tsLayout),
		r.Score, r.Length,
	)
	if err != nil {
		return fmt.Errorf("record game %s: %w", r.ID, err)
	}
	return nil
}

/**
 * RecentGames fetches the most recently finished games.
 *
 * - Ordered by finished_at DESC.
 * - Default limit is DefaultRecentLimit if not specified.
 */
func (s *SQLite) RecentGames(ctx context.Context, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, started_at, finished_at, score, length
        FROM games
        ORDER BY finished_at DESC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]GameRecord, 0, limit)
	for rows.Next() {
		var r GameRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Score, &r.Length); err != nil {
			return nil, err
		}
		r.StartedAt = parseTS(started)
		r.FinishedAt = parseTS(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// parseTS parses stored timestamps; on error returns zero time.
func parseTS(s string) time.Time {
	t, _ := time.Parse(tsLayout, s)
	return t
}

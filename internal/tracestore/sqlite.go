package tracestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	dsn string
	db  *sql.DB
}

func newSQLiteStore(dsn string) *sqliteStore {
	return &sqliteStore{dsn: strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite3://"), "sqlite://")}
}

func (s *sqliteStore) Connect(ctx context.Context) error {
	path := s.dsn
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("tracestore/sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("tracestore/sqlite: ping: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	program_len INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	error_kind TEXT NOT NULL DEFAULT '',
	offset INTEGER NOT NULL DEFAULT 0,
	line INTEGER NOT NULL DEFAULT 0
)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("tracestore/sqlite: migrate: %w", err)
	}

	s.db = db
	return nil
}

func (s *sqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, run_id, started_at, duration_ms, program_len, outcome, error_kind, offset, line)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RunID, run.StartedAt, run.DurationMS, run.ProgramLen, run.Outcome, run.ErrorKind, run.Offset, run.Line)
	if err != nil {
		return fmt.Errorf("tracestore/sqlite: insert: %w", err)
	}
	return nil
}

func (s *sqliteStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, run_id, started_at, duration_ms, program_len, outcome, error_kind, offset, line
FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("tracestore/sqlite: select: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started time.Time
		if err := rows.Scan(&r.ID, &r.RunID, &started, &r.DurationMS, &r.ProgramLen, &r.Outcome, &r.ErrorKind, &r.Offset, &r.Line); err != nil {
			return nil, fmt.Errorf("tracestore/sqlite: scan: %w", err)
		}
		r.StartedAt = started
		out = append(out, r)
	}
	return out, rows.Err()
}

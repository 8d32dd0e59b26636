package tracestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type postgresStore struct {
	dsn string
	db  *sql.DB
}

func newPostgresStore(dsn string) *postgresStore {
	return &postgresStore{dsn: dsn}
}

func (s *postgresStore) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return fmt.Errorf("tracestore/postgres: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("tracestore/postgres: ping: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	program_len INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	error_kind TEXT NOT NULL DEFAULT '',
	offset_bytes INTEGER NOT NULL DEFAULT 0,
	line INTEGER NOT NULL DEFAULT 0
)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("tracestore/postgres: migrate: %w", err)
	}

	s.db = db
	return nil
}

func (s *postgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *postgresStore) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, run_id, started_at, duration_ms, program_len, outcome, error_kind, offset_bytes, line)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.RunID, run.StartedAt, run.DurationMS, run.ProgramLen, run.Outcome, run.ErrorKind, run.Offset, run.Line)
	if err != nil {
		return fmt.Errorf("tracestore/postgres: insert: %w", err)
	}
	return nil
}

func (s *postgresStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, run_id, started_at, duration_ms, program_len, outcome, error_kind, offset_bytes, line
FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("tracestore/postgres: select: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.RunID, &r.StartedAt, &r.DurationMS, &r.ProgramLen, &r.Outcome, &r.ErrorKind, &r.Offset, &r.Line); err != nil {
			return nil, fmt.Errorf("tracestore/postgres: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

package tracestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

type mysqlStore struct {
	dsn string
	db  *sql.DB
}

func newMySQLStore(dsn string) *mysqlStore {
	return &mysqlStore{dsn: dsn}
}

func (s *mysqlStore) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", s.dsn)
	if err != nil {
		return fmt.Errorf("tracestore/mysql: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("tracestore/mysql: ping: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id VARCHAR(64) PRIMARY KEY,
	run_id VARCHAR(64) NOT NULL,
	started_at DATETIME NOT NULL,
	duration_ms BIGINT NOT NULL,
	program_len INT NOT NULL,
	outcome VARCHAR(16) NOT NULL,
	error_kind VARCHAR(128) NOT NULL DEFAULT '',
	offset_bytes INT NOT NULL DEFAULT 0,
	line INT NOT NULL DEFAULT 0
)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("tracestore/mysql: migrate: %w", err)
	}

	s.db = db
	return nil
}

func (s *mysqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *mysqlStore) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, run_id, started_at, duration_ms, program_len, outcome, error_kind, offset_bytes, line)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RunID, run.StartedAt, run.DurationMS, run.ProgramLen, run.Outcome, run.ErrorKind, run.Offset, run.Line)
	if err != nil {
		return fmt.Errorf("tracestore/mysql: insert: %w", err)
	}
	return nil
}

func (s *mysqlStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, run_id, started_at, duration_ms, program_len, outcome, error_kind, offset_bytes, line
FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("tracestore/mysql: select: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.RunID, &r.StartedAt, &r.DurationMS, &r.ProgramLen, &r.Outcome, &r.ErrorKind, &r.Offset, &r.Line); err != nil {
			return nil, fmt.Errorf("tracestore/mysql: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

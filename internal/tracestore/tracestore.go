// Package tracestore persists a record of completed evaluator runs —
// program length, outcome, duration, and (on failure) the error kind,
// offset and line — behind a driver interface selected by DSN scheme, the way the
// teacher's database package dispatches on connection-string scheme.
package tracestore

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Run is one recorded evaluator invocation.
type Run struct {
	ID         string
	RunID      string
	StartedAt  time.Time
	DurationMS int64
	ProgramLen int
	Outcome    string // "ok" or "error"
	ErrorKind  string
	Offset     int
	Line       int
}

// Store is the persistence backend for Run records.
type Store interface {
	Connect(ctx context.Context) error
	Close() error
	RecordRun(ctx context.Context, run Run) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
}

// ErrUnsupportedScheme is returned by Open for a DSN whose scheme has no
// registered backend.
type ErrUnsupportedScheme struct{ Scheme string }

func (e ErrUnsupportedScheme) Error() string {
	return fmt.Sprintf("tracestore: unsupported DSN scheme %q", e.Scheme)
}

// Open parses dsn and returns the matching Store, not yet connected.
func Open(dsn string) (Store, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("tracestore: invalid dsn: %w", err)
	}

	switch u.Scheme {
	case "sqlite", "sqlite3":
		return newSQLiteStore(dsn), nil
	case "postgres", "postgresql":
		return newPostgresStore(dsn), nil
	case "mysql":
		return newMySQLStore(dsn), nil
	case "mongodb", "mongodb+srv":
		return newMongoStore(dsn), nil
	default:
		return nil, ErrUnsupportedScheme{Scheme: u.Scheme}
	}
}

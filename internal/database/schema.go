package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schema holds the journal DDL. received_at is microseconds since epoch.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS live_events (
		event_id    TEXT PRIMARY KEY,
		received_at BIGINT NOT NULL,
		success     BOOLEAN NOT NULL,
		payload     JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS live_events_received_at_idx ON live_events (received_at)`,
}

// EnsureSchema creates the tables the console writes to.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

package queue

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS queue_items (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT NOT NULL UNIQUE,
    payload      BLOB NOT NULL,
    requester    TEXT NOT NULL,
    status       TEXT NOT NULL CHECK (status IN ('queued', 'confirmed', 'failed')),
    signature    TEXT,
    error_message TEXT,
    enqueued_at  TEXT NOT NULL,
    finished_at  TEXT,
    finished_seq INTEGER
);
CREATE INDEX IF NOT EXISTS idx_queue_items_status_seq ON queue_items (status, seq);
CREATE INDEX IF NOT EXISTS idx_queue_items_finished_seq ON queue_items (finished_seq);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

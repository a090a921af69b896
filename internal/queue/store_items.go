package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Enqueue appends a payload to the tail of the pending queue.
func (s *Store) Enqueue(ctx context.Context, payload []byte, requester string) (*Item, error) {
	ctx = ensureContext(ctx)
	requester = strings.TrimSpace(requester)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: payload is empty", ErrInvalidItem)
	}
	if requester == "" {
		return nil, fmt.Errorf("%w: requester is empty", ErrInvalidItem)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate item id: %w", err)
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)

	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_items (id, payload, requester, status, enqueued_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(),
		stored,
		requester,
		StatusQueued,
		formatTimestamp(s.now()),
	); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.GetByID(ctx, id.String())
}

// GetByID fetches a single item regardless of status.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM queue_items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

// Front returns the oldest pending item without removing it, or nil when the
// queue is empty.
func (s *Store) Front(ctx context.Context) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		"SELECT "+itemColumns+" FROM queue_items WHERE status = ? ORDER BY seq ASC LIMIT 1",
		StatusQueued,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("front item: %w", err)
	}
	return item, nil
}

// Complete moves a pending item into history with its terminal outcome.
// Completing an item twice returns ErrAlreadyFinished and leaves the first
// outcome untouched.
func (s *Store) Complete(ctx context.Context, id string, outcome Outcome) (*Item, error) {
	ctx = ensureContext(ctx)
	if !outcome.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidOutcome, outcome.Status)
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
            SET status = ?, signature = ?, error_message = ?, finished_at = ?,
                finished_seq = (SELECT COALESCE(MAX(finished_seq), 0) + 1 FROM queue_items)
          WHERE id = ? AND status = ?`,
		outcome.Status,
		nullableString(outcome.Signature),
		nullableString(outcome.Error),
		formatTimestamp(s.now()),
		id,
		StatusQueued,
	)
	if err != nil {
		return nil, fmt.Errorf("complete item %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("complete item %s: %w", id, err)
	}
	if affected == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrAlreadyFinished, id)
	}
	return s.GetByID(ctx, id)
}

// Find searches pending items and history. Pending hits carry their 1-based
// queue position.
func (s *Store) Find(ctx context.Context, id string) (*Lookup, error) {
	ctx = ensureContext(ctx)
	item, err := s.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	lookup := &Lookup{Item: item}
	if item.Pending() {
		if err := s.db.QueryRowContext(
			ctx,
			"SELECT COUNT(1) FROM queue_items WHERE status = ? AND seq <= ?",
			StatusQueued,
			item.Seq,
		).Scan(&lookup.Position); err != nil {
			return nil, fmt.Errorf("queue position %s: %w", id, err)
		}
	}
	return lookup, nil
}

// PendingCount returns the number of queued items.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(
		ctx,
		"SELECT COUNT(1) FROM queue_items WHERE status = ?",
		StatusQueued,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return count, nil
}

// Pending lists queued items in processing order.
func (s *Store) Pending(ctx context.Context) ([]*Item, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT "+itemColumns+" FROM queue_items WHERE status = ? ORDER BY seq ASC",
		StatusQueued,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return scanItems(rows)
}

// History lists finished items in completion order.
func (s *Store) History(ctx context.Context) ([]*Item, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT "+itemColumns+" FROM queue_items WHERE status != ? ORDER BY finished_seq ASC",
		StatusQueued,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return scanItems(rows)
}

// Snapshot returns pending items and history read in one transaction.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, "SELECT "+itemColumns+" FROM queue_items WHERE status = ? ORDER BY seq ASC", StatusQueued)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot pending: %w", err)
	}
	pending, err := scanItems(rows)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot pending: %w", err)
	}

	rows, err = tx.QueryContext(ctx, "SELECT "+itemColumns+" FROM queue_items WHERE status != ? ORDER BY finished_seq ASC", StatusQueued)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot history: %w", err)
	}
	history, err := scanItems(rows)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot history: %w", err)
	}

	return Snapshot{PendingCount: len(pending), Pending: pending, History: history}, nil
}

// Stats counts items by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM queue_items GROUP BY status")
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("queue stats: %w", err)
		}
		switch Status(status) {
		case StatusQueued:
			stats.Queued = count
		case StatusConfirmed:
			stats.Confirmed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return stats, nil
}

package api

import (
	"context"
	"errors"

	"cosigner/internal/queue"
)

// QueueReader abstracts the store queries needed for API views.
type QueueReader interface {
	Snapshot(ctx context.Context) (queue.Snapshot, error)
	Find(ctx context.Context, id string) (*queue.Lookup, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// Pending returns queued transactions in processing order and the total
// pending count.
func (s *QueueService) Pending(ctx context.Context) ([]TransactionView, int, error) {
	if s == nil || s.store == nil {
		return nil, 0, nil
	}
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	return FromPending(snapshot.Pending), snapshot.PendingCount, nil
}

// History returns processed transactions in completion order.
func (s *QueueService) History(ctx context.Context) ([]TransactionView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return FromHistory(snapshot.History), nil
}

// Stats returns the store's per-status counts.
func (s *QueueService) Stats(ctx context.Context) (queue.Stats, error) {
	if s == nil || s.store == nil {
		return queue.Stats{}, nil
	}
	return s.store.Stats(ctx)
}

// Describe fetches a single transaction. Unknown ids return nil without
// error.
func (s *QueueService) Describe(ctx context.Context, id string) (*TransactionView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	lookup, err := s.store.Find(ctx, id)
	if errors.Is(err, queue.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	dto := FromLookup(lookup)
	return &dto, nil
}

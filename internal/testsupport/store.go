package testsupport

import (
	"context"
	"testing"

	"cosigner/internal/queue"
)

// MustOpenStore opens an empty queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB) *queue.Store {
	t.Helper()

	store, err := queue.Open(context.Background())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue appends a payload for tests.
func MustEnqueue(t testing.TB, store *queue.Store, payload []byte, requester string) *queue.Item {
	t.Helper()

	item, err := store.Enqueue(context.Background(), payload, requester)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return item
}

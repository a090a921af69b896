package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status ends an item's lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// ParseStatus converts a user-provided value into a Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusQueued:
		return StatusQueued, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusFailed:
		return StatusFailed, true
	}
	return "", false
}

// Item is one relayed transaction.
type Item struct {
	ID         string
	Seq        int64
	Payload    []byte
	Requester  string
	Status     Status
	Signature  string
	Error      string
	EnqueuedAt time.Time
	FinishedAt time.Time
	// FinishedSeq orders the history log; zero while queued.
	FinishedSeq int64
}

// Pending reports whether the item is still waiting in the queue.
func (i *Item) Pending() bool {
	return i != nil && i.Status == StatusQueued
}

// Outcome is the terminal classification recorded by Complete.
type Outcome struct {
	Status    Status
	Signature string
	Error     string
}

// Confirmed builds a successful outcome.
func Confirmed(signature string) Outcome {
	return Outcome{Status: StatusConfirmed, Signature: signature}
}

// Failed builds a failed outcome. Signature may be empty when the
// transaction never reached the ledger.
func Failed(detail, signature string) Outcome {
	return Outcome{Status: StatusFailed, Error: detail, Signature: signature}
}

// Lookup is the result of Find. Position is the 1-based queue position for
// pending items and zero for historical ones.
type Lookup struct {
	Item     *Item
	Position int
}

// Snapshot is a read-only view of the store.
type Snapshot struct {
	PendingCount int
	Pending      []*Item
	History      []*Item
}

// Stats counts items per status.
type Stats struct {
	Queued    int
	Confirmed int
	Failed    int
}

// Processed returns the number of items in the history log.
func (s Stats) Processed() int {
	return s.Confirmed + s.Failed
}

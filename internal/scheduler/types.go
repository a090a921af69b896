package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosigner/internal/program"
	"cosigner/internal/queue"
	"cosigner/internal/services"
)

var (
	// ErrRunInProgress is returned by RunOnce when another run holds the guard.
	ErrRunInProgress = fmt.Errorf("%w: queue run already in progress", services.ErrOverlap)
	// ErrQueueEmpty is returned by RunOnce when there is nothing to process.
	ErrQueueEmpty = errors.New("queue is empty")
	// ErrStopped is returned by RunOnce after Stop.
	ErrStopped = errors.New("scheduler stopped")
)

// Queue is the subset of queue.Store used by runs.
type Queue interface {
	Front(ctx context.Context) (*queue.Item, error)
	Complete(ctx context.Context, id string, outcome queue.Outcome) (*queue.Item, error)
	PendingCount(ctx context.Context) (int, error)
}

// Controller is the subset of program.Controller used by runs.
type Controller interface {
	State() program.Variant
	Deploying() bool
	EnsureState(ctx context.Context, target program.Variant) error
}

// Processor turns one item into its outcome.
type Processor interface {
	ProcessOne(ctx context.Context, item *queue.Item) queue.Outcome
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, item *queue.Item) queue.Outcome

// ProcessOne implements Processor.
func (f ProcessorFunc) ProcessOne(ctx context.Context, item *queue.Item) queue.Outcome {
	return f(ctx, item)
}

// TriggerResult describes what a Trigger call did.
type TriggerResult string

const (
	TriggerStarted        TriggerResult = "started"
	TriggerAlreadyRunning TriggerResult = "already_running"
	TriggerDeploying      TriggerResult = "deploying"
	TriggerQueueEmpty     TriggerResult = "queue_empty"
	TriggerStopped        TriggerResult = "stopped"
	TriggerUnavailable    TriggerResult = "unavailable"
)

// Message returns a human readable description.
func (r TriggerResult) Message() string {
	switch r {
	case TriggerStarted:
		return "Queue processing triggered"
	case TriggerAlreadyRunning:
		return "Queue is already being processed"
	case TriggerDeploying:
		return "Program deployment in progress, try again shortly"
	case TriggerQueueEmpty:
		return "Queue is empty"
	case TriggerStopped:
		return "Scheduler is stopped"
	default:
		return "Queue unavailable"
	}
}

// ItemResult records one processed item.
type ItemResult struct {
	ID        string
	Status    queue.Status
	Signature string
	Error     string
}

// Report summarizes one run.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	// Activated is true when the run deployed the active variant.
	Activated   bool
	Items       []ItemResult
	Confirmed   int
	Failed      int
	Reverted    bool
	RevertError string
	Interrupted bool
	Error       string
}

// Processed returns the number of items the run finished.
func (r Report) Processed() int {
	return len(r.Items)
}

// Duration returns the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Status is a lightweight view of scheduler state.
type Status struct {
	Running      bool
	RunStartedAt time.Time
	LastReport   *Report
	LastError    string
	Ticking      bool
	TickInterval time.Duration
}

package api

import (
	"time"

	"cosigner/internal/queue"
	"cosigner/internal/scheduler"
)

// FromItem converts a queue record to its API representation. position is
// ignored for finished items.
func FromItem(item *queue.Item, position int) TransactionView {
	if item == nil {
		return TransactionView{}
	}
	dto := TransactionView{
		ID:         item.ID,
		Status:     string(item.Status),
		Requester:  item.Requester,
		EnqueuedAt: formatTime(item.EnqueuedAt),
	}
	switch item.Status {
	case queue.StatusQueued:
		dto.QueuePosition = position
	case queue.StatusConfirmed:
		dto.Signature = item.Signature
		dto.ConfirmedAt = formatTime(item.FinishedAt)
	case queue.StatusFailed:
		dto.Signature = item.Signature
		dto.Error = item.Error
		dto.FailedAt = formatTime(item.FinishedAt)
	}
	return dto
}

// FromLookup converts a store lookup result.
func FromLookup(lookup *queue.Lookup) TransactionView {
	if lookup == nil {
		return TransactionView{}
	}
	return FromItem(lookup.Item, lookup.Position)
}

// FromPending converts pending items in FIFO order, numbering positions
// from one.
func FromPending(items []*queue.Item) []TransactionView {
	out := make([]TransactionView, 0, len(items))
	for i, item := range items {
		out = append(out, FromItem(item, i+1))
	}
	return out
}

// FromHistory converts finished items in completion order.
func FromHistory(items []*queue.Item) []TransactionView {
	out := make([]TransactionView, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item, 0))
	}
	return out
}

// FromReport summarizes a scheduler run; nil yields nil.
func FromReport(report *scheduler.Report) *RunSummary {
	if report == nil {
		return nil
	}
	return &RunSummary{
		StartedAt:   formatTime(report.StartedAt),
		FinishedAt:  formatTime(report.FinishedAt),
		Processed:   report.Processed(),
		Confirmed:   report.Confirmed,
		Failed:      report.Failed,
		Activated:   report.Activated,
		Reverted:    report.Reverted,
		Interrupted: report.Interrupted,
		Error:       report.Error,
		RevertError: report.RevertError,
	}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}

// ParseTime parses an API timestamp, returning the zero time on failure.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

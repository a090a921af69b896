package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cosigner/internal/logging"
	"cosigner/internal/notifications"
	"cosigner/internal/program"
	"cosigner/internal/queue"
)

func (s *Scheduler) run(ctx context.Context, pending int) (report Report) {
	report.StartedAt = time.Now()
	logger := s.logger
	defer func() {
		report.FinishedAt = time.Now()
		s.release(report)
	}()

	logger.Info("queue run started",
		logging.Int("pending", pending),
		logging.String("program_state", string(s.controller.State())),
	)
	s.notify(ctx, notifications.EventRunStarted, notifications.Payload{"pending": pending})

	if s.controller.State() != program.Active {
		if err := s.controller.EnsureState(ctx, program.Active); err != nil {
			report.Error = err.Error()
			logging.ErrorWithContext(logger, "activation failed, queue left untouched", "run_activation_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check deployment logs then retry with process"),
			)
			s.notify(ctx, notifications.EventDeployFailed, notifications.Payload{"variant": string(program.Active), "error": err.Error()})
			return report
		}
		report.Activated = true
	}

	if !s.drain(ctx, logger, &report) {
		return report
	}

	if err := s.controller.EnsureState(ctx, program.Inert); err != nil {
		report.RevertError = err.Error()
		logging.WarnWithContext(logger, "revert to inert failed", "run_revert_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "program stays active until the next run drains"),
			logging.String(logging.FieldErrorHint, "next run retries the revert, or use state set inert"),
		)
		s.notify(ctx, notifications.EventRevertFailed, notifications.Payload{"variant": string(program.Inert), "error": err.Error()})
	} else {
		report.Reverted = true
	}

	logger.Info("queue run finished",
		logging.Int("processed", report.Processed()),
		logging.Int("confirmed", report.Confirmed),
		logging.Int("failed", report.Failed),
		logging.Duration("elapsed", time.Since(report.StartedAt)),
	)
	s.notify(ctx, notifications.EventRunCompleted, notifications.Payload{
		"confirmed": report.Confirmed,
		"failed":    report.Failed,
		"duration":  time.Since(report.StartedAt),
	})
	return report
}

// drain processes items until the queue is empty. It returns false when the
// run must stop without reverting.
func (s *Scheduler) drain(ctx context.Context, logger *slog.Logger, report *Report) bool {
	for {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			logging.WarnWithContext(logger, "queue run interrupted", "run_interrupted",
				logging.Int("processed", report.Processed()),
				logging.String(logging.FieldImpact, "program left active, remaining items stay queued"),
				logging.String(logging.FieldErrorHint, "items resume on the next run"),
			)
			return false
		}

		item, err := s.queue.Front(ctx)
		if err != nil {
			report.Error = err.Error()
			logging.ErrorWithContext(logger, "queue read failed", "run_queue_failed", logging.Error(err))
			return false
		}
		if item == nil {
			return true
		}

		outcome := s.processor.ProcessOne(ctx, item)
		// Completion ignores run cancellation.
		if _, err := s.queue.Complete(context.WithoutCancel(ctx), item.ID, outcome); err != nil {
			if errors.Is(err, queue.ErrAlreadyFinished) {
				logger.Warn("item already finished", logging.String(logging.FieldItemID, item.ID))
				continue
			}
			report.Error = err.Error()
			logging.ErrorWithContext(logger, "recording outcome failed", "run_record_failed",
				logging.String(logging.FieldItemID, item.ID),
				logging.Error(err),
			)
			return false
		}

		report.Items = append(report.Items, ItemResult{
			ID:        item.ID,
			Status:    outcome.Status,
			Signature: outcome.Signature,
			Error:     outcome.Error,
		})
		if outcome.Status == queue.StatusConfirmed {
			report.Confirmed++
		} else {
			report.Failed++
		}
	}
}

func (s *Scheduler) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := s.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		s.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

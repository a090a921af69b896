package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cosigner/internal/logging"
	"cosigner/internal/notifications"
	"cosigner/internal/program"
)

// Scheduler coordinates batch runs.
type Scheduler struct {
	queue      Queue
	controller Controller
	processor  Processor
	notifier   notifications.Service
	logger     *slog.Logger
	tick       time.Duration

	mu          sync.Mutex
	ctx         context.Context
	cancels     []context.CancelFunc
	ticking     bool
	running     bool
	runStarted  time.Time
	lastReport  *Report
	lastErr     string
	runs        sync.WaitGroup
	timers      map[*time.Timer]struct{}
	tickerGroup sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickInterval sets the periodic trigger interval used by Start.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithNotifier attaches a notification service.
func WithNotifier(n notifications.Service) Option {
	return func(s *Scheduler) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logging.NewComponentLogger(logger, "scheduler")
	}
}

// New constructs an idle Scheduler.
func New(q Queue, controller Controller, processor Processor, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		queue:      q,
		controller: controller,
		processor:  processor,
		notifier:   notifications.NewService(nil),
		logger:     logging.NewComponentLogger(nil, "scheduler"),
		tick:       5 * time.Second,
		ctx:        ctx,
		cancels:    []context.CancelFunc{cancel},
		timers:     make(map[*time.Timer]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the periodic trigger. Runs started by any trigger use a
// context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.ticking {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return ErrStopped
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.ctx = runCtx
	s.cancels = append(s.cancels, cancel)
	s.ticking = true
	s.tickerGroup.Add(1)
	s.mu.Unlock()

	go s.tickLoop(runCtx)
	s.logger.Info("scheduler started", logging.Duration("tick_interval", s.tick))
	return nil
}

// Stop cancels the ticker and pending delayed triggers, interrupts any run
// between items, and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancels := s.cancels
	for timer := range s.timers {
		timer.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
	s.ticking = false
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.tickerGroup.Wait()
	s.runs.Wait()
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.tickerGroup.Done()
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if result := s.Trigger(ctx); result == TriggerStarted {
				s.logger.Debug("tick started run")
			}
		}
	}
}

// Trigger starts a run on its own goroutine when idle and the queue is not
// empty. ctx only bounds the checks; the run itself lives on the scheduler
// context so it outlasts the caller.
func (s *Scheduler) Trigger(ctx context.Context) TriggerResult {
	result, runCtx, pending := s.acquire(ctx)
	if result != TriggerStarted {
		return result
	}
	go func() {
		defer s.runs.Done()
		s.run(runCtx, pending)
	}()
	return result
}

// TriggerAfter schedules a Trigger after delay.
func (s *Scheduler) TriggerAfter(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, timer)
		ctx := s.ctx
		s.mu.Unlock()
		result := s.Trigger(ctx)
		s.logger.Debug("delayed trigger fired", logging.String("result", string(result)))
	})
	s.timers[timer] = struct{}{}
}

// RunOnce performs a run on the calling goroutine.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	result, _, pending := s.acquire(ctx)
	switch result {
	case TriggerStarted:
	case TriggerAlreadyRunning:
		return Report{}, ErrRunInProgress
	case TriggerDeploying:
		return Report{}, program.ErrDeploymentInProgress
	case TriggerQueueEmpty:
		return Report{}, ErrQueueEmpty
	case TriggerStopped:
		return Report{}, ErrStopped
	default:
		return Report{}, errors.New(result.Message())
	}
	defer s.runs.Done()
	report := s.run(ctx, pending)
	if report.Error != "" {
		return report, errors.New(report.Error)
	}
	return report, nil
}

// acquire claims the run slot. A started result is registered with s.runs
// before the lock is released, so Stop never misses it.
func (s *Scheduler) acquire(ctx context.Context) (TriggerResult, context.Context, int) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return TriggerStopped, nil, 0
	}
	if s.running {
		return TriggerAlreadyRunning, nil, 0
	}
	if s.controller.Deploying() {
		return TriggerDeploying, nil, 0
	}
	pending, err := s.queue.PendingCount(ctx)
	if err != nil {
		s.logger.Warn("queue count failed", logging.Error(err))
		return TriggerUnavailable, nil, 0
	}
	if pending == 0 {
		return TriggerQueueEmpty, nil, 0
	}
	s.running = true
	s.runStarted = time.Now()
	s.runs.Add(1)
	return TriggerStarted, s.ctx, pending
}

func (s *Scheduler) release(report Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runStarted = time.Time{}
	s.lastReport = &report
	switch {
	case report.Error != "":
		s.lastErr = report.Error
	case report.RevertError != "":
		s.lastErr = report.RevertError
	default:
		s.lastErr = ""
	}
}

// Running reports whether a run is in flight.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the latest scheduler information.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		Running:      s.running,
		RunStartedAt: s.runStarted,
		LastError:    s.lastErr,
		Ticking:      s.ticking,
		TickInterval: s.tick,
	}
	if s.lastReport != nil {
		copy := *s.lastReport
		copy.Items = append([]ItemResult(nil), s.lastReport.Items...)
		status.LastReport = &copy
	}
	return status
}

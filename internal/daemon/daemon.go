package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cosigner/internal/config"
	"cosigner/internal/ledger"
	"cosigner/internal/logging"
	"cosigner/internal/program"
	"cosigner/internal/queue"
	"cosigner/internal/scheduler"
	"cosigner/internal/services"
)

// Components are the collaborators a Daemon coordinates. Build assembles
// the production set; tests supply their own.
type Components struct {
	Store      *queue.Store
	Controller *program.Controller
	Scheduler  *scheduler.Scheduler
	// Identity fields reported by /health.
	CosignerAddress  string
	UpgradeAuthority string
	ProgramID        string
}

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	controller *program.Controller
	scheduler  *scheduler.Scheduler
	identity   identity
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type identity struct {
	cosigner         string
	upgradeAuthority string
	programID        string
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	ProgramState     program.Variant
	Deploying        bool
	Pending          int
	Processed        int
	Scheduler        scheduler.Status
	LockFilePath     string
	CosignerAddress  string
	UpgradeAuthority string
	ProgramID        string
}

// New constructs a daemon around already-built components.
func New(cfg *config.Config, logger *slog.Logger, c Components) (*Daemon, error) {
	if cfg == nil || c.Store == nil || c.Controller == nil || c.Scheduler == nil {
		return nil, errors.New("daemon requires config, store, controller, and scheduler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      c.Store,
		controller: c.Controller,
		scheduler:  c.Scheduler,
		identity: identity{
			cosigner:         c.CosignerAddress,
			upgradeAuthority: c.UpgradeAuthority,
			programID:        c.ProgramID,
		},
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, starts the scheduler ticker and the HTTP
// server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cosigner daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.scheduler.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.scheduler.Stop()
		d.abortStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("cosigner daemon started",
		logging.String("lock", d.lockPath),
		logging.String("program_state", string(d.controller.State())),
		logging.String("cosigner", d.identity.cosigner),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop shuts down the HTTP server, interrupts any run between items, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cosigner daemon stopped",
		logging.String("program_state", string(d.controller.State())),
	)
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the bound API address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Submit validates and enqueues a base64 encoded transaction and schedules
// a run after the configured submit delay.
func (d *Daemon) Submit(ctx context.Context, payload, requester string) (*queue.Lookup, error) {
	payload = strings.TrimSpace(payload)
	requester = strings.TrimSpace(requester)
	if payload == "" || requester == "" {
		return nil, services.Wrap(services.ErrValidation, "daemon", "submit", "missing required fields: payload, requester", nil)
	}
	raw, err := ledger.DecodePayload(payload)
	if err != nil {
		return nil, err
	}
	item, err := d.store.Enqueue(ctx, raw, requester)
	if err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	lookup, err := d.store.Find(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("locate queued item: %w", err)
	}

	d.logger.Info("transaction queued",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("requester", requester),
		logging.Int("queue_position", lookup.Position),
	)
	d.scheduler.TriggerAfter(d.cfg.SubmitDelay())
	return lookup, nil
}

// ProcessQueue requests an immediate run.
func (d *Daemon) ProcessQueue(ctx context.Context) scheduler.TriggerResult {
	result := d.scheduler.Trigger(ctx)
	d.logger.Info("manual queue processing requested", logging.String("result", string(result)))
	return result
}

// RunQueue performs a run on the calling goroutine and returns its report.
// The run is bound to the daemon lifetime rather than ctx once started.
func (d *Daemon) RunQueue(ctx context.Context) (scheduler.TriggerResult, *scheduler.Report) {
	runCtx := ctx
	if d.ctx != nil {
		runCtx = d.ctx
	}
	report, err := d.scheduler.RunOnce(runCtx)
	result := runResult(report, err)
	d.logger.Info("synchronous queue run requested", logging.String("result", string(result)))
	if result != scheduler.TriggerStarted {
		return result, nil
	}
	return result, &report
}

func runResult(report scheduler.Report, err error) scheduler.TriggerResult {
	switch {
	case !report.StartedAt.IsZero():
		return scheduler.TriggerStarted
	case errors.Is(err, scheduler.ErrRunInProgress):
		return scheduler.TriggerAlreadyRunning
	case errors.Is(err, program.ErrDeploymentInProgress):
		return scheduler.TriggerDeploying
	case errors.Is(err, scheduler.ErrQueueEmpty):
		return scheduler.TriggerQueueEmpty
	case errors.Is(err, scheduler.ErrStopped):
		return scheduler.TriggerStopped
	default:
		return scheduler.TriggerUnavailable
	}
}

// ChangeState deploys the named variant outside of a run.
func (d *Daemon) ChangeState(ctx context.Context, target string) (program.Variant, error) {
	variant, err := program.ParseVariant(target)
	if err != nil {
		return "", err
	}
	ctx = services.WithVariant(ctx, string(variant))
	if err := d.controller.EnsureState(ctx, variant); err != nil {
		return d.controller.State(), err
	}
	d.logger.Info("program state changed manually", logging.String(logging.FieldVariant, string(variant)))
	return d.controller.State(), nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("queue stats: %w", err)
	}
	return Status{
		Running:          d.running.Load(),
		ProgramState:     d.controller.State(),
		Deploying:        d.controller.Deploying(),
		Pending:          stats.Queued,
		Processed:        stats.Processed(),
		Scheduler:        d.scheduler.Status(),
		LockFilePath:     d.lockPath,
		CosignerAddress:  d.identity.cosigner,
		UpgradeAuthority: d.identity.upgradeAuthority,
		ProgramID:        d.identity.programID,
	}, nil
}

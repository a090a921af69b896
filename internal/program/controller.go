package program

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cosigner/internal/logging"
	"cosigner/internal/services"
)

// ErrDeploymentInProgress is returned when a transition is requested while
// another one is still in flight.
var ErrDeploymentInProgress = fmt.Errorf("%w: deployment already in progress", services.ErrOverlap)

// Deployer replaces the on-chain program with the given artifact.
type Deployer interface {
	Deploy(ctx context.Context, artifact Artifact) error
}

// DeployerFunc adapts a function to the Deployer interface.
type DeployerFunc func(ctx context.Context, artifact Artifact) error

// Deploy implements Deployer.
func (f DeployerFunc) Deploy(ctx context.Context, artifact Artifact) error {
	return f(ctx, artifact)
}

// Snapshot is a consistent view of controller state.
type Snapshot struct {
	State        Variant
	Deploying    bool
	Target       Variant
	LastDeployAt time.Time
	LastError    string
}

// Controller owns the current program variant.
type Controller struct {
	deployer  Deployer
	artifacts map[Variant]string
	settle    time.Duration
	logger    *slog.Logger
	sleep     func(time.Duration)

	mu           sync.RWMutex
	state        Variant
	deploying    bool
	target       Variant
	lastDeployAt time.Time
	lastError    string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithSettleInterval sets the wait after each successful deployment.
func WithSettleInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.settle = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logging.NewComponentLogger(logger, "program")
	}
}

// WithInitialState overrides the starting variant. Defaults to Inert.
func WithInitialState(v Variant) Option {
	return func(c *Controller) {
		if v.Valid() {
			c.state = v
		}
	}
}

// NewController builds a Controller that deploys artifacts[variant] on each transition.
func NewController(deployer Deployer, artifacts map[Variant]string, opts ...Option) *Controller {
	c := &Controller{
		deployer:  deployer,
		artifacts: make(map[Variant]string, len(artifacts)),
		settle:    5 * time.Second,
		logger:    logging.NewComponentLogger(nil, "program"),
		sleep:     time.Sleep,
		state:     Inert,
	}
	for variant, path := range artifacts {
		c.artifacts[variant] = path
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current variant.
func (c *Controller) State() Variant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Deploying reports whether a transition is in flight.
func (c *Controller) Deploying() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deploying
}

// Snapshot returns current state, in-flight flag, and the last transition result.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		State:        c.state,
		Deploying:    c.deploying,
		Target:       c.target,
		LastDeployAt: c.lastDeployAt,
		LastError:    c.lastError,
	}
}

// EnsureState transitions the program to target. It returns nil without
// deploying when target is already current, and ErrDeploymentInProgress
// without waiting when another transition holds the guard. A failed deploy
// leaves the current variant unchanged.
func (c *Controller) EnsureState(ctx context.Context, target Variant) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !target.Valid() {
		return fmt.Errorf("%w: unknown program variant %q", services.ErrValidation, target)
	}

	c.mu.Lock()
	if c.state == target {
		c.mu.Unlock()
		return nil
	}
	if c.deploying {
		c.mu.Unlock()
		return ErrDeploymentInProgress
	}
	c.deploying = true
	c.target = target
	from := c.state
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.deploying = false
		c.target = ""
		if err != nil {
			c.lastError = err.Error()
		} else {
			c.lastError = ""
		}
		c.mu.Unlock()
	}()

	path, ok := c.artifacts[target]
	if !ok || path == "" {
		return services.Wrap(services.ErrDeployment, "program", "ensure state", fmt.Sprintf("no artifact configured for %s", target), nil)
	}

	ctx = services.WithVariant(ctx, string(target))
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("deploying program variant",
		logging.String("from", string(from)),
		logging.String("to", string(target)),
		logging.String("artifact", path),
	)

	started := time.Now()
	if deployErr := c.deploy(context.WithoutCancel(ctx), Artifact{Variant: target, Path: path}); deployErr != nil {
		logging.ErrorWithContext(logger, "program deployment failed", "deploy_failed",
			logging.String("to", string(target)),
			logging.Error(deployErr),
			logging.String(logging.FieldErrorHint, "check the solana CLI output and upgrade authority balance"),
		)
		return services.Wrap(services.ErrDeployment, "program", "deploy "+string(target), "deployment failed", deployErr)
	}

	c.mu.Lock()
	c.state = target
	c.lastDeployAt = time.Now()
	c.mu.Unlock()

	logger.Info("program variant deployed",
		logging.String("to", string(target)),
		logging.Duration("elapsed", time.Since(started)),
		logging.Duration("settle", c.settle),
	)

	// Guard stays held until the settle wait ends.
	if c.settle > 0 {
		c.sleep(c.settle)
	}
	return nil
}

func (c *Controller) deploy(ctx context.Context, artifact Artifact) (err error) {
	if c.deployer == nil {
		return errors.New("no deployer configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deployer panic: %v", r)
		}
	}()
	return c.deployer.Deploy(ctx, artifact)
}

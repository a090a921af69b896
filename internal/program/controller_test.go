package program_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cosigner/internal/program"
	"cosigner/internal/services"
)

var testArtifacts = map[program.Variant]string{
	program.Inert:  "/programs/inert.so",
	program.Active: "/programs/active.so",
}

type recordingDeployer struct {
	mu       sync.Mutex
	calls    []program.Artifact
	err      error
	release  chan struct{}
	entered  chan struct{}
	panicMsg string
}

func (d *recordingDeployer) Deploy(ctx context.Context, artifact program.Artifact) error {
	d.mu.Lock()
	d.calls = append(d.calls, artifact)
	d.mu.Unlock()
	if d.entered != nil {
		d.entered <- struct{}{}
	}
	if d.release != nil {
		<-d.release
	}
	if d.panicMsg != "" {
		panic(d.panicMsg)
	}
	return d.err
}

func (d *recordingDeployer) Calls() []program.Artifact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]program.Artifact(nil), d.calls...)
}

func newController(d program.Deployer, opts ...program.Option) *program.Controller {
	opts = append([]program.Option{program.WithSettleInterval(0)}, opts...)
	return program.NewController(d, testArtifacts, opts...)
}

func TestEnsureStateDeploysConfiguredArtifact(t *testing.T) {
	deployer := &recordingDeployer{}
	ctrl := newController(deployer)

	if ctrl.State() != program.Inert {
		t.Fatalf("expected initial state inert, got %q", ctrl.State())
	}
	if err := ctrl.EnsureState(context.Background(), program.Active); err != nil {
		t.Fatalf("EnsureState returned error: %v", err)
	}
	if ctrl.State() != program.Active {
		t.Fatalf("expected active state, got %q", ctrl.State())
	}
	calls := deployer.Calls()
	if len(calls) != 1 || calls[0].Variant != program.Active || calls[0].Path != "/programs/active.so" {
		t.Fatalf("unexpected deploy calls: %#v", calls)
	}
	if ctrl.Deploying() {
		t.Fatal("expected guard released after success")
	}
	if ctrl.Snapshot().LastDeployAt.IsZero() {
		t.Fatal("expected last deploy timestamp")
	}
}

func TestEnsureStateIsIdempotent(t *testing.T) {
	deployer := &recordingDeployer{}
	ctrl := newController(deployer)

	if err := ctrl.EnsureState(context.Background(), program.Inert); err != nil {
		t.Fatalf("EnsureState returned error: %v", err)
	}
	if len(deployer.Calls()) != 0 {
		t.Fatalf("expected no deploy for current state, got %d", len(deployer.Calls()))
	}

	for i := 0; i < 2; i++ {
		if err := ctrl.EnsureState(context.Background(), program.Active); err != nil {
			t.Fatalf("EnsureState returned error: %v", err)
		}
	}
	if len(deployer.Calls()) != 1 {
		t.Fatalf("expected exactly one deploy, got %d", len(deployer.Calls()))
	}
}

func TestEnsureStateRejectsConcurrentTransition(t *testing.T) {
	deployer := &recordingDeployer{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	ctrl := newController(deployer)

	done := make(chan error, 1)
	go func() {
		done <- ctrl.EnsureState(context.Background(), program.Active)
	}()
	<-deployer.entered

	if !ctrl.Deploying() {
		t.Fatal("expected deploying flag while deploy in flight")
	}
	if snap := ctrl.Snapshot(); snap.Target != program.Active {
		t.Fatalf("expected target active in snapshot, got %q", snap.Target)
	}

	start := time.Now()
	err := ctrl.EnsureState(context.Background(), program.Active)
	if !errors.Is(err, program.ErrDeploymentInProgress) || !errors.Is(err, services.ErrOverlap) {
		t.Fatalf("expected overlap error, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("expected overlap to be reported without waiting")
	}

	close(deployer.release)
	if err := <-done; err != nil {
		t.Fatalf("first EnsureState returned error: %v", err)
	}
	if len(deployer.Calls()) != 1 {
		t.Fatalf("expected exactly one deploy, got %d", len(deployer.Calls()))
	}
}

func TestEnsureStateFailureLeavesStateAndReleasesGuard(t *testing.T) {
	deployer := &recordingDeployer{err: errors.New("insufficient funds")}
	ctrl := newController(deployer)

	err := ctrl.EnsureState(context.Background(), program.Active)
	if !errors.Is(err, services.ErrDeployment) {
		t.Fatalf("expected deployment error, got %v", err)
	}
	if ctrl.State() != program.Inert {
		t.Fatalf("expected state unchanged, got %q", ctrl.State())
	}
	if ctrl.Deploying() {
		t.Fatal("expected guard released after failure")
	}
	if ctrl.Snapshot().LastError == "" {
		t.Fatal("expected last error recorded")
	}

	deployer.err = nil
	if err := ctrl.EnsureState(context.Background(), program.Active); err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	if ctrl.Snapshot().LastError != "" {
		t.Fatal("expected last error cleared after success")
	}
}

func TestEnsureStateRecoversDeployerPanic(t *testing.T) {
	deployer := &recordingDeployer{panicMsg: "boom"}
	ctrl := newController(deployer)

	err := ctrl.EnsureState(context.Background(), program.Active)
	if !errors.Is(err, services.ErrDeployment) {
		t.Fatalf("expected deployment error from panic, got %v", err)
	}
	if ctrl.Deploying() {
		t.Fatal("expected guard released after panic")
	}
	if ctrl.State() != program.Inert {
		t.Fatalf("expected state unchanged, got %q", ctrl.State())
	}
}

func TestEnsureStateHoldsGuardThroughSettle(t *testing.T) {
	deployer := &recordingDeployer{}
	ctrl := program.NewController(deployer, testArtifacts, program.WithSettleInterval(150*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		done <- ctrl.EnsureState(context.Background(), program.Active)
	}()

	deadline := time.Now().Add(time.Second)
	for ctrl.State() != program.Active && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := ctrl.EnsureState(context.Background(), program.Inert); !errors.Is(err, program.ErrDeploymentInProgress) {
		t.Fatalf("expected overlap during settle, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("EnsureState returned error: %v", err)
	}
}

func TestEnsureStateIgnoresCallerCancellation(t *testing.T) {
	var sawCancel atomic.Bool
	deployer := program.DeployerFunc(func(ctx context.Context, _ program.Artifact) error {
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		return nil
	})
	ctrl := newController(deployer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ctrl.EnsureState(ctx, program.Active); err != nil {
		t.Fatalf("EnsureState returned error: %v", err)
	}
	if sawCancel.Load() {
		t.Fatal("expected deployer context detached from caller cancellation")
	}
}

func TestEnsureStateMissingArtifact(t *testing.T) {
	ctrl := program.NewController(&recordingDeployer{}, map[program.Variant]string{program.Inert: "/inert.so"}, program.WithSettleInterval(0))
	if err := ctrl.EnsureState(context.Background(), program.Active); !errors.Is(err, services.ErrDeployment) {
		t.Fatalf("expected deployment error for missing artifact, got %v", err)
	}
	if ctrl.Deploying() {
		t.Fatal("expected guard released")
	}
}

func TestParseVariant(t *testing.T) {
	if v, err := program.ParseVariant(" Active "); err != nil || v != program.Active {
		t.Fatalf("ParseVariant(active) = %q, %v", v, err)
	}
	if v, err := program.ParseVariant("dummy"); err != nil || v != program.Inert {
		t.Fatalf("ParseVariant(dummy) = %q, %v", v, err)
	}
	if _, err := program.ParseVariant("paused"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

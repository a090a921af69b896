package daemon_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"cosigner/internal/daemon"
	"cosigner/internal/program"
	"cosigner/internal/scheduler"
	"cosigner/internal/services"
	"cosigner/internal/testsupport"
)

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t)
	controller := program.NewController(testsupport.NewRecordingDeployer(), testsupport.Artifacts(), program.WithSettleInterval(0))
	processor := scheduler.ProcessorFunc(nil)
	d, err := daemon.New(cfg, nil, daemon.Components{
		Store:      store,
		Controller: controller,
		Scheduler:  scheduler.New(store, controller, processor),
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status, err := d.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || !status.Scheduler.Ticking {
		t.Fatalf("expected daemon and ticker running, got %+v", status)
	}

	resp, err := http.Get("http://" + d.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from live server, got %d", resp.StatusCode)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status, err = d.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	build := func() *daemon.Daemon {
		store := testsupport.MustOpenStore(t)
		controller := program.NewController(testsupport.NewRecordingDeployer(), testsupport.Artifacts())
		d, err := daemon.New(cfg, nil, daemon.Components{
			Store:      store,
			Controller: controller,
			Scheduler:  scheduler.New(store, controller, scheduler.ProcessorFunc(nil)),
		})
		if err != nil {
			t.Fatalf("daemon.New: %v", err)
		}
		t.Cleanup(d.Stop)
		return d
	}

	first := build()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := build().Start(context.Background()); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestBuildRefusesMissingArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutArtifacts())
	cfg.Ledger.CosignerKeypairPath = ""
	_, err := daemon.Build(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("expected Build to fail")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

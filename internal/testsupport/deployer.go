package testsupport

import (
	"context"
	"errors"
	"sync"

	"cosigner/internal/program"
)

// RecordingDeployer is a program.Deployer that records every call and can
// fail or block per variant.
type RecordingDeployer struct {
	mu    sync.Mutex
	calls []program.Variant
	fail  map[program.Variant]int
	// Gate, when set, blocks Deploy until it is closed or receives a value.
	Gate chan struct{}
}

// NewRecordingDeployer returns a deployer that always succeeds.
func NewRecordingDeployer() *RecordingDeployer {
	return &RecordingDeployer{fail: map[program.Variant]int{}}
}

// FailNext makes the next n deployments of variant fail.
func (d *RecordingDeployer) FailNext(variant program.Variant, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[variant] = n
}

// Deploy implements program.Deployer.
func (d *RecordingDeployer) Deploy(ctx context.Context, artifact program.Artifact) error {
	d.mu.Lock()
	d.calls = append(d.calls, artifact.Variant)
	gate := d.Gate
	failing := d.fail[artifact.Variant] > 0
	if failing {
		d.fail[artifact.Variant]--
	}
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if failing {
		return errors.New("deploy " + string(artifact.Variant) + " failed")
	}
	return nil
}

// Calls returns deployed variants in call order.
func (d *RecordingDeployer) Calls() []program.Variant {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]program.Variant(nil), d.calls...)
}

// Artifacts returns a variant to path map for NewController.
func Artifacts() map[program.Variant]string {
	return map[program.Variant]string{
		program.Inert:  "/programs/inert.so",
		program.Active: "/programs/active.so",
	}
}

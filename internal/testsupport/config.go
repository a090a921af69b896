package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cosigner/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp state directory and
// program artifacts per test. Timing knobs are shrunk so runs finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Ledger.RPCURL = "http://127.0.0.1:8899"
	cfgVal.Ledger.CosignerKey = "test"
	cfgVal.Ledger.PollIntervalMillis = 1
	cfgVal.Program.ProgramKeypairPath = writeFile(t, filepath.Join(base, "keys", "program.json"), "[]")
	cfgVal.Program.UpgradeAuthorityKeypairPath = writeFile(t, filepath.Join(base, "keys", "authority.json"), "[]")
	cfgVal.Program.InertArtifact = writeFile(t, filepath.Join(base, "programs", "inert.so"), "inert")
	cfgVal.Program.ActiveArtifact = writeFile(t, filepath.Join(base, "programs", "active.so"), "active")
	cfgVal.Program.SettleSeconds = 0
	cfgVal.Scheduler.SubmitDelayMillis = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutArtifacts removes both program artifacts from disk.
func WithoutArtifacts() ConfigOption {
	return func(b *configBuilder) {
		for _, path := range []string{b.cfg.Program.InertArtifact, b.cfg.Program.ActiveArtifact} {
			if err := os.Remove(path); err != nil {
				b.t.Fatalf("remove artifact %s: %v", path, err)
			}
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the solana CLI is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"solana"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

func writeFile(t testing.TB, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

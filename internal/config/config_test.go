package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cosigner/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("COSIGNER_PRIVATE_KEY", "  env-key  ")
	t.Setenv("COSIGNER_RPC_URL", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "cosigner")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.APIBind != "127.0.0.1:3001" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Ledger.CosignerKey != "env-key" {
		t.Fatalf("expected cosigner key from env, got %q", cfg.Ledger.CosignerKey)
	}
	if cfg.Ledger.RPCURL != config.Default().Ledger.RPCURL {
		t.Fatalf("unexpected rpc url: %q", cfg.Ledger.RPCURL)
	}
	if !strings.HasPrefix(cfg.Program.InertArtifact, tempHome) {
		t.Fatalf("expected inert artifact under home, got %q", cfg.Program.InertArtifact)
	}
	if cfg.SettleInterval() != 5*time.Second {
		t.Fatalf("unexpected settle interval: %s", cfg.SettleInterval())
	}
	if cfg.TickInterval() != 5*time.Second {
		t.Fatalf("unexpected tick interval: %s", cfg.TickInterval())
	}
	if cfg.SubmitDelay() != time.Second {
		t.Fatalf("unexpected submit delay: %s", cfg.SubmitDelay())
	}
	if cfg.ConfirmTimeout() != time.Minute {
		t.Fatalf("unexpected confirm timeout: %s", cfg.ConfirmTimeout())
	}
	if cfg.LockPath() != filepath.Join(wantState, "cosignerd.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestLoadCustomPathOverridesDefaults(t *testing.T) {
	t.Setenv("COSIGNER_PRIVATE_KEY", "")
	t.Setenv("COSIGNER_RPC_URL", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"state_dir": "~/cosigner-state",
			"api_bind":  "0.0.0.0:9000",
		},
		"ledger": map[string]any{
			"rpc_url":      "http://localhost:8899",
			"commitment":   "Finalized",
			"cosigner_key": "file-key",
		},
		"program": map[string]any{
			"inert_artifact":  "~/programs/inert.so",
			"active_artifact": "~/programs/active.so",
			"settle_seconds":  0,
		},
		"scheduler": map[string]any{
			"tick_interval_seconds": 30,
			"submit_delay_ms":       250,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "cosigner-state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Ledger.Commitment != "finalized" {
		t.Fatalf("expected commitment to be lowercased, got %q", cfg.Ledger.Commitment)
	}
	if cfg.Ledger.CosignerKey != "file-key" {
		t.Fatalf("unexpected cosigner key: %q", cfg.Ledger.CosignerKey)
	}
	if cfg.Program.ActiveArtifact != filepath.Join(tempHome, "programs", "active.so") {
		t.Fatalf("unexpected active artifact: %q", cfg.Program.ActiveArtifact)
	}
	if cfg.SettleInterval() != 0 {
		t.Fatalf("expected zero settle interval, got %s", cfg.SettleInterval())
	}
	if cfg.TickInterval() != 30*time.Second {
		t.Fatalf("unexpected tick interval: %s", cfg.TickInterval())
	}
	if cfg.SubmitDelay() != 250*time.Millisecond {
		t.Fatalf("unexpected submit delay: %s", cfg.SubmitDelay())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestEnvRPCURLOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COSIGNER_RPC_URL", "http://127.0.0.1:8899")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Ledger.RPCURL != "http://127.0.0.1:8899" {
		t.Fatalf("expected env rpc url, got %q", cfg.Ledger.RPCURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "relative rpc url",
			mutate: func(c *config.Config) { c.Ledger.RPCURL = "localhost" },
			want:   "ledger.rpc_url",
		},
		{
			name:   "processed commitment",
			mutate: func(c *config.Config) { c.Ledger.Commitment = "processed" },
			want:   "stronger than processed",
		},
		{
			name:   "unknown commitment",
			mutate: func(c *config.Config) { c.Ledger.Commitment = "max" },
			want:   "ledger.commitment",
		},
		{
			name: "same artifact",
			mutate: func(c *config.Config) {
				c.Program.ActiveArtifact = c.Program.InertArtifact
			},
			want: "must point to different files",
		},
		{
			name:   "log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateSigningRequiresKeyMaterial(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateSigning(); err == nil || !strings.Contains(err.Error(), "COSIGNER_PRIVATE_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}

	cfg.Ledger.CosignerKey = "key"
	if err := cfg.ValidateSigning(); err == nil || !strings.Contains(err.Error(), "program_keypair_path") {
		t.Fatalf("expected missing program keypair error, got %v", err)
	}

	cfg.Program.ProgramKeypairPath = "/keys/program.json"
	cfg.Program.UpgradeAuthorityKeypairPath = "/keys/authority.json"
	if err := cfg.ValidateSigning(); err != nil {
		t.Fatalf("ValidateSigning returned error: %v", err)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COSIGNER_PRIVATE_KEY", "")
	t.Setenv("COSIGNER_RPC_URL", "")

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Program.SolanaBinary != "solana" {
		t.Fatalf("unexpected solana binary: %q", cfg.Program.SolanaBinary)
	}
	if !cfg.Notifications.RunCompleted {
		t.Fatal("expected run completed notifications enabled in sample")
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := config.ExpandPath("~/keys/id.json")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "keys", "id.json") {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if got, _ := config.ExpandPath(""); got != "" {
		t.Fatalf("expected empty path to stay empty, got %q", got)
	}
}

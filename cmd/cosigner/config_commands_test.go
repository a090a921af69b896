package main

import (
	"path/filepath"
	"strings"
	"testing"

	"cosigner/internal/config"
)

func TestConfigInitWritesLoadableSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "cosigner.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output: %q", out)
	}
	if _, _, exists, err := config.Load(target); err != nil || !exists {
		t.Fatalf("sample did not load: exists=%v err=%v", exists, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigValidateReportsSigningReadiness(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COSIGNER_PRIVATE_KEY", "")
	target := filepath.Join(t.TempDir(), "cosigner.toml")
	if _, err := runCLI(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}

	out, err := runCLI(t, "--config", target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Signing not ready") {
		t.Fatalf("expected signing warning, got %q", out)
	}
}

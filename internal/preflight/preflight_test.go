package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cosigner/internal/services"
	"cosigner/internal/testsupport"
)

type healthStub struct {
	err error
}

func (h healthStub) Health(context.Context) error { return h.err }

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFileReadable(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "program.so")
	if err := os.WriteFile(f, []byte("elf"), 0o600); err != nil {
		t.Fatal(err)
	}
	if result := CheckFileReadable("artifact", f); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckFileReadable("artifact", filepath.Join(dir, "missing.so")); result.Passed || result.Detail == "" {
		t.Fatalf("expected missing file failure, got %#v", result)
	}
	if result := CheckFileReadable("artifact", dir); result.Passed {
		t.Fatal("expected failure for directory")
	}
	if result := CheckFileReadable("artifact", ""); result.Passed || result.Detail != "not configured" {
		t.Fatalf("unexpected result for empty path: %#v", result)
	}
}

func TestCheckRPC(t *testing.T) {
	if result := CheckRPC(context.Background(), "http://rpc", healthStub{}); !result.Passed {
		t.Fatalf("expected healthy endpoint, got: %s", result.Detail)
	}
	result := CheckRPC(context.Background(), "http://rpc", healthStub{err: context.DeadlineExceeded})
	if result.Passed || result.Detail != "http://rpc (health check timed out)" {
		t.Fatalf("unexpected timeout result: %#v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_Passes(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg, healthStub{})
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}
	// state dir, two artifacts, two keypairs, solana, rpc
	if len(results) != 7 {
		t.Fatalf("expected 7 results, got %d", len(results))
	}
}

func TestRunAll_ChecksCosignerKeypairWhenNoInlineKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Ledger.CosignerKey = ""
	cfg.Ledger.CosignerKeypairPath = filepath.Join(testsupport.BaseDir(cfg), "missing.json")

	found := false
	for _, r := range RunAll(context.Background(), cfg, nil) {
		if r.Name == "Cosigner keypair" {
			found = true
			if r.Passed {
				t.Fatal("expected missing cosigner keypair to fail")
			}
		}
	}
	if !found {
		t.Fatal("expected cosigner keypair check in results")
	}
}

func TestRequireArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := RequireArtifacts(cfg); err != nil {
		t.Fatalf("RequireArtifacts returned error: %v", err)
	}

	missing := testsupport.NewConfig(t, testsupport.WithoutArtifacts())
	err := RequireArtifacts(missing)
	if err == nil {
		t.Fatal("expected missing artifacts error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

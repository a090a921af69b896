package main

import (
	"fmt"
	"strings"
	"testing"

	"cosigner/internal/api"
	"cosigner/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestHealthLines(t *testing.T) {
	lines := healthLines(api.HealthResponse{
		Status:          "ok",
		ProgramState:    "active",
		QueueLength:     2,
		ProcessedCount:  5,
		IsProcessing:    true,
		CosignerAddress: "Cosigner111",
		LastRun:         &api.RunSummary{Confirmed: 4, Failed: 1, RevertError: "deploy failed"},
	}, false)
	joined := strings.Join(lines, "\n")

	for _, want := range []string{
		"[WARN] Active",
		"[INFO] Processing queue",
		"2 pending, 5 processed",
		"4 confirmed, 1 failed; revert failed",
		"Cosigner111",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in status output:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "Upgrade authority") {
		t.Fatal("expected empty upgrade authority to be omitted")
	}
}

func TestPreflightLinesSummary(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "Inert artifact", Passed: true, Detail: "/p/inert.so"},
		{Name: "Active artifact", Detail: "/p/active.so (error: does not exist)"},
	}, false)
	last := lines[len(lines)-1]
	if !strings.Contains(last, "[ERROR] 1 of 2 checks failed") {
		t.Fatalf("unexpected summary line: %q", last)
	}
}

package deploy

import (
	"context"
	"os/exec"
	"reflect"
	"sort"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandExecutorForwardsLines(t *testing.T) {
	requireShell(t)
	var lines []string
	err := newCommandExecutor().Run(context.Background(), "sh", []string{"-c", "echo one; echo two >&2; printf three"}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sort.Strings(lines)
	if want := []string{"one", "three", "two"}; !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
}

func TestCommandExecutorReturnsWhenChildHoldsOutput(t *testing.T) {
	requireShell(t)
	executor := commandExecutor{waitDelay: 100 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := executor.Run(ctx, "sh", []string{"-c", "sleep 30 & echo started; sleep 30"}, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Run blocked for %s after the timeout", elapsed)
	}
}

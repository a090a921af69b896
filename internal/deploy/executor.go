package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Executor abstracts command execution for testability. onOutput receives
// every stdout and stderr line.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// defaultWaitDelay bounds how long Run waits for output pipes after the
// process exits or is killed. Children of solana can keep them open.
const defaultWaitDelay = 5 * time.Second

type commandExecutor struct {
	waitDelay time.Duration
}

func newCommandExecutor() commandExecutor {
	return commandExecutor{waitDelay: defaultWaitDelay}
}

func (e commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	var mu sync.Mutex
	stdout := &lineWriter{mu: &mu, onLine: onOutput}
	stderr := &lineWriter{mu: &mu, onLine: onOutput}

	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = e.waitDelay

	err := cmd.Run()
	stdout.flush()
	stderr.flush()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("wait command: %w", ctx.Err())
		}
		return fmt.Errorf("run command: %w", err)
	}
	return nil
}

// lineWriter splits written bytes into lines. Writers sharing mu deliver
// lines to onLine one at a time.
type lineWriter struct {
	mu     *sync.Mutex
	buf    []byte
	onLine func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		w.emit(string(w.buf[:idx]))
		w.buf = w.buf[idx+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = nil
	}
}

func (w *lineWriter) emit(line string) {
	if w.onLine != nil {
		w.onLine(strings.TrimRight(line, "\r"))
	}
}

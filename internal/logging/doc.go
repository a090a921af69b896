// Package logging assembles structured slog loggers and formatting helpers used
// across the cosigner daemon and CLI.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so relay code can tag log lines
// with queue item IDs, program variants, and correlation IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging

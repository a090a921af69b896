// Package services defines shared utilities consumed by the relay core and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, program variants, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep validation,
//     deployment, submission, and overlap failures distinguishable.
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability) stays uniform across the daemon.
package services

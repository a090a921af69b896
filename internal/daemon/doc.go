// Package daemon coordinates the long-running cosigner process.
//
// It wires configuration, the in-memory queue, the program-state controller,
// the relay pipeline, and the scheduler into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon serves the
// HTTP API that wallets submit transactions to and operators inspect.
//
// Keep orchestration logic here: run semantics live in the scheduler and
// deployment semantics in the program controller, while the daemon focuses
// on startup, shutdown, and request handling.
package daemon

// Package main hosts the cosigner CLI entrypoint and command graph.
//
// "cosigner serve" runs the daemon in the foreground. Every other command
// except config and preflight talks to a running daemon over its HTTP API,
// rendering tables for humans or JSON with --json.
package main

// Package ledger adapts the Solana RPC API for the relay.
//
// It decodes wire-format transactions, appends the cosigner signature at its
// required-signer slot, submits with preflight simulation, and polls
// signature status until the configured commitment is reached.
package ledger

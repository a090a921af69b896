// Package relay processes one queued transaction: decode, cosign, submit,
// await confirmation, and classify the result into a queue outcome.
package relay

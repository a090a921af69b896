// Package program tracks which variant of the on-chain program is deployed
// and serializes transitions between the inert and active variants.
//
// The Controller calls its Deployer only when the requested variant differs
// from the current one, refuses concurrent transitions instead of queueing
// them, and waits a settle interval after each successful deployment before
// releasing its guard.
package program

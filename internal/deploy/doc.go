// Package deploy replaces the on-chain program by shelling out to the solana
// CLI. Command execution goes through an injectable Executor so tests never
// spawn processes.
package deploy

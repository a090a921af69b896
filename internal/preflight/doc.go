// Package preflight provides readiness checks for the files, binaries and
// ledger endpoint the daemon depends on.
//
// These checks run in two contexts:
//   - Daemon startup calls RequireArtifacts and refuses to start when either
//     program artifact is missing or unreadable.
//   - The CLI "cosigner preflight" command runs RunAll and prints every
//     result.
package preflight

// Package config loads, normalizes, and validates cosigner configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// COSIGNER_PRIVATE_KEY and COSIGNER_RPC_URL. The Config type centralizes every
// knob the daemon and CLI need, allowing ledger endpoints, program artifacts,
// and scheduler timing to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

// Package notifications delivers relay events via ntfy.
//
// The default implementation publishes to the ntfy topic URL configured in
// config.toml and degrades to a no-op when no topic is set. Callers depend
// only on the Service interface and enumerated Event values.
package notifications

// Package api defines the JSON wire types shared by the daemon's HTTP
// server and the CLI client, plus converters from internal models.
//
// # Key Types
//
// TransactionView: one relayed transaction, pending (with queue position)
// or historical (with signature or error).
//
// HealthResponse/StateResponse: program state, queue length and the
// processing and deploying flags.
//
// SubmitRequest/ChangeStateRequest: request bodies. Both accept the legacy
// field names older wallet front ends send.
//
// # Converters
//
// FromItem and FromLookup map queue records to TransactionView. FromReport
// summarizes a scheduler run.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Enumerations (queue.Status,
// program.Variant) are lowercase strings. Timestamps use RFC3339 with
// milliseconds in UTC.
package api

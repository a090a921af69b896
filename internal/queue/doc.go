// Package queue stores relayed transactions and their outcomes.
//
// The Store is backed by an in-memory SQLite database so queued items never
// outlive the process. Pending items are served strictly in enqueue order and
// each item moves exactly once from queued to a terminal status, at which
// point it appears in the history log in completion order.
package queue

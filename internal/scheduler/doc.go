// Package scheduler drives batch runs over the relay queue.
//
// A run switches the program to its active variant, drains pending items
// one at a time in FIFO order (re-reading the queue after every item so late
// submissions join the current run), then switches the program back to
// inert. At most one run is in flight; the periodic ticker, delayed
// post-submission triggers, and manual requests all go through Trigger so
// whichever fires first wins and the rest are no-ops.
package scheduler

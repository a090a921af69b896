package queue

import "errors"

var (
	// ErrNotFound indicates no pending or historical item carries the requested id.
	ErrNotFound = errors.New("queue item not found")
	// ErrInvalidItem indicates an enqueue request without payload or requester.
	ErrInvalidItem = errors.New("invalid queue item")
	// ErrAlreadyFinished indicates the item already reached a terminal status.
	ErrAlreadyFinished = errors.New("queue item already finished")
	// ErrInvalidOutcome indicates a completion without a terminal status.
	ErrInvalidOutcome = errors.New("invalid queue outcome")
)

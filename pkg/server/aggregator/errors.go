package aggregator

import "errors"

var (
	// ErrNoObserver indicates that the aggregator was built without an observer.
	ErrNoObserver = errors.New("no observer configured")
	// ErrInvalidConcurrency indicates a negative concurrency limit.
	ErrInvalidConcurrency = errors.New("concurrency limit must not be negative")
)

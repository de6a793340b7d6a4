package poller

import "errors"

var (
	// ErrAlreadyStarted indicates Start was called on a running scheduler.
	ErrAlreadyStarted = errors.New("scheduler already started")
	// ErrStopped indicates the scheduler was stopped and cannot be restarted.
	ErrStopped = errors.New("scheduler stopped")
	// ErrInvalidInterval indicates a polling interval below the minimum.
	ErrInvalidInterval = errors.New("invalid polling interval")
	// ErrInvalidOverlap indicates an unknown overlap policy.
	ErrInvalidOverlap = errors.New("invalid overlap policy")
	// ErrNoRegistry indicates the scheduler was built without a source registry.
	ErrNoRegistry = errors.New("no source registry")
	// ErrNoCollector indicates the scheduler was built without a collector.
	ErrNoCollector = errors.New("no collector")
)

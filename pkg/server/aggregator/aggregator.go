package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/StrathCole/spread-go/pkg/logging"
	"github.com/StrathCole/spread-go/pkg/metrics"
	"github.com/StrathCole/spread-go/pkg/server/sources"
)

// Aggregator runs one observation per descriptor concurrently and waits
// for all of them. The wait is bounded by the observer's per-source timeout.
type Aggregator struct {
	observer Observer
	logger   *logging.Logger
	limit    int
	now      func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency caps the number of sources fetched at once. Zero means unlimited.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		a.limit = n
	}
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// New creates an aggregator.
func New(observer Observer, logger *logging.Logger, opts ...Option) (*Aggregator, error) {
	if observer == nil {
		return nil, fmt.Errorf("%w", ErrNoObserver)
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	a := &Aggregator{
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConcurrency, a.limit)
	}
	return a, nil
}

// Collect observes every descriptor and returns the snapshot of valid prices.
// It never fails: when every source is unavailable the snapshot is empty.
func (a *Aggregator) Collect(ctx context.Context, descs []sources.Descriptor) Snapshot {
	start := time.Now()

	// one slot per descriptor keeps registry order regardless of completion order
	results := make([]sources.Observation, len(descs))

	var g errgroup.Group
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	for i, d := range descs {
		g.Go(func() error {
			results[i] = a.observer.Observe(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	valid := make([]sources.Observation, 0, len(results))
	var failed []string
	for _, obs := range results {
		if obs.Valid() {
			valid = append(valid, obs)
		} else {
			failed = append(failed, obs.Source)
		}
	}

	snapshot := Snapshot{
		ID:           uuid.New(),
		Time:         a.now().UTC(),
		Observations: valid,
	}

	duration := time.Since(start)
	metrics.RecordAggregation(len(valid), duration)

	a.logger.Debug("Collected snapshot",
		"cycle_id", snapshot.ID.String(),
		"valid", len(valid),
		"total", len(descs),
		"unavailable", failed,
		"duration", duration,
	)

	return snapshot
}

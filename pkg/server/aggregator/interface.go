// Package aggregator fans a poll cycle out to every source and collects
// the valid observations into a snapshot.
package aggregator

import (
	"context"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

// Observer fetches one source. Implementations never fail; an unavailable
// source comes back as an observation with a null price.
type Observer interface {
	Observe(ctx context.Context, d sources.Descriptor) sources.Observation
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, d sources.Descriptor) sources.Observation

// Observe calls f(ctx, d).
func (f ObserverFunc) Observe(ctx context.Context, d sources.Descriptor) sources.Observation {
	return f(ctx, d)
}

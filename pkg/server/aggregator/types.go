package aggregator

import (
	"time"

	"github.com/google/uuid"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

// Snapshot is the set of valid observations from one poll cycle, in
// registry order. Every observation has a strictly positive price.
type Snapshot struct {
	ID           uuid.UUID
	Time         time.Time
	Observations []sources.Observation
}

// Len returns the number of valid observations.
func (s Snapshot) Len() int {
	return len(s.Observations)
}

// Empty reports whether no source produced a price this cycle.
func (s Snapshot) Empty() bool {
	return len(s.Observations) == 0
}

// Sources returns the names of the sources in the snapshot.
func (s Snapshot) Sources() []string {
	names := make([]string, 0, len(s.Observations))
	for _, o := range s.Observations {
		names = append(names, o.Source)
	}
	return names
}

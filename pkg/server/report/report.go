// Package report defines the per-cycle output record and the cell holding
// the most recent one.
package report

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/StrathCole/spread-go/pkg/server/aggregator"
	"github.com/StrathCole/spread-go/pkg/server/arbitrage"
	"github.com/StrathCole/spread-go/pkg/server/sources"
)

// Report is the result of one completed poll cycle. A nil Signal means no
// source produced a price.
type Report struct {
	CycleID uuid.UUID             `json:"cycle_id"`
	Asset   string                `json:"asset"`
	Time    time.Time             `json:"timestamp"`
	Prices  []sources.Observation `json:"prices"`
	Signal  *arbitrage.Signal     `json:"signal"`
}

// New builds a report from a snapshot and its computed signal.
func New(asset string, snap aggregator.Snapshot, sig arbitrage.Signal, ok bool) Report {
	prices := snap.Observations
	if prices == nil {
		prices = []sources.Observation{}
	}

	r := Report{
		CycleID: snap.ID,
		Asset:   asset,
		Time:    snap.Time,
		Prices:  prices,
	}
	if ok {
		r.Signal = &sig
	}
	return r
}

// Available reports whether the report carries a signal.
func (r Report) Available() bool {
	return r.Signal != nil
}

// Store holds the latest report. The zero value is ready to use.
type Store struct {
	latest atomic.Pointer[Report]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Publish replaces the latest report.
func (s *Store) Publish(_ context.Context, r Report) {
	s.latest.Store(&r)
}

// Latest returns the most recent report, or false before the first cycle.
func (s *Store) Latest() (Report, bool) {
	r := s.latest.Load()
	if r == nil {
		return Report{}, false
	}
	return *r, true
}

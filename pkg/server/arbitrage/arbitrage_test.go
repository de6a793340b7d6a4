package arbitrage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/spread-go/pkg/server/aggregator"
	"github.com/StrathCole/spread-go/pkg/server/sources"
)

func snapshot(pairs ...string) aggregator.Snapshot {
	var obs []sources.Observation
	for i := 0; i+1 < len(pairs); i += 2 {
		obs = append(obs, sources.Observation{
			Source: pairs[i],
			Price:  decimal.NewNullDecimal(decimal.RequireFromString(pairs[i+1])),
		})
	}
	return aggregator.Snapshot{Observations: obs}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		snap      aggregator.Snapshot
		buy       Quote
		sell      Quote
		spread    string
		spreadPct string
	}{
		{
			name:      "three sources",
			snap:      snapshot("X", "1.00", "Y", "1.02", "Z", "0.98"),
			buy:       Quote{Source: "Z", Price: dec("0.98")},
			sell:      Quote{Source: "Y", Price: dec("1.02")},
			spread:    "0.04",
			spreadPct: "4.0816",
		},
		{
			name:      "single source",
			snap:      snapshot("X", "1.0"),
			buy:       Quote{Source: "X", Price: dec("1.0")},
			sell:      Quote{Source: "X", Price: dec("1.0")},
			spread:    "0",
			spreadPct: "0",
		},
		{
			name:      "ties keep first",
			snap:      snapshot("A", "1.0", "B", "1.0", "C", "1.0"),
			buy:       Quote{Source: "A", Price: dec("1.0")},
			sell:      Quote{Source: "A", Price: dec("1.0")},
			spread:    "0",
			spreadPct: "0",
		},
		{
			name:      "tie on extremes",
			snap:      snapshot("A", "0.99", "B", "1.01", "C", "0.99", "D", "1.01"),
			buy:       Quote{Source: "A", Price: dec("0.99")},
			sell:      Quote{Source: "B", Price: dec("1.01")},
			spread:    "0.02",
			spreadPct: "2.0202",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, ok := Compute(tt.snap)
			require.True(t, ok)
			assert.Equal(t, tt.buy.Source, sig.BestBuy.Source)
			assert.True(t, tt.buy.Price.Equal(sig.BestBuy.Price))
			assert.Equal(t, tt.sell.Source, sig.BestSell.Source)
			assert.True(t, tt.sell.Price.Equal(sig.BestSell.Price))
			assert.True(t, dec(tt.spread).Equal(sig.Spread), "spread %s", sig.Spread)
			assert.True(t, dec(tt.spreadPct).Equal(sig.SpreadPct), "spread pct %s", sig.SpreadPct)
		})
	}
}

func TestCompute_Empty(t *testing.T) {
	sig, ok := Compute(aggregator.Snapshot{})
	assert.False(t, ok)
	assert.Equal(t, Signal{}, sig)
}

func TestCompute_SkipsInvalidObservations(t *testing.T) {
	snap := snapshot("X", "1.01", "Y", "0.99")
	snap.Observations = append([]sources.Observation{
		{Source: "Null"},
		{Source: "Zero", Price: decimal.NewNullDecimal(decimal.Zero)},
	}, snap.Observations...)

	sig, ok := Compute(snap)
	require.True(t, ok)
	assert.Equal(t, "Y", sig.BestBuy.Source)
	assert.Equal(t, "X", sig.BestSell.Source)
	assert.True(t, dec("0.02").Equal(sig.Spread))

	_, ok = Compute(aggregator.Snapshot{Observations: []sources.Observation{{Source: "Null"}}})
	assert.False(t, ok)
}

func TestCompute_Idempotent(t *testing.T) {
	snap := snapshot("A", "1.0003", "B", "0.9991", "C", "1.0010", "D", "1.0000")
	first, ok := Compute(snap)
	require.True(t, ok)
	second, ok := Compute(snap)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestCompute_Bounds(t *testing.T) {
	snap := snapshot("A", "1.0003", "B", "0.9991", "C", "1.0010", "D", "1.0000", "E", "0.9995")
	sig, ok := Compute(snap)
	require.True(t, ok)

	for _, o := range snap.Observations {
		assert.True(t, sig.BestBuy.Price.LessThanOrEqual(o.Price.Decimal))
		assert.True(t, sig.BestSell.Price.GreaterThanOrEqual(o.Price.Decimal))
	}
	assert.True(t, sig.Spread.Equal(sig.BestSell.Price.Sub(sig.BestBuy.Price)))
	assert.False(t, sig.Spread.IsNegative())
	assert.True(t, sig.Profitable())
}

func TestCompute_DoesNotMutateSnapshot(t *testing.T) {
	snap := snapshot("A", "1.02", "B", "0.98")
	_, _ = Compute(snap)
	assert.Equal(t, "A", snap.Observations[0].Source)
	assert.Equal(t, "B", snap.Observations[1].Source)
}

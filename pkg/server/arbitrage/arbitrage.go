// Package arbitrage derives the cross-source spread signal from a snapshot.
package arbitrage

import (
	"github.com/shopspring/decimal"

	"github.com/StrathCole/spread-go/pkg/server/aggregator"
)

// PctPlaces is the rounding applied to SpreadPct.
const PctPlaces = 4

var hundred = decimal.NewFromInt(100)

// Quote is a price offered by a named source.
type Quote struct {
	Source string          `json:"source"`
	Price  decimal.Decimal `json:"price"`
}

// Signal is the informational arbitrage view of one snapshot: buy where the
// price is lowest, sell where it is highest.
type Signal struct {
	BestBuy   Quote           `json:"best_buy"`
	BestSell  Quote           `json:"best_sell"`
	Spread    decimal.Decimal `json:"spread"`
	SpreadPct decimal.Decimal `json:"spread_pct"`
}

// Compute returns the signal for a snapshot, or false when it holds no
// valid price. Ties keep the first source in snapshot order.
func Compute(s aggregator.Snapshot) (Signal, bool) {
	var buy, sell Quote
	found := false

	for _, o := range s.Observations {
		if !o.Valid() {
			continue
		}
		q := Quote{Source: o.Source, Price: o.Price.Decimal}
		if !found {
			buy, sell = q, q
			found = true
			continue
		}
		if q.Price.LessThan(buy.Price) {
			buy = q
		}
		if q.Price.GreaterThan(sell.Price) {
			sell = q
		}
	}
	if !found {
		return Signal{}, false
	}

	spread := sell.Price.Sub(buy.Price)
	sig := Signal{
		BestBuy:   buy,
		BestSell:  sell,
		Spread:    spread,
		SpreadPct: decimal.Zero,
	}
	if buy.Price.IsPositive() {
		sig.SpreadPct = spread.Div(buy.Price).Mul(hundred).Round(PctPlaces)
	}
	return sig, true
}

// Profitable reports whether buying at BestBuy and selling at BestSell
// yields a positive return per unit.
func (s Signal) Profitable() bool {
	return s.Spread.IsPositive()
}

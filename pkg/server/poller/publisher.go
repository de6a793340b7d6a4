package poller

import (
	"context"
	"fmt"

	"github.com/StrathCole/spread-go/pkg/logging"
	"github.com/StrathCole/spread-go/pkg/server/report"
)

// Publisher receives every completed report.
type Publisher interface {
	Publish(ctx context.Context, r report.Report)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, r report.Report)

// Publish calls f(ctx, r).
func (f PublisherFunc) Publish(ctx context.Context, r report.Report) {
	f(ctx, r)
}

// LogPublisher writes one line per cycle.
type LogPublisher struct {
	logger *logging.Logger
}

// NewLogPublisher creates a publisher that logs reports.
func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(_ context.Context, r report.Report) {
	if r.Signal == nil {
		p.logger.Warn("Prices unavailable",
			"cycle_id", r.CycleID.String(),
			"asset", r.Asset)
		return
	}

	prices := make(map[string]string, len(r.Prices))
	for _, o := range r.Prices {
		prices[o.Source] = o.Price.Decimal.String()
	}

	sig := r.Signal
	p.logger.Info("Arbitrage signal",
		"cycle_id", r.CycleID.String(),
		"asset", r.Asset,
		"prices", prices,
		"best_buy", fmt.Sprintf("%s@%s", sig.BestBuy.Source, sig.BestBuy.Price),
		"best_sell", fmt.Sprintf("%s@%s", sig.BestSell.Source, sig.BestSell.Price),
		"spread", sig.Spread.String(),
		"spread_pct", sig.SpreadPct.String())
}

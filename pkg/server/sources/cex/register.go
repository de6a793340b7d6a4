// Package cex implements price extractors for centralized exchange ticker APIs.
package cex

import (
	"github.com/StrathCole/spread-go/pkg/server/sources"
)

// Extractor kinds provided by this package.
const (
	KindBinance = "binance"
	KindKucoin  = "kucoin"
	KindKraken  = "kraken"
	KindBybit   = "bybit"
	KindGateio  = "gateio"
	KindHuobi   = "huobi"
	KindOKX     = "okx"
)

func init() {
	// Register all CEX extractors
	sources.RegisterExtractor(KindBinance, NewBinanceExtractor)
	sources.RegisterExtractor(KindKucoin, NewKucoinExtractor)
	sources.RegisterExtractor(KindKraken, NewKrakenExtractor)
	sources.RegisterExtractor(KindBybit, NewBybitExtractor)
	sources.RegisterExtractor(KindGateio, NewGateioExtractor)
	sources.RegisterExtractor(KindHuobi, NewHuobiExtractor)
	sources.RegisterExtractor(KindOKX, NewOKXExtractor)
}

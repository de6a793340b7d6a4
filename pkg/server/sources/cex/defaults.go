package cex

import (
	"github.com/StrathCole/spread-go/pkg/server/sources"
)

// Builtin describes one of the built-in USDT/USD sources.
type Builtin struct {
	Name     string
	Kind     string
	Endpoint string
}

// Builtins lists the built-in sources in polling order.
var Builtins = []Builtin{
	{Name: "Binance", Kind: KindBinance, Endpoint: binanceAPIURL},
	{Name: "KuCoin", Kind: KindKucoin, Endpoint: kucoinAPIURL},
	{Name: "Kraken", Kind: KindKraken, Endpoint: krakenAPIURL},
	{Name: "Bybit", Kind: KindBybit, Endpoint: bybitAPIURL},
	{Name: "Gate.io", Kind: KindGateio, Endpoint: gateioAPIURL},
	{Name: "Huobi", Kind: KindHuobi, Endpoint: huobiAPIURL},
	{Name: "OKX", Kind: KindOKX, Endpoint: okxAPIURL},
}

// DefaultDescriptors returns descriptors for the built-in sources with
// default extractor parameters.
func DefaultDescriptors() []sources.Descriptor {
	descs := make([]sources.Descriptor, 0, len(Builtins))
	for _, b := range Builtins {
		d, err := sources.NewDescriptor(b.Name, b.Endpoint, b.Kind, nil)
		if err != nil {
			// built-in kinds are registered in init
			panic(err)
		}
		descs = append(descs, d)
	}
	return descs
}

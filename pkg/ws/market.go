package ws

import (
	"context"

	"go.uber.org/zap"
)

// MarketStream subscribes to the public market channel for a set of
// assets and emits best-quote updates.
type MarketStream struct {
	url      string
	assetIDs []string
	out      chan<- QuoteUpdate
	log      *zap.Logger
}

func NewMarketStream(url string, assetIDs []string, out chan<- QuoteUpdate, log *zap.Logger) *MarketStream {
	return &MarketStream{url: url, assetIDs: assetIDs, out: out, log: log}
}

type marketSubscribe struct {
	AssetIDs []string `json:"assets_ids"`
	Type     string   `json:"type"`
}

// Run blocks until ctx is cancelled, reconnecting as needed.
func (s *MarketStream) Run(ctx context.Context) {
	sub := marketSubscribe{AssetIDs: s.assetIDs, Type: "market"}
	runStream(ctx, s.url, sub, func(raw []byte) error {
		updates, err := ParseMarketUpdates(raw)
		if err != nil {
			s.log.Warn("bad market frame", zap.Error(err))
			return nil
		}
		for _, u := range updates {
			select {
			case s.out <- u:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}, s.log)
}

package interfaces

import (
	"context"

	"astock-agent/internal/pricelog"
)

type Calendar interface {
	IsTradingSession(ctx context.Context, ts string) bool
	PreviousSession(ctx context.Context, ts string) string
	PendingSessions(ctx context.Context, lastKnown, end string) []string
}

type PriceReader interface {
	OpeningPrices(ctx context.Context, ts string, symbols []string) pricelog.Prices
	OpenAndClosePrices(ctx context.Context, ts string, symbols []string) (buy, sell pricelog.Prices)
	NameMap(ctx context.Context) map[string]string
	History(ctx context.Context, symbol, ts string) []pricelog.Point
}

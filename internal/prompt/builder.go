// Package prompt assembles what an agent sees at the start of each decision
// step and renders it as the system prompt.
package prompt

import (
	"context"
	"math"

	"astock-agent/internal/interfaces"
	"astock-agent/internal/news"
	"astock-agent/internal/pricelog"
	"astock-agent/internal/profit"
	"astock-agent/internal/ta"
	"astock-agent/internal/types"
)

// SentimentSource reports news sentiment for a symbol.
type SentimentSource interface {
	Enabled() bool
	GetSentiment(ctx context.Context, symbol string) news.SymbolSentiment
}

type Builder struct {
	prices    interfaces.PriceReader
	market    string
	symbols   []string
	sentiment SentimentSource
}

type Option func(*Builder)

// WithSentiment adds news sentiment for held symbols.
func WithSentiment(s SentimentSource) Option {
	return func(b *Builder) { b.sentiment = s }
}

func NewBuilder(prices interfaces.PriceReader, market string, symbols []string, opts ...Option) *Builder {
	b := &Builder{prices: prices, market: market, symbols: symbols}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Builder) Symbols() []string { return b.symbols }

// Build gathers positions, prices and profit for agent l at session ts.
func (b *Builder) Build(ctx context.Context, l interfaces.Ledger, ts string) types.Situation {
	opening := l.InitialPosition(ctx, ts)
	current, _ := l.LatestPosition(ctx, ts)
	prevBuy, prevSell := b.prices.OpenAndClosePrices(ctx, ts, b.symbols)
	gains := profit.SessionProfit(prevBuy, prevSell, opening, b.symbols)

	sit := types.Situation{
		Agent:       l.Agent(),
		Session:     ts,
		Market:      b.market,
		Symbols:     b.symbols,
		Opening:     opening,
		Current:     current,
		PrevBuy:     prevBuy,
		PrevSell:    prevSell,
		TodayBuy:    b.prices.OpeningPrices(ctx, ts, b.symbols),
		Profit:      gains,
		TotalProfit: profit.Total(gains),
		Technicals:  b.technicals(ctx, ts),
	}
	// Display names are only shown for A-shares, where tickers are numeric.
	if b.market == pricelog.MarketCN {
		sit.Names = b.prices.NameMap(ctx)
	}
	if b.sentiment != nil && b.sentiment.Enabled() {
		sit.Sentiment = map[string]news.SymbolSentiment{}
		for _, sym := range current.Holdings().Symbols() {
			sit.Sentiment[sym] = b.sentiment.GetSentiment(ctx, sym)
		}
	}
	return sit
}

// technicals computes indicators from the sell prices strictly before ts.
// Symbols without any history are left out.
func (b *Builder) technicals(ctx context.Context, ts string) map[string]ta.Indicators {
	out := map[string]ta.Indicators{}
	for _, sym := range b.symbols {
		points := b.prices.History(ctx, sym, ts)
		closes := make([]float64, 0, len(points))
		for _, p := range points {
			if p.Sell != nil && !math.IsNaN(*p.Sell) {
				closes = append(closes, *p.Sell)
			}
		}
		if len(closes) == 0 {
			continue
		}
		out[sym] = ta.Compute(closes)
	}
	return out
}

package pricelog

import (
	"context"
)

// Prices maps a symbol to a price; nil means unknown.
type Prices map[string]*float64

// Get returns the price of symbol and whether it is known.
func (p Prices) Get(symbol string) (float64, bool) {
	v := p[symbol]
	if v == nil {
		return 0, false
	}
	return *v, true
}

// SessionResolver finds the trading session preceding a timestamp.
type SessionResolver interface {
	PreviousSession(ctx context.Context, ts string) string
}

// Reader answers price queries against a market's logs. It never returns
// errors: gaps in the data come back as nil prices.
type Reader struct {
	store    *Store
	sessions SessionResolver
}

func NewReader(store *Store, sessions SessionResolver) *Reader {
	return &Reader{store: store, sessions: sessions}
}

func (r *Reader) Store() *Store { return r.store }

// OpeningPrices returns the buy price of each symbol at ts.
func (r *Reader) OpeningPrices(ctx context.Context, ts string, symbols []string) Prices {
	idx := r.store.IndexFor(ctx, ts)
	out := make(Prices, len(symbols))
	for _, sym := range symbols {
		out[sym] = nil
		if bar, ok := idx.Bar(sym, ts); ok {
			out[sym] = bar.Buy
		}
	}
	return out
}

// OpenAndClosePrices returns buy and sell prices at the session before ts.
// A symbol without a bar on exactly that session is nil in both maps;
// earlier sessions are not searched.
func (r *Reader) OpenAndClosePrices(ctx context.Context, ts string, symbols []string) (buy, sell Prices) {
	buy = make(Prices, len(symbols))
	sell = make(Prices, len(symbols))
	for _, sym := range symbols {
		buy[sym] = nil
		sell[sym] = nil
	}

	idx := r.store.IndexFor(ctx, ts)
	if idx.Missing {
		return buy, sell
	}

	prev := r.sessions.PreviousSession(ctx, ts)
	for _, sym := range symbols {
		if bar, ok := idx.Bar(sym, prev); ok {
			buy[sym] = bar.Buy
			sell[sym] = bar.Sell
		}
	}
	return buy, sell
}

// NameMap maps symbols to display names from the daily log.
func (r *Reader) NameMap(ctx context.Context) map[string]string {
	return r.store.DailyIndex(ctx).NameMap()
}

// History returns symbol's bars before ts from the log of ts's granularity.
func (r *Reader) History(ctx context.Context, symbol, ts string) []Point {
	return r.store.IndexFor(ctx, ts).SeriesBefore(symbol, ts)
}

// Package profit attributes price drift over a session to held positions.
package profit

import (
	"github.com/shopspring/decimal"

	"astock-agent/internal/ledger"
	"astock-agent/internal/pricelog"
)

// Places is the rounding precision of every reported profit.
const Places = 4

// Session maps each symbol to its profit over one session.
type Session map[string]float64

// SessionProfit returns (sell - buy) * quantity for every symbol, rounded to
// four places. A symbol without both prices or without a positive holding
// gets exactly 0.
func SessionProfit(buy, sell pricelog.Prices, held ledger.Positions, symbols []string) Session {
	out := make(Session, len(symbols))
	for _, sym := range symbols {
		out[sym] = 0
		qty := held[sym]
		if qty <= 0 {
			continue
		}
		b, okBuy := buy.Get(sym)
		s, okSell := sell.Get(sym)
		if !okBuy || !okSell {
			continue
		}
		v, _ := decimal.NewFromFloat(s).
			Sub(decimal.NewFromFloat(b)).
			Mul(decimal.NewFromFloat(qty)).
			Round(Places).
			Float64()
		out[sym] = v
	}
	return out
}

// Total sums the per-symbol profits, rounded to four places.
func Total(p Session) float64 {
	sum := decimal.Zero
	for _, v := range p {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	v, _ := sum.Round(Places).Float64()
	return v
}

// Value returns cash plus every holding marked at prices. Holdings without a
// price are left out and reported in missing.
func Value(held ledger.Positions, prices pricelog.Prices) (total float64, missing []string) {
	sum := decimal.NewFromFloat(held.Cash())
	for _, sym := range held.Symbols() {
		qty := held[sym]
		if qty == 0 {
			continue
		}
		p, ok := prices.Get(sym)
		if !ok {
			missing = append(missing, sym)
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(p).Mul(decimal.NewFromFloat(qty)))
	}
	total, _ = sum.Round(Places).Float64()
	return total, missing
}

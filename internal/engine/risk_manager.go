package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"astock-agent/internal/pricelog"
)

// LotSize is the A-share board lot.
const LotSize = 100

// rules are the market constraints a trade must satisfy.
type rules struct {
	lots bool
	t1   bool
	// universe restricts tradable symbols; empty allows any.
	universe map[string]bool
}

func rulesFor(market string, symbols []string) rules {
	r := rules{universe: make(map[string]bool, len(symbols))}
	for _, s := range symbols {
		r.universe[s] = true
	}
	if market == pricelog.MarketCN {
		r.lots = true
		r.t1 = true
	}
	return r
}

// validate explains why a trade cannot be executed, or returns nil.
func (r rules) validate(b *book, action, symbol string, amount float64, price *float64) error {
	if len(r.universe) > 0 && !r.universe[symbol] {
		return fmt.Errorf("symbol %s is not tradable", symbol)
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("invalid amount %v", amount)
	}
	if r.lots && (amount != math.Trunc(amount) || int64(amount)%LotSize != 0) {
		return fmt.Errorf("amount %v of %s is not a multiple of %d shares", amount, symbol, LotSize)
	}
	if price == nil {
		return fmt.Errorf("no buy price for %s in this session", symbol)
	}

	switch action {
	case actionBuy:
		cost := decimal.NewFromFloat(*price).Mul(decimal.NewFromFloat(amount))
		if cost.GreaterThan(decimal.NewFromFloat(b.cash())) {
			return fmt.Errorf("insufficient cash: buying %v %s costs %s, available %s",
				amount, symbol, cost.StringFixed(2), decimal.NewFromFloat(b.cash()).StringFixed(2))
		}
	case actionSell:
		avail := b.sellable(symbol, r.t1)
		if amount > avail {
			if r.t1 && b.bought[symbol] > 0 {
				return fmt.Errorf("insufficient sellable shares of %s: have %v, %v bought this session settle T+1",
					symbol, b.held(symbol), b.bought[symbol])
			}
			return fmt.Errorf("insufficient shares of %s: have %v, selling %v", symbol, b.held(symbol), amount)
		}
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
	return nil
}

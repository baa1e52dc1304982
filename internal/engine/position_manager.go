package engine

import (
	"github.com/shopspring/decimal"

	"astock-agent/internal/ledger"
	"astock-agent/internal/profit"
)

// book tracks an agent's positions while a session is in progress.
type book struct {
	positions ledger.Positions
	// bought counts shares acquired in this session per symbol; they are
	// not sellable until the next session under T+1.
	bought map[string]float64
}

func newBook(p ledger.Positions) *book {
	return &book{positions: p.Clone(), bought: map[string]float64{}}
}

func (b *book) current() ledger.Positions {
	return b.positions.Clone()
}

func (b *book) cash() float64 { return b.positions.Cash() }

func (b *book) held(symbol string) float64 { return b.positions[symbol] }

// sellable is what can leave the book now; with t1 set, shares bought in
// this session are held back.
func (b *book) sellable(symbol string, t1 bool) float64 {
	q := b.positions[symbol]
	if t1 {
		q -= b.bought[symbol]
	}
	if q < 0 {
		return 0
	}
	return q
}

// apply returns the positions after the trade without changing the book.
func (b *book) apply(action, symbol string, amount, price float64) ledger.Positions {
	next := b.positions.Clone()
	if next == nil {
		next = ledger.Positions{}
	}
	value := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(amount))
	cash := decimal.NewFromFloat(next.Cash())
	qty := decimal.NewFromFloat(next[symbol])
	amt := decimal.NewFromFloat(amount)

	switch action {
	case actionBuy:
		cash = cash.Sub(value)
		qty = qty.Add(amt)
	case actionSell:
		cash = cash.Add(value)
		qty = qty.Sub(amt)
	}
	next[ledger.CashKey], _ = cash.Round(profit.Places).Float64()
	next[symbol], _ = qty.Float64()
	return next
}

// commit makes next the book's positions.
func (b *book) commit(action, symbol string, amount float64, next ledger.Positions) {
	if action == actionBuy {
		b.bought[symbol] += amount
	}
	b.positions = next
}

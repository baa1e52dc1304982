package engine

import (
	"context"
	"fmt"

	"astock-agent/internal/interfaces"
	"astock-agent/internal/ledger"
	"astock-agent/internal/logger"
	"astock-agent/internal/pricelog"
	"astock-agent/internal/types"
)

const (
	actionBuy  = types.ActionBuy
	actionSell = types.ActionSell
)

// orderExecutor fills decisions at the session's buy price and records them
// in the ledger.
type orderExecutor struct {
	ledger interfaces.Ledger
	rules  rules
}

func newOrderExecutor(l interfaces.Ledger, r rules) *orderExecutor {
	return &orderExecutor{ledger: l, rules: r}
}

// execute applies d to b. A rejected trade returns a nil snapshot and the
// reason; err is reserved for ledger write failures.
func (oe *orderExecutor) execute(ctx context.Context, session string, d types.Decision, prices pricelog.Prices, b *book) (snap *ledger.Snapshot, rejected error, err error) {
	price := prices[d.Symbol]
	if why := oe.rules.validate(b, d.Action, d.Symbol, d.Amount, price); why != nil {
		logger.Warn(ctx, "Trade rejected",
			"agent", oe.ledger.Agent(),
			"session", session,
			"action", d.Action,
			"symbol", d.Symbol,
			"amount", d.Amount,
			"reason", why.Error(),
		)
		return nil, why, nil
	}

	next := b.apply(d.Action, d.Symbol, d.Amount, *price)
	s, err := oe.ledger.AppendTrade(ctx, session, ledger.Action{Action: d.Action, Symbol: d.Symbol, Amount: d.Amount}, next)
	if err != nil {
		return nil, nil, fmt.Errorf("record %s %s: %w", d.Action, d.Symbol, err)
	}
	b.commit(d.Action, d.Symbol, d.Amount, next)

	logger.Info(ctx, "Trade executed",
		"agent", oe.ledger.Agent(),
		"session", session,
		"side", d.Action,
		"symbol", d.Symbol,
		"qty", d.Amount,
		"price", *price,
		"cash", next.Cash(),
		"id", s.ID,
	)
	return &s, nil, nil
}

func fillMessage(d types.Decision, price float64, cash float64) string {
	verb := "Bought"
	if d.Action == actionSell {
		verb = "Sold"
	}
	return fmt.Sprintf("%s %v %s at %v; cash now %.2f", verb, d.Amount, d.Symbol, price, cash)
}

package types

import (
	"astock-agent/internal/ledger"
	"astock-agent/internal/news"
	"astock-agent/internal/pricelog"
	"astock-agent/internal/profit"
	"astock-agent/internal/ta"
)

const (
	ActionBuy     = "buy"
	ActionSell    = "sell"
	ActionNoTrade = ledger.NoTradeAction
)

// Decision is one step of the decision loop. Finish ends the session after
// the action, if any, is applied; no_trade always ends it.
type Decision struct {
	Action     string  `json:"action"`
	Symbol     string  `json:"symbol,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	Finish     bool    `json:"finish,omitempty"`
}

func (d Decision) IsTrade() bool {
	return d.Action == ActionBuy || d.Action == ActionSell
}

// Situation is what an agent knows when deciding inside a session.
type Situation struct {
	Agent   string
	Session string
	Market  string
	Step    int
	Symbols []string

	// Opening holds the positions the session started with; Current includes
	// trades already made in this session.
	Opening ledger.Positions
	Current ledger.Positions

	PrevBuy     pricelog.Prices
	PrevSell    pricelog.Prices
	TodayBuy    pricelog.Prices
	Profit      profit.Session
	TotalProfit float64
	Names       map[string]string

	Technicals map[string]ta.Indicators
	Sentiment  map[string]news.SymbolSentiment

	// Feedback carries the outcome of earlier steps of this session.
	Feedback []string
}

// SessionResult summarizes one processed session.
type SessionResult struct {
	Agent     string            `json:"agent"`
	Session   string            `json:"session"`
	RunID     string            `json:"run_id"`
	Steps     int               `json:"steps"`
	Trades    []ledger.Snapshot `json:"-"`
	NoTrade   bool              `json:"no_trade"`
	Positions ledger.Positions  `json:"positions"`
	Profit    float64           `json:"profit"`
}

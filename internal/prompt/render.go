package prompt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"

	"astock-agent/internal/ledger"
	"astock-agent/internal/pricelog"
	"astock-agent/internal/types"
)

// StopSignal is what an agent outputs once it is done with a session.
const StopSignal = "<FINISH_SIGNAL>"

const systemTemplate = `You are an A-share trading agent working on a fundamental view of the market.

Goals:
- Reason step by step and use the information below.
- Weigh the price and profit of every stock.
- Maximise the long-term return of the portfolio.

Rules:
- Trade by returning a decision, never by describing one.
- Symbols carry their exchange suffix, for example 600519.SH.
{{- if .Lots}}
- Orders are whole lots of 100 shares.
- T+1 settlement: shares bought in this session cannot be sold in it.
{{- end}}
- A buy needs enough cash at the current buy price; a sell needs enough shares.

Current time:
{{.Session}}

Current positions (shares per symbol, CASH is available cash):
{{range .Positions}}{{.}}
{{end}}
Prices at the previous session close:
{{range .Close}}{{.}}
{{end}}
Current buy prices:
{{range .Open}}{{.}}
{{end}}
Profit over the previous session: {{.TotalProfit}}
{{range .Profit}}{{.}}
{{end}}
{{- if .Technicals}}
Technical snapshot of holdings:
{{range .Technicals}}{{.}}
{{end}}
{{- end}}
{{- if .Sentiment}}
News sentiment of holdings:
{{range .Sentiment}}{{.}}
{{end}}
{{- end}}
{{- if .Feedback}}
Earlier steps of this session:
{{range .Feedback}}- {{.}}
{{end}}
{{- end}}
Respond with one JSON object:
{"action":"buy|sell|no_trade","symbol":"600519.SH","amount":100,"reason":"...","confidence":0.0,"finish":false}
When you are done with this session, set "finish" to true or output {{.Stop}}
`

var systemPrompt = template.Must(template.New("system").Parse(systemTemplate))

type view struct {
	Session     string
	Lots        bool
	Positions   []string
	Close       []string
	Open        []string
	TotalProfit string
	Profit      []string
	Technicals  []string
	Sentiment   []string
	Feedback    []string
	Stop        string
}

// Render formats s as the agent's system prompt.
func Render(s types.Situation) (string, error) {
	v := view{
		Session:     s.Session,
		Lots:        s.Market == pricelog.MarketCN,
		Positions:   positionLines(s.Current),
		Close:       priceLines(s.Symbols, s.PrevSell, s.Names),
		Open:        priceLines(s.Symbols, s.TodayBuy, s.Names),
		TotalProfit: number(s.TotalProfit),
		Feedback:    s.Feedback,
		Stop:        StopSignal,
	}
	for _, sym := range s.Symbols {
		if p := s.Profit[sym]; p != 0 {
			v.Profit = append(v.Profit, fmt.Sprintf("%s: %s", label(sym, s.Names), number(p)))
		}
	}
	for _, sym := range s.Current.Holdings().Symbols() {
		if ind, ok := s.Technicals[sym]; ok {
			v.Technicals = append(v.Technicals, technicalLine(label(sym, s.Names), ind.RSI, ind.SMA[5], ind.SMA[20], ind.MACD.Hist, ind.BB.Upper, ind.BB.Lower))
		}
		if sent, ok := s.Sentiment[sym]; ok {
			v.Sentiment = append(v.Sentiment, fmt.Sprintf("%s: %s (score %s, %d headlines)",
				label(sym, s.Names), sent.Analysis.Overall, number(sent.Analysis.Score), sent.Sources))
		}
	}

	var b strings.Builder
	if err := systemPrompt.Execute(&b, v); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

func positionLines(p ledger.Positions) []string {
	out := make([]string, 0, len(p))
	for _, sym := range p.Symbols() {
		out = append(out, fmt.Sprintf("%s: %s", sym, number(p[sym])))
	}
	if _, ok := p[ledger.CashKey]; ok {
		out = append(out, fmt.Sprintf("%s: %s", ledger.CashKey, number(p.Cash())))
	}
	return out
}

func priceLines(symbols []string, prices pricelog.Prices, names map[string]string) []string {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		val := "n/a"
		if p, ok := prices.Get(sym); ok {
			val = number(p)
		}
		out = append(out, fmt.Sprintf("%s: %s", label(sym, names), val))
	}
	return out
}

func technicalLine(name string, rsi, sma5, sma20, hist, upper, lower float64) string {
	return fmt.Sprintf("%s: RSI14 %s, SMA5 %s, SMA20 %s, MACD hist %s, BB %s-%s",
		name, number(rsi), number(sma5), number(sma20), number(hist), number(lower), number(upper))
}

func label(sym string, names map[string]string) string {
	if n := names[sym]; n != "" {
		return fmt.Sprintf("%s (%s)", sym, n)
	}
	return sym
}

func number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}

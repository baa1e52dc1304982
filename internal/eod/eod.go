// Package eod renders an agent's ledger as a CSV report: one row per
// snapshot, valued at the buy prices of its session.
package eod

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"astock-agent/internal/interfaces"
	"astock-agent/internal/ledger"
	"astock-agent/internal/profit"
)

var header = []string{"date", "id", "action", "symbol", "amount", "cash", "holdings", "value", "return_pct", "unpriced"}

type exporter struct {
	root   string
	prices interfaces.PriceReader
}

// NewExporter writes reports under <root>/<agent>/eod/.
func NewExporter(root string, prices interfaces.PriceReader) interfaces.Exporter {
	return &exporter{root: root, prices: prices}
}

// ReportPath is where the report of agent is written.
func ReportPath(root, agent string) string {
	return filepath.Join(root, agent, "eod", "positions.csv")
}

// Export returns an empty path when the ledger has no snapshots.
func (e *exporter) Export(ctx context.Context, l interfaces.Ledger) (string, error) {
	snaps := l.Snapshots(ctx)
	if len(snaps) == 0 {
		return "", nil
	}

	outPath := ReportPath(e.root, l.Agent())
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return "", err
	}

	var base decimal.Decimal
	for i, s := range snaps {
		value, missing := profit.Value(s.Positions, e.prices.OpeningPrices(ctx, s.Date, s.Positions.Symbols()))
		if i == 0 {
			base = decimal.NewFromFloat(value)
		}
		if err := w.Write(row(s, value, base, missing)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, out.Close()
}

func row(s ledger.Snapshot, value float64, base decimal.Decimal, missing []string) []string {
	var action, symbol, amount string
	if s.Action != nil {
		action, symbol = s.Action.Action, s.Action.Symbol
		if s.Action.Amount != 0 {
			amount = strconv.FormatFloat(s.Action.Amount, 'f', -1, 64)
		}
	}

	held := s.Positions.Holdings()
	parts := make([]string, 0, len(held))
	for _, sym := range held.Symbols() {
		if q := held[sym]; q != 0 {
			parts = append(parts, fmt.Sprintf("%s:%s", sym, strconv.FormatFloat(q, 'f', -1, 64)))
		}
	}

	ret := ""
	if !base.IsZero() {
		ret = decimal.NewFromFloat(value).Sub(base).Div(base).Mul(decimal.NewFromInt(100)).StringFixed(2)
	}

	return []string{
		s.Date,
		strconv.Itoa(s.ID),
		action,
		symbol,
		amount,
		fmt.Sprintf("%.2f", s.Positions.Cash()),
		strings.Join(parts, " "),
		fmt.Sprintf("%.2f", value),
		ret,
		strings.Join(missing, " "),
	}
}

package ledgerobs

import (
	"context"

	"astock-agent/internal/interfaces"
	"astock-agent/internal/ledger"
	"astock-agent/internal/logger"
	"astock-agent/internal/trace"
)

// observableLedger wraps a Ledger with observability (logging & tracing)
type observableLedger struct {
	ledger interfaces.Ledger
}

// Compile-time interface check
var _ interfaces.Ledger = (*observableLedger)(nil)

// Wrap wraps a ledger with observability middleware
func Wrap(l interfaces.Ledger) interfaces.Ledger {
	return &observableLedger{
		ledger: l,
	}
}

func (ol *observableLedger) Agent() string { return ol.ledger.Agent() }

func (ol *observableLedger) InitialPosition(ctx context.Context, ts string) ledger.Positions {
	ctx, span := trace.StartSpan(ctx, "ledger.InitialPosition")
	defer span.End()

	pos := ol.ledger.InitialPosition(ctx, ts)
	logger.DebugSkip(ctx, 1, "Initial position resolved",
		"agent", ol.ledger.Agent(),
		"session", ts,
		"entries", len(pos),
	)
	return pos
}

func (ol *observableLedger) LatestPosition(ctx context.Context, ts string) (ledger.Positions, int) {
	ctx, span := trace.StartSpan(ctx, "ledger.LatestPosition")
	defer span.End()

	pos, id := ol.ledger.LatestPosition(ctx, ts)
	logger.DebugSkip(ctx, 1, "Latest position resolved",
		"agent", ol.ledger.Agent(),
		"session", ts,
		"id", id,
		"entries", len(pos),
	)
	return pos, id
}

// AppendNoTrade appends a carry-forward snapshot with observability
func (ol *observableLedger) AppendNoTrade(ctx context.Context, ts string) (ledger.Snapshot, error) {
	ctx, span := trace.StartSpan(ctx, "ledger.AppendNoTrade", trace.Session(ol.ledger.Agent(), ts))
	defer span.End()

	s, err := ol.ledger.AppendNoTrade(ctx, ts)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to append no-trade snapshot", err,
			"agent", ol.ledger.Agent(),
			"session", ts,
		)
		return s, err
	}

	logger.InfoSkip(ctx, 1, "No-trade snapshot appended",
		"agent", ol.ledger.Agent(),
		"session", ts,
		"id", s.ID,
	)
	return s, nil
}

// AppendTrade appends a trade snapshot with observability
func (ol *observableLedger) AppendTrade(ctx context.Context, ts string, action ledger.Action, positions ledger.Positions) (ledger.Snapshot, error) {
	ctx, span := trace.StartSpan(ctx, "ledger.AppendTrade", trace.Session(ol.ledger.Agent(), ts))
	defer span.End()

	s, err := ol.ledger.AppendTrade(ctx, ts, action, positions)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to append trade snapshot", err,
			"agent", ol.ledger.Agent(),
			"session", ts,
			"action", action.Action,
			"symbol", action.Symbol,
		)
		return s, err
	}

	logger.InfoSkip(ctx, 1, "Trade snapshot appended",
		"agent", ol.ledger.Agent(),
		"session", ts,
		"id", s.ID,
		"action", action.Action,
		"symbol", action.Symbol,
		"amount", action.Amount,
		"cash", s.Positions.Cash(),
	)
	return s, nil
}

func (ol *observableLedger) Register(ctx context.Context, symbols []string, cash float64, initDate string) (bool, error) {
	ctx, span := trace.StartSpan(ctx, "ledger.Register")
	defer span.End()

	created, err := ol.ledger.Register(ctx, symbols, cash, initDate)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to register agent", err,
			"agent", ol.ledger.Agent(),
			"init_date", initDate,
		)
		return false, err
	}

	logger.InfoSkip(ctx, 1, "Registration checked",
		"agent", ol.ledger.Agent(),
		"created", created,
		"symbols", len(symbols),
		"cash", cash,
	)
	return created, nil
}

func (ol *observableLedger) LastSessionDate(ctx context.Context, initDate string) string {
	ctx, span := trace.StartSpan(ctx, "ledger.LastSessionDate")
	defer span.End()

	return ol.ledger.LastSessionDate(ctx, initDate)
}

func (ol *observableLedger) Summary(ctx context.Context) (ledger.Summary, error) {
	ctx, span := trace.StartSpan(ctx, "ledger.Summary")
	defer span.End()

	sum, err := ol.ledger.Summary(ctx)
	if err != nil {
		logger.WarnSkip(ctx, 1, "Ledger summary unavailable", "agent", ol.ledger.Agent(), "error", err)
	}
	return sum, err
}

func (ol *observableLedger) Snapshots(ctx context.Context) []ledger.Snapshot {
	return ol.ledger.Snapshots(ctx)
}

package llmobs

import (
	"context"

	"astock-agent/internal/interfaces"
	"astock-agent/internal/logger"
	"astock-agent/internal/trace"
	"astock-agent/internal/types"
)

// observableDecider wraps a Decider with observability (logging & tracing)
type observableDecider struct {
	decider interfaces.Decider
}

// Compile-time interface check
var _ interfaces.Decider = (*observableDecider)(nil)

// Wrap wraps a decider with observability middleware
func Wrap(decider interfaces.Decider) interfaces.Decider {
	return &observableDecider{
		decider: decider,
	}
}

func (od *observableDecider) Decide(ctx context.Context, sit types.Situation) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Decide", trace.Session(sit.Agent, sit.Session))
	defer span.End()

	logger.DebugSkip(ctx, 1, "Requesting trading decision",
		"agent", sit.Agent,
		"session", sit.Session,
		"step", sit.Step,
		"cash", sit.Current.Cash(),
	)

	decision, err := od.decider.Decide(ctx, sit)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get trading decision", err,
			"agent", sit.Agent,
			"session", sit.Session,
			"step", sit.Step,
		)
		return types.Decision{}, err
	}

	logger.InfoSkip(ctx, 1, "Trading decision received",
		"agent", sit.Agent,
		"session", sit.Session,
		"action", decision.Action,
		"symbol", decision.Symbol,
		"amount", decision.Amount,
		"reason", decision.Reason,
		"confidence", decision.Confidence,
	)

	return decision, nil
}

package engineobs

import (
	"context"
	"time"

	"astock-agent/internal/interfaces"
	"astock-agent/internal/logger"
	"astock-agent/internal/trace"
	"astock-agent/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Agent() string { return oe.engine.Agent() }

func (oe *observableEngine) RunSession(ctx context.Context, session string) (*types.SessionResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.RunSession", trace.Session(oe.engine.Agent(), session))
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting trading session",
		"agent", oe.engine.Agent(),
		"session", session,
	)

	result, err := oe.engine.RunSession(ctx, session)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading session failed", err,
			"agent", oe.engine.Agent(),
			"session", session,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Trading session completed",
		"agent", result.Agent,
		"session", result.Session,
		"run_id", result.RunID,
		"steps", result.Steps,
		"trades", len(result.Trades),
		"no_trade", result.NoTrade,
		"cash", result.Positions.Cash(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

func (oe *observableEngine) Run(ctx context.Context, end string) ([]*types.SessionResult, error) {
	timer := logger.StartOperation(ctx, "engine.Run", "agent", oe.engine.Agent(), "end", end)
	results, err := oe.engine.Run(timer.GetContext(), end)
	if err != nil {
		timer.EndWithError(err, "completed_sessions", len(results))
		return results, err
	}
	timer.End("completed_sessions", len(results))
	return results, nil
}

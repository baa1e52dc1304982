package noop

import (
	"context"

	"astock-agent/internal/logger"
	"astock-agent/internal/types"
)

// NoopDecider is the fallback used when no model is configured. It never
// trades, so every session it sees ends with a carried-forward position.
type NoopDecider struct{}

func NewNoopDecider() *NoopDecider {
	return &NoopDecider{}
}

func (d *NoopDecider) Decide(ctx context.Context, sit types.Situation) (types.Decision, error) {
	logger.Debug(ctx, "Noop decider called - always returns no_trade", "agent", sit.Agent, "session", sit.Session)
	return types.Decision{
		Action: types.ActionNoTrade,
		Reason: "noop_decider_fallback",
		Finish: true,
	}, nil
}

package interfaces

import (
	"context"

	"astock-agent/internal/types"
)

// Engine drives one agent through trading sessions.
type Engine interface {
	Agent() string
	RunSession(ctx context.Context, session string) (*types.SessionResult, error)
	Run(ctx context.Context, end string) ([]*types.SessionResult, error)
}

package interfaces

import (
	"context"

	"astock-agent/internal/types"
)

type Decider interface {
	Decide(ctx context.Context, situation types.Situation) (types.Decision, error)
}

package interfaces

import (
	"context"

	"astock-agent/internal/ledger"
)

// Ledger is one agent's position history.
type Ledger interface {
	Agent() string
	InitialPosition(ctx context.Context, ts string) ledger.Positions
	LatestPosition(ctx context.Context, ts string) (ledger.Positions, int)
	AppendNoTrade(ctx context.Context, ts string) (ledger.Snapshot, error)
	AppendTrade(ctx context.Context, ts string, action ledger.Action, positions ledger.Positions) (ledger.Snapshot, error)
	Register(ctx context.Context, symbols []string, cash float64, initDate string) (bool, error)
	LastSessionDate(ctx context.Context, initDate string) string
	Summary(ctx context.Context) (ledger.Summary, error)
	Snapshots(ctx context.Context) []ledger.Snapshot
}

package ledgerobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astock-agent/internal/interfaces"
	"astock-agent/internal/ledger"
)

var _ interfaces.Ledger = (*ledger.Ledger)(nil)

type noPrev struct{}

func (noPrev) PreviousSession(context.Context, string) string { return "" }

func TestWrapDelegates(t *testing.T) {
	l := Wrap(ledger.New(t.TempDir(), "agentX", noPrev{}))
	ctx := context.Background()

	created, err := l.Register(ctx, []string{"AAA"}, 500, "2025-10-09")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "agentX", l.Agent())

	s, err := l.AppendNoTrade(ctx, "2025-10-10")
	require.NoError(t, err)
	assert.Equal(t, 1, s.ID)
	assert.Equal(t, 500.0, s.Positions.Cash())

	sum, err := l.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalRecords)
	assert.Len(t, l.Snapshots(ctx), 2)
}

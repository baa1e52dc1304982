package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astock-agent/internal/calendar"
	"astock-agent/internal/ledger"
	"astock-agent/internal/memory"
	"astock-agent/internal/pricelog"
	"astock-agent/internal/prompt"
	"astock-agent/internal/tradelog"
	"astock-agent/internal/types"
)

const priceFixture = `{"Meta Data":{"2. Symbol":"600519.SH","2.1. Name":"Moutai"},"Time Series (Daily)":{"2025-10-09":{"1. buy price":"10.0","4. sell price":"10.5"},"2025-10-10":{"1. buy price":"11.0","4. sell price":"11.5"},"2025-10-13":{"1. buy price":"12.0","4. sell price":"12.5"}}}
{"Meta Data":{"2. Symbol":"601318.SH","2.1. Name":"Ping An"},"Time Series (Daily)":{"2025-10-09":{"1. buy price":"50.0","4. sell price":"51.0"},"2025-10-10":{"1. buy price":"52.0","4. sell price":"53.0"},"2025-10-13":{"1. buy price":"54.0","4. sell price":"55.0"}}}
`

var symbols = []string{"600519.SH", "601318.SH"}

// scripted replays decisions in order and then declines to trade.
type scripted struct {
	decisions []types.Decision
	errs      []error
	seen      []types.Situation
}

func (s *scripted) Decide(_ context.Context, sit types.Situation) (types.Decision, error) {
	s.seen = append(s.seen, sit)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return types.Decision{}, err
		}
	}
	if len(s.decisions) == 0 {
		return types.Decision{Action: types.ActionNoTrade, Finish: true}, nil
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

type fixture struct {
	root    string
	ledger  *ledger.Ledger
	log     *tradelog.Log
	decider *scripted
	engine  *Engine
}

func newFixture(t *testing.T, d *scripted, mem Memory) *fixture {
	t.Helper()
	dataDir := t.TempDir()
	paths := pricelog.DefaultPaths(dataDir, pricelog.MarketCN)
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Daily), 0o755))
	require.NoError(t, os.WriteFile(paths.Daily, []byte(priceFixture), 0o644))

	store := pricelog.NewStore(pricelog.MarketCN, paths)
	cal := calendar.New(store)
	reader := pricelog.NewReader(store, cal)

	root := t.TempDir()
	l := ledger.New(root, "agent-a", cal)

	f := &fixture{root: root, ledger: l, log: tradelog.New(root), decider: d}
	f.engine = newEngine(Settings{
		Market:      pricelog.MarketCN,
		Symbols:     symbols,
		InitDate:    "2025-10-09",
		InitialCash: 10000,
		MaxSteps:    5,
		MaxRetries:  3,
		BaseDelay:   time.Millisecond,
		Recall:      5,
	}, Deps{
		Ledger:   l,
		Calendar: cal,
		Builder:  prompt.NewBuilder(reader, pricelog.MarketCN, symbols),
		Decider:  d,
		Log:      f.log,
		Memory:   mem,
	})
	f.engine.sleep = func(context.Context, time.Duration) error { return nil }
	return f
}

func (f *fixture) register(t *testing.T) {
	t.Helper()
	_, err := f.ledger.Register(context.Background(), symbols, 10000, "2025-10-09")
	require.NoError(t, err)
}

func TestRunSessionBuyThenT1Rejection(t *testing.T) {
	d := &scripted{decisions: []types.Decision{
		{Action: types.ActionBuy, Symbol: "600519.SH", Amount: 100},
		{Action: types.ActionSell, Symbol: "600519.SH", Amount: 100},
		{Action: types.ActionNoTrade, Finish: true},
	}}
	f := newFixture(t, d, nil)
	f.register(t)
	ctx := context.Background()

	res, err := f.engine.RunSession(ctx, "2025-10-10")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Steps)
	require.Len(t, res.Trades, 1)
	assert.False(t, res.NoTrade)
	assert.Equal(t, 100.0, res.Positions["600519.SH"])
	assert.Equal(t, 8900.0, res.Positions.Cash())

	require.Len(t, d.seen, 3)
	assert.Equal(t, 8900.0, d.seen[1].Current.Cash())
	require.Len(t, d.seen[2].Feedback, 2)
	assert.Contains(t, d.seen[2].Feedback[1], "T+1")

	snaps := f.ledger.Snapshots(ctx)
	require.Len(t, snaps, 2)
	assert.Equal(t, 1, snaps[1].ID)
	assert.Equal(t, "buy", snaps[1].Action.Action)
	assert.Equal(t, 8900.0, snaps[1].Positions.Cash())

	entries, err := f.log.Read("agent-a", "2025-10-10")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, tradelog.RoleSystem, entries[0].Role)
	assert.Equal(t, res.RunID, entries[0].RunID)
}

func TestRunSessionRejectedOnlyRecordsNoTrade(t *testing.T) {
	d := &scripted{decisions: []types.Decision{
		{Action: types.ActionBuy, Symbol: "600519.SH", Amount: 50, Finish: true},
	}}
	f := newFixture(t, d, nil)
	f.register(t)
	ctx := context.Background()

	res, err := f.engine.RunSession(ctx, "2025-10-10")
	require.NoError(t, err)
	assert.True(t, res.NoTrade)
	assert.Equal(t, 1, res.Steps)

	snaps := f.ledger.Snapshots(ctx)
	require.Len(t, snaps, 2)
	assert.Equal(t, ledger.NoTradeAction, snaps[1].Action.Action)
	assert.Equal(t, 10000.0, snaps[1].Positions.Cash())
}

func TestRunSessionRejectsOverspend(t *testing.T) {
	d := &scripted{decisions: []types.Decision{
		{Action: types.ActionBuy, Symbol: "601318.SH", Amount: 200},
	}}
	f := newFixture(t, d, nil)
	f.register(t)

	res, err := f.engine.RunSession(context.Background(), "2025-10-10")
	require.NoError(t, err)
	assert.True(t, res.NoTrade)
	require.Len(t, d.seen, 2)
	assert.Contains(t, d.seen[1].Feedback[0], "insufficient cash")
}

func TestRunProcessesPendingSessions(t *testing.T) {
	d := &scripted{}
	f := newFixture(t, d, nil)
	ctx := context.Background()

	results, err := f.engine.Run(ctx, "2025-10-13")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2025-10-10", results[0].Session)
	assert.Equal(t, "2025-10-13", results[1].Session)
	assert.Len(t, f.ledger.Snapshots(ctx), 3)

	again, err := f.engine.Run(ctx, "2025-10-13")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestDecideRetriesWithLinearBackoff(t *testing.T) {
	boom := errors.New("upstream 503")
	d := &scripted{errs: []error{boom, boom, nil}}
	f := newFixture(t, d, nil)
	var waits []time.Duration
	f.engine.sleep = func(_ context.Context, w time.Duration) error {
		waits = append(waits, w)
		return nil
	}
	f.engine.settings.BaseDelay = 100 * time.Millisecond

	dec, err := f.engine.decide(context.Background(), types.Situation{Agent: "agent-a"})
	require.NoError(t, err)
	assert.Equal(t, types.ActionNoTrade, dec.Action)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, waits)
}

func TestFailingDeciderLeavesLedgerUntouched(t *testing.T) {
	boom := errors.New("down")
	d := &scripted{errs: []error{boom, boom, boom}}
	f := newFixture(t, d, nil)
	f.register(t)
	ctx := context.Background()

	_, err := f.engine.RunSession(ctx, "2025-10-10")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.ledger.Snapshots(ctx), 1)
}

func TestDeciderFailureAfterTradeKeepsSession(t *testing.T) {
	boom := errors.New("down")
	d := &scripted{
		errs:      []error{nil, boom, boom, boom},
		decisions: []types.Decision{{Action: types.ActionBuy, Symbol: "600519.SH", Amount: 100}},
	}
	f := newFixture(t, d, nil)
	f.register(t)
	ctx := context.Background()

	res, err := f.engine.RunSession(ctx, "2025-10-10")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Steps)
	require.Len(t, res.Trades, 1)
	assert.False(t, res.NoTrade)

	snaps := f.ledger.Snapshots(ctx)
	require.Len(t, snaps, 2)
	assert.Equal(t, "buy", snaps[1].Action.Action)
	assert.Equal(t, "2025-10-10", f.ledger.LastSessionDate(ctx, "2025-10-09"))
}

type fakeMemory struct {
	records []memory.DecisionRecord
}

func (m *fakeMemory) Record(_ context.Context, rec *memory.DecisionRecord) error {
	m.records = append(m.records, *rec)
	return nil
}

func (m *fakeMemory) RecentDecisions(_ context.Context, agent string, n int) ([]memory.DecisionRecord, error) {
	var out []memory.DecisionRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < n; i-- {
		if m.records[i].Agent == agent {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func TestMemoryRecordsAndRecalls(t *testing.T) {
	mem := &fakeMemory{}
	d := &scripted{decisions: []types.Decision{
		{Action: types.ActionBuy, Symbol: "600519.SH", Amount: 100, Reason: "cheap"},
	}}
	f := newFixture(t, d, mem)
	ctx := context.Background()

	_, err := f.engine.Run(ctx, "2025-10-13")
	require.NoError(t, err)

	require.Len(t, mem.records, 3)
	assert.Equal(t, "buy", mem.records[0].Action)
	assert.True(t, mem.records[0].Executed)
	assert.Equal(t, 8900.0, mem.records[0].Cash)

	last := d.seen[len(d.seen)-1]
	assert.Equal(t, "2025-10-13", last.Session)
	require.NotEmpty(t, last.Feedback)
	joined := strings.Join(last.Feedback, "\n")
	assert.Contains(t, joined, "Earlier session 2025-10-10: buy 100 600519.SH (executed)")
}

func TestNewRequiresDecider(t *testing.T) {
	_, err := New(Settings{}, Deps{})
	assert.ErrorIs(t, err, errNoDecider)
}

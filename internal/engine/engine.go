// Package engine runs the decision loop of one agent: for every pending
// session it asks the decider for actions, fills them at the session's buy
// price and appends the result to the agent's ledger.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"astock-agent/internal/interfaces"
	"astock-agent/internal/llm"
	"astock-agent/internal/logger"
	"astock-agent/internal/memory"
	"astock-agent/internal/prompt"
	"astock-agent/internal/tradelog"
	"astock-agent/internal/types"
)

// Memory stores and recalls an agent's past decisions.
type Memory interface {
	Record(ctx context.Context, rec *memory.DecisionRecord) error
	RecentDecisions(ctx context.Context, agent string, n int) ([]memory.DecisionRecord, error)
}

// Settings bound the decision loop.
type Settings struct {
	Market      string
	Symbols     []string
	InitDate    string
	InitialCash float64
	MaxSteps    int
	MaxRetries  int
	BaseDelay   time.Duration
	// Recall is how many past decisions are replayed into a new session.
	Recall int
}

// Deps are the collaborators of an engine. Log and Memory are optional.
type Deps struct {
	Ledger   interfaces.Ledger
	Calendar interfaces.Calendar
	Builder  *prompt.Builder
	Decider  interfaces.Decider
	Log      *tradelog.Log
	Memory   Memory
}

type Engine struct {
	settings Settings
	deps     Deps
	executor *orderExecutor
	sleep    func(ctx context.Context, d time.Duration) error
}

func newEngine(s Settings, d Deps) *Engine {
	if s.MaxSteps <= 0 {
		s.MaxSteps = 1
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = 1
	}
	return &Engine{
		settings: s,
		deps:     d,
		executor: newOrderExecutor(d.Ledger, rulesFor(s.Market, s.Symbols)),
		sleep:    sleepCtx,
	}
}

func (e *Engine) Agent() string { return e.deps.Ledger.Agent() }

// Run registers the agent if needed and processes every trading session
// after the last one in its ledger, up to end. It stops at the first
// session that fails.
func (e *Engine) Run(ctx context.Context, end string) ([]*types.SessionResult, error) {
	created, err := e.deps.Ledger.Register(ctx, e.settings.Symbols, e.settings.InitialCash, e.settings.InitDate)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", e.Agent(), err)
	}
	if created {
		logger.Info(ctx, "Agent registered", "agent", e.Agent(), "init_date", e.settings.InitDate, "cash", e.settings.InitialCash)
	}

	last := e.deps.Ledger.LastSessionDate(ctx, e.settings.InitDate)
	pending := e.deps.Calendar.PendingSessions(ctx, last, end)
	logger.Info(ctx, "Pending sessions resolved", "agent", e.Agent(), "last", last, "end", end, "count", len(pending))

	results := make([]*types.SessionResult, 0, len(pending))
	for _, session := range pending {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.RunSession(ctx, session)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// RunSession runs the decision loop for one session. The session ends when
// the decider finishes, declines to trade, or the step limit is reached. A
// session without any executed trade is recorded as no_trade. A decider
// that keeps failing before any trade executed aborts the session without
// writing to the ledger, so a later run retries it. Once a trade is on the
// ledger the session is recorded, so a later failure only ends it early.
func (e *Engine) RunSession(ctx context.Context, session string) (*types.SessionResult, error) {
	runID := uuid.NewString()
	agent := e.Agent()

	sit := e.deps.Builder.Build(ctx, e.deps.Ledger, session)
	sit.Feedback = e.recall(ctx, agent)
	b := newBook(sit.Current)

	res := &types.SessionResult{Agent: agent, Session: session, RunID: runID, Profit: sit.TotalProfit}

	for step := 1; step <= e.settings.MaxSteps; step++ {
		sit.Step = step
		sit.Current = b.current()
		res.Steps = step

		if step == 1 {
			if system, err := prompt.Render(sit); err == nil {
				e.logMessage(ctx, session, runID, step, tradelog.RoleSystem, system)
			}
		}
		e.logMessage(ctx, session, runID, step, tradelog.RoleUser, llm.UserMessage(sit))

		d, err := e.decide(ctx, sit)
		if err != nil {
			if len(res.Trades) == 0 || ctx.Err() != nil {
				return nil, fmt.Errorf("session %s of %s: %w", session, agent, err)
			}
			logger.Warn(ctx, "Decider failed after trades executed, ending session", "agent", agent, "session", session, "step", step, "trades", len(res.Trades), "error", err)
			res.Steps = step - 1
			break
		}
		if raw, err := json.Marshal(d); err == nil {
			e.logMessage(ctx, session, runID, step, tradelog.RoleAssistant, string(raw))
		}
		logger.Decision(ctx, agent, session, d.Action, d.Symbol, d.Amount, "step", step, "reason", d.Reason, "confidence", d.Confidence)

		if !d.IsTrade() {
			e.remember(ctx, runID, session, step, d, false, b.cash())
			break
		}

		snap, rejected, err := e.executor.execute(ctx, session, d, sit.TodayBuy, b)
		if err != nil {
			return nil, err
		}
		var outcome string
		if rejected != nil {
			outcome = fmt.Sprintf("Step %d: %s %v %s rejected: %v", step, d.Action, d.Amount, d.Symbol, rejected)
		} else {
			res.Trades = append(res.Trades, *snap)
			outcome = fmt.Sprintf("Step %d: %s", step, fillMessage(d, *sit.TodayBuy[d.Symbol], b.cash()))
		}
		sit.Feedback = append(sit.Feedback, outcome)
		e.logMessage(ctx, session, runID, step, tradelog.RoleTool, outcome)
		e.remember(ctx, runID, session, step, d, rejected == nil, b.cash())

		if d.Finish {
			break
		}
	}

	if len(res.Trades) == 0 {
		if _, err := e.deps.Ledger.AppendNoTrade(ctx, session); err != nil {
			return nil, fmt.Errorf("record no_trade for %s: %w", session, err)
		}
		res.NoTrade = true
	}
	res.Positions = b.current()
	return res, nil
}

// decide asks the decider with linear backoff between attempts.
func (e *Engine) decide(ctx context.Context, sit types.Situation) (types.Decision, error) {
	var lastErr error
	for attempt := 1; attempt <= e.settings.MaxRetries; attempt++ {
		d, err := e.deps.Decider.Decide(ctx, sit)
		if err == nil {
			return d, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return types.Decision{}, ctx.Err()
		}
		if attempt < e.settings.MaxRetries {
			wait := e.settings.BaseDelay * time.Duration(attempt)
			logger.Warn(ctx, "Decision failed, retrying", "agent", sit.Agent, "session", sit.Session, "attempt", attempt, "error", err, "waitTime", wait)
			if err := e.sleep(ctx, wait); err != nil {
				return types.Decision{}, err
			}
		}
	}
	logger.Error(ctx, "All decision attempts failed", "agent", sit.Agent, "session", sit.Session, "maxAttempts", e.settings.MaxRetries, "error", lastErr)
	return types.Decision{}, fmt.Errorf("all %d decision attempts failed: %w", e.settings.MaxRetries, lastErr)
}

func (e *Engine) recall(ctx context.Context, agent string) []string {
	if e.deps.Memory == nil || e.settings.Recall <= 0 {
		return nil
	}
	recs, err := e.deps.Memory.RecentDecisions(ctx, agent, e.settings.Recall)
	if err != nil {
		logger.Warn(ctx, "Cannot recall past decisions", "agent", agent, "error", err)
		return nil
	}
	out := make([]string, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		if r.Action == types.ActionNoTrade {
			out = append(out, fmt.Sprintf("Earlier session %s: no trade", r.Session))
			continue
		}
		status := "executed"
		if !r.Executed {
			status = "rejected"
		}
		out = append(out, fmt.Sprintf("Earlier session %s: %s %v %s (%s)", r.Session, r.Action, r.Amount, r.Symbol, status))
	}
	return out
}

func (e *Engine) remember(ctx context.Context, runID, session string, step int, d types.Decision, executed bool, cash float64) {
	if e.deps.Memory == nil {
		return
	}
	rec := &memory.DecisionRecord{
		Agent:      e.Agent(),
		Session:    session,
		RunID:      runID,
		Step:       step,
		Action:     d.Action,
		Symbol:     d.Symbol,
		Amount:     d.Amount,
		Reason:     d.Reason,
		Confidence: d.Confidence,
		Executed:   executed,
		Cash:       cash,
	}
	if err := e.deps.Memory.Record(ctx, rec); err != nil {
		logger.Warn(ctx, "Cannot record decision", "agent", rec.Agent, "session", session, "error", err)
	}
}

func (e *Engine) logMessage(ctx context.Context, session, runID string, step int, role, content string) {
	if e.deps.Log == nil {
		return
	}
	err := e.deps.Log.Append(session, tradelog.Entry{Signature: e.Agent(), RunID: runID, Step: step, Role: role, Content: content})
	if err != nil {
		logger.Warn(ctx, "Cannot write session log", "agent", e.Agent(), "session", session, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var (
	errNoDecider   = errors.New("engine has no decider")
	errMissingDeps = errors.New("engine needs a ledger, a calendar and a prompt builder")
)

// Package calendar decides which sessions are tradable. The price log is the
// source of truth: a session exists when some symbol has a bar for it.
package calendar

import (
	"context"
	"time"

	"astock-agent/internal/logger"
	"astock-agent/internal/pricelog"
	"astock-agent/internal/timestamp"
)

// Calendar resolves trading sessions for one market.
type Calendar struct {
	store *pricelog.Store
}

func New(store *pricelog.Store) *Calendar {
	return &Calendar{store: store}
}

func (c *Calendar) Market() string { return c.store.Market() }

// IsTradingSession reports whether ts is a daily key of the market's log or a
// prefix of one of its intraday keys. A missing log means no session.
func (c *Calendar) IsTradingSession(ctx context.Context, ts string) bool {
	idx := c.store.IndexFor(ctx, ts)
	if idx.Missing {
		logger.Warn(ctx, "Cannot validate trading session without price log", "session", ts, "path", idx.Path)
		return false
	}
	return idx.HasSession(ts)
}

// PreviousSession returns the latest intraday key of the log strictly before
// ts, rendered with ts's granularity. Daily keys are never consulted, so a
// date against a daily-only log always takes the fallback: a date steps back
// one weekday and a date-time steps back one hour. The fallback knows nothing
// about exchange holidays.
func (c *Calendar) PreviousSession(ctx context.Context, ts string) string {
	intraday := timestamp.IsIntraday(ts)
	at, err := timestamp.Parse(ts)
	if err != nil {
		logger.Warn(ctx, "Unparseable session timestamp", "session", ts, "error", err)
		return ts
	}

	idx := c.store.IndexFor(ctx, ts)
	if !idx.Missing && !idx.Empty() {
		if prev, ok := idx.LatestBefore(at); ok {
			return timestamp.Format(prev, intraday)
		}
	}

	logger.Debug(ctx, "Previous session not in price log, using calendar fallback", "session", ts, "path", idx.Path)
	return fallbackPrevious(at, intraday)
}

func fallbackPrevious(at time.Time, intraday bool) string {
	if intraday {
		return timestamp.Format(at.Add(-time.Hour), true)
	}
	prev := at.AddDate(0, 0, -1)
	for prev.Weekday() == time.Saturday || prev.Weekday() == time.Sunday {
		prev = prev.AddDate(0, 0, -1)
	}
	return timestamp.Format(prev, false)
}

// PendingSessions lists the trading days after lastKnown up to and including
// end, ascending. Both bounds may carry a time component; only their dates
// are used.
func (c *Calendar) PendingSessions(ctx context.Context, lastKnown, end string) []string {
	from, err := parseDay(lastKnown)
	if err != nil {
		logger.Warn(ctx, "Unparseable last session", "session", lastKnown, "error", err)
		return nil
	}
	to, err := parseDay(end)
	if err != nil {
		logger.Warn(ctx, "Unparseable end date", "end", end, "error", err)
		return nil
	}
	if !to.After(from) {
		return nil
	}

	var sessions []string
	for day := from.AddDate(0, 0, 1); !day.After(to); day = day.AddDate(0, 0, 1) {
		ds := timestamp.Format(day, false)
		if c.IsTradingSession(ctx, ds) {
			sessions = append(sessions, ds)
		}
	}
	return sessions
}

func parseDay(ts string) (time.Time, error) {
	t, err := timestamp.Parse(ts)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

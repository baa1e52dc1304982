// Package ledger keeps an agent's position history: an append-only JSON-lines
// file with one snapshot per processed session.
//
// Queries never fail on bad data. A missing file reads as an empty ledger and
// malformed lines are skipped. Only writes return errors.
package ledger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"astock-agent/internal/logger"
	"astock-agent/internal/timestamp"
)

var (
	// ErrNotRegistered is returned when an operation needs an existing ledger file.
	ErrNotRegistered = errors.New("ledger: agent not registered")
	// ErrEmptyLedger is returned when the ledger file exists but holds no valid record.
	ErrEmptyLedger = errors.New("ledger: no position records")
)

// SessionResolver finds the trading session preceding a timestamp.
type SessionResolver interface {
	PreviousSession(ctx context.Context, ts string) string
}

// Summary describes the last line of a ledger.
type Summary struct {
	Agent        string    `json:"signature"`
	LatestDate   string    `json:"latest_date"`
	Positions    Positions `json:"positions"`
	TotalRecords int       `json:"total_records"`
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// Ledger is one agent's position file. Appends are serialized within the
// process; a second process writing the same file is not supported.
type Ledger struct {
	agent    string
	path     string
	sessions SessionResolver

	mu    sync.Mutex
	log   *Log
	stamp fileStamp
}

// New opens the ledger of agent under root. Nothing is read until the first
// query.
func New(root, agent string, sessions SessionResolver) *Ledger {
	return &Ledger{
		agent:    agent,
		path:     Path(root, agent),
		sessions: sessions,
	}
}

// Path returns <root>/<agent>/position/position.jsonl.
func Path(root, agent string) string {
	return filepath.Join(root, agent, "position", "position.jsonl")
}

// ResolveRoot turns a configured log path into the ledger root. Absolute
// paths are used as is. A "./data/" prefix is replaced by dataDir; any other
// relative path is taken relative to dataDir.
func ResolveRoot(logPath, dataDir string) string {
	if filepath.IsAbs(logPath) {
		return filepath.Clean(logPath)
	}
	rel := strings.TrimPrefix(filepath.ToSlash(logPath), "./data/")
	return filepath.Join(dataDir, filepath.FromSlash(rel))
}

func (l *Ledger) Agent() string { return l.agent }
func (l *Ledger) Path() string  { return l.path }

// Exists reports whether the ledger file is present.
func (l *Ledger) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// snapshot returns the current log, rereading the file when its size or
// modification time changed. The second result is false when the file is
// absent.
func (l *Ledger) snapshot(ctx context.Context) (*Log, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshLocked(ctx)
}

func (l *Ledger) refreshLocked(ctx context.Context) (*Log, bool) {
	info, err := os.Stat(l.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, "Cannot stat ledger", "agent", l.agent, "path", l.path, "error", err)
		}
		l.log, l.stamp = nil, fileStamp{}
		return NewLog(), false
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}
	if l.log != nil && stamp == l.stamp {
		return l.log, true
	}

	log, err := readLog(l.path)
	if err != nil {
		logger.Warn(ctx, "Cannot read ledger", "agent", l.agent, "path", l.path, "error", err)
		return NewLog(), false
	}
	l.log, l.stamp = log, stamp
	return log, true
}

func readLog(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	log := NewLog()
	br := bufio.NewReader(f)
	for {
		line, err := br.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var s Snapshot
			if json.Unmarshal(trimmed, &s) == nil {
				log.Add(s)
			}
		}
		if err == io.EOF {
			return log, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// InitialPosition returns the positions the agent opened ts with: those of
// the highest-id snapshot of the previous session. It is empty when the
// ledger or such a snapshot is absent.
func (l *Ledger) InitialPosition(ctx context.Context, ts string) Positions {
	log, ok := l.snapshot(ctx)
	if !ok {
		logger.Warn(ctx, "Ledger not found", "agent", l.agent, "path", l.path)
		return Positions{}
	}
	prev := l.sessions.PreviousSession(ctx, ts)
	if s, ok := log.Best(prev); ok {
		return s.Positions.Clone()
	}
	return Positions{}
}

// LatestPosition returns the positions in force at ts and the id of the
// snapshot they came from, or an empty map and -1.
//
// The highest-id snapshot of ts itself wins, then that of the previous
// session; both must hold positions. Failing those, the latest non-empty
// snapshot dated before ts is used.
func (l *Ledger) LatestPosition(ctx context.Context, ts string) (Positions, int) {
	log, ok := l.snapshot(ctx)
	if !ok {
		return Positions{}, -1
	}
	s, ok := l.latest(ctx, log, ts)
	if !ok {
		return Positions{}, -1
	}
	return s.Positions.Clone(), s.ID
}

func (l *Ledger) latest(ctx context.Context, log *Log, ts string) (Snapshot, bool) {
	if s, ok := log.Best(ts); ok && len(s.Positions) > 0 {
		return s, true
	}
	if s, ok := log.Best(l.sessions.PreviousSession(ctx, ts)); ok && len(s.Positions) > 0 {
		return s, true
	}
	at, err := timestamp.Parse(ts)
	if err != nil {
		logger.Warn(ctx, "Unparseable session timestamp", "agent", l.agent, "session", ts, "error", err)
		return Snapshot{}, false
	}
	return log.LatestBefore(at)
}

// AppendNoTrade carries the latest positions forward into ts with a
// no_trade action.
func (l *Ledger) AppendNoTrade(ctx context.Context, ts string) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	log, _ := l.refreshLocked(ctx)
	s := Snapshot{Date: ts, Action: NoTrade(), Positions: Positions{}}
	if prev, ok := l.latest(ctx, log, ts); ok {
		s.Positions = prev.Positions.Clone()
		s.raw = prev.raw
	}
	s.ID = log.NextID()
	if err := l.appendLocked(ctx, log, s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// AppendTrade records positions after a trade executed in ts.
func (l *Ledger) AppendTrade(ctx context.Context, ts string, action Action, positions Positions) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	log, _ := l.refreshLocked(ctx)
	s := Snapshot{
		Date:      ts,
		ID:        log.NextID(),
		Action:    &action,
		Positions: positions.Clone(),
	}
	if err := l.appendLocked(ctx, log, s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func (l *Ledger) appendLocked(ctx context.Context, log *Log, s Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", s.ID, err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if _, err := fmt.Fprintln(f, string(b)); err != nil {
		f.Close()
		return fmt.Errorf("append snapshot %d: %w", s.ID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}

	log.Add(s)
	if info, err := os.Stat(l.path); err == nil {
		l.log, l.stamp = log, fileStamp{size: info.Size(), modTime: info.ModTime()}
	}
	logger.Debug(ctx, "Snapshot appended", "agent", l.agent, "date", s.Date, "id", s.ID)
	return nil
}

// Register creates the ledger with a single id-0 snapshot holding zero of
// every symbol and cash of initial cash. It reports false and leaves the file
// alone when the ledger already exists.
func (l *Ledger) Register(ctx context.Context, symbols []string, cash float64, initDate string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err == nil {
		logger.Warn(ctx, "Ledger already exists, skipping registration", "agent", l.agent, "path", l.path)
		return false, nil
	}

	order := make([]string, 0, len(symbols)+1)
	positions := make(Positions, len(symbols)+1)
	for _, sym := range symbols {
		if sym == CashKey {
			continue
		}
		if _, dup := positions[sym]; !dup {
			order = append(order, sym)
		}
		positions[sym] = 0
	}
	order = append(order, CashKey)
	positions[CashKey] = cash

	raw, err := marshalPositions(order, positions)
	if err != nil {
		return false, fmt.Errorf("encode initial positions: %w", err)
	}
	s := Snapshot{Date: timestamp.NormalizeStrict(initDate), ID: 0, Positions: positions, raw: raw}
	b, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("encode initial snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("create ledger: %w", err)
	}
	if _, err := fmt.Fprintln(f, string(b)); err != nil {
		f.Close()
		return false, fmt.Errorf("write initial snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close ledger: %w", err)
	}

	l.log, l.stamp = nil, fileStamp{}
	logger.Info(ctx, "Agent registered", "agent", l.agent, "path", l.path, "cash", cash, "symbols", len(order)-1, "date", s.Date)
	return true, nil
}

// LastSessionDate returns the latest date recorded in the ledger, or
// initDate when the ledger has none.
func (l *Ledger) LastSessionDate(ctx context.Context, initDate string) string {
	log, ok := l.snapshot(ctx)
	if !ok {
		return initDate
	}
	if d, ok := log.MaxDate(); ok {
		return d
	}
	return initDate
}

// Summary describes the last line of the ledger.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	log, ok := l.snapshot(ctx)
	if !ok {
		return Summary{}, fmt.Errorf("%w: %s", ErrNotRegistered, l.path)
	}
	last, ok := log.Last()
	if !ok {
		return Summary{}, ErrEmptyLedger
	}
	return Summary{
		Agent:        l.agent,
		LatestDate:   last.Date,
		Positions:    last.Positions.Clone(),
		TotalRecords: log.Len(),
	}, nil
}

// Snapshots returns every valid line of the ledger in file order.
func (l *Ledger) Snapshots(ctx context.Context) []Snapshot {
	log, _ := l.snapshot(ctx)
	out := make([]Snapshot, log.Len())
	copy(out, log.Snapshots())
	return out
}

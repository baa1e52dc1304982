package ledger

import (
	"sort"
	"time"

	"astock-agent/internal/timestamp"
)

// Log is the in-memory form of a ledger file: snapshots in file order plus
// the next id to hand out. Within one date the snapshot with the highest id
// is authoritative.
type Log struct {
	entries []Snapshot
	best    map[string]int
	nextID  int
}

func NewLog() *Log {
	return &Log{best: map[string]int{}}
}

// Add records s. It does not assign an id; callers that create snapshots use
// NextID. A snapshot without an id (ID < 0) is kept but never becomes the
// authoritative one of its date.
func (l *Log) Add(s Snapshot) {
	i := len(l.entries)
	l.entries = append(l.entries, s)
	key := timestamp.Normalize(s.Date)
	if j, ok := l.best[key]; s.ID >= 0 && (!ok || s.ID > l.entries[j].ID) {
		l.best[key] = i
	}
	if s.ID >= l.nextID {
		l.nextID = s.ID + 1
	}
}

// NextID is one more than the highest id seen, 0 for an empty log.
func (l *Log) NextID() int { return l.nextID }

// MaxID returns the highest id seen, -1 for an empty log.
func (l *Log) MaxID() int { return l.nextID - 1 }

func (l *Log) Len() int { return len(l.entries) }

// Snapshots returns the entries in file order.
func (l *Log) Snapshots() []Snapshot { return l.entries }

// Best returns the highest-id snapshot dated date. Dates compare after hour
// padding.
func (l *Log) Best(date string) (Snapshot, bool) {
	i, ok := l.best[timestamp.Normalize(date)]
	if !ok {
		return Snapshot{}, false
	}
	return l.entries[i], true
}

// Last returns the final line of the file.
func (l *Log) Last() (Snapshot, bool) {
	if len(l.entries) == 0 {
		return Snapshot{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// LatestBefore returns, among snapshots dated strictly before t that hold at
// least one position, the one with the latest date, ties broken by id.
// Snapshots with an unparseable date are ignored.
func (l *Log) LatestBefore(t time.Time) (Snapshot, bool) {
	type candidate struct {
		at time.Time
		s  Snapshot
	}
	var cands []candidate
	for _, s := range l.entries {
		if s.Date == "" || len(s.Positions) == 0 {
			continue
		}
		at, err := timestamp.Parse(s.Date)
		if err != nil || !at.Before(t) {
			continue
		}
		cands = append(cands, candidate{at: at, s: s})
	}
	if len(cands) == 0 {
		return Snapshot{}, false
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if !cands[i].at.Equal(cands[j].at) {
			return cands[i].at.After(cands[j].at)
		}
		return cands[i].s.ID > cands[j].s.ID
	})
	return cands[0].s, true
}

// MaxDate returns the date of the chronologically latest snapshot as
// written in the file.
func (l *Log) MaxDate() (string, bool) {
	var (
		best  string
		bestT time.Time
		found bool
	)
	for _, s := range l.entries {
		at, err := timestamp.Parse(s.Date)
		if err != nil {
			continue
		}
		if !found || at.After(bestT) {
			best, bestT, found = s.Date, at, true
		}
	}
	return best, found
}

package pricelog

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"astock-agent/internal/logger"
	"astock-agent/internal/timestamp"
)

// Markets understood by the file layout.
const (
	MarketCN     = "cn"
	MarketUS     = "us"
	MarketCrypto = "crypto"
)

// Paths locates the daily and intraday price logs of one market.
type Paths struct {
	Daily    string
	Intraday string
}

// DefaultPaths returns the data directory layout used by the price fetchers.
// Only the A-share market has a separate intraday file.
func DefaultPaths(dataDir, market string) Paths {
	switch market {
	case MarketCN:
		return Paths{
			Daily:    filepath.Join(dataDir, "A_stock", "merged.jsonl"),
			Intraday: filepath.Join(dataDir, "A_stock", "merged_hourly.jsonl"),
		}
	case MarketCrypto:
		p := filepath.Join(dataDir, "crypto", "crypto_merged.jsonl")
		return Paths{Daily: p, Intraday: p}
	default:
		p := filepath.Join(dataDir, "merged.jsonl")
		return Paths{Daily: p, Intraday: p}
	}
}

// Store loads each price log at most once and keeps the index until it is
// invalidated.
type Store struct {
	market string
	paths  Paths

	mu      sync.RWMutex
	indexes map[string]*Index
}

func NewStore(market string, paths Paths) *Store {
	if paths.Daily != "" {
		paths.Daily = filepath.Clean(paths.Daily)
	}
	if paths.Intraday != "" {
		paths.Intraday = filepath.Clean(paths.Intraday)
	}
	return &Store{market: market, paths: paths, indexes: map[string]*Index{}}
}

func (s *Store) Market() string { return s.market }

// PathFor picks the intraday file for timestamps with a time component.
func (s *Store) PathFor(ts string) string {
	if timestamp.IsIntraday(ts) && s.paths.Intraday != "" {
		return s.paths.Intraday
	}
	return s.paths.Daily
}

// DailyIndex returns the index of the daily log.
func (s *Store) DailyIndex(ctx context.Context) *Index {
	return s.load(ctx, s.paths.Daily)
}

// IndexFor returns the index of the log matching ts's granularity.
func (s *Store) IndexFor(ctx context.Context, ts string) *Index {
	return s.load(ctx, s.PathFor(ts))
}

func (s *Store) load(ctx context.Context, path string) *Index {
	s.mu.RLock()
	idx, ok := s.indexes[path]
	s.mu.RUnlock()
	if ok {
		return idx
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indexes[path]; ok {
		return idx
	}

	idx, err := LoadIndex(path)
	if err != nil {
		logger.Warn(ctx, "Price log unreadable, treating as empty", "path", path, "error", err)
		idx = emptyIndex(path, true)
	} else if idx.Missing {
		logger.Warn(ctx, "Price log not found", "path", path, "market", s.market)
	} else {
		logger.Debug(ctx, "Price log loaded", "path", path, "records", len(idx.records), "timestamps", len(idx.keys))
	}
	s.indexes[path] = idx
	return idx
}

// Invalidate drops the cached index of path; the next query reloads it.
func (s *Store) Invalidate(path string) {
	s.mu.Lock()
	delete(s.indexes, filepath.Clean(path))
	s.mu.Unlock()
}

// InvalidateAll drops every cached index.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	s.indexes = map[string]*Index{}
	s.mu.Unlock()
}

// Watch invalidates cached indexes whenever a price log file is written,
// created, renamed or removed. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := map[string]bool{}
	files := map[string]bool{}
	for _, p := range []string{s.paths.Daily, s.paths.Intraday} {
		if p == "" {
			continue
		}
		files[filepath.Clean(p)] = true
		dir := filepath.Dir(p)
		if watched[dir] {
			continue
		}
		// The directory is watched rather than the file so that a log
		// replaced by rename is still picked up.
		if err := w.Add(dir); err != nil {
			logger.Warn(ctx, "Cannot watch price log directory", "dir", dir, "error", err)
			continue
		}
		watched[dir] = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(ev.Name)
			if !files[name] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				s.Invalidate(name)
				logger.Debug(ctx, "Price log changed, index invalidated", "path", name, "op", ev.Op.String())
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn(ctx, "Price log watcher error", "error", err)
		}
	}
}

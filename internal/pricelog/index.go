package pricelog

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"astock-agent/internal/timestamp"
)

const (
	seriesPrefix = "Time Series"
	dailySeries  = "Time Series (Daily)"
	metaKey      = "Meta Data"
	symbolKey    = "2. Symbol"
	nameKey      = "2.1. Name"
	buyField     = `1\. buy price`
	sellField    = `4\. sell price`
)

// Bar is one price observation. A nil field means the feed had no usable
// number for it.
type Bar struct {
	Buy  *float64
	Sell *float64
}

// Record is one line of a price log: a symbol and its full time series.
type Record struct {
	Symbol string
	Name   string
	// Series merges every "Time Series*" object of the line, keyed by the
	// timestamp exactly as written in the feed.
	Series map[string]Bar
	// Daily holds the keys of the "Time Series (Daily)" object only.
	Daily map[string]struct{}
	// padded maps zero-padded forms of unpadded intraday keys back to the
	// key as written.
	padded map[string]string
}

// Index is the in-memory form of one price log file.
type Index struct {
	Path    string
	Missing bool

	records  []Record
	bySymbol map[string]int
	// keys is the sorted union of every series key across all records.
	keys []string
	// normalized holds keys after hour padding, sorted.
	normalized []string
	// times holds the parseable intraday keys as instants, ascending and
	// deduplicated. Daily keys never take part in previous-session lookups.
	times []time.Time
}

func emptyIndex(path string, missing bool) *Index {
	return &Index{Path: path, Missing: missing, bySymbol: map[string]int{}}
}

// LoadIndex reads a newline-delimited JSON price log. A missing file yields
// an empty index with Missing set; lines that are not valid JSON objects are
// skipped.
func LoadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyIndex(path, true), nil
		}
		return nil, err
	}
	defer f.Close()
	return readIndex(path, f)
}

func readIndex(path string, r io.Reader) (*Index, error) {
	idx := emptyIndex(path, false)
	keys := map[string]struct{}{}

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if rec, ok := parseRecord(line); ok {
				for k := range rec.Series {
					keys[k] = struct{}{}
				}
				if rec.Symbol != "" {
					idx.bySymbol[rec.Symbol] = len(idx.records)
				}
				idx.records = append(idx.records, rec)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	idx.keys = make([]string, 0, len(keys))
	for k := range keys {
		idx.keys = append(idx.keys, k)
	}
	sort.Strings(idx.keys)

	idx.normalized = make([]string, len(idx.keys))
	for i, k := range idx.keys {
		idx.normalized[i] = timestamp.Normalize(k)
	}
	sort.Strings(idx.normalized)

	seen := map[time.Time]struct{}{}
	for _, k := range idx.normalized {
		if !timestamp.IsIntraday(k) {
			continue
		}
		t, err := time.Parse(timestamp.DateTimeLayout, k)
		if err != nil {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		idx.times = append(idx.times, t)
	}
	sort.Slice(idx.times, func(i, j int) bool { return idx.times[i].Before(idx.times[j]) })
	return idx, nil
}

func parseRecord(line []byte) (Record, bool) {
	if !gjson.ValidBytes(line) {
		return Record{}, false
	}
	doc := gjson.ParseBytes(line)
	if !doc.IsObject() {
		return Record{}, false
	}

	rec := Record{Series: map[string]Bar{}, Daily: map[string]struct{}{}, padded: map[string]string{}}
	doc.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		switch {
		case name == metaKey && value.IsObject():
			value.ForEach(func(k, v gjson.Result) bool {
				switch k.String() {
				case symbolKey:
					rec.Symbol = v.String()
				case nameKey:
					rec.Name = v.String()
				}
				return true
			})
		case strings.HasPrefix(name, seriesPrefix) && value.IsObject():
			daily := name == dailySeries
			value.ForEach(func(ts, bar gjson.Result) bool {
				k := ts.String()
				if daily {
					rec.Daily[k] = struct{}{}
				}
				if _, seen := rec.Series[k]; !seen {
					rec.Series[k] = parseBar(bar)
					if n := timestamp.Normalize(k); n != k {
						rec.padded[n] = k
					}
				}
				return true
			})
		}
		return true
	})
	return rec, true
}

func parseBar(bar gjson.Result) Bar {
	if !bar.IsObject() {
		return Bar{}
	}
	return Bar{
		Buy:  number(bar.Get(buyField)),
		Sell: number(bar.Get(sellField)),
	}
}

// number accepts JSON numbers and numeric strings; anything else is nil.
func number(v gjson.Result) *float64 {
	switch v.Type {
	case gjson.Number:
		f := v.Float()
		return &f
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// Records returns the parsed lines in file order.
func (idx *Index) Records() []Record {
	return idx.records
}

// Record returns the last line carrying symbol.
func (idx *Index) Record(symbol string) (Record, bool) {
	i, ok := idx.bySymbol[symbol]
	if !ok {
		return Record{}, false
	}
	return idx.records[i], true
}

// Bar returns symbol's bar at ts. ok is false when the symbol or the
// timestamp is absent. A zero-padded ts also finds a key the feed wrote
// without padding.
func (idx *Index) Bar(symbol, ts string) (Bar, bool) {
	rec, ok := idx.Record(symbol)
	if !ok {
		return Bar{}, false
	}
	if bar, ok := rec.Series[ts]; ok {
		return bar, true
	}
	if raw, ok := rec.padded[timestamp.Normalize(ts)]; ok {
		return rec.Series[raw], true
	}
	return Bar{}, false
}

// HasSession reports whether ts is a daily key of any record or a prefix
// of any series key. Both sides are compared hour-padded.
func (idx *Index) HasSession(ts string) bool {
	for _, rec := range idx.records {
		if _, ok := rec.Daily[ts]; ok {
			return true
		}
	}
	ts = timestamp.Normalize(ts)
	i := sort.SearchStrings(idx.normalized, ts)
	return i < len(idx.normalized) && strings.HasPrefix(idx.normalized[i], ts)
}

// LatestBefore returns the latest intraday timestamp strictly before t.
func (idx *Index) LatestBefore(t time.Time) (time.Time, bool) {
	i := sort.Search(len(idx.times), func(i int) bool { return !idx.times[i].Before(t) })
	if i == 0 {
		return time.Time{}, false
	}
	return idx.times[i-1], true
}

// Empty reports whether the log holds no parseable intraday timestamp.
func (idx *Index) Empty() bool {
	return len(idx.times) == 0
}

// Keys returns the sorted union of all series keys.
func (idx *Index) Keys() []string {
	return idx.keys
}

// NameMap maps symbols to display names, skipping records without a name.
func (idx *Index) NameMap() map[string]string {
	names := make(map[string]string, len(idx.records))
	for _, rec := range idx.records {
		if rec.Symbol != "" && rec.Name != "" {
			names[rec.Symbol] = rec.Name
		}
	}
	return names
}

// Symbols lists the symbols present in the log in file order.
func (idx *Index) Symbols() []string {
	out := make([]string, 0, len(idx.records))
	for _, rec := range idx.records {
		if rec.Symbol != "" {
			out = append(out, rec.Symbol)
		}
	}
	return out
}

// Point is one bar of a symbol's series with its normalized timestamp.
type Point struct {
	Timestamp string
	Bar
}

// SeriesBefore returns symbol's bars strictly earlier than ts in
// chronological order. Keys that do not parse are dropped.
func (idx *Index) SeriesBefore(symbol, ts string) []Point {
	rec, ok := idx.Record(symbol)
	if !ok {
		return nil
	}
	limit, err := timestamp.Parse(ts)
	if err != nil {
		return nil
	}
	points := make([]Point, 0, len(rec.Series))
	for k, bar := range rec.Series {
		t, err := timestamp.Parse(k)
		if err != nil || !t.Before(limit) {
			continue
		}
		points = append(points, Point{Timestamp: timestamp.Normalize(k), Bar: bar})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points
}

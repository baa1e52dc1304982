// Package timestamp handles session timestamps: a pure date ("2006-01-02")
// for daily sessions or a date and time ("2006-01-02 15:04:05") for intraday
// sessions. Some price sources write the hour without zero padding, so every
// comparison goes through Normalize first.
package timestamp

import (
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// IsIntraday reports whether ts carries a time component.
func IsIntraday(ts string) bool {
	return strings.Contains(ts, " ")
}

// Normalize pads the hour of "YYYY-MM-DD H:MM:SS" to two digits. Date-only
// and unrecognised inputs are returned unchanged, so Normalize is idempotent.
func Normalize(ts string) string {
	datePart, timePart, ok := strings.Cut(ts, " ")
	if !ok {
		return ts
	}
	parts := strings.Split(timePart, ":")
	if len(parts) != 3 {
		return ts
	}
	hour := parts[0]
	if len(hour) < 2 {
		hour = strings.Repeat("0", 2-len(hour)) + hour
	}
	return datePart + " " + hour + ":" + parts[1] + ":" + parts[2]
}

// Parse normalizes ts and parses it in the layout implied by its granularity.
func Parse(ts string) (time.Time, error) {
	ts = Normalize(ts)
	if IsIntraday(ts) {
		return time.Parse(DateTimeLayout, ts)
	}
	return time.Parse(DateLayout, ts)
}

// Format renders t as a date or a date and time.
func Format(t time.Time, intraday bool) string {
	if intraday {
		return t.Format(DateTimeLayout)
	}
	return t.Format(DateLayout)
}

// NormalizeStrict pads the hour only when the result parses as a valid
// date and time. Already well-formed or unparseable input is returned as is.
func NormalizeStrict(ts string) string {
	if !IsIntraday(ts) {
		return ts
	}
	if _, err := time.Parse(DateTimeLayout, ts); err == nil {
		return ts
	}
	padded := Normalize(ts)
	if _, err := time.Parse(DateTimeLayout, padded); err != nil {
		return ts
	}
	return padded
}

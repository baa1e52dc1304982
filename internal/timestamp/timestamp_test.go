package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"2025-10-09":          "2025-10-09",
		"2025-10-09 9:30:00":  "2025-10-09 09:30:00",
		"2025-10-09 10:30:00": "2025-10-09 10:30:00",
		"2025-10-09 9:30":     "2025-10-09 9:30",
		"garbage":             "garbage",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{"2025-10-09", "2025-10-09 9:30:00", "2025-10-09 15:00:00", "x y:z"} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestParse(t *testing.T) {
	d, err := Parse("2025-10-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC), d)

	dt, err := Parse("2025-10-09 9:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 9, 9, 30, 0, 0, time.UTC), dt)

	_, err = Parse("10/09/2025")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	ts := time.Date(2025, 10, 9, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-10-09", Format(ts, false))
	assert.Equal(t, "2025-10-09 14:00:00", Format(ts, true))
}

func TestNormalizeStrict(t *testing.T) {
	assert.Equal(t, "2025-10-09 09:30:00", NormalizeStrict("2025-10-09 9:30:00"))
	assert.Equal(t, "2025-10-09 10:30:00", NormalizeStrict("2025-10-09 10:30:00"))
	assert.Equal(t, "2025-10-09 99:30:00", NormalizeStrict("2025-10-09 99:30:00"))
	assert.Equal(t, "2025-10-09", NormalizeStrict("2025-10-09"))
}

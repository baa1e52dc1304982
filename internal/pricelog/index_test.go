package pricelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyFixture = `{"Meta Data": {"2. Symbol": "600519.SH", "2.1. Name": "Kweichow Moutai"}, "Time Series (Daily)": {"2025-10-09": {"1. buy price": "1450.00", "4. sell price": "1462.50"}, "2025-10-10": {"1. buy price": "1460.00", "4. sell price": "1455.00"}}}
not json at all
{"Meta Data": {"2. Symbol": "601318.SH"}, "Time Series (Daily)": {"2025-10-10": {"1. buy price": 52.3, "4. sell price": "n/a"}}}
["an", "array"]

{"Meta Data": {"2. Symbol": "600036.SH", "2.1. Name": "China Merchants Bank"}, "Time Series (Daily)": {"2025-10-13": {"1. buy price": "41.1", "4. sell price": "41.9"}}}`

const hourlyFixture = `{"Meta Data": {"2. Symbol": "600519.SH"}, "Time Series (60min)": {"2025-10-10 10:30:00": {"1. buy price": "1460", "4. sell price": "1461"}, "2025-10-10 9:30:00": {"1. buy price": "1458", "4. sell price": "1459"}}}
`

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadIndexSkipsMalformedLines(t *testing.T) {
	idx, err := readIndex("mem", strings.NewReader(dailyFixture))
	require.NoError(t, err)

	assert.False(t, idx.Missing)
	assert.Equal(t, []string{"600519.SH", "601318.SH", "600036.SH"}, idx.Symbols())
	assert.Equal(t, []string{"2025-10-09", "2025-10-10", "2025-10-13"}, idx.Keys())
}

func TestBarNumericParsing(t *testing.T) {
	idx, err := readIndex("mem", strings.NewReader(dailyFixture))
	require.NoError(t, err)

	bar, ok := idx.Bar("600519.SH", "2025-10-09")
	require.True(t, ok)
	require.NotNil(t, bar.Buy)
	require.NotNil(t, bar.Sell)
	assert.InDelta(t, 1450.0, *bar.Buy, 1e-9)
	assert.InDelta(t, 1462.5, *bar.Sell, 1e-9)

	bar, ok = idx.Bar("601318.SH", "2025-10-10")
	require.True(t, ok)
	require.NotNil(t, bar.Buy)
	assert.InDelta(t, 52.3, *bar.Buy, 1e-9)
	assert.Nil(t, bar.Sell, "non-numeric sell price")

	_, ok = idx.Bar("601318.SH", "2025-10-09")
	assert.False(t, ok)
	_, ok = idx.Bar("000001.SZ", "2025-10-09")
	assert.False(t, ok)
}

func TestBarFindsUnpaddedKey(t *testing.T) {
	idx, err := readIndex("mem", strings.NewReader(hourlyFixture))
	require.NoError(t, err)

	bar, ok := idx.Bar("600519.SH", "2025-10-10 09:30:00")
	require.True(t, ok)
	assert.InDelta(t, 1458.0, *bar.Buy, 1e-9)

	bar, ok = idx.Bar("600519.SH", "2025-10-10 9:30:00")
	require.True(t, ok)
	assert.InDelta(t, 1459.0, *bar.Sell, 1e-9)
}

func TestHasSession(t *testing.T) {
	daily, err := readIndex("mem", strings.NewReader(dailyFixture))
	require.NoError(t, err)
	assert.True(t, daily.HasSession("2025-10-13"))
	assert.False(t, daily.HasSession("2025-10-11"))

	hourly, err := readIndex("mem", strings.NewReader(hourlyFixture))
	require.NoError(t, err)
	assert.True(t, hourly.HasSession("2025-10-10"), "date prefix of an intraday key")
	assert.True(t, hourly.HasSession("2025-10-10 10:30:00"))
	assert.False(t, hourly.HasSession("2025-10-09"))
}

func TestHasSessionMatchesUnpaddedHour(t *testing.T) {
	hourly, err := readIndex("mem", strings.NewReader(hourlyFixture))
	require.NoError(t, err)

	assert.True(t, hourly.HasSession("2025-10-10 09:30:00"), "feed writes 9:30:00")
	assert.True(t, hourly.HasSession("2025-10-10 9:30:00"))
	assert.False(t, hourly.HasSession("2025-10-10 11:30:00"))
}

func TestLatestBeforeIgnoresDailyKeys(t *testing.T) {
	daily, err := readIndex("mem", strings.NewReader(dailyFixture))
	require.NoError(t, err)

	assert.True(t, daily.Empty())
	_, ok := daily.LatestBefore(time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestLatestBefore(t *testing.T) {
	idx, err := readIndex("mem", strings.NewReader(hourlyFixture))
	require.NoError(t, err)

	prev, ok := idx.LatestBefore(time.Date(2025, 10, 10, 10, 30, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 10, 10, 9, 30, 0, 0, time.UTC), prev)

	_, ok = idx.LatestBefore(time.Date(2025, 10, 10, 9, 30, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestNameMapSkipsEmptyNames(t *testing.T) {
	idx, err := readIndex("mem", strings.NewReader(dailyFixture))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"600519.SH": "Kweichow Moutai",
		"600036.SH": "China Merchants Bank",
	}, idx.NameMap())
}

func TestSeriesBefore(t *testing.T) {
	idx, err := readIndex("mem", strings.NewReader(hourlyFixture))
	require.NoError(t, err)

	points := idx.SeriesBefore("600519.SH", "2025-10-10 11:30:00")
	require.Len(t, points, 2)
	assert.Equal(t, "2025-10-10 09:30:00", points[0].Timestamp)
	assert.Equal(t, "2025-10-10 10:30:00", points[1].Timestamp)

	assert.Empty(t, idx.SeriesBefore("600519.SH", "2025-10-10 09:30:00"))
	assert.Nil(t, idx.SeriesBefore("000001.SZ", "2025-10-10"))
}

func TestLoadIndexMissingFile(t *testing.T) {
	idx, err := LoadIndex(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	assert.True(t, idx.Missing)
	assert.True(t, idx.Empty())
	assert.False(t, idx.HasSession("2025-10-10"))
}

func TestDefaultPaths(t *testing.T) {
	cn := DefaultPaths("data", MarketCN)
	assert.Equal(t, filepath.Join("data", "A_stock", "merged.jsonl"), cn.Daily)
	assert.Equal(t, filepath.Join("data", "A_stock", "merged_hourly.jsonl"), cn.Intraday)

	us := DefaultPaths("data", MarketUS)
	assert.Equal(t, us.Daily, us.Intraday)
	assert.Equal(t, filepath.Join("data", "merged.jsonl"), us.Daily)

	crypto := DefaultPaths("data", MarketCrypto)
	assert.Equal(t, filepath.Join("data", "crypto", "crypto_merged.jsonl"), crypto.Daily)
}

package pricelog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSession string

func (f fixedSession) PreviousSession(context.Context, string) string { return string(f) }

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "A_stock/merged.jsonl", dailyFixture)
	writeFile(t, dir, "A_stock/merged_hourly.jsonl", hourlyFixture)
	return NewStore(MarketCN, DefaultPaths(dir, MarketCN)), dir
}

func TestOpeningPrices(t *testing.T) {
	store, _ := newTestStore(t)
	r := NewReader(store, fixedSession("2025-10-09"))
	ctx := context.Background()

	prices := r.OpeningPrices(ctx, "2025-10-10", []string{"600519.SH", "601318.SH", "600036.SH", "000001.SZ"})
	require.Len(t, prices, 4)

	v, ok := prices.Get("600519.SH")
	assert.True(t, ok)
	assert.InDelta(t, 1460.0, v, 1e-9)
	v, ok = prices.Get("601318.SH")
	assert.True(t, ok)
	assert.InDelta(t, 52.3, v, 1e-9)

	assert.Nil(t, prices["600036.SH"], "no bar on that date")
	assert.Nil(t, prices["000001.SZ"], "symbol not in log")
}

func TestOpeningPricesHourly(t *testing.T) {
	store, _ := newTestStore(t)
	r := NewReader(store, fixedSession(""))

	prices := r.OpeningPrices(context.Background(), "2025-10-10 10:30:00", []string{"600519.SH"})
	v, ok := prices.Get("600519.SH")
	require.True(t, ok)
	assert.InDelta(t, 1460.0, v, 1e-9)
}

func TestOpenAndClosePricesUsesPreviousSessionOnly(t *testing.T) {
	store, _ := newTestStore(t)
	r := NewReader(store, fixedSession("2025-10-10"))

	buy, sell := r.OpenAndClosePrices(context.Background(), "2025-10-13", []string{"600519.SH", "601318.SH", "600036.SH"})

	v, ok := buy.Get("600519.SH")
	require.True(t, ok)
	assert.InDelta(t, 1460.0, v, 1e-9)
	v, ok = sell.Get("600519.SH")
	require.True(t, ok)
	assert.InDelta(t, 1455.0, v, 1e-9)

	assert.NotNil(t, buy["601318.SH"])
	assert.Nil(t, sell["601318.SH"])

	// 600036.SH only trades on the 13th; no forward search.
	assert.Nil(t, buy["600036.SH"])
	assert.Nil(t, sell["600036.SH"])
}

func TestOpenAndClosePricesMissingLog(t *testing.T) {
	store := NewStore(MarketCN, DefaultPaths(filepath.Join(t.TempDir(), "none"), MarketCN))
	r := NewReader(store, fixedSession("2025-10-09"))

	buy, sell := r.OpenAndClosePrices(context.Background(), "2025-10-10", []string{"600519.SH"})
	assert.Equal(t, Prices{"600519.SH": nil}, buy)
	assert.Equal(t, Prices{"600519.SH": nil}, sell)
}

func TestStoreInvalidateReloads(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	before := store.DailyIndex(ctx)
	assert.Same(t, before, store.DailyIndex(ctx))

	writeFile(t, dir, "A_stock/merged.jsonl", `{"Meta Data": {"2. Symbol": "000001.SZ"}, "Time Series (Daily)": {"2025-10-14": {"1. buy price": "11", "4. sell price": "12"}}}`)
	assert.False(t, store.DailyIndex(ctx).HasSession("2025-10-14"))

	store.Invalidate(filepath.Join(dir, "A_stock", "merged.jsonl"))
	assert.True(t, store.DailyIndex(ctx).HasSession("2025-10-14"))
}

func TestNameMapFromDailyLog(t *testing.T) {
	store, _ := newTestStore(t)
	r := NewReader(store, fixedSession(""))
	assert.Equal(t, "Kweichow Moutai", r.NameMap(context.Background())["600519.SH"])
}

package ta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestSMA(t *testing.T) {
	assert.Equal(t, 4.0, SMA([]float64{1, 2, 3, 4, 5}, 3))
	assert.True(t, math.IsNaN(SMA([]float64{1, 2}, 3)))
}

func TestEMA(t *testing.T) {
	// constant input keeps the average flat
	assert.InDelta(t, 7.0, EMA([]float64{7, 7, 7, 7, 7}, 3), 1e-12)
	// seed 2 over [1,2,3], then 4*0.5+2*0.5
	assert.InDelta(t, 3.0, EMA([]float64{1, 2, 3, 4}, 3), 1e-12)
	assert.True(t, math.IsNaN(EMA([]float64{1}, 3)))
}

func TestRSI(t *testing.T) {
	assert.Equal(t, 100.0, RSI(ramp(20), 14))
	assert.InDelta(t, 50.0, RSI([]float64{1, 2, 1, 2, 1}, 4), 1e-9)
	assert.True(t, math.IsNaN(RSI(ramp(5), 14)))
}

func TestBollinger(t *testing.T) {
	mid, up, low := Bollinger([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	assert.InDelta(t, 5.0, mid, 1e-12)
	assert.InDelta(t, 9.0, up, 1e-12)
	assert.InDelta(t, 1.0, low, 1e-12)
}

func TestMACD(t *testing.T) {
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 10
	}
	m, s, h := MACD(flat, 12, 26, 9)
	assert.InDelta(t, 0.0, m, 1e-12)
	assert.InDelta(t, 0.0, s, 1e-12)
	assert.InDelta(t, 0.0, h, 1e-12)

	m, _, _ = MACD(ramp(40), 12, 26, 9)
	assert.Greater(t, m, 0.0, "rising prices put the fast average above the slow one")

	m, _, _ = MACD(ramp(30), 12, 26, 9)
	assert.True(t, math.IsNaN(m))
}

func TestCompute(t *testing.T) {
	ind := Compute(ramp(10))
	assert.Equal(t, 10, ind.Bars)
	assert.Equal(t, 8.0, ind.SMA[5])
	assert.True(t, math.IsNaN(ind.SMA[20]))
	assert.True(t, math.IsNaN(ind.MACD.Line))
}

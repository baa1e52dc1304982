package ta

import "math"

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// EMA seeds with the SMA of the first n values and smooths the rest.
func EMA(closes []float64, n int) float64 {
	s := emaSeries(closes, n)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

func emaSeries(closes []float64, n int) []float64 {
	if len(closes) < n || n <= 0 {
		return nil
	}
	k := 2.0 / float64(n+1)
	out := make([]float64, 0, len(closes)-n+1)
	e := SMA(closes[:n], n)
	out = append(out, e)
	for _, c := range closes[n:] {
		e = c*k + e*(1-k)
		out = append(out, e)
	}
	return out
}

func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

// MACD returns the fast-slow EMA spread, its signal EMA and the histogram.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist float64) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal-1 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	f := emaSeries(closes, fast)
	s := emaSeries(closes, slow)
	// align the fast series to the slow one
	f = f[len(f)-len(s):]
	line := make([]float64, len(s))
	for i := range s {
		line[i] = f[i] - s[i]
	}
	macd = line[len(line)-1]
	sig = EMA(line, signal)
	hist = macd - sig
	return
}

type Indicators struct {
	SMA  map[int]float64
	EMA  map[int]float64
	RSI  float64
	BB   struct{ Middle, Upper, Lower float64 }
	MACD struct{ Line, Signal, Hist float64 }
	Bars int
}

// Compute fills the indicator set used in prompts. Values that need more
// history than closes holds are NaN.
func Compute(closes []float64) Indicators {
	var ind Indicators
	ind.Bars = len(closes)
	ind.SMA = map[int]float64{5: SMA(closes, 5), 20: SMA(closes, 20)}
	ind.EMA = map[int]float64{12: EMA(closes, 12), 26: EMA(closes, 26)}
	ind.RSI = RSI(closes, 14)
	ind.BB.Middle, ind.BB.Upper, ind.BB.Lower = Bollinger(closes, 20, 2)
	ind.MACD.Line, ind.MACD.Signal, ind.MACD.Hist = MACD(closes, 12, 26, 9)
	return ind
}

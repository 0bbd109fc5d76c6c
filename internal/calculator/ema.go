package calculator

import "math"

// EMASeries returns the exponential moving average with smoothing factor 2/(period+1).
//
// The average is seeded with the simple mean of the first period defined values,
// so leading NaN inputs (e.g. a MACD line still warming up) shift the seed forward.
// Every index before the seed is NaN.
func EMASeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}

	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	seed := start + period - 1
	if seed >= len(values) {
		return out
	}

	sum := 0.0
	for i := start; i <= seed; i++ {
		sum += values[i]
	}
	current := sum / float64(period)
	out[seed] = current

	k := 2.0 / float64(period+1)
	for i := seed + 1; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		current = values[i]*k + current*(1-k)
		out[i] = current
	}
	return out
}

// MACDSeries computes the MACD line, its signal line and the histogram.
// All three are aligned with closes; undefined points are NaN.
func MACDSeries(closes []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)

	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	sig = EMASeries(macd, signal)

	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist
}

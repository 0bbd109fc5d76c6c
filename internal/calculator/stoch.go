package calculator

// StochasticSeries computes the smoothed stochastic oscillator used by KDJ.
//
// raw %K at i is the close's position inside the highest-high / lowest-low range of
// the last length bars, scaled to 0~100 (50 when the range is flat). K is the SMA of
// raw %K over smoothK, D the SMA of K over smoothD.
func StochasticSeries(highs, lows, closes []float64, length, smoothK, smoothD int) (k, d []float64) {
	raw := nanSeries(len(closes))
	if length > 0 && len(highs) == len(closes) && len(lows) == len(closes) {
		for i := length - 1; i < len(closes); i++ {
			hh, ll, err := WindowRange(highs, lows, i, length)
			if err != nil {
				continue
			}
			pos, err := RangePosition(closes[i], hh, ll)
			if err != nil {
				continue
			}
			raw[i] = 100 * pos
		}
	}
	k = SMASeries(raw, smoothK)
	d = SMASeries(k, smoothD)
	return k, d
}

// KDJSeries extends the stochastic oscillator with J = 3K - 2D.
func KDJSeries(highs, lows, closes []float64, length, smoothK, smoothD int) (k, d, j []float64) {
	k, d = StochasticSeries(highs, lows, closes, length, smoothK, smoothD)
	j = make([]float64, len(k))
	for i := range k {
		j[i] = 3*k[i] - 2*d[i]
	}
	return k, d, j
}

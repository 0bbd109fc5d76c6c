package indicator

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"

	"StockLens/internal/calculator"
)

// TalibBackend delegates to go-talib. TA-Lib pads the warm-up span with zeros;
// those points are masked back to NaN using each function's lookback, and
// inputs no longer than the lookback are answered without calling TA-Lib.
type TalibBackend struct{}

func (TalibBackend) Name() string { return "talib" }

func (TalibBackend) SMA(values []float64, period int) (out []float64, err error) {
	if period <= 0 {
		return nil, fmt.Errorf("sma period %d: %w", period, ErrUnavailable)
	}
	lookback := period - 1
	if len(values) <= lookback {
		return nanFill(len(values)), nil
	}
	defer recoverKernel("SMA", &err)
	return maskWarmup(talib.Sma(values, period), lookback), nil
}

func (TalibBackend) MACD(closes []float64, fast, slow, signal int) (macd, sig, hist []float64, err error) {
	lookback := max(fast, slow) - 1 + signal - 1
	if len(closes) <= lookback {
		n := len(closes)
		return nanFill(n), nanFill(n), nanFill(n), nil
	}
	defer recoverKernel("MACD", &err)
	m, s, _ := talib.Macd(closes, fast, slow, signal)
	macd = maskWarmup(m, lookback)
	sig = maskWarmup(s, lookback)
	hist = make([]float64, len(closes))
	for i := range hist {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist, nil
}

// KDJ builds raw %K from TA-Lib's rolling MAX/MIN instead of STOCH, which
// answers 0 on a flat range where K is pinned to 50.
func (TalibBackend) KDJ(highs, lows, closes []float64, length, smoothK, smoothD int) (k, d, j []float64, err error) {
	n := len(closes)
	if length <= 0 || smoothK <= 0 || smoothD <= 0 {
		return nil, nil, nil, fmt.Errorf("kdj params %d/%d/%d: %w", length, smoothK, smoothD, ErrUnavailable)
	}
	lookback := (length - 1) + (smoothK - 1) + (smoothD - 1)
	if n <= lookback {
		return nanFill(n), nanFill(n), nanFill(n), nil
	}
	defer recoverKernel("KDJ", &err)

	hh, ll := highs, lows
	if length > 1 { // MAX/MIN do nothing below a period of 2
		hh, ll = talib.Max(highs, length), talib.Min(lows, length)
	}
	start := length - 1
	raw := make([]float64, n-start)
	for i := range raw {
		idx := start + i
		if rng := hh[idx] - ll[idx]; rng > 0 {
			raw[i] = 100 * math.Min(math.Max((closes[idx]-ll[idx])/rng, 0), 1)
		} else {
			raw[i] = 50
		}
	}
	kPart := talib.Sma(raw, smoothK)
	dPart := talib.Sma(kPart[smoothK-1:], smoothD)

	k, d, j = nanFill(n), nanFill(n), nanFill(n)
	for i := start + smoothK - 1; i < n; i++ {
		k[i] = kPart[i-start]
	}
	for i := start + smoothK - 1 + smoothD - 1; i < n; i++ {
		d[i] = dPart[i-start-(smoothK-1)]
		j[i] = 3*k[i] - 2*d[i]
	}
	return k, d, j, nil
}

// RSI uses TA-Lib's Wilder RSI. TA-Lib answers 0 while nothing has moved yet;
// those points become 50. Periods below 2 are not supported by TA-Lib and go
// to the native kernel.
func (TalibBackend) RSI(closes []float64, period int) (out []float64, err error) {
	if period <= 0 {
		return nil, fmt.Errorf("rsi period %d: %w", period, ErrUnavailable)
	}
	if period < 2 {
		return calculator.RSISeries(closes, period), nil
	}
	if len(closes) <= period {
		return nanFill(len(closes)), nil
	}
	defer recoverKernel("RSI", &err)
	out = maskWarmup(talib.Rsi(closes, period), period)
	flatUntil := firstMove(closes)
	for i := period; i < flatUntil; i++ {
		out[i] = 50
	}
	return out, nil
}

// firstMove returns the index of the first close that differs from its
// predecessor, or len(closes) when the series never moves.
func firstMove(closes []float64) int {
	for i := 1; i < len(closes); i++ {
		if closes[i] != closes[i-1] {
			return i
		}
	}
	return len(closes)
}

// recoverKernel turns a TA-Lib panic into ErrUnavailable.
func recoverKernel(fn string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("talib %s: %v: %w", fn, r, ErrUnavailable)
	}
}

func maskWarmup(values []float64, lookback int) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

func nanFill(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

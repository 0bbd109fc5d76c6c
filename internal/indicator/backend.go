package indicator

import (
	"errors"
	"fmt"

	"StockLens/internal/calculator"
)

// ErrUnavailable means a computation cannot run. The registry drops the
// indicator from the batch instead of failing the request.
var ErrUnavailable = errors.New("indicator unavailable")

// Backend provides the numeric kernels. Every returned slice is aligned with
// the input and uses NaN for undefined points.
type Backend interface {
	Name() string
	SMA(values []float64, period int) ([]float64, error)
	MACD(closes []float64, fast, slow, signal int) (macd, sig, hist []float64, err error)
	KDJ(highs, lows, closes []float64, length, smoothK, smoothD int) (k, d, j []float64, err error)
	RSI(closes []float64, period int) ([]float64, error)
}

// NewBackend resolves a backend by name ("native" or "talib").
func NewBackend(name string) (Backend, error) {
	switch name {
	case "", "native":
		return NativeBackend{}, nil
	case "talib":
		return TalibBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown indicator backend %q", name)
	}
}

// NativeBackend computes everything in-process with the calculator package.
type NativeBackend struct{}

func (NativeBackend) Name() string { return "native" }

func (NativeBackend) SMA(values []float64, period int) ([]float64, error) {
	return calculator.SMASeries(values, period), nil
}

func (NativeBackend) MACD(closes []float64, fast, slow, signal int) ([]float64, []float64, []float64, error) {
	macd, sig, hist := calculator.MACDSeries(closes, fast, slow, signal)
	return macd, sig, hist, nil
}

func (NativeBackend) KDJ(highs, lows, closes []float64, length, smoothK, smoothD int) ([]float64, []float64, []float64, error) {
	k, d, j := calculator.KDJSeries(highs, lows, closes, length, smoothK, smoothD)
	return k, d, j, nil
}

func (NativeBackend) RSI(closes []float64, period int) ([]float64, error) {
	return calculator.RSISeries(closes, period), nil
}

package calculator

import (
	"errors"
	"math"
)

// ErrInvalidPeriod is returned when a window length is not positive.
var ErrInvalidPeriod = errors.New("period must be positive")

// SMASeries returns the trailing simple moving average at every index.
// Index i is NaN until period values ending at i are all defined.
func SMASeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		defined := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				defined = false
				break
			}
			sum += values[j]
		}
		if defined {
			out[i] = sum / float64(period)
		}
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

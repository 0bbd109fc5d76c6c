package calculator

import (
	"errors"
	"math"
)

// WindowRange scans the window of the given length ending at index end (inclusive)
// and returns the highest high and the lowest low.
func WindowRange(highs, lows []float64, end, window int) (high, low float64, err error) {
	if window <= 0 {
		return 0, 0, ErrInvalidPeriod
	}
	if end < 0 || end >= len(highs) || end >= len(lows) {
		return 0, 0, errors.New("window end out of range")
	}
	start := end - window + 1
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i <= end; i++ {
		if highs[i] > high {
			high = highs[i]
		}
		if lows[i] < low {
			low = lows[i]
		}
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
// A flat range yields the midpoint.
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

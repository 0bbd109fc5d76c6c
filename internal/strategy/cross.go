package strategy

import (
	"fmt"
	"math"

	"StockLens/internal/model"
)

// NullPolicy decides how undefined (warm-up) points take part in cross detection.
type NullPolicy int

const (
	// NullAsZero substitutes 0 for undefined points. A cross can therefore fire
	// on the bar where a long average first becomes defined.
	NullAsZero NullPolicy = iota
	// SkipWarmup reports no cross unless all four compared points are defined.
	SkipWarmup
)

// DetectCross compares the last two points of a and b. A golden cross fires when
// a was strictly below b and is now strictly above; a death cross is the mirror.
// Undefined points are NaN and handled per policy.
func DetectCross(a, b []float64, name string, policy NullPolicy) []model.SignalEvent {
	if len(a) < 2 || len(b) < 2 {
		return nil
	}
	prevA, curA := a[len(a)-2], a[len(a)-1]
	prevB, curB := b[len(b)-2], b[len(b)-1]

	if policy == SkipWarmup {
		for _, v := range []float64{prevA, curA, prevB, curB} {
			if math.IsNaN(v) {
				return nil
			}
		}
	} else {
		prevA, curA = zeroIfNaN(prevA), zeroIfNaN(curA)
		prevB, curB = zeroIfNaN(prevB), zeroIfNaN(curB)
	}

	var events []model.SignalEvent
	if prevA < prevB && curA > curB {
		events = append(events, model.SignalEvent{
			Kind:   model.SignalGoldenCross,
			Source: name,
			Text:   fmt.Sprintf("%s 金叉", name),
		})
	}
	if prevA > prevB && curA < curB {
		events = append(events, model.SignalEvent{
			Kind:   model.SignalDeathCross,
			Source: name,
			Text:   fmt.Sprintf("%s 死叉", name),
		})
	}
	return events
}

// DetectThreshold inspects only the latest RSI value.
func DetectThreshold(rsi []float64, overbought, oversold float64) []model.SignalEvent {
	if len(rsi) == 0 {
		return nil
	}
	latest := rsi[len(rsi)-1]
	if math.IsNaN(latest) {
		return nil
	}
	var events []model.SignalEvent
	if latest > overbought {
		events = append(events, model.SignalEvent{
			Kind:   model.SignalOverbought,
			Source: "RSI",
			Text:   fmt.Sprintf("RSI 超买 (>%g)", overbought),
		})
	}
	if latest < oversold {
		events = append(events, model.SignalEvent{
			Kind:   model.SignalOversold,
			Source: "RSI",
			Text:   fmt.Sprintf("RSI 超卖 (<%g)", oversold),
		})
	}
	return events
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

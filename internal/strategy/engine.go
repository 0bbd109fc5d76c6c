package strategy

import (
	"fmt"

	"StockLens/internal/indicator"
	"StockLens/internal/model"
)

// Options configures signal detection.
type Options struct {
	MAShort    int
	MALong     int
	Overbought float64
	Oversold   float64
	Policy     NullPolicy
}

// DefaultOptions returns MA10/MA30 crosses and RSI 80/20 thresholds with null-as-zero crosses.
func DefaultOptions() Options {
	return Options{
		MAShort:    10,
		MALong:     30,
		Overbought: 80,
		Oversold:   20,
		Policy:     NullAsZero,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.MAShort <= 0 || o.MALong <= 0 {
		return fmt.Errorf("ma periods must be positive")
	}
	if o.MAShort >= o.MALong {
		return fmt.Errorf("ma_short (%d) must be less than ma_long (%d)", o.MAShort, o.MALong)
	}
	if o.Oversold >= o.Overbought {
		return fmt.Errorf("oversold (%g) must be below overbought (%g)", o.Oversold, o.Overbought)
	}
	return nil
}

// Detector derives signal events from a price series.
type Detector struct {
	registry *indicator.Registry
	opts     Options
}

// NewDetector creates a Detector. MACD and RSI use the params registered in registry.
func NewDetector(registry *indicator.Registry, opts Options) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Detector{registry: registry, opts: opts}, nil
}

// Options returns the detector configuration.
func (d *Detector) Options() Options { return d.opts }

// WithMA returns a copy of the detector using other MA periods.
func (d *Detector) WithMA(short, long int) (*Detector, error) {
	opts := d.opts
	opts.MAShort, opts.MALong = short, long
	return NewDetector(d.registry, opts)
}

// Detect evaluates MA cross, MACD cross and RSI thresholds, in that order.
func (d *Detector) Detect(series model.PriceSeries) ([]model.SignalEvent, error) {
	if series.Len() == 0 {
		return nil, indicator.ErrEmptySeries
	}
	var events []model.SignalEvent

	short, long := d.opts.MAShort, d.opts.MALong
	if ma, ok := d.registry.Evaluate(indicator.NewMA(short, long), series); ok {
		name := fmt.Sprintf("MA%d/MA%d", short, long)
		events = append(events, DetectCross(
			ma.Values(indicator.MALabel(short)),
			ma.Values(indicator.MALabel(long)),
			name, d.opts.Policy)...)
	}

	results, err := d.registry.Calculate([]string{indicator.KindMACD.String(), indicator.KindRSI.String()}, series)
	if err != nil {
		return nil, err
	}
	if macd := find(results, indicator.KindMACD.String()); macd != nil {
		events = append(events, DetectCross(
			macd.Values(indicator.LabelMACD),
			macd.Values(indicator.LabelSignal),
			"MACD", d.opts.Policy)...)
	}
	if rsi := find(results, indicator.KindRSI.String()); rsi != nil {
		events = append(events, DetectThreshold(rsi.Values(indicator.LabelRSI), d.opts.Overbought, d.opts.Oversold)...)
	}
	return events, nil
}

func find(results []model.IndicatorOutput, name string) *model.IndicatorOutput {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

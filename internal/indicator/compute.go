package indicator

import (
	"fmt"

	"StockLens/internal/model"
)

// Compute runs one spec against a series. A nil output with an error wrapping
// ErrUnavailable means the indicator contributes nothing; any other error is a
// precondition violation.
func Compute(spec Spec, series model.PriceSeries, backend Backend) (*model.IndicatorOutput, error) {
	if len(series.Timestamps) != len(series.Bars) {
		return nil, ErrMisaligned
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch p := spec.Params.(type) {
	case MAParams:
		return computeMA(p, series, backend)
	case MACDParams:
		return computeMACD(p, series, backend)
	case KDJParams:
		return computeKDJ(p, series, backend)
	case RSIParams:
		return computeRSI(p, series, backend)
	default:
		return nil, fmt.Errorf("unsupported params %T", p)
	}
}

func computeMA(p MAParams, s model.PriceSeries, b Backend) (*model.IndicatorOutput, error) {
	closes := s.Closes()
	out := model.NewIndicatorOutput(KindMA.String(), KindMA.PlotType())
	for _, period := range p.Periods {
		values, err := b.SMA(closes, period)
		if err != nil {
			return nil, err
		}
		out.Add(MALabel(period), s.Timestamps, values)
	}
	return out, nil
}

func computeMACD(p MACDParams, s model.PriceSeries, b Backend) (*model.IndicatorOutput, error) {
	macd, sig, hist, err := b.MACD(s.Closes(), p.Fast, p.Slow, p.Signal)
	if err != nil {
		return nil, err
	}
	out := model.NewIndicatorOutput(KindMACD.String(), KindMACD.PlotType())
	out.Add(LabelMACD, s.Timestamps, macd)
	out.Add(LabelSignal, s.Timestamps, sig)
	out.Add(LabelHist, s.Timestamps, hist)
	return out, nil
}

func computeKDJ(p KDJParams, s model.PriceSeries, b Backend) (*model.IndicatorOutput, error) {
	if !hasRange(s) {
		return nil, fmt.Errorf("KDJ needs high/low data: %w", ErrUnavailable)
	}
	k, d, j, err := b.KDJ(s.Highs(), s.Lows(), s.Closes(), p.Length, p.SmoothK, p.SmoothD)
	if err != nil {
		return nil, err
	}
	out := model.NewIndicatorOutput(KindKDJ.String(), KindKDJ.PlotType())
	out.Add(LabelK, s.Timestamps, k)
	out.Add(LabelD, s.Timestamps, d)
	out.Add(LabelJ, s.Timestamps, j)
	return out, nil
}

func computeRSI(p RSIParams, s model.PriceSeries, b Backend) (*model.IndicatorOutput, error) {
	values, err := b.RSI(s.Closes(), p.Length)
	if err != nil {
		return nil, err
	}
	out := model.NewIndicatorOutput(KindRSI.String(), KindRSI.PlotType())
	out.Add(LabelRSI, s.Timestamps, values)
	return out, nil
}

// hasRange reports whether any bar carries a high or low price.
func hasRange(s model.PriceSeries) bool {
	for _, bar := range s.Bars {
		if bar.High != 0 || bar.Low != 0 {
			return true
		}
	}
	return false
}

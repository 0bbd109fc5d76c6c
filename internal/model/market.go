package model

import (
	"strings"
	"time"
)

// TimestampLayout is the x-axis label format shared by candles and indicator points.
const TimestampLayout = "2006-01-02"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Period is the bar interval of a series.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod maps user input to a Period. Unknown values fall back to daily.
func ParsePeriod(s string) Period {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly", "week", "w", "1w":
		return PeriodWeekly
	case "monthly", "month", "m", "1m":
		return PeriodMonthly
	default:
		return PeriodDaily
	}
}

// PriceSeries holds one security's bars in ascending date order together with
// the pre-formatted timestamp of every bar.
type PriceSeries struct {
	Code       string   `json:"code"`
	Period     Period   `json:"period"`
	Bars       []OHLCV  `json:"bars"`
	Timestamps []string `json:"-"`
}

// NewPriceSeries builds a series and caches the YYYY-MM-DD label of every bar.
// The bars slice is copied.
func NewPriceSeries(code string, period Period, bars []OHLCV) PriceSeries {
	s := PriceSeries{
		Code:       code,
		Period:     period,
		Bars:       make([]OHLCV, len(bars)),
		Timestamps: make([]string, len(bars)),
	}
	copy(s.Bars, bars)
	for i, b := range s.Bars {
		s.Timestamps[i] = b.Time.Format(TimestampLayout)
	}
	return s
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Clone returns a deep copy that shares no backing arrays with s.
func (s PriceSeries) Clone() PriceSeries {
	c := PriceSeries{
		Code:       s.Code,
		Period:     s.Period,
		Bars:       make([]OHLCV, len(s.Bars)),
		Timestamps: make([]string, len(s.Timestamps)),
	}
	copy(c.Bars, s.Bars)
	copy(c.Timestamps, s.Timestamps)
	return c
}

// Closes extracts the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column.
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column.
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Between returns the bars whose date falls in [start, end]. Zero bounds are open.
func (s PriceSeries) Between(start, end time.Time) PriceSeries {
	bars := make([]OHLCV, 0, len(s.Bars))
	for _, b := range s.Bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		bars = append(bars, b)
	}
	return NewPriceSeries(s.Code, s.Period, bars)
}

// Candle is the wire shape of one bar in API responses.
type Candle struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Candles converts the series to its API representation.
func (s PriceSeries) Candles() []Candle {
	out := make([]Candle, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = Candle{
			Time:   s.Timestamps[i],
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return out
}

package collector

import (
	"context"
	"time"

	"StockLens/internal/model"
)

// MockFetcher returns deterministic synthetic data for development and
// testing. It is only used when selected explicitly.
type MockFetcher struct {
	Bars []model.OHLCV // returned instead of the generated series when set
	Err  error         // returned from every call when set
	Now  func() time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, period model.Period, limit int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return Normalize(m.Bars), nil
	}
	if limit <= 0 {
		limit = 200
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}

	days := limit
	switch period {
	case model.PeriodWeekly:
		days = limit * 5
	case model.PeriodMonthly:
		days = limit * 22
	}
	bars := Resample(generateMockBars(now(), days), period)
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// generateMockBars builds count business-day bars ending at or before end.
// close[i] is 100 plus the trailing 5-bar mean of the index (100 while fewer
// than 5 indices exist); open/high/low sit at +1/+3/-2 around it.
func generateMockBars(end time.Time, count int) []model.OHLCV {
	dates := make([]time.Time, 0, count)
	y, mo, d := end.Date()
	day := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	for len(dates) < count {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, day)
		}
		day = day.AddDate(0, 0, -1)
	}

	bars := make([]model.OHLCV, count)
	for i := range bars {
		c := 100.0
		if i >= 4 {
			c += float64(i) - 2 // mean of i-4..i
		}
		bars[i] = model.OHLCV{
			Time:   dates[count-1-i],
			Open:   c + 1,
			High:   c + 3,
			Low:    c - 2,
			Close:  c,
			Volume: 1000000,
		}
	}
	return bars
}

package collector

import (
	"math"
	"sort"
	"time"

	"StockLens/internal/model"
)

// Normalize returns a cleaned copy of bars: times truncated to their calendar
// date (as UTC midnight), sorted ascending, one bar per date (the last one
// wins), bars without a positive close dropped.
func Normalize(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		y, m, d := b.Time.Date()
		b.Time = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(b.Time) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

// Resample aggregates daily bars into weekly (ISO week) or monthly bars. Each
// aggregate is dated by its first trading day. Daily input is returned as is.
func Resample(daily []model.OHLCV, period model.Period) []model.OHLCV {
	if len(daily) == 0 {
		return nil
	}
	var key func(time.Time) int
	switch period {
	case model.PeriodWeekly:
		key = func(t time.Time) int {
			y, w := t.ISOWeek()
			return y*100 + w
		}
	case model.PeriodMonthly:
		key = func(t time.Time) int { return t.Year()*100 + int(t.Month()) }
	default:
		out := make([]model.OHLCV, len(daily))
		copy(out, daily)
		return out
	}

	var agg []model.OHLCV
	cur := daily[0]
	curKey := key(cur.Time)
	for _, d := range daily[1:] {
		if k := key(d.Time); k != curKey {
			agg = append(agg, cur)
			cur, curKey = d, k
			continue
		}
		if d.High > cur.High {
			cur.High = d.High
		}
		if d.Low < cur.Low {
			cur.Low = d.Low
		}
		cur.Close = d.Close
		cur.Volume += d.Volume
	}
	return append(agg, cur)
}

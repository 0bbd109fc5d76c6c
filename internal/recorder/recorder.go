package recorder

import (
	"context"
	"time"

	"StockLens/internal/model"
)

// SignalRecord is one signal event detected by a watchlist scan.
type SignalRecord struct {
	Code    string            `json:"code"`
	Period  model.Period      `json:"period"`
	BarDate string            `json:"bar_date"`
	Event   model.SignalEvent `json:"event"`
}

// Recorder persists raw bar series and signal history.
type Recorder interface {
	Name() string
	Load(ctx context.Context, code string, period model.Period) ([]model.OHLCV, error)
	Store(ctx context.Context, code string, period model.Period, bars []model.OHLCV) error
	RecordSignals(ctx context.Context, recs []SignalRecord) error
	SignalHistory(ctx context.Context, code string, since time.Time) ([]SignalRecord, error)
	Close() error
}

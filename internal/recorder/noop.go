package recorder

import (
	"context"
	"time"

	"StockLens/internal/cache"
	"StockLens/internal/model"
)

// NoopRecorder is used when SQLite is not configured. Every load misses.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Name() string { return "noop" }

func (n *NoopRecorder) Load(context.Context, string, model.Period) ([]model.OHLCV, error) {
	return nil, cache.ErrMiss
}

func (n *NoopRecorder) Store(context.Context, string, model.Period, []model.OHLCV) error { return nil }
func (n *NoopRecorder) RecordSignals(context.Context, []SignalRecord) error           { return nil }

func (n *NoopRecorder) SignalHistory(context.Context, string, time.Time) ([]SignalRecord, error) {
	return nil, nil
}

func (n *NoopRecorder) Close() error { return nil }

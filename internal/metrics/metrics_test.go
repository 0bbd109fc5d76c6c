package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"StockLens/internal/model"
)

func TestObservers(t *testing.T) {
	m := NewMetrics()

	m.ObserveCompute("RSI", "ok", time.Millisecond)
	m.ObserveCompute("RSI", "ok", time.Millisecond)
	m.ObserveCompute("FOO", "unknown", 0)
	m.ObserveCache("redis", "hit")
	m.ObserveFetch("yahoo", nil, time.Second)
	m.ObserveFetch("yahoo", errors.New("boom"), time.Second)
	m.ObserveSignals([]model.SignalEvent{
		{Kind: model.SignalGoldenCross}, {Kind: model.SignalGoldenCross}, {Kind: model.SignalOversold},
	})

	if got := testutil.ToFloat64(m.Computations.WithLabelValues("RSI", "ok")); got != 2 {
		t.Errorf("expected 2 RSI computations, got %v", got)
	}
	if got := testutil.ToFloat64(m.Computations.WithLabelValues("FOO", "unknown")); got != 1 {
		t.Errorf("expected 1 unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.SeriesCache.WithLabelValues("redis", "hit")); got != 1 {
		t.Errorf("expected 1 cache hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.Fetches.WithLabelValues("yahoo", "error")); got != 1 {
		t.Errorf("expected 1 failed fetch, got %v", got)
	}
	if got := testutil.ToFloat64(m.Signals.WithLabelValues(string(model.SignalGoldenCross))); got != 2 {
		t.Errorf("expected 2 golden crosses, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("/api/health", "200", 5*time.Millisecond)
	m.ScanCompleted(time.Unix(1700000000, 0))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`stocklens_http_requests_total{route="/api/health",status="200"} 1`,
		`stocklens_watchlist_scan_last_success_timestamp_seconds 1.7e+09`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

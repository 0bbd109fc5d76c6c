package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"StockLens/internal/collector"
	"StockLens/internal/indicator"
	"StockLens/internal/metrics"
	"StockLens/internal/model"
	"StockLens/internal/recorder"
	"StockLens/internal/strategy"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var fixedNow = time.Date(2024, 6, 14, 18, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, fetcher collector.Fetcher, opts ...Option) *gin.Engine {
	t.Helper()
	log := zerolog.Nop()
	reg, err := indicator.NewDefaultRegistry(nil, log, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	det, err := strategy.NewDetector(reg, strategy.DefaultOptions())
	if err != nil {
		t.Fatalf("detector: %v", err)
	}
	s := NewServer(collector.NewCollector(fetcher, 200, log), reg, det, log, opts...)
	s.now = func() time.Time { return fixedNow }
	return s.Router()
}

func mockFetcher() *collector.MockFetcher {
	return &collector.MockFetcher{Now: func() time.Time { return fixedNow }}
}

func get(t *testing.T, r http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestIndexAndHealth(t *testing.T) {
	r := newTestServer(t, mockFetcher())

	w := get(t, r, "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), banner) {
		t.Errorf("unexpected index response: %d %s", w.Code, w.Body.String())
	}
	w = get(t, r, "/api/health")
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"ok"}` {
		t.Errorf("unexpected health response: %d %s", w.Code, w.Body.String())
	}
}

func TestIndicatorConfig(t *testing.T) {
	w := get(t, newTestServer(t, mockFetcher()), "/api/indicators/config")
	var body struct {
		Indicators []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"indicators"`
	}
	decode(t, w, &body)
	if len(body.Indicators) != 4 {
		t.Fatalf("expected 4 indicators, got %+v", body.Indicators)
	}
	if body.Indicators[0].Name != "KDJ" || body.Indicators[0].Type != "oscillator" {
		t.Errorf("unexpected first config: %+v", body.Indicators[0])
	}
}

type dataResponse struct {
	Code       string         `json:"code"`
	Period     string         `json:"period"`
	Candles    []model.Candle `json:"candles"`
	Indicators []struct {
		Name   string                   `json:"name"`
		Type   string                   `json:"type"`
		Series map[string][]model.Point `json:"series"`
	} `json:"indicators"`
}

func TestStockData(t *testing.T) {
	w := get(t, newTestServer(t, mockFetcher()), "/api/data?code=600519&indicators=MA,%20RSI,FOO")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var body dataResponse
	decode(t, w, &body)

	if body.Code != "600519" || body.Period != "daily" {
		t.Errorf("unexpected echo: %s %s", body.Code, body.Period)
	}
	if len(body.Candles) != 200 || body.Candles[199].Time != "2024-06-14" {
		t.Fatalf("unexpected candles: %d", len(body.Candles))
	}
	if len(body.Indicators) != 2 || body.Indicators[0].Name != "MA" || body.Indicators[1].Name != "RSI" {
		t.Fatalf("unexpected indicators: %+v", body.Indicators)
	}
	ma5 := body.Indicators[0].Series["MA_5"]
	if len(ma5) != 200 || ma5[3].Value != nil || ma5[4].Value == nil {
		t.Errorf("MA_5 should be null during warm-up only")
	}
}

func TestStockData_DateRange(t *testing.T) {
	r := newTestServer(t, mockFetcher())
	w := get(t, r, "/api/data?code=600519&period=weekly&start=2024-05-01&end=2024-05-31")
	var body dataResponse
	decode(t, w, &body)
	if body.Period != "weekly" {
		t.Errorf("period should be echoed, got %q", body.Period)
	}
	for _, c := range body.Candles {
		if c.Time < "2024-05-01" || c.Time > "2024-05-31" {
			t.Errorf("candle %s outside range", c.Time)
		}
	}
	if len(body.Candles) == 0 {
		t.Error("expected weekly candles in May")
	}

	w = get(t, r, "/api/data?code=600519&start=2030-01-01&indicators=MA")
	decode(t, w, &body)
	if w.Code != http.StatusOK || len(body.Candles) != 0 || len(body.Indicators) != 0 {
		t.Errorf("empty range should yield empty lists, got %d %s", w.Code, w.Body.String())
	}
}

func TestBadRequests(t *testing.T) {
	r := newTestServer(t, mockFetcher())
	for _, target := range []string{
		"/api/data",
		"/api/data?code=600519&start=06/01/2024",
		"/api/signals?code=",
		"/api/signals?code=600519&ma_short=abc",
		"/api/signals?code=600519&ma_short=30&ma_long=10",
		"/api/report/markdown",
	} {
		if w := get(t, r, target); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, w.Code)
		}
	}
}

func TestUpstreamFailure(t *testing.T) {
	r := newTestServer(t, &collector.MockFetcher{Err: errors.New("connection refused")})
	if w := get(t, r, "/api/signals?code=600519"); w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}

	r = newTestServer(t, &collector.MockFetcher{Bars: []model.OHLCV{}})
	if w := get(t, r, "/api/data?code=600519"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for no data, got %d", w.Code)
	}
}

func TestSignals(t *testing.T) {
	r := newTestServer(t, mockFetcher())
	var body struct {
		Code    string   `json:"code"`
		Period  string   `json:"period"`
		Signals []string `json:"signals"`
	}

	// The mock closes rise by one per bar, so RSI sits at 100.
	decode(t, get(t, r, "/api/signals?code=600519"), &body)
	if len(body.Signals) != 1 || body.Signals[0] != "RSI 超买 (>80)" {
		t.Errorf("unexpected signals: %v", body.Signals)
	}

	decode(t, get(t, r, "/api/signals?code=600519&ma_short=5&ma_long=20"), &body)
	if len(body.Signals) != 1 {
		t.Errorf("unexpected signals with custom MA: %v", body.Signals)
	}
}

func TestReportMarkdown(t *testing.T) {
	w := get(t, newTestServer(t, mockFetcher()), "/api/report/markdown?code=600519")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{
		"# 600519 分析报告",
		"- 生成时间: 2024-06-14 18:00:00",
		"- RSI 超买 (>80)",
		"- MA (overlay)",
		"- MACD (oscillator)",
		"- RSI (oscillator)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q:\n%s", want, body)
		}
	}
}

func TestCORS(t *testing.T) {
	r := newTestServer(t, mockFetcher())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.NewMetrics()
	r := newTestServer(t, mockFetcher(), WithMetrics(m))
	get(t, r, "/api/health")
	get(t, r, "/nowhere")

	body := get(t, r, "/metrics").Body.String()
	for _, want := range []string{
		`stocklens_http_requests_total{route="/api/health",status="200"} 1`,
		`stocklens_http_requests_total{route="unmatched",status="404"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestSignalHistory(t *testing.T) {
	if w := get(t, newTestServer(t, mockFetcher()), "/api/signals/history?code=600519"); w.Code != http.StatusNotFound {
		t.Errorf("history should not be routed without a recorder, got %d", w.Code)
	}

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "test.db"), time.Hour, zerolog.Nop())
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer rec.Close()
	hot := model.SignalEvent{Kind: model.SignalOverbought, Source: "RSI", Text: "RSI 超买 (>80)"}
	err = rec.RecordSignals(context.Background(), []recorder.SignalRecord{
		{Code: "600519", Period: model.PeriodDaily, BarDate: "2024-06-14", Event: hot},
		{Code: "AAPL", Period: model.PeriodDaily, BarDate: "2024-06-14", Event: hot},
	})
	if err != nil {
		t.Fatalf("RecordSignals: %v", err)
	}

	r := newTestServer(t, mockFetcher(), WithRecorder(rec))
	var body struct {
		Signals []recorder.SignalRecord `json:"signals"`
	}
	decode(t, get(t, r, "/api/signals/history?code=600519"), &body)
	if len(body.Signals) != 1 || body.Signals[0].Event.Text != "RSI 超买 (>80)" {
		t.Errorf("unexpected history: %+v", body.Signals)
	}

	decode(t, get(t, r, "/api/signals/history?code=aapl"), &body)
	if len(body.Signals) != 1 || body.Signals[0].Code != "AAPL" {
		t.Errorf("lower-case query should find upper-case records, got %+v", body.Signals)
	}

	decode(t, get(t, r, "/api/signals/history?code=600519&since=2999-01-01"), &body)
	if len(body.Signals) != 0 {
		t.Errorf("expected empty history, got %+v", body.Signals)
	}
}

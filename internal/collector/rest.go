package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"StockLens/internal/model"
)

// RESTFetcher implements Fetcher against a plain JSON bars API:
// GET {base}/api/v1/bars/{daily|weekly|monthly}?symbol=...&limit=...
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new REST fetcher.
func NewRESTFetcher(baseURL, apiKey string, client *http.Client) *RESTFetcher {
	if client == nil {
		client = newHTTPClient("", 0)
	}
	return &RESTFetcher{BaseURL: baseURL, APIKey: apiKey, Client: client}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// FetchBars asks for the requested period first. If the API only serves daily
// bars, weekly and monthly series are aggregated locally.
func (f *RESTFetcher) FetchBars(ctx context.Context, symbol string, period model.Period, limit int) ([]model.OHLCV, error) {
	bars, err := f.fetchBars(ctx, symbol, period, limit)
	if err == nil || period == model.PeriodDaily {
		return bars, err
	}

	dailyLimit := limit * 5
	if period == model.PeriodMonthly {
		dailyLimit = limit * 23
	}
	daily, dailyErr := f.fetchBars(ctx, symbol, model.PeriodDaily, dailyLimit)
	if dailyErr != nil {
		return nil, fmt.Errorf("%s fetch failed: %w; daily fallback also failed: %w", period, err, dailyErr)
	}
	agg := Resample(daily, period)
	if limit > 0 && len(agg) > limit {
		agg = agg[len(agg)-limit:]
	}
	return agg, nil
}

func (f *RESTFetcher) fetchBars(ctx context.Context, symbol string, period model.Period, limit int) ([]model.OHLCV, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/%s?symbol=%s&limit=%d",
		f.BaseURL, period, url.QueryEscape(symbol), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, truncate(string(body), 200))
	}
	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("rest %s: %w", symbol, ErrNoData)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	return Normalize(bars), nil
}

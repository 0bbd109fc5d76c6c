package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"StockLens/internal/model"
)

// ErrNoData is returned when a provider answers without any usable bar.
var ErrNoData = errors.New("no data returned")

// Fetcher loads raw bars for one security from an upstream provider.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, period model.Period, limit int) ([]model.OHLCV, error)
	Name() string
}

// FetcherConfig selects and configures a provider.
type FetcherConfig struct {
	Provider string // yahoo | rest | mock
	BaseURL  string
	APIKey   string
	Proxy    string
	Timeout  time.Duration
}

// NewFetcher builds the provider named in cfg.
func NewFetcher(cfg FetcherConfig) (Fetcher, error) {
	client := newHTTPClient(cfg.Proxy, cfg.Timeout)
	switch cfg.Provider {
	case "", "yahoo":
		f := NewYahooFetcher(client)
		if cfg.BaseURL != "" {
			f.BaseURL = cfg.BaseURL
		}
		return f, nil
	case "rest":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("rest provider needs a base url")
		}
		return NewRESTFetcher(cfg.BaseURL, cfg.APIKey, client), nil
	case "mock":
		return &MockFetcher{}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.Provider)
	}
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

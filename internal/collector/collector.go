package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"StockLens/internal/cache"
	"StockLens/internal/model"
)

// SeriesCache is one tier of raw series storage. Load returns cache.ErrMiss
// when nothing usable is stored.
type SeriesCache interface {
	Name() string
	Load(ctx context.Context, code string, period model.Period) ([]model.OHLCV, error)
	Store(ctx context.Context, code string, period model.Period, bars []model.OHLCV) error
}

// Cache lookup results reported to the Observer.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Observer receives cache and upstream fetch events.
type Observer interface {
	ObserveCache(tier, result string)
	ObserveFetch(provider string, err error, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveCache(string, string)               {}
func (noopObserver) ObserveFetch(string, error, time.Duration) {}

// Collector supplies normalized price series, reading through its cache tiers
// before asking the upstream provider.
type Collector struct {
	fetcher  Fetcher
	caches   []SeriesCache
	limit    int
	log      zerolog.Logger
	observer Observer
	limiter  *rate.Limiter // nil means unthrottled
}

// Option customizes a Collector.
type Option func(*Collector)

// WithCache appends a cache tier. Tiers are consulted in the order added.
func WithCache(tier SeriesCache) Option {
	return func(c *Collector) {
		if tier != nil {
			c.caches = append(c.caches, tier)
		}
	}
}

// WithObserver installs a cache/fetch observer.
func WithObserver(o Observer) Option {
	return func(c *Collector) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithRateLimit caps upstream requests at perSecond with the given burst.
// A non-positive rate leaves the provider unthrottled.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Collector) {
		if perSecond <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewCollector creates a new Collector fetching at most limit bars per series.
func NewCollector(fetcher Fetcher, limit int, log zerolog.Logger, opts ...Option) *Collector {
	c := &Collector{
		fetcher:  fetcher,
		limit:    limit,
		log:      log,
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the upstream provider name.
func (c *Collector) Provider() string { return c.fetcher.Name() }

// Series returns the series for code, from the first cache tier that has it,
// else from the provider. A hit in a later tier is copied into earlier ones.
func (c *Collector) Series(ctx context.Context, code string, period model.Period) (model.PriceSeries, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.PriceSeries{}, fmt.Errorf("empty security code")
	}

	for i, tier := range c.caches {
		bars, err := tier.Load(ctx, code, period)
		switch {
		case err == nil && len(bars) > 0:
			c.observer.ObserveCache(tier.Name(), CacheHit)
			c.log.Debug().Str("code", code).Str("period", string(period)).Str("tier", tier.Name()).Msg("series cache hit")
			c.store(ctx, c.caches[:i], code, period, bars)
			return model.NewPriceSeries(code, period, Normalize(bars)), nil
		case err == nil || errors.Is(err, cache.ErrMiss):
			c.observer.ObserveCache(tier.Name(), CacheMiss)
		default:
			c.observer.ObserveCache(tier.Name(), CacheError)
			c.log.Warn().Err(err).Str("tier", tier.Name()).Str("code", code).Msg("series cache read failed")
		}
	}
	return c.Refresh(ctx, code, period)
}

// Refresh fetches from the provider, bypassing cache reads, and writes the
// result through to every tier.
func (c *Collector) Refresh(ctx context.Context, code string, period model.Period) (model.PriceSeries, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.PriceSeries{}, fmt.Errorf("wait for %s rate limit: %w", c.fetcher.Name(), err)
		}
	}
	start := time.Now()
	bars, err := c.fetcher.FetchBars(ctx, code, period, c.limit)
	c.observer.ObserveFetch(c.fetcher.Name(), err, time.Since(start))
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch %s %s from %s: %w", code, period, c.fetcher.Name(), err)
	}
	bars = Normalize(bars)
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("fetch %s %s from %s: %w", code, period, c.fetcher.Name(), ErrNoData)
	}
	c.log.Info().Str("code", code).Str("period", string(period)).Int("bars", len(bars)).
		Str("provider", c.fetcher.Name()).Msg("series fetched")

	c.store(ctx, c.caches, code, period, bars)
	return model.NewPriceSeries(code, period, bars), nil
}

func (c *Collector) store(ctx context.Context, tiers []SeriesCache, code string, period model.Period, bars []model.OHLCV) {
	for _, tier := range tiers {
		if err := tier.Store(ctx, code, period, bars); err != nil {
			c.log.Warn().Err(err).Str("tier", tier.Name()).Str("code", code).Msg("series cache write failed")
		}
	}
}

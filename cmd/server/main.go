package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"StockLens/internal/api"
	"StockLens/internal/cache"
	"StockLens/internal/collector"
	"StockLens/internal/config"
	"StockLens/internal/indicator"
	"StockLens/internal/logx"
	"StockLens/internal/metrics"
	"StockLens/internal/model"
	"StockLens/internal/notifier"
	"StockLens/internal/recorder"
	"StockLens/internal/scheduler"
	"StockLens/internal/strategy"
	"StockLens/internal/watchlist"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog := logx.New("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logx.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("config", cfgPath).Msg("StockLens starting")

	m := metrics.NewMetrics()

	// Indicator engine
	backend, err := indicator.NewBackend(cfg.Indicators.Backend)
	if err != nil {
		log.Fatal().Err(err).Msg("init indicator backend")
	}
	reg, err := indicator.NewDefaultRegistry(backend, logx.Component(log, "indicator"), cfg.IndicatorSpecs(),
		indicator.WithObserver(m))
	if err != nil {
		log.Fatal().Err(err).Msg("init indicator registry")
	}
	det, err := strategy.NewDetector(reg, cfg.DetectorOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("init signal detector")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Data supply: redis tier, sqlite tier, provider
	fetcher, err := collector.NewFetcher(collector.FetcherConfig{
		Provider: cfg.DataSource.Provider,
		BaseURL:  cfg.DataSource.BaseURL,
		APIKey:   cfg.DataSource.APIKey,
		Proxy:    cfg.Proxy,
		Timeout:  time.Duration(cfg.DataSource.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init fetcher")
	}
	log.Info().Str("provider", fetcher.Name()).Msg("data source ready")

	colOpts := []collector.Option{
		collector.WithObserver(m),
		collector.WithRateLimit(cfg.DataSource.RatePerSecond, cfg.DataSource.RateBurst),
	}
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB,
			time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without it")
		} else {
			defer rc.Close()
			colOpts = append(colOpts, collector.WithCache(rc))
		}
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	apiOpts := []api.Option{api.WithMetrics(m), api.WithRequestLogging(cfg.Server.Mode == gin.DebugMode)}
	if cfg.Cache.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Cache.SQLitePath,
			time.Duration(cfg.Cache.MaxAgeHours)*time.Hour, logx.Component(log, "recorder"))
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			defer sr.Close()
			colOpts = append(colOpts, collector.WithCache(sr))
			apiOpts = append(apiOpts, api.WithRecorder(sr))
		}
	}
	col := collector.NewCollector(fetcher, cfg.DataSource.Limit, logx.Component(log, "collector"), colOpts...)

	// Watchlist scanner
	wl, err := watchlist.NewManager(cfg.Watchlist.StateFile, cfg.Watchlist.Symbols, logx.Component(log, "watchlist"))
	if err != nil {
		log.Fatal().Err(err).Msg("init watchlist")
	}

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy,
			logx.Component(log, "telegram"))
		sender = tn
	} else {
		log.Info().Msg("telegram not configured, signals are only recorded")
	}

	sched := scheduler.NewScheduler(ctx, col, reg, det, wl, sender, rec,
		model.ParsePeriod(cfg.Watchlist.Period), logx.Component(log, "scheduler"))
	sched.Observer = m
	if err := sched.Register(cfg.Watchlist.Cron); err != nil {
		log.Fatal().Err(err).Msg("register watchlist scan")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, scanning watchlist now")
		go sched.Scan(ctx)
	}

	// HTTP API
	gin.SetMode(cfg.Server.Mode)
	srv := api.NewServer(col, reg, det, logx.Component(log, "api"), apiOpts...)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			cancel()
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	cancel()
	log.Info().Msg("StockLens stopped")
}

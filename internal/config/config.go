package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"StockLens/internal/indicator"
	"StockLens/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`
	DataSource struct {
		Provider       string  `yaml:"provider"`
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		Limit          int     `yaml:"limit"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RatePerSecond  float64 `yaml:"rate_per_second"`
		RateBurst      int     `yaml:"rate_burst"`
	} `yaml:"data_source"`
	Cache struct {
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
		TTLSeconds    int    `yaml:"ttl_seconds"`
		SQLitePath    string `yaml:"sqlite_path"`
		MaxAgeHours   int    `yaml:"max_age_hours"`
	} `yaml:"cache"`
	Indicators struct {
		Backend string `yaml:"backend"`
		MA      []int  `yaml:"ma"`
		MACD    struct {
			Fast   int `yaml:"fast"`
			Slow   int `yaml:"slow"`
			Signal int `yaml:"signal"`
		} `yaml:"macd"`
		KDJ struct {
			Length  int `yaml:"length"`
			SmoothK int `yaml:"smooth_k"`
			SmoothD int `yaml:"smooth_d"`
		} `yaml:"kdj"`
		RSI struct {
			Length int `yaml:"length"`
		} `yaml:"rsi"`
	} `yaml:"indicators"`
	Signals struct {
		MAShort      int     `yaml:"ma_short"`
		MALong       int     `yaml:"ma_long"`
		Overbought   float64 `yaml:"overbought"`
		Oversold     float64 `yaml:"oversold"`
		StrictWarmup bool    `yaml:"strict_warmup"`
	} `yaml:"signals"`
	Watchlist struct {
		Symbols   []string `yaml:"symbols"`
		Period    string   `yaml:"period"`
		Cron      string   `yaml:"cron"`
		StateFile string   `yaml:"state_file"`
	} `yaml:"watchlist"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy    string `yaml:"proxy"`
	LogLevel string `yaml:"log_level"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.DataSource.Provider, "DATA_PROVIDER")
	setString(&c.DataSource.BaseURL, "DATA_BASE_URL")
	setString(&c.DataSource.APIKey, "DATA_API_KEY")
	setString(&c.Cache.RedisAddr, "REDIS_ADDR")
	setString(&c.Cache.RedisPassword, "REDIS_PASSWORD")
	setString(&c.Cache.SQLitePath, "SQLITE_PATH")
	setString(&c.Server.Addr, "SERVER_ADDR")
	setString(&c.Indicators.Backend, "INDICATOR_BACKEND")
	setString(&c.Watchlist.Cron, "CRON_WATCHLIST")
	setString(&c.Proxy, "HTTPS_PROXY")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist.Symbols = splitList(v)
	}
	if v := os.Getenv("SIGNALS_STRICT_WARMUP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Signals.StrictWarmup = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.Limit == 0 {
		c.DataSource.Limit = 500
	}
	if c.DataSource.TimeoutSeconds == 0 {
		c.DataSource.TimeoutSeconds = 15
	}
	if c.DataSource.RatePerSecond == 0 {
		c.DataSource.RatePerSecond = 2
	}
	if c.DataSource.RateBurst == 0 {
		c.DataSource.RateBurst = 2
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 3600
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = "data/stocklens.db"
	}
	if c.Cache.MaxAgeHours == 0 {
		c.Cache.MaxAgeHours = 12
	}
	if c.Indicators.Backend == "" {
		c.Indicators.Backend = "native"
	}
	if len(c.Indicators.MA) == 0 {
		c.Indicators.MA = []int{5, 10, 20, 30, 60}
	}
	if c.Indicators.MACD.Fast == 0 && c.Indicators.MACD.Slow == 0 && c.Indicators.MACD.Signal == 0 {
		c.Indicators.MACD.Fast, c.Indicators.MACD.Slow, c.Indicators.MACD.Signal = 12, 26, 9
	}
	if c.Indicators.KDJ.Length == 0 && c.Indicators.KDJ.SmoothK == 0 && c.Indicators.KDJ.SmoothD == 0 {
		c.Indicators.KDJ.Length, c.Indicators.KDJ.SmoothK, c.Indicators.KDJ.SmoothD = 9, 3, 3
	}
	if c.Indicators.RSI.Length == 0 {
		c.Indicators.RSI.Length = 14
	}
	if c.Signals.MAShort == 0 {
		c.Signals.MAShort = 10
	}
	if c.Signals.MALong == 0 {
		c.Signals.MALong = 30
	}
	if c.Signals.Overbought == 0 {
		c.Signals.Overbought = 80
	}
	if c.Signals.Oversold == 0 {
		c.Signals.Oversold = 20
	}
	if c.Watchlist.Period == "" {
		c.Watchlist.Period = "daily"
	}
	if c.Watchlist.Cron == "" {
		c.Watchlist.Cron = "0 0 16 * * 1-5"
	}
	if c.Watchlist.StateFile == "" {
		c.Watchlist.StateFile = "data/watchlist_state.json"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode %q is not one of debug, release, test", c.Server.Mode)
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, rest, mock", c.DataSource.Provider)
	}
	if c.DataSource.Limit <= 0 {
		return fmt.Errorf("data_source.limit must be positive")
	}
	if _, err := indicator.NewBackend(c.Indicators.Backend); err != nil {
		return err
	}
	for _, spec := range c.IndicatorSpecs() {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("indicators.%s: %w", strings.ToLower(spec.Name()), err)
		}
	}
	if err := c.DetectorOptions().Validate(); err != nil {
		return fmt.Errorf("signals: %w", err)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}

// IndicatorSpecs returns the specs to register at startup.
func (c *Config) IndicatorSpecs() []indicator.Spec {
	ind := c.Indicators
	return []indicator.Spec{
		indicator.NewMA(ind.MA...),
		indicator.NewMACD(ind.MACD.Fast, ind.MACD.Slow, ind.MACD.Signal),
		indicator.NewKDJ(ind.KDJ.Length, ind.KDJ.SmoothK, ind.KDJ.SmoothD),
		indicator.NewRSI(ind.RSI.Length),
	}
}

// DetectorOptions returns the signal detector settings.
func (c *Config) DetectorOptions() strategy.Options {
	policy := strategy.NullAsZero
	if c.Signals.StrictWarmup {
		policy = strategy.SkipWarmup
	}
	return strategy.Options{
		MAShort:    c.Signals.MAShort,
		MALong:     c.Signals.MALong,
		Overbought: c.Signals.Overbought,
		Oversold:   c.Signals.Oversold,
		Policy:     policy,
	}
}

// TelegramEnabled reports whether push notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

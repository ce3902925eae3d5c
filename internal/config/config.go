package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/yzeng1018/stock-monitor/internal/logging"
)

// Config materialises application configuration. It is constructed once at
// startup and passed by reference; components never read ambient state.
type Config struct {
	App       AppConfig             `mapstructure:"app"`
	Logging   logging.Config        `mapstructure:"logging"`
	Database  DatabaseConfig        `mapstructure:"database"`
	Dedup     DedupConfig           `mapstructure:"dedup"`
	Fetch     FetchConfig           `mapstructure:"fetch"`
	Providers ProvidersConfig       `mapstructure:"providers"`
	Watchlist WatchlistConfig       `mapstructure:"watchlist"`
	Names     map[string]string     `mapstructure:"names"`
	Modes     map[string]ModeConfig `mapstructure:"modes"`
	Alerting  AlertingConfig        `mapstructure:"alerting"`
	News      NewsConfig            `mapstructure:"news"`
	Scheduler SchedulerConfig       `mapstructure:"scheduler"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Timezone    string `mapstructure:"timezone"`
}

// Location resolves the configured timezone, falling back to UTC. Trading
// dates for dedup purposes are derived in this location.
func (a AppConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// DedupConfig governs the daily alerted-set store.
type DedupConfig struct {
	FilePath        string `mapstructure:"file_path"`
	AdvisoryLockKey int64  `mapstructure:"advisory_lock_key"`
}

// FetchConfig tunes the concurrent fetch orchestrator.
type FetchConfig struct {
	Workers               int           `mapstructure:"workers"`
	LookbackDays          int           `mapstructure:"lookback_days"`
	MinSamples            int           `mapstructure:"min_samples"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	UserAgent             string        `mapstructure:"user_agent"`
	SnapshotRetryAttempts int           `mapstructure:"snapshot_retry_attempts"`
	SnapshotRetryBackoff  time.Duration `mapstructure:"snapshot_retry_backoff"`
}

// ProvidersConfig carries per-provider endpoints.
type ProvidersConfig struct {
	Yahoo     YahooConfig     `mapstructure:"yahoo"`
	Eastmoney EastmoneyConfig `mapstructure:"eastmoney"`
}

// YahooConfig covers the US/HK data source.
type YahooConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// EastmoneyConfig covers the A-share data source.
type EastmoneyConfig struct {
	QuoteBaseURL string `mapstructure:"quote_base_url"`
	KlineBaseURL string `mapstructure:"kline_base_url"`
}

// WatchlistConfig lists the monitored universe per venue.
type WatchlistConfig struct {
	US []string `mapstructure:"us"`
	HK []string `mapstructure:"hk"`
	CN []string `mapstructure:"cn"`
}

// ModeConfig is one selectable threshold profile (e.g. intraday, close).
// Modes are configuration, not separate code paths.
type ModeConfig struct {
	PriceThresholdPct float64  `mapstructure:"price_threshold_pct"`
	VolumeMultiplier  float64  `mapstructure:"volume_multiplier"`
	WindowSessions    int      `mapstructure:"window_sessions"`
	Venues            []string `mapstructure:"venues"`
	SortByMagnitude   bool     `mapstructure:"sort_by_magnitude"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	PushPlus PushPlusConfig `mapstructure:"pushplus"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// PushPlusConfig 描述 PushPlus 微信推送参数。
type PushPlusConfig struct {
	Token    string `mapstructure:"token"`
	Template string `mapstructure:"template"`
	BaseURL  string `mapstructure:"base_url"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// NewsConfig governs optional news enrichment on triggered symbols.
type NewsConfig struct {
	Enabled      bool             `mapstructure:"enabled"`
	MaxHeadlines int              `mapstructure:"max_headlines"`
	Summarizer   SummarizerConfig `mapstructure:"summarizer"`
}

// SummarizerConfig points at an OpenAI-compatible endpoint.
type SummarizerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// SchedulerConfig governs the long-running `run` mode cadence.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STOCKMONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 兼容原脚本的环境变量名。
	_ = v.BindEnv("alerting.pushplus.token", "STOCKMONITOR_ALERTING_PUSHPLUS_TOKEN", "PUSHPLUS_TOKEN")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stock-monitor")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.timezone", "Asia/Shanghai")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("dedup.file_path", "data/alerted.json")
	v.SetDefault("dedup.advisory_lock_key", int64(0x73746f63))

	v.SetDefault("fetch.workers", 6)
	v.SetDefault("fetch.lookback_days", 35)
	v.SetDefault("fetch.min_samples", 5)
	v.SetDefault("fetch.request_timeout", "10s")
	v.SetDefault("fetch.user_agent", "stock-monitor/1.0")
	v.SetDefault("fetch.snapshot_retry_attempts", 3)
	v.SetDefault("fetch.snapshot_retry_backoff", "2s")

	// Close-of-day profile mirrors the classic ±7% / 2.5x / 30-session
	// thresholds; the intraday profile polls tighter and with a short window.
	v.SetDefault("modes.close.price_threshold_pct", 7.0)
	v.SetDefault("modes.close.volume_multiplier", 2.5)
	v.SetDefault("modes.close.window_sessions", 30)
	v.SetDefault("modes.close.venues", []string{"us", "hk", "cn"})
	v.SetDefault("modes.close.sort_by_magnitude", false)

	v.SetDefault("modes.intraday.price_threshold_pct", 5.0)
	v.SetDefault("modes.intraday.volume_multiplier", 1.8)
	v.SetDefault("modes.intraday.window_sessions", 7)
	v.SetDefault("modes.intraday.venues", []string{"us", "hk", "cn"})
	v.SetDefault("modes.intraday.sort_by_magnitude", true)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.channels", []string{"pushplus"})
	v.SetDefault("alerting.pushplus.template", "markdown")
	v.SetDefault("alerting.pushplus.base_url", "https://www.pushplus.plus")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("news.enabled", true)
	v.SetDefault("news.max_headlines", 3)
	v.SetDefault("news.summarizer.enabled", false)
	v.SetDefault("news.summarizer.model", "gpt-4o-mini")

	v.SetDefault("scheduler.interval", "30m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be greater than zero")
	}
	if c.Fetch.MinSamples <= 0 {
		return fmt.Errorf("fetch.min_samples must be greater than zero")
	}
	if c.Fetch.LookbackDays < c.Fetch.MinSamples {
		return fmt.Errorf("fetch.lookback_days must cover at least fetch.min_samples sessions")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.App.Timezone != "" {
		if _, err := time.LoadLocation(c.App.Timezone); err != nil {
			return fmt.Errorf("app.timezone 不合法: %w", err)
		}
	}
	for name, mode := range c.Modes {
		if mode.PriceThresholdPct < 0 {
			return fmt.Errorf("modes.%s.price_threshold_pct cannot be negative", name)
		}
		if mode.VolumeMultiplier < 0 {
			return fmt.Errorf("modes.%s.volume_multiplier cannot be negative", name)
		}
		if mode.WindowSessions <= 0 {
			return fmt.Errorf("modes.%s.window_sessions must be greater than zero", name)
		}
	}
	return nil
}

// Mode resolves a threshold profile by name.
func (c *Config) Mode(name string) (ModeConfig, error) {
	mode, ok := c.Modes[name]
	if !ok {
		known := make([]string, 0, len(c.Modes))
		for k := range c.Modes {
			known = append(known, k)
		}
		return ModeConfig{}, fmt.Errorf("unknown mode %q (configured: %s)", name, strings.Join(known, ", "))
	}
	return mode, nil
}

// DisplayName resolves the static name map, falling back to the symbol.
func (c *Config) DisplayName(symbol string) string {
	if name, ok := c.Names[symbol]; ok {
		return name
	}
	return symbol
}

package config

import "time"

// Config is the immutable configuration handed to the app builder. No
// component reads ambient state; everything flows in from here.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	News     NewsConfig     `mapstructure:"news"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Report   ReportConfig   `mapstructure:"report"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Advanced AdvancedConfig `mapstructure:"advanced"`
}

type AppConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogPath        string `mapstructure:"log_path"`
	OracleDumpPath string `mapstructure:"oracle_dump_path"`
}

// TradingConfig carries the risk policy the sizer and composer enforce.
type TradingConfig struct {
	Symbol         string  `mapstructure:"symbol"`          // e.g. "BTCUSDT"
	Interval       string  `mapstructure:"interval"`        // cycle interval, e.g. "1m"
	MinConviction  float64 `mapstructure:"min_conviction"`  // reject below this p
	MinNotionalUSD float64 `mapstructure:"min_notional_usd"`
	MaxLeverage    int     `mapstructure:"max_leverage"`
	RunImmediately bool    `mapstructure:"run_immediately"`
}

type ExchangeConfig struct {
	APIKey         string `mapstructure:"api_key"`
	APISecret      string `mapstructure:"api_secret"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Testnet        bool   `mapstructure:"testnet"`
}

type OracleConfig struct {
	APIURL         string `mapstructure:"api_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	RegistryPath   string `mapstructure:"registry_path"` // prompt + response schema file
}

type NewsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	APIKey         string `mapstructure:"api_key"` // SERP API key
	Query          string `mapstructure:"query"`
	Limit          int    `mapstructure:"limit"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

type ReportConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	HTTPAddr string `mapstructure:"http_addr"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// AdvancedConfig tunes retry and failure-isolation behavior.
type AdvancedConfig struct {
	ProtectAlertAttempts   int     `mapstructure:"protect_alert_attempts"`   // escalate after this many failed protective placements
	ProtectBackoffSeconds  float64 `mapstructure:"protect_backoff_seconds"`  // initial backoff
	ProtectBackoffMax      float64 `mapstructure:"protect_backoff_max"`      // backoff cap, seconds
	FillPollAttempts       int     `mapstructure:"fill_poll_attempts"`
	FillPollSeconds        float64 `mapstructure:"fill_poll_seconds"`
	BreakerThreshold       int     `mapstructure:"breaker_threshold"`
	BreakerTimeoutSeconds  int     `mapstructure:"breaker_timeout_seconds"`
	CollectorRetries       int     `mapstructure:"collector_retries"`
	CollectorBackoffSecond float64 `mapstructure:"collector_backoff_seconds"`
}

func (t TradingConfig) CycleInterval() time.Duration {
	d, err := time.ParseDuration(t.Interval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

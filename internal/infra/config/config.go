package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"polarise-swapper/internal/clients_api/polarise"
	"polarise-swapper/internal/infra/fs"
	"polarise-swapper/internal/runner"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config - everything the swapper needs. Defaults reproduce the fixed behaviour; config only overrides.
type Config struct {
	Polarise PolariseConfig   `mapstructure:"polarise"`
	Headers  polarise.Headers `mapstructure:"headers"`
	App      AppConfig        `mapstructure:"app"`
	Telegram TelegramConfig   `mapstructure:"telegram"`
	Metrics  MetricsConfig    `mapstructure:"metrics"`
}

// PolariseConfig - API and swap parameters
type PolariseConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	ChainName       string        `mapstructure:"chain_name"`
	ReferralCode    string        `mapstructure:"referral_code"`
	TokenSymbol     string        `mapstructure:"token_symbol"`
	UsedPoints      int64         `mapstructure:"used_points"`
	MinPoints       int64         `mapstructure:"min_points"`
	BearerFormat    string        `mapstructure:"bearer_format"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	MaxResponseSize int64         `mapstructure:"max_response_size"`
}

// AppConfig - sweep pacing, input file and logging
type AppConfig struct {
	AccountsFile string        `mapstructure:"accounts_file"`
	AccountDelay time.Duration `mapstructure:"account_delay"`
	CycleDelay   time.Duration `mapstructure:"cycle_delay"`
	LogFile      string        `mapstructure:"log_file"`
	LogLevel     string        `mapstructure:"log_level"`
}

// TelegramConfig - optional swap notifications, both fields required to enable
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Enabled reports whether notifications are configured
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// MetricsConfig - empty Addr disables the /metrics listener
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Flag names understood by LoadConfig
const (
	FlagConfig   = "config"
	FlagAccounts = "accounts"
	FlagLogLevel = "log-level"
)

// LoadConfig reads configuration in this order, later wins:
// 1. defaults
// 2. config.yaml (or --config)
// 3. .env file and environment
// 4. flags
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	// .env only feeds the environment; a missing file is fine
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	configFile := ""
	if flags != nil {
		if f := flags.Lookup(FlagConfig); f != nil {
			configFile = f.Value.String()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SWAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setupEnvAliases(v)

	if flags != nil {
		bindFlag(v, "app.accounts_file", flags.Lookup(FlagAccounts))
		bindFlag(v, "app.log_level", flags.Lookup(FlagLogLevel))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	format, err := polarise.ParseBearerFormat(cfg.Polarise.BearerFormat)
	if err != nil {
		return nil, err
	}
	cfg.Headers.BearerFormat = format

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if flag != nil {
		_ = v.BindPFlag(key, flag)
	}
}

// setupEnvAliases binds the short names used in .env files (SWAPPER_* names work through AutomaticEnv)
func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("app.accounts_file", "SWAPPER_APP_ACCOUNTS_FILE", "ACCOUNTS_FILE")
	v.BindEnv("app.log_level", "SWAPPER_APP_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("polarise.base_url", "SWAPPER_POLARISE_BASE_URL", "POLARISE_BASE_URL")
	v.BindEnv("polarise.referral_code", "SWAPPER_POLARISE_REFERRAL_CODE", "REF_CODE")
	v.BindEnv("telegram.bot_token", "SWAPPER_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "SWAPPER_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	v.BindEnv("metrics.addr", "SWAPPER_METRICS_ADDR", "METRICS_ADDR")
}

func setDefaults(v *viper.Viper) {
	// Polarise
	v.SetDefault("polarise.base_url", polarise.MainnetAPI)
	v.SetDefault("polarise.chain_name", polarise.ChainName)
	v.SetDefault("polarise.referral_code", polarise.DefaultReferralCode)
	v.SetDefault("polarise.token_symbol", runner.DefaultTokenSymbol)
	v.SetDefault("polarise.used_points", runner.DefaultUsedPoints)
	v.SetDefault("polarise.min_points", runner.DefaultMinPoints)
	v.SetDefault("polarise.bearer_format", string(polarise.BearerComposite))
	v.SetDefault("polarise.request_timeout", 30*time.Second)
	v.SetDefault("polarise.rate_limit", 5.0) // requests per second
	v.SetDefault("polarise.rate_burst", 5)
	v.SetDefault("polarise.max_response_size", 1024*1024)

	// Headers
	h := polarise.DefaultHeaders()
	v.SetDefault("headers.accept", h.Accept)
	v.SetDefault("headers.accept_language", h.AcceptLanguage)
	v.SetDefault("headers.content_type", h.ContentType)
	v.SetDefault("headers.origin", h.Origin)
	v.SetDefault("headers.referer", h.Referer)
	v.SetDefault("headers.user_agent", h.UserAgent)
	v.SetDefault("headers.sec_ch_ua", h.SecChUa)
	v.SetDefault("headers.sec_ch_ua_mobile", h.SecChUaMobile)
	v.SetDefault("headers.sec_ch_ua_platform", h.SecChUaPlatform)
	v.SetDefault("headers.sec_fetch_dest", h.SecFetchDest)
	v.SetDefault("headers.sec_fetch_mode", h.SecFetchMode)
	v.SetDefault("headers.sec_fetch_site", h.SecFetchSite)

	// App
	v.SetDefault("app.accounts_file", fs.DefaultAccountsFile)
	v.SetDefault("app.account_delay", runner.DefaultAccountDelay)
	v.SetDefault("app.cycle_delay", runner.DefaultCycleDelay)
	v.SetDefault("app.log_file", "logs/app.log")
	v.SetDefault("app.log_level", "info")

	// Telegram / metrics are off by default
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("metrics.addr", "")
}

// Validate rejects settings the sweep cannot run with
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Polarise.BaseURL) == "" {
		return fmt.Errorf("polarise.base_url is required")
	}
	if strings.TrimSpace(cfg.App.AccountsFile) == "" {
		return fmt.Errorf("app.accounts_file is required")
	}
	if cfg.Polarise.MinPoints <= 0 || cfg.Polarise.UsedPoints <= 0 {
		return fmt.Errorf("polarise.min_points and polarise.used_points must be positive")
	}
	if cfg.Polarise.UsedPoints > cfg.Polarise.MinPoints {
		return fmt.Errorf("polarise.used_points (%d) cannot exceed polarise.min_points (%d)", cfg.Polarise.UsedPoints, cfg.Polarise.MinPoints)
	}
	if cfg.Polarise.RequestTimeout <= 0 {
		return fmt.Errorf("polarise.request_timeout must be positive")
	}
	if cfg.App.AccountDelay < 0 || cfg.App.CycleDelay < 0 {
		return fmt.Errorf("app.account_delay and app.cycle_delay cannot be negative")
	}
	if (cfg.Telegram.BotToken == "") != (cfg.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

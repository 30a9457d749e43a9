package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"polarise-swapper/internal/clients_api/polarise"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp isolates LoadConfig from any config.yaml or .env in the package directory
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(FlagConfig, "", "")
	fs.String(FlagAccounts, "", "")
	fs.String(FlagLogLevel, "", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, polarise.MainnetAPI, cfg.Polarise.BaseURL)
	assert.Equal(t, "polarise", cfg.Polarise.ChainName)
	assert.Equal(t, "2BHlBH", cfg.Polarise.ReferralCode)
	assert.Equal(t, "GRISE", cfg.Polarise.TokenSymbol)
	assert.EqualValues(t, 100, cfg.Polarise.MinPoints)
	assert.EqualValues(t, 100, cfg.Polarise.UsedPoints)
	assert.Equal(t, 30*time.Second, cfg.Polarise.RequestTimeout)
	assert.Equal(t, "accounts.txt", cfg.App.AccountsFile)
	assert.Equal(t, 2*time.Second, cfg.App.AccountDelay)
	assert.Equal(t, 5*time.Second, cfg.App.CycleDelay)
	assert.Equal(t, polarise.BearerComposite, cfg.Headers.BearerFormat)
	assert.Equal(t, polarise.DefaultHeaders().UserAgent, cfg.Headers.UserAgent)
	assert.Equal(t, "https://app.polarise.org", cfg.Headers.Origin)
	assert.False(t, cfg.Telegram.Enabled())
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `
polarise:
  bearer_format: plain
  min_points: 250
  used_points: 100
app:
  account_delay: 500ms
  cycle_delay: 1m
headers:
  user_agent: test-agent
metrics:
  addr: ":9100"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(testFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, polarise.BearerPlain, cfg.Headers.BearerFormat)
	assert.EqualValues(t, 250, cfg.Polarise.MinPoints)
	assert.Equal(t, 500*time.Millisecond, cfg.App.AccountDelay)
	assert.Equal(t, time.Minute, cfg.App.CycleDelay)
	assert.Equal(t, "test-agent", cfg.Headers.UserAgent)
	// untouched headers keep their defaults
	assert.Equal(t, polarise.DefaultHeaders().Referer, cfg.Headers.Referer)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	dir := chdirTemp(t)

	_, err := LoadConfig(testFlags(t, "--config", filepath.Join(dir, "nope.yaml")))
	require.Error(t, err)
}

func TestLoadConfigEnvAndFlags(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ACCOUNTS_FILE", "from-env.txt")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("SWAPPER_POLARISE_TOKEN_SYMBOL", "XRISE")

	cfg, err := LoadConfig(testFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "from-env.txt", cfg.App.AccountsFile)
	assert.Equal(t, "XRISE", cfg.Polarise.TokenSymbol)
	assert.True(t, cfg.Telegram.Enabled())

	cfg, err = LoadConfig(testFlags(t, "--accounts", "from-flag.txt", "--log-level", "debug"))
	require.NoError(t, err)
	assert.Equal(t, "from-flag.txt", cfg.App.AccountsFile)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("METRICS_ADDR=:9999\n"), 0644))
	// godotenv writes into the process environment; restore it afterwards
	t.Setenv("METRICS_ADDR", "")
	require.NoError(t, os.Unsetenv("METRICS_ADDR"))

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
}

func TestLoadConfigUnknownBearerFormat(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SWAPPER_POLARISE_BEARER_FORMAT", "jwt")

	_, err := LoadConfig(nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Polarise: PolariseConfig{
				BaseURL:        "http://localhost",
				MinPoints:      100,
				UsedPoints:     100,
				RequestTimeout: time.Second,
			},
			App: AppConfig{AccountsFile: "accounts.txt"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty base url", func(c *Config) { c.Polarise.BaseURL = " " }, true},
		{"empty accounts file", func(c *Config) { c.App.AccountsFile = "" }, true},
		{"zero min points", func(c *Config) { c.Polarise.MinPoints = 0 }, true},
		{"used exceeds min", func(c *Config) { c.Polarise.UsedPoints = 150 }, true},
		{"zero timeout", func(c *Config) { c.Polarise.RequestTimeout = 0 }, true},
		{"negative delay", func(c *Config) { c.App.CycleDelay = -time.Second }, true},
		{"telegram token without chat", func(c *Config) { c.Telegram.BotToken = "x" }, true},
		{"telegram complete", func(c *Config) { c.Telegram = TelegramConfig{BotToken: "x", ChatID: "1"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := Validate(c)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

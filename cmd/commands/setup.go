package commands

// Shared wiring for the subcommands
// config -> logger -> Polarise client -> notifier -> runner

import (
	"fmt"

	"polarise-swapper/internal/clients_api/polarise"
	"polarise-swapper/internal/infra/config"
	"polarise-swapper/internal/infra/fs"
	logging "polarise-swapper/internal/infra/log"
	"polarise-swapper/internal/notify"
	"polarise-swapper/internal/runner"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.Init(logging.Config{
		File:    cfg.App.LogFile,
		Level:   cfg.App.LogLevel,
		Console: true,
	}); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *polarise.Client {
	return polarise.NewClient(polarise.Options{
		BaseURL:         cfg.Polarise.BaseURL,
		ChainName:       cfg.Polarise.ChainName,
		Timeout:         cfg.Polarise.RequestTimeout,
		RateLimit:       cfg.Polarise.RateLimit,
		RateBurst:       cfg.Polarise.RateBurst,
		MaxResponseSize: cfg.Polarise.MaxResponseSize,
		Headers:         cfg.Headers,
	})
}

// newNotifier returns a Telegram notifier when configured. A bot that cannot be reached only disables notifications.
func newNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.Telegram.Enabled() {
		return notify.Nop{}
	}
	tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		logging.LogWarn("Telegram notifications disabled", zap.Error(err))
		return notify.Nop{}
	}
	logging.LogInfo("Telegram notifications enabled", zap.String("chat_id", cfg.Telegram.ChatID))
	return tg
}

func newRunner(cfg *config.Config, notifier notify.Notifier) *runner.Runner {
	return runner.New(newClient(cfg), runner.Options{
		ReferralCode: cfg.Polarise.ReferralCode,
		TokenSymbol:  cfg.Polarise.TokenSymbol,
		MinPoints:    cfg.Polarise.MinPoints,
		UsedPoints:   cfg.Polarise.UsedPoints,
		AccountDelay: cfg.App.AccountDelay,
		CycleDelay:   cfg.App.CycleDelay,
		Notifier:     notifier,
	})
}

func keySource(path string) runner.KeySource {
	return func() ([]string, error) {
		return fs.LoadPrivateKeys(path)
	}
}

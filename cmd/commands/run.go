package commands

// Command to run the swapper until interrupted
// Starts the optional /metrics listener and stops on SIGINT/SIGTERM

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logging "polarise-swapper/internal/infra/log"
	"polarise-swapper/internal/infra/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sweep all wallets forever",
	Long:  `Sweep every wallet in the accounts file, pausing between wallets and between sweeps, until interrupted.`,
	RunE:  runSwapper,
}

func runSwapper(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer func() {
			if err := metrics.Shutdown(srv); err != nil {
				logging.LogWarn("Metrics server shutdown failed", zap.Error(err))
			}
		}()
		go func() {
			select {
			case err := <-metrics.ServeErrors:
				logging.LogError("Metrics server stopped", zap.Error(err))
			case <-ctx.Done():
			}
		}()
		logging.LogInfo("Metrics listening", zap.String("addr", cfg.Metrics.Addr))
	}

	r := newRunner(cfg, newNotifier(cfg))

	logging.LogSuccess("Swapper is running",
		zap.String("accounts_file", cfg.App.AccountsFile),
		zap.Int64("min_points", cfg.Polarise.MinPoints))

	if err := r.Run(ctx, keySource(cfg.App.AccountsFile)); err != nil {
		return err
	}

	logging.LogInfo("Shutdown signal received, stopped")
	return nil
}

package commands

// Command to run a single sweep and print a summary

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	logging "polarise-swapper/internal/infra/log"
	"polarise-swapper/internal/runner"
	"polarise-swapper/internal/wallet"

	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Sweep all wallets once and exit",
	RunE:  runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r := newRunner(cfg, newNotifier(cfg))
	outcomes, err := r.Once(ctx, keySource(cfg.App.AccountsFile))
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	printSummary(cmd, outcomes)
	return nil
}

func printSummary(cmd *cobra.Command, outcomes []runner.Outcome) {
	out := cmd.OutOrStdout()
	counts := make(map[runner.Status]int)
	for _, o := range outcomes {
		counts[o.Status]++
		addr := "<invalid key>"
		if o.Address != "" {
			addr = wallet.ShortAddress(o.Address)
		}
		line := fmt.Sprintf("%-14s %-13s stage=%s points=%d", addr, o.Status, o.Stage, o.Points)
		if o.TxHash != "" {
			line += " tx=" + o.TxHash
		}
		if o.Reason != "" {
			line += " reason=" + o.Reason
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "wallets=%d swapped=%d not_eligible=%d rejected=%d failed=%d\n",
		len(outcomes),
		counts[runner.StatusSwapped],
		counts[runner.StatusNotEligible],
		counts[runner.StatusSwapRejected],
		counts[runner.StatusFailed])
}

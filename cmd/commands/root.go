package commands

// Root command for Cobra CLI
// Registers the run, once and address subcommands and the flags they share

import (
	"polarise-swapper/internal/infra/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "polarise-swapper",
	Short: "Polarise points swapper - logs wallets in and swaps points once they reach the threshold",
	Long: `Polarise points swapper walks every wallet in the accounts file, signs the login challenge,
reads the points balance and swaps points for tokens when the balance reaches the threshold.
The sweep repeats until interrupted.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String(config.FlagConfig, "", "path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().String(config.FlagAccounts, "", "accounts file, one private key per line")
	rootCmd.PersistentFlags().String(config.FlagLogLevel, "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(addressCmd)
}

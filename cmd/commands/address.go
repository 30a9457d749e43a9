package commands

// Command to print the address of every key in the accounts file
// Works offline; signs a probe challenge and recovers it to check each key

import (
	"fmt"

	"polarise-swapper/internal/infra/config"
	"polarise-swapper/internal/infra/fs"
	"polarise-swapper/internal/wallet"

	"github.com/spf13/cobra"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print derived wallet addresses (no network)",
	RunE:  runAddress,
}

func runAddress(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	keys, err := fs.LoadPrivateKeys(cfg.App.AccountsFile)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	out := cmd.OutOrStdout()
	for i, key := range keys {
		fmt.Fprintf(out, "%d\t%s\n", i+1, describeKey(key))
	}
	return nil
}

func describeKey(key string) string {
	w, err := wallet.Parse(key)
	if err != nil {
		return "invalid key"
	}
	sig, err := w.SignChallenge("probe")
	if err != nil {
		return w.Address() + "\tsigning failed"
	}
	recovered, err := wallet.RecoverAddress(wallet.ChallengeMessage("probe"), sig)
	if err != nil || recovered != w.Address() {
		return w.Address() + "\tsignature check failed"
	}
	return w.Address()
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chainlab-dev/chainlab/internal/ledger"
	"github.com/chainlab-dev/chainlab/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config directory and a fresh ledger",
	Long: `Initialize chainlab: write default config and an empty genesis ledger.

A typical first session:
  chainlab init
  chainlab wallet new alice
  chainlab faucet alice
  chainlab app deploy counter-buggy --from alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.Banner())

		if _, err := os.Stat(cfg.LedgerPath()); err == nil {
			fmt.Println(ui.Warn("ledger already exists at " + cfg.LedgerPath()))
			fmt.Println(ui.Hint("use `chainlab chain reset` to start over"))
			return nil
		}

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		l := ledger.New()
		if err := l.Save(cfg.LedgerPath()); err != nil {
			return fmt.Errorf("writing genesis ledger: %w", err)
		}

		fmt.Println(ui.Success("initialized " + cfg.Dir()))
		fmt.Println(ui.Hint("next: chainlab wallet new <name>"))
		return nil
	},
}

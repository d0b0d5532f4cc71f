package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chainlab-dev/chainlab/internal/ui"
)

var faucetCmd = &cobra.Command{
	Use:   "faucet <account> [amount]",
	Short: "Fund an account from the faucet",
	Long: `Mint microunits into an account. The default amount comes from config
(faucet_amount, or the CHAINLAB_FAUCET_AMOUNT env var).

Examples:
  chainlab faucet alice
  chainlab faucet alice 25000000`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := resolveAccount(args[0])
		if err != nil {
			return err
		}

		amount := cfg.FaucetAmount
		if len(args) == 2 {
			amount, err = strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("bad amount %q: %w", args[1], err)
			}
		}

		l, err := openLedger()
		if err != nil {
			return err
		}
		l.Fund(addr, amount)
		if err := saveLedger(l); err != nil {
			return err
		}

		fmt.Println(ui.Success(fmt.Sprintf("funded %s with %s", ui.TruncateAddr(addr), formatAmount(amount))))
		return nil
	},
}

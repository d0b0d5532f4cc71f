package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainlab-dev/chainlab/internal/ui"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [account-name-or-address]",
	Short: "Check an account balance",
	Long: `Check the balance of an account on the local ledger.

Examples:
  chainlab balance alice
  chainlab balance CVMQX7...     # literal address
  chainlab balance               # default account`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		addr, err := resolveAccount(arg)
		if err != nil {
			return err
		}

		l, err := openLedger()
		if err != nil {
			return err
		}

		bal := l.Balance(addr)
		fmt.Println(ui.KeyValueBlock("Balance", [][2]string{
			{"Address", ui.Addr(addr)},
			{"Balance", formatAmount(bal)},
			{"Round", fmt.Sprintf("%d", l.Round())},
		}))
		return nil
	},
}

// formatAmount renders microunits as whole units with six decimals.
func formatAmount(micro uint64) string {
	return fmt.Sprintf("%d.%06d", micro/1_000_000, micro%1_000_000)
}

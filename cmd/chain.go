package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chainlab-dev/chainlab/internal/avm"
	"github.com/chainlab-dev/chainlab/internal/ledger"
	"github.com/chainlab-dev/chainlab/internal/ui"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Inspect and manage the local ledger",
}

var chainStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger status",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger()
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Ledger", [][2]string{
			{"Round", fmt.Sprintf("%d", l.Round())},
			{"Applications", fmt.Sprintf("%d", len(l.Apps()))},
			{"Transactions", fmt.Sprintf("%d", len(l.Log()))},
			{"Data", cfg.LedgerPath()},
		}))
		return nil
	},
}

var chainTxsCmd = &cobra.Command{
	Use:   "txs",
	Short: "Show the committed transaction log",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger()
		if err != nil {
			return err
		}
		records := l.Log()
		if len(records) == 0 {
			fmt.Println(ui.Hint("no transactions yet"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "ROUND", Width: 6},
			{Title: "TYPE", Width: 10},
			{Title: "SENDER", Width: 14},
			{Title: "RECEIVER", Width: 14},
			{Title: "AMOUNT", Width: 14},
			{Title: "APP", Width: 5},
		})
		for _, r := range records {
			t.AddRow(ui.Row{
				fmt.Sprintf("%d", r.Round),
				txTypeName(&r),
				ui.TruncateAddr(orDash(r.Sender)),
				ui.TruncateAddr(orDash(r.Receiver)),
				formatAmount(r.Amount),
				orDash(appIDStr(r.AppID)),
			})
		}
		fmt.Print(t.Render())
		return nil
	},
}

var chainResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the ledger back to genesis",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.Remove(cfg.LedgerPath()); err != nil && !os.IsNotExist(err) {
			return err
		}
		l := ledger.New()
		if err := l.Save(cfg.LedgerPath()); err != nil {
			return err
		}
		fmt.Println(ui.Success("ledger reset to genesis"))
		return nil
	},
}

func txTypeName(r *ledger.TxRecord) string {
	switch r.Type {
	case avm.TypePay:
		if r.Sender == "" {
			return "faucet"
		}
		return "pay"
	case avm.TypeAppl:
		return "app/" + avm.OnCompletionName(r.OnCompletion)
	}
	return "?"
}

func orDash(s string) string {
	if s == "" {
		return "–"
	}
	return s
}

func appIDStr(id uint64) string {
	if id == 0 {
		return ""
	}
	return fmt.Sprintf("%d", id)
}

func init() {
	chainCmd.AddCommand(chainStatusCmd, chainTxsCmd, chainResetCmd)
}

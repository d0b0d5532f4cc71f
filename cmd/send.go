package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chainlab-dev/chainlab/internal/avm"
	"github.com/chainlab-dev/chainlab/internal/ledger"
	"github.com/chainlab-dev/chainlab/internal/ui"
)

var sendFrom string

var sendCmd = &cobra.Command{
	Use:   "send <to> <amount>",
	Short: "Send a payment",
	Long: `Sign and submit a single payment transaction.

Examples:
  chainlab send bob 5000000 --from alice
  chainlab send CVMQX7... 1000000          # from the default account`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := resolveAccount(args[0])
		if err != nil {
			return err
		}
		amount, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad amount %q: %w", args[1], err)
		}

		kp, err := signerFor(sendFrom)
		if err != nil {
			return err
		}

		l, err := openLedger()
		if err != nil {
			return err
		}

		txn := ledger.Transaction{
			Type:     avm.TypePay,
			Sender:   kp.Address(),
			Receiver: to,
			Amount:   amount,
		}
		stxn, err := ledger.Sign(txn, kp)
		if err != nil {
			return err
		}
		res, err := l.ApplyGroup([]ledger.SignedTxn{stxn})
		if err != nil {
			return err
		}
		if err := saveLedger(l); err != nil {
			return err
		}

		fmt.Println(ui.KeyValueBlock("Payment sent", [][2]string{
			{"From", ui.Addr(ui.TruncateAddr(kp.Address()))},
			{"To", ui.Addr(ui.TruncateAddr(to))},
			{"Amount", formatAmount(amount)},
			{"TxID", ui.Addr(ui.TruncateAddr(res.TxIDs[0]))},
			{"Round", fmt.Sprintf("%d", res.Round)},
		}))
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendFrom, "from", "", "sending account (default: config)")
}

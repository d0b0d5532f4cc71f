package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chainlab-dev/chainlab/internal/avm"
	"github.com/chainlab-dev/chainlab/internal/contract"
	"github.com/chainlab-dev/chainlab/internal/dryrun"
	"github.com/chainlab-dev/chainlab/internal/keys"
	"github.com/chainlab-dev/chainlab/internal/ledger"
	"github.com/chainlab-dev/chainlab/internal/ui"
)

var (
	appFrom         string
	appPay          uint64
	appApprovalFile string
	appClearFile    string
	appDryrunOut    string
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Deploy, call, and inspect applications",
}

// ── app deploy ────────────────────────────────────────────────────────────────

var appDeployCmd = &cobra.Command{
	Use:   "deploy [contract-id]",
	Short: "Deploy an application",
	Long: `Deploy a bundled contract, or your own programs via --approval/--clear.

Examples:
  chainlab app deploy counter --from alice
  chainlab app deploy counter-buggy
  chainlab app deploy --approval my.cvm --clear clear.cvm`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		approval, clear, err := resolvePrograms(args)
		if err != nil {
			return err
		}

		kp, err := signerFor(appFrom)
		if err != nil {
			return err
		}
		l, err := openLedger()
		if err != nil {
			return err
		}

		txn := ledger.Transaction{
			Type:         avm.TypeAppl,
			Sender:       kp.Address(),
			OnCompletion: avm.OnNoOp,
			ApprovalSrc:  approval,
			ClearSrc:     clear,
		}
		stxn, err := ledger.Sign(txn, kp)
		if err != nil {
			return err
		}

		sp := ui.NewSpinner("deploying application...")
		sp.Start()
		res, err := l.ApplyGroup([]ledger.SignedTxn{stxn})
		sp.Stop()
		if err != nil {
			return err
		}
		if err := saveLedger(l); err != nil {
			return err
		}

		fmt.Println(ui.KeyValueBlock("Application deployed", [][2]string{
			{"App ID", ui.AppName(fmt.Sprintf("%d", res.AppIDs[0]))},
			{"Creator", ui.Addr(ui.TruncateAddr(kp.Address()))},
			{"TxID", ui.Addr(ui.TruncateAddr(res.TxIDs[0]))},
			{"Round", fmt.Sprintf("%d", res.Round)},
		}))
		fmt.Println(ui.Hint(fmt.Sprintf("call it: chainlab app call %d --pay 10000000", res.AppIDs[0])))
		return nil
	},
}

// ── app call ──────────────────────────────────────────────────────────────────

var appCallCmd = &cobra.Command{
	Use:   "call <app-id>",
	Short: "Call an application with an attached payment",
	Long: `Submit the two-transaction group the counter contract expects:
transaction 0 pays the contract owner, transaction 1 calls the app.

A payment at or above the threshold (10000000) increments the counter;
below it the counter is decremented. With the buggy build, decrementing at
counter 0 underflows — the whole group is rejected and the payment is
rolled back.

Examples:
  chainlab app call 1 --pay 10000000 --from bob   # increment
  chainlab app call 1 --pay 1000000  --from bob   # decrement`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := parseAppID(args[0])
		if err != nil {
			return err
		}
		kp, err := signerFor(appFrom)
		if err != nil {
			return err
		}
		l, err := openLedger()
		if err != nil {
			return err
		}

		group, err := buildCallGroup(l, appID, kp.Address(), appPay)
		if err != nil {
			return err
		}
		signed := make([]ledger.SignedTxn, len(group))
		for i, t := range group {
			if signed[i], err = ledger.Sign(t, kp); err != nil {
				return err
			}
		}

		res, err := l.ApplyGroup(signed)
		if err != nil {
			return fmt.Errorf("group rejected: %w\n  capture it for the debugger: chainlab app dryrun %d --pay %d -o ctx.dr", err, appID, appPay)
		}
		if err := saveLedger(l); err != nil {
			return err
		}

		app, err := l.App(appID)
		if err != nil {
			return err
		}
		counter := "–"
		if v, ok := app.Globals[contract.KeyCounter]; ok {
			counter = v.String()
		}
		fmt.Println(ui.KeyValueBlock("Application called", [][2]string{
			{"App ID", ui.AppName(fmt.Sprintf("%d", appID))},
			{"Payment", formatAmount(appPay)},
			{"Counter", ui.Val(counter)},
			{"Round", fmt.Sprintf("%d", res.Round)},
		}))
		return nil
	},
}

// ── app optin / closeout / update / delete ────────────────────────────────────

var appOptinCmd = &cobra.Command{
	Use:   "optin <app-id>",
	Short: "Opt an account into an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBareAppCall(args[0], avm.OnOptIn, "opted in")
	},
}

var appCloseoutCmd = &cobra.Command{
	Use:   "closeout <app-id>",
	Short: "Close an account out of an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBareAppCall(args[0], avm.OnCloseOut, "closed out")
	},
}

var appDeleteCmd = &cobra.Command{
	Use:   "delete <app-id>",
	Short: "Delete an application (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBareAppCall(args[0], avm.OnDelete, "deleted")
	},
}

var appUpdateCmd = &cobra.Command{
	Use:   "update <app-id> [contract-id]",
	Short: "Replace an application's programs (owner only)",
	Long: `Swap in new approval and clear programs. The running approval program
gates the update: only the recorded owner may do this.

The canonical tutorial move — replace the buggy build in place:
  chainlab app update 1 counter --from alice`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := parseAppID(args[0])
		if err != nil {
			return err
		}
		approval, clear, err := resolvePrograms(args[1:])
		if err != nil {
			return err
		}
		kp, err := signerFor(appFrom)
		if err != nil {
			return err
		}
		l, err := openLedger()
		if err != nil {
			return err
		}

		txn := ledger.Transaction{
			Type:         avm.TypeAppl,
			Sender:       kp.Address(),
			AppID:        appID,
			OnCompletion: avm.OnUpdate,
			ApprovalSrc:  approval,
			ClearSrc:     clear,
		}
		stxn, err := ledger.Sign(txn, kp)
		if err != nil {
			return err
		}
		if _, err := l.ApplyGroup([]ledger.SignedTxn{stxn}); err != nil {
			return err
		}
		if err := saveLedger(l); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("app %d updated", appID)))
		return nil
	},
}

// ── app state / list ──────────────────────────────────────────────────────────

var appStateCmd = &cobra.Command{
	Use:   "state <app-id>",
	Short: "Read an application's global state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := parseAppID(args[0])
		if err != nil {
			return err
		}
		l, err := openLedger()
		if err != nil {
			return err
		}
		app, err := l.App(appID)
		if err != nil {
			return err
		}

		pairs := [][2]string{
			{"App ID", fmt.Sprintf("%d", app.ID)},
			{"Creator", ui.Addr(ui.TruncateAddr(app.Creator))},
			{"Opted in", fmt.Sprintf("%d accounts", len(app.OptedIn))},
		}
		stateKeys := make([]string, 0, len(app.Globals))
		for k := range app.Globals {
			stateKeys = append(stateKeys, k)
		}
		sort.Strings(stateKeys)
		for _, k := range stateKeys {
			v := app.Globals[k]
			display := v.String()
			// Owner is stored as address bytes; show it like an address.
			if v.Kind == avm.KindBytes && keys.IsValidAddress(string(v.Bytes)) {
				display = ui.TruncateAddr(string(v.Bytes))
			}
			pairs = append(pairs, [2]string{"  " + k, display})
		}
		fmt.Println(ui.KeyValueBlock("Global state", pairs))
		return nil
	},
}

var appListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployed applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger()
		if err != nil {
			return err
		}
		apps := l.Apps()
		if len(apps) == 0 {
			fmt.Println(ui.Hint("no applications — chainlab app deploy counter"))
			return nil
		}
		t := ui.NewTable([]ui.Column{
			{Title: "APP ID", Width: 8},
			{Title: "CREATOR", Width: 14},
			{Title: "STATE KEYS", Width: 12},
			{Title: "OPTED IN", Width: 10},
		})
		for _, a := range apps {
			t.AddRow(ui.Row{
				fmt.Sprintf("%d", a.ID),
				ui.TruncateAddr(a.Creator),
				fmt.Sprintf("%d", len(a.Globals)),
				fmt.Sprintf("%d", len(a.OptedIn)),
			})
		}
		fmt.Print(t.Render())
		return nil
	},
}

// ── app dryrun ────────────────────────────────────────────────────────────────

var appDryrunCmd = &cobra.Command{
	Use:   "dryrun <app-id>",
	Short: "Capture a call as a debug context, committing nothing",
	Long: `Build the same group "app call" would submit, evaluate nothing against
the live ledger, and write a replayable context file for the debugger.

Example:
  chainlab app dryrun 1 --pay 1000000 -o ctx.dr
  chainlab debug ctx.dr`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := parseAppID(args[0])
		if err != nil {
			return err
		}
		sender, err := resolveAccount(appFrom)
		if err != nil {
			return err
		}
		l, err := openLedger()
		if err != nil {
			return err
		}
		group, err := buildCallGroup(l, appID, sender, appPay)
		if err != nil {
			return err
		}

		ctx, err := dryrun.Capture(l, group, 1)
		if err != nil {
			return err
		}
		if err := ctx.WriteFile(appDryrunOut); err != nil {
			return err
		}

		fmt.Println(ui.KeyValueBlock("Dry-run context captured", [][2]string{
			{"File", appDryrunOut},
			{"App ID", fmt.Sprintf("%d", appID)},
			{"Payment", formatAmount(appPay)},
			{"Round", fmt.Sprintf("%d", ctx.Round)},
		}))
		fmt.Println(ui.Hint("debug it: chainlab debug " + appDryrunOut))
		return nil
	},
}

// --- helpers ---

func parseAppID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("bad app ID %q — run `chainlab app list`", s)
	}
	return id, nil
}

// resolvePrograms returns approval and clear sources from a builtin ID arg
// or the --approval/--clear file flags.
func resolvePrograms(args []string) (approval, clear string, err error) {
	switch {
	case len(args) == 1 && args[0] != "":
		b, ok := contract.GetBuiltin(args[0])
		if !ok {
			return "", "", fmt.Errorf("unknown contract %q — bundled: counter, counter-buggy", args[0])
		}
		if approval, err = b.Approval(); err != nil {
			return "", "", err
		}
		if clear, err = b.Clear(); err != nil {
			return "", "", err
		}
		return approval, clear, nil

	case appApprovalFile != "":
		a, err := os.ReadFile(appApprovalFile)
		if err != nil {
			return "", "", err
		}
		clearSrc := contract.MustCompile(contract.Clear())
		if appClearFile != "" {
			c, err := os.ReadFile(appClearFile)
			if err != nil {
				return "", "", err
			}
			clearSrc = string(c)
		}
		return string(a), clearSrc, nil
	}
	return "", "", fmt.Errorf("pass a bundled contract ID or --approval <file>")
}

// buildCallGroup builds [payment to owner, NoOp app call] for app call and
// dryrun. The owner comes from the app's global state.
func buildCallGroup(l *ledger.Ledger, appID uint64, sender string, pay uint64) ([]ledger.Transaction, error) {
	app, err := l.App(appID)
	if err != nil {
		return nil, err
	}
	ownerVal, ok := app.Globals[contract.KeyOwner]
	if !ok || ownerVal.Kind != avm.KindBytes {
		return nil, fmt.Errorf("app %d has no owner in global state", appID)
	}
	owner := string(ownerVal.Bytes)

	return []ledger.Transaction{
		{
			Type:     avm.TypePay,
			Sender:   sender,
			Receiver: owner,
			Amount:   pay,
		},
		{
			Type:         avm.TypeAppl,
			Sender:       sender,
			AppID:        appID,
			OnCompletion: avm.OnNoOp,
		},
	}, nil
}

// runBareAppCall submits a single app call with the given OnCompletion.
func runBareAppCall(appIDArg string, oc uint64, done string) error {
	appID, err := parseAppID(appIDArg)
	if err != nil {
		return err
	}
	kp, err := signerFor(appFrom)
	if err != nil {
		return err
	}
	l, err := openLedger()
	if err != nil {
		return err
	}

	txn := ledger.Transaction{
		Type:         avm.TypeAppl,
		Sender:       kp.Address(),
		AppID:        appID,
		OnCompletion: oc,
	}
	stxn, err := ledger.Sign(txn, kp)
	if err != nil {
		return err
	}
	if _, err := l.ApplyGroup([]ledger.SignedTxn{stxn}); err != nil {
		return err
	}
	if err := saveLedger(l); err != nil {
		return err
	}
	fmt.Println(ui.Success(fmt.Sprintf("app %d: %s", appID, done)))
	return nil
}

func init() {
	appCmd.PersistentFlags().StringVar(&appFrom, "from", "", "acting account (default: config)")
	appCallCmd.Flags().Uint64Var(&appPay, "pay", 0, "payment amount in microunits (txn 0 of the group)")
	appDryrunCmd.Flags().Uint64Var(&appPay, "pay", 0, "payment amount in microunits (txn 0 of the group)")
	appDeployCmd.Flags().StringVar(&appApprovalFile, "approval", "", "approval program assembly file")
	appDeployCmd.Flags().StringVar(&appClearFile, "clear", "", "clear program assembly file")
	appUpdateCmd.Flags().StringVar(&appApprovalFile, "approval", "", "approval program assembly file")
	appUpdateCmd.Flags().StringVar(&appClearFile, "clear", "", "clear program assembly file")
	appDryrunCmd.Flags().StringVarP(&appDryrunOut, "out", "o", "ctx.dr", "output context file")

	appCmd.AddCommand(
		appDeployCmd,
		appCallCmd,
		appOptinCmd,
		appCloseoutCmd,
		appUpdateCmd,
		appDeleteCmd,
		appStateCmd,
		appListCmd,
		appDryrunCmd,
	)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chainlab-dev/chainlab/internal/config"
	"github.com/chainlab-dev/chainlab/internal/keys"
	"github.com/chainlab-dev/chainlab/internal/ledger"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/chainlab-dev/chainlab/cmd.Version=1.2.3" .
var Version = "1.0.0"

var (
	cfgDir  string
	cfg     *config.Config
	verbose bool
	zlog    *zap.Logger
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "chainlab",
	Short: "The stateful-contract sandbox CLI",
	Long: `chainlab — a local ledger for learning stateful smart contracts.

  Deploy contracts, call them in atomic transaction groups, read their
  global state, and step through their execution in the debugger — all
  against an in-process ledger, no network required.

The bundled "counter-buggy" contract carries an intentional underflow bug;
deploy it, trip the fault with a below-threshold payment at counter 0, and
use ` + "`chainlab debug`" + ` to watch it happen.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		zlog = zap.NewNop()
		if verbose {
			if zlog, err = zap.NewDevelopment(); err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// CHAINLAB_DIR env var overrides --config flag.
	if envDir := os.Getenv("CHAINLAB_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.chainlab)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose ledger/VM logging")

	// Register all sub-commands.
	rootCmd.AddCommand(
		initCmd,
		walletCmd,
		balanceCmd,
		faucetCmd,
		sendCmd,
		compileCmd,
		appCmd,
		debugCmd,
		chainCmd,
		configCmd,
	)
}

// --- shared helpers ---

func newAccountManager() *keys.Manager {
	return keys.NewManager(
		keys.WithStore(keys.NewJSONStore(cfg.AccountsPath())),
		keys.WithKeystore(keys.DefaultKeystore()),
	)
}

func openLedger() (*ledger.Ledger, error) {
	l, err := ledger.Load(cfg.LedgerPath(),
		ledger.WithLogger(zlog),
		ledger.WithBudget(cfg.VMBudget),
	)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w\n  run `chainlab init` to create one", err)
	}
	return l, nil
}

func saveLedger(l *ledger.Ledger) error {
	if err := l.Save(cfg.LedgerPath()); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	return nil
}

// resolveAccount turns an account name or literal address into an address.
// An empty argument falls back to the configured or single default account.
func resolveAccount(nameOrAddr string) (string, error) {
	if nameOrAddr == "" {
		nameOrAddr = cfg.DefaultAccount
	}
	if nameOrAddr == "" {
		if a := newAccountManager().Default(); a != nil {
			return a.Address, nil
		}
		return "", fmt.Errorf("no account specified — pass one, or set a default:\n  chainlab wallet new myacct\n  chainlab wallet use myacct")
	}
	if keys.IsValidAddress(nameOrAddr) {
		return nameOrAddr, nil
	}
	a, err := newAccountManager().Get(nameOrAddr)
	if err != nil {
		return "", fmt.Errorf("account %q not found — run `chainlab wallet list`, or pass an address directly", nameOrAddr)
	}
	return a.Address, nil
}

// signerFor returns the keypair for an account name (or the default).
func signerFor(name string) (*keys.KeyPair, error) {
	mgr := newAccountManager()
	if name == "" {
		name = cfg.DefaultAccount
	}
	if name == "" {
		a := mgr.Default()
		if a == nil {
			return nil, fmt.Errorf("no signing account — create one with `chainlab wallet new <name>`")
		}
		name = a.Name
	}
	kp, err := mgr.Signer(name)
	if err != nil {
		return nil, fmt.Errorf("loading key for %q: %w", name, err)
	}
	return kp, nil
}

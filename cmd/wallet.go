package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/chainlab-dev/chainlab/internal/keys"
	"github.com/chainlab-dev/chainlab/internal/ui"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage accounts",
}

var walletNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Generate a new signing account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newAccountManager()
		a, err := mgr.New(args[0])
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Account created", [][2]string{
			{"Name", a.Name},
			{"Address", ui.Addr(a.Address)},
			{"Type", a.Type},
		}))
		fmt.Println(ui.Hint("fund it: chainlab faucet " + a.Name))
		return nil
	},
}

var walletImportCmd = &cobra.Command{
	Use:   "import <name> <hex-seed>",
	Short: "Import a signing account from a 32-byte hex seed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newAccountManager()
		a, err := mgr.AddWithSeed(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("imported " + a.Name + " (" + ui.TruncateAddr(a.Address) + ")"))
		return nil
	},
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Register a watch-only account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, addr := args[0], args[1]
		if !keys.IsValidAddress(addr) {
			return fmt.Errorf("invalid address %q", addr)
		}
		mgr := newAccountManager()
		err := mgr.Add(name, &keys.Account{
			Name:    name,
			Address: addr,
			Type:    keys.TypeWatchOnly,
		})
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("added watch-only account " + name))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts := newAccountManager().List()
		if len(accounts) == 0 {
			fmt.Println(ui.Hint("no accounts yet — chainlab wallet new <name>"))
			return nil
		}
		sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })

		t := ui.NewTable([]ui.Column{
			{Title: "NAME", Width: 16},
			{Title: "ADDRESS", Width: 42},
			{Title: "TYPE", Width: 12},
			{Title: "DEFAULT", Width: 8},
		})
		for _, a := range accounts {
			def := ""
			if a.IsDefault {
				def = "✓"
			}
			t.AddRow(ui.Row{a.Name, a.Address, a.Type, def})
		}
		fmt.Print(t.Render())
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make an account the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newAccountManager()
		if err := mgr.SetDefault(args[0]); err != nil {
			return err
		}
		cfg.DefaultAccount = args[0]
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success("default account: " + args[0]))
		return nil
	},
}

var walletShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAccountManager().Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Account", [][2]string{
			{"Name", a.Name},
			{"Address", ui.Addr(a.Address)},
			{"Type", a.Type},
			{"Created", a.CreatedAt},
		}))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an account and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAccountManager().Remove(args[0]); err != nil {
			return err
		}
		fmt.Println(ui.Success("removed " + args[0]))
		return nil
	},
}

func init() {
	walletCmd.AddCommand(
		walletNewCmd,
		walletImportCmd,
		walletAddCmd,
		walletListCmd,
		walletUseCmd,
		walletShowCmd,
		walletRemoveCmd,
	)
}

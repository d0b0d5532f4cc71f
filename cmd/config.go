package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chainlab-dev/chainlab/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.KeyValueBlock("Configuration", [][2]string{
			{"Directory", cfg.Dir()},
			{"Default account", orDash(cfg.DefaultAccount)},
			{"Faucet amount", formatAmount(cfg.FaucetAmount)},
			{"VM budget", fmt.Sprintf("%d", cfg.VMBudget)},
		}))
		return nil
	},
}

var configSetFaucetCmd = &cobra.Command{
	Use:   "set-faucet-amount <microunits>",
	Short: "Set the default faucet amount",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad amount %q: %w", args[0], err)
		}
		cfg.FaucetAmount = amount
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success("faucet amount: " + formatAmount(amount)))
		return nil
	},
}

var configSetBudgetCmd = &cobra.Command{
	Use:   "set-vm-budget <ops>",
	Short: "Set the VM execution cost budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		budget, err := strconv.Atoi(args[0])
		if err != nil || budget <= 0 {
			return fmt.Errorf("bad budget %q", args[0])
		}
		cfg.VMBudget = budget
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("VM budget: %d", budget)))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetFaucetCmd, configSetBudgetCmd)
}

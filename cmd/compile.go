package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chainlab-dev/chainlab/internal/contract"
	"github.com/chainlab-dev/chainlab/internal/ui"
)

var compileOut string

var compileCmd = &cobra.Command{
	Use:   "compile <contract-id>",
	Short: "Compile a bundled contract to assembly",
	Long: `Compile a bundled contract's approval program to its assembly text,
the same artifact "app deploy" submits and the debugger displays.

Bundled contracts:
  counter        the fixed build (decrement clamps at zero)
  counter-buggy  the build with the injected underflow bug

Examples:
  chainlab compile counter-buggy
  chainlab compile counter -o counter.cvm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, ok := contract.GetBuiltin(args[0])
		if !ok {
			return fmt.Errorf("unknown contract %q — bundled: counter, counter-buggy", args[0])
		}
		src, err := b.Approval()
		if err != nil {
			return err
		}

		if compileOut != "" {
			if err := os.WriteFile(compileOut, []byte(src), 0o644); err != nil {
				return err
			}
			fmt.Println(ui.Success("wrote " + compileOut))
			return nil
		}
		fmt.Print(src)
		return nil
	},
}

func init() {
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", "", "write assembly to file instead of stdout")
}

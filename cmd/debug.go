package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chainlab-dev/chainlab/internal/debug"
	"github.com/chainlab-dev/chainlab/internal/dryrun"
	"github.com/chainlab-dev/chainlab/internal/ui"
)

var debugBatch bool

var debugCmd = &cobra.Command{
	Use:   "debug <context-file>",
	Short: "Step through a captured app-call evaluation",
	Long: `Replay a dry-run context in the interactive debugger: step the program,
watch the stack and global state, and see exactly where a fault fires.

With --batch the full instruction trace prints to stdout instead — useful
for piping or CI.

The tutorial flow:
  chainlab app dryrun 1 --pay 1000000 -o ctx.dr   # counter at 0, below threshold
  chainlab debug ctx.dr                            # watch the '-' underflow`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := dryrun.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading context: %w", err)
		}
		prog, vmCtx, err := ctx.VMContext(zlog)
		if err != nil {
			return err
		}

		fmt.Println(ui.KeyValueBlock("Debug session", [][2]string{
			{"Context", args[0]},
			{"App ID", fmt.Sprintf("%d", ctx.AppID)},
			{"Group size", fmt.Sprintf("%d", len(ctx.Group))},
			{"Captured round", fmt.Sprintf("%d", ctx.Round)},
		}))

		if debugBatch {
			// A fault is the expected outcome when debugging the buggy
			// build; the trace already shows it, so don't fail the command.
			if _, err := debug.Trace(os.Stdout, prog, vmCtx); err != nil {
				return nil
			}
			return nil
		}
		return debug.Run(prog, vmCtx)
	},
}

func init() {
	debugCmd.Flags().BoolVar(&debugBatch, "batch", false, "print the full trace instead of the interactive stepper")
}

// Package debug drives stepped evaluation of a captured app call: a batch
// trace printer for piped output and an interactive terminal stepper.
package debug

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chainlab-dev/chainlab/internal/avm"
	"github.com/chainlab-dev/chainlab/internal/ui"
)

// Trace runs prog to completion, writing one line per executed instruction,
// and reports the verdict. The fault, if any, is printed and returned.
func Trace(w io.Writer, prog *avm.Program, ctx *avm.Context) (bool, error) {
	sess := avm.NewSession(prog, ctx)

	fmt.Fprintln(w, ui.StyleHeader.Render("LINE  INSTRUCTION                 STACK"))
	for !sess.Done() {
		frame, err := sess.Step()
		if err != nil {
			var fault *avm.Fault
			if errors.As(err, &fault) {
				fmt.Fprintf(w, "%s\n", ui.Err(fault.Error()))
				if srcLine := sourceLine(prog, fault.Line); srcLine != "" {
					fmt.Fprintf(w, "  %s %s\n", ui.Meta(fmt.Sprintf("%4d", fault.Line)), srcLine)
				}
			} else {
				fmt.Fprintf(w, "%s\n", ui.Err(err.Error()))
			}
			return false, err
		}
		fmt.Fprintf(w, "%s  %-26s  %s\n",
			ui.Meta(fmt.Sprintf("%4d", frame.Line)),
			frame.Op,
			renderStack(frame.Stack),
		)
	}

	approved, err := sess.Result()
	if err != nil {
		fmt.Fprintln(w, ui.Err(err.Error()))
		return false, err
	}
	if approved {
		fmt.Fprintln(w, ui.Success("program approved"))
	} else {
		fmt.Fprintln(w, ui.Err("program rejected"))
	}
	fmt.Fprint(w, renderGlobals(ctx.Globals))
	return approved, nil
}

func renderStack(stack []avm.Value) string {
	if len(stack) == 0 {
		return ui.Meta("(empty)")
	}
	parts := make([]string, len(stack))
	for i, v := range stack {
		parts[i] = v.String()
	}
	return strings.Join(parts, " · ")
}

func renderGlobals(g avm.GlobalState) string {
	if len(g) == 0 {
		return ""
	}
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(ui.StyleTitle.Render("Global state") + "\n")
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %s = %s\n", ui.Meta(k), ui.Val(g[k].String())))
	}
	return sb.String()
}

func sourceLine(prog *avm.Program, line int) string {
	if line < 1 || line > len(prog.Lines) {
		return ""
	}
	return strings.TrimSpace(prog.Lines[line-1])
}

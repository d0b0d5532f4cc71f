package debug

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chainlab-dev/chainlab/internal/avm"
	"github.com/chainlab-dev/chainlab/internal/ui"
)

const sourceWindow = 17 // lines of source shown around the current line

// Model is the Bubble Tea model for the interactive stepper.
type Model struct {
	prog        *avm.Program
	sess        *avm.Session
	last        *avm.Frame
	breakpoints map[int]bool // source line -> set
	flash       string
	quitting    bool
}

// New prepares a debugger session over prog and ctx.
func New(prog *avm.Program, ctx *avm.Context) Model {
	return Model{
		prog:        prog,
		sess:        avm.NewSession(prog, ctx),
		breakpoints: make(map[int]bool),
	}
}

// Run starts the interactive debugger and blocks until it exits.
func Run(prog *avm.Program, ctx *avm.Context) error {
	_, err := tea.NewProgram(New(prog, ctx)).Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.flash = ""

	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "n", " ", "enter":
		m.step()

	case "c":
		// Run until a breakpoint, a fault, or the end.
		for !m.sess.Done() {
			m.step()
			if m.breakpoints[m.sess.CurrentLine()] {
				m.flash = fmt.Sprintf("breakpoint at line %d", m.sess.CurrentLine())
				break
			}
		}

	case "b":
		line := m.currentLine()
		if line > 0 {
			if m.breakpoints[line] {
				delete(m.breakpoints, line)
				m.flash = fmt.Sprintf("breakpoint cleared at line %d", line)
			} else {
				m.breakpoints[line] = true
				m.flash = fmt.Sprintf("breakpoint set at line %d", line)
			}
		}

	case "r":
		m.sess.Reset()
		m.last = nil
		m.flash = "restarted"
	}

	return m, nil
}

func (m *Model) step() {
	if m.sess.Done() {
		return
	}
	frame, err := m.sess.Step()
	if err != nil {
		return // fault details come from sess.Result in View
	}
	if frame != nil {
		m.last = frame
	}
}

// currentLine is the next line to execute, falling back to the last executed
// one once the session is done.
func (m Model) currentLine() int {
	if line := m.sess.CurrentLine(); line > 0 {
		return line
	}
	if m.last != nil {
		return m.last.Line
	}
	return 0
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(ui.StyleTitle.Render("⚙  chainlab debugger") + "\n")
	sb.WriteString(m.viewSource())
	sb.WriteString("\n")
	sb.WriteString(m.viewStack())
	sb.WriteString(m.viewGlobals())
	sb.WriteString(m.viewStatus())
	if m.flash != "" {
		sb.WriteString(ui.Info(m.flash) + "\n")
	}
	sb.WriteString(ui.Meta("n step · c continue · b breakpoint · r restart · q quit") + "\n")
	return sb.String()
}

func (m Model) viewSource() string {
	cur := m.currentLine()

	// Window the source around the current line.
	start := 1
	end := len(m.prog.Lines)
	if end > sourceWindow {
		start = cur - sourceWindow/2
		if start < 1 {
			start = 1
		}
		end = start + sourceWindow - 1
		if end > len(m.prog.Lines) {
			end = len(m.prog.Lines)
			start = end - sourceWindow + 1
		}
	}

	var sb strings.Builder
	for i := start; i <= end; i++ {
		mark := " "
		if m.breakpoints[i] {
			mark = ui.StyleError.Render("●")
		}
		text := fmt.Sprintf("%4d  %s", i, m.prog.Lines[i-1])
		if i == cur {
			text = ui.StyleSelected.Render(text)
		} else {
			text = ui.StyleDim.Render(text)
		}
		sb.WriteString(mark + text + "\n")
	}
	return ui.StyleBorder.Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) viewStack() string {
	if m.last == nil {
		return ui.Meta("stack: (not started)") + "\n"
	}
	return ui.Meta("stack: ") + renderStack(m.last.Stack) + "\n"
}

func (m Model) viewGlobals() string {
	var g avm.GlobalState
	if m.last != nil {
		g = m.last.Globals
	}
	if len(g) == 0 {
		return ""
	}
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + g[k].String()
	}
	return ui.Meta("globals: ") + ui.Val(strings.Join(parts, "  ")) + "\n"
}

func (m Model) viewStatus() string {
	if !m.sess.Done() {
		return ui.Meta(fmt.Sprintf("paused at line %d", m.currentLine())) + "\n"
	}
	approved, err := m.sess.Result()
	if err != nil {
		return ui.Err(err.Error()) + "\n"
	}
	if approved {
		return ui.Success("program approved") + "\n"
	}
	return ui.Err("program rejected") + "\n"
}

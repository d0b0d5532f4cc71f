package ui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // green  — approvals, success
	ColorWarning   = lipgloss.Color("#FFB800") // yellow — pending, warning
	ColorError     = lipgloss.Color("#FF4444") // red    — rejections, faults
	ColorAddress   = lipgloss.Color("#00B4D8") // cyan   — addresses, txids
	ColorValue     = lipgloss.Color("#FFFFFF") // white bold — amounts, state values
	ColorMeta      = lipgloss.Color("#555555") // dim gray  — rounds, timestamps
	ColorBorder    = lipgloss.Color("#1E3A5F") // dark blue — UI chrome
	ColorApp       = lipgloss.Color("#9B5DE5") // purple    — app IDs, contract names
	ColorHighlight = lipgloss.Color("#F15BB5") // pink      — current debugger line
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleApp     = lipgloss.NewStyle().Foreground(ColorApp).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Underline(true)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorApp).
			Bold(true).
			MarginBottom(1)

	StyleDim = lipgloss.NewStyle().Foreground(ColorMeta)
)

// Banner returns the chainlab ASCII banner.
func Banner() string {
	art := `
   ██████╗██╗  ██╗ █████╗ ██╗███╗   ██╗██╗      █████╗ ██████╗
  ██╔════╝██║  ██║██╔══██╗██║████╗  ██║██║     ██╔══██╗██╔══██╗
  ██║     ███████║███████║██║██╔██╗ ██║██║     ███████║██████╔╝
  ██║     ██╔══██║██╔══██║██║██║╚██╗██║██║     ██╔══██║██╔══██╗
  ╚██████╗██║  ██║██║  ██║██║██║ ╚████║███████╗██║  ██║██████╔╝
   ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝╚═╝  ╚═══╝╚══════╝╚═╝  ╚═╝╚═════╝`

	tagline := StyleMeta.Render("     The stateful-contract sandbox  ⚡  v1.0.0")
	features := StyleMeta.Render("  ✦ local ledger  ✦ atomic groups  ✦ step debugger")

	return StyleApp.Render(art) + "\n" + tagline + "\n" + features + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats an informational message.
func Info(msg string) string { return StyleAddress.Render("ℹ " + msg) }

// Hint formats a dim hint line.
func Hint(msg string) string { return StyleMeta.Render("  " + msg) }

// Addr formats an address or txid.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// AppName formats an app ID or contract name.
func AppName(a string) string { return StyleApp.Render(a) }

// TruncateAddr shortens an address for display: CVMQX7…K3NA.
func TruncateAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

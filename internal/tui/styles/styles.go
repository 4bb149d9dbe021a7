// Package styles holds the palette and lipgloss styles shared by the dnsm
// terminal views.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	White    = lipgloss.Color("#E2E2E2")
	Gray     = lipgloss.Color("#888888")
	Muted    = lipgloss.Color("#555555")
	DimGray  = lipgloss.Color("#444444")
	Blue     = lipgloss.Color("#5FAFFF")
	DarkBlue = lipgloss.Color("#1A2F40")
	Green    = lipgloss.Color("#5FD787")
	Yellow   = lipgloss.Color("#FFD787")
	Red      = lipgloss.Color("#FF8787")
)

var (
	Title      = lipgloss.NewStyle().Bold(true).Foreground(White)
	Subtitle   = lipgloss.NewStyle().Foreground(Gray)
	Label      = lipgloss.NewStyle().Foreground(Gray).Bold(true)
	Value      = lipgloss.NewStyle().Foreground(White)
	MutedText  = lipgloss.NewStyle().Foreground(Muted)
	AccentText = lipgloss.NewStyle().Foreground(Blue)
	ErrorText  = lipgloss.NewStyle().Foreground(Red).Bold(true)

	// WarningText marks expiry hints and partial results.
	WarningText = lipgloss.NewStyle().Foreground(Yellow).Bold(true)

	// Card frames the record detail view.
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(DimGray).
		Padding(1, 2)
)

// Record table.
var (
	TableHeader      = lipgloss.NewStyle().Bold(true).Foreground(Gray).Padding(0, 1)
	TableCell        = lipgloss.NewStyle().Foreground(White).Padding(0, 1)
	TableSelectedRow = lipgloss.NewStyle().Foreground(White).Background(DarkBlue).Bold(true).Padding(0, 1)
)

// StatusStyle colours a record status. The browser also passes the derived
// labels "expiring" and "expired".
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "active":
		return lipgloss.NewStyle().Foreground(Green).Bold(true)
	case "pending":
		return lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	case "expiring":
		return lipgloss.NewStyle().Foreground(Yellow)
	case "error", "expired":
		return lipgloss.NewStyle().Foreground(Red)
	default:
		return lipgloss.NewStyle().Foreground(Gray)
	}
}

// StatusIndicator renders "● status" in the status colour.
func StatusIndicator(status string) string {
	style := StatusStyle(status)
	return style.Render("●") + " " + style.Render(status)
}

// KeyHint renders one footer binding such as "q quit".
func KeyHint(key, desc string) string {
	return lipgloss.NewStyle().Foreground(Blue).Bold(true).Render(key) + " " + MutedText.Render(desc)
}

// Package components renders the frame around full-screen dnsm views: the
// header, the status line and the key binding footer.
package components

import (
	"strings"

	"nathanbeddoewebdev/dnsm/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// KeyBinding is a key and what it does.
type KeyBinding struct {
	Key  string
	Desc string
}

// Level sets how a status line is coloured.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Header renders "dnsm > view" on the left and the provider on the right,
// above a rule.
func Header(width int, view, provider string) string {
	if width < 10 {
		return ""
	}

	left := styles.Title.Foreground(styles.Blue).Render("dnsm")
	if view != "" {
		left += styles.MutedText.Render(" > ") + styles.Title.Render(view)
	}
	right := ""
	if provider != "" {
		right = styles.Subtitle.Render(provider)
	}
	gap := max(width-4-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return bar(width).
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderBottom(true).
		Render(left + strings.Repeat(" ", gap) + right)
}

// Footer renders the key bindings below a rule.
func Footer(width int, bindings []KeyBinding) string {
	if width < 10 || len(bindings) == 0 {
		return ""
	}

	hints := make([]string, len(bindings))
	for i, b := range bindings {
		hints[i] = styles.KeyHint(b.Key, b.Desc)
	}
	return bar(width).
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderTop(true).
		Render(strings.Join(hints, "  "))
}

// StatusBar renders a single message line. An empty message renders
// nothing.
func StatusBar(width int, message string, level Level) string {
	if message == "" {
		return ""
	}

	style := styles.MutedText
	switch level {
	case LevelWarn:
		style = styles.WarningText
	case LevelError:
		style = styles.ErrorText
	}
	return lipgloss.NewStyle().Width(width).Padding(0, 2).Render(style.Render(message))
}

func bar(width int) lipgloss.Style {
	return lipgloss.NewStyle().Width(width).Padding(0, 2).BorderForeground(styles.DimGray)
}

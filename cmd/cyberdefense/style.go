package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/iyulab/cyber-defense/internal/event"
)

var (
	primary    = lipgloss.Color("#7C3AED")
	okColor    = lipgloss.Color("#10B981")
	warnColor  = lipgloss.Color("#F59E0B")
	errColor   = lipgloss.Color("#EF4444")
	mutedColor = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	labelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(22)
	okStyle    = lipgloss.NewStyle().Foreground(okColor).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(errColor).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(0, 1)

	severityStyles = map[string]lipgloss.Style{
		event.SeverityCritical: lipgloss.NewStyle().Foreground(errColor).Bold(true),
		event.SeverityHigh:     lipgloss.NewStyle().Foreground(warnColor).Bold(true),
		event.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
		event.SeverityLow:      lipgloss.NewStyle().Foreground(okColor),
	}
)

// severityLabel renders an upper-cased, fixed-width severity.
func severityLabel(s string) string {
	label := fmt.Sprintf("%-8s", strings.ToUpper(s))
	if style, ok := severityStyles[event.NormalizeSeverity(s)]; ok {
		return style.Render(label)
	}
	return mutedStyle.Render(label)
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
}

func printField(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %v\n", labelStyle.Render(label), value)
}

func printList(w io.Writer, title string, items []string) {
	printTitle(w, title)
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  (none)"))
		return
	}
	for i, item := range items {
		fmt.Fprintf(w, "  %d. %s\n", i+1, item)
	}
}

func printBox(w io.Writer, content string) {
	fmt.Fprintln(w, boxStyle.Render(content))
}

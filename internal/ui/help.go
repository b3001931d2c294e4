package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	sections := []helpSection{
		{
			title: "Dashboard",
			items: []helpItem{
				{"j/k", "Move up/down"},
				{"g/G", "Go to top/bottom"},
				{"enter", "Open event"},
				{"f", "Upcoming only / all"},
				{"a", "Analyze a notice"},
				{"c", "Manage children"},
				{"r", "Refresh"},
				{"X", "Delete all data"},
			},
		},
		{
			title: "Event",
			items: []helpItem{
				{"space", "Check/uncheck item"},
				{"n / x", "Add/remove item"},
				{"m", "Edit memo"},
				{"t", "Edit child tags"},
				{"N", "Edit name"},
				{"d / w", "Edit date/time"},
				{"D", "Delete event"},
				{"ctrl+d/u", "Half page down/up"},
			},
		},
		{
			title: "Analyze",
			items: []helpItem{
				{"ctrl+s", "Send notice"},
				{"tab", "Text / image path"},
				{"ctrl+o", "Next country"},
				{"space", "Cycle children"},
				{"t", "Pick any children"},
				{"N d w", "Set name/date/time"},
				{"s", "Save event"},
			},
		},
		{
			title: "General",
			items: []helpItem{
				{"y", "Confirm deletion"},
				{"L", "Client log"},
				{"esc", "Back / cancel"},
				{"T", "Cycle theme"},
				{"h/?", "Toggle help"},
				{"e/ctrl+c", "Quit"},
			},
		},
	}

	var b strings.Builder

	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)

	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")

		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}

		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(44)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}

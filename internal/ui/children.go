package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleChildrenKey processes keyboard input for the children screen.
func (m Model) handleChildrenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	children := m.snapshot.Children

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.childRow < len(children)-1 {
			m.childRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.childRow > 0 {
			m.childRow--
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.startBusy(m.refreshCmd("Refreshed"))

	case key.Matches(msg, m.keys.Add):
		return m, m.beginInput(inputChildName, "Child name", "", ChildNameCharLimit)

	case key.Matches(msg, m.keys.Rename):
		name, ok := m.selectedChild()
		if !ok {
			return m, nil
		}
		m.renameFrom = name
		return m, m.beginInput(inputChildRename, "New name", name, ChildNameCharLimit)

	case key.Matches(msg, m.keys.Remove):
		name, ok := m.selectedChild()
		if !ok {
			return m, nil
		}
		m.confirmChild = name
		m.askConfirm(confirmDeleteChild, fmt.Sprintf("Remove %s? Tagged events keep the tag.", name))
	}

	return m, nil
}

// selectedChild returns the highlighted child name.
func (m Model) selectedChild() (string, bool) {
	if m.childRow < 0 || m.childRow >= len(m.snapshot.Children) {
		return "", false
	}
	return m.snapshot.Children[m.childRow], true
}

// taggedCounts counts cached events per child tag.
func (m Model) taggedCounts() map[string]int {
	counts := make(map[string]int)
	for _, ev := range m.snapshot.Events {
		for _, tag := range ev.ChildTags() {
			counts[tag]++
		}
	}
	return counts
}

// renderChildren renders the registered children with their event counts.
func (m Model) renderChildren() string {
	bgColor := m.theme.FocusBg
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)
	width := m.width - 2

	var lines []string
	if m.inputMode != inputNone {
		lines = append(lines, m.renderInputRow(), "")
	}

	children := m.snapshot.Children
	if len(children) == 0 {
		lines = append(lines, bg.Render("No children registered. Press n to add one.", styles.MutedText))
	}

	counts := m.taggedCounts()
	scope := ternary(m.prefs.FutureOnly, "upcoming", "")
	for i, name := range children {
		count := counts[name]
		suffix := fmt.Sprintf("%d %s event%s", count, scope, ternary(count == 1, "", "s"))
		suffix = strings.Join(strings.Fields(suffix), " ")
		row := padRight(truncate(name, 24), 26) + suffix
		if i == m.childRow {
			lines = append(lines, styles.Selected.Width(width).Render("› "+row))
			continue
		}
		lines = append(lines, bg.Render("  "+padRight(truncate(name, 24), 26), styles.Text)+bg.Render(suffix, styles.MutedText))
	}

	title := fmt.Sprintf("Children (%d)", len(children))
	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
}

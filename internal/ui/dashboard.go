package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sensecoach/coach/internal/sensecoach"
)

// Event states used for row colors.
const (
	stateToday    = "today"
	stateUpcoming = "upcoming"
	statePast     = "past"
	stateDone     = "done"
	stateOpen     = "open" // today with unchecked items
)

// handleDashboardKey processes keyboard input for the event list.
func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	events := m.snapshot.Events

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < len(events)-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(len(events)-1, 0)

	case key.Matches(msg, m.keys.Open):
		ev, ok := m.selectedEvent()
		if !ok {
			return m, nil
		}
		return m, m.openDetail(ev)

	case key.Matches(msg, m.keys.ToggleFuture):
		m.prefs.FutureOnly = !m.prefs.FutureOnly
		m.savePrefs()
		return m, m.startBusy(m.refreshCmd(""))

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.startBusy(m.refreshCmd("Refreshed")), m.healthCmd())

	case key.Matches(msg, m.keys.Compose):
		return m, m.openCompose()

	case key.Matches(msg, m.keys.Children):
		m.screen = ScreenChildren
		return m, nil

	case key.Matches(msg, m.keys.ResetData):
		m.askConfirm(confirmReset, "Delete ALL events, checklists and children?")
	}

	return m, nil
}

// openDetail switches to the detail screen for ev and refetches it.
func (m *Model) openDetail(ev sensecoach.Event) tea.Cmd {
	m.screen = ScreenDetail
	m.detail.eventID = ev.ID
	m.detail.event = ev
	m.detail.loaded = false
	m.detail.cursor = 0
	m.detail.viewport.GotoTop()
	m.updateDetailViewport()
	return m.startBusy(m.loadEventCmd(ev.ID))
}

// selectedEvent returns the highlighted dashboard event.
func (m Model) selectedEvent() (sensecoach.Event, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Events) {
		return sensecoach.Event{}, false
	}
	return m.snapshot.Events[m.selectedRow], true
}

// updateDashboardSelection keeps the selection on the same event id when the
// list changes, clamping when it disappeared.
func (m *Model) updateDashboardSelection() {
	events := m.snapshot.Events
	if len(events) == 0 {
		m.selectedRow = 0
		return
	}
	if m.screen == ScreenDetail && m.detail.eventID > 0 {
		for i, ev := range events {
			if ev.ID == m.detail.eventID {
				m.selectedRow = i
				return
			}
		}
	}
	m.selectedRow = clampIndex(m.selectedRow, len(events))
}

// eventState classifies ev relative to today for coloring.
func eventState(ev sensecoach.Event, today time.Time) string {
	checked, total := ev.Progress()
	date := ev.ParsedDate()
	if date.IsZero() {
		return stateUpcoming
	}
	day := today.Format(sensecoach.DateLayout)
	switch {
	case total > 0 && checked == total:
		return stateDone
	case ev.Date == day && checked < total:
		return stateOpen
	case ev.Date == day:
		return stateToday
	case ev.Date < day:
		return statePast
	default:
		return stateUpcoming
	}
}

// relativeDay describes how far ev is from today.
func relativeDay(ev sensecoach.Event, today time.Time) string {
	date := ev.ParsedDate()
	if date.IsZero() {
		return ""
	}
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	days := int(date.Sub(start).Hours() / 24)
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "yesterday"
	case days > 0:
		return fmt.Sprintf("in %dd", days)
	default:
		return fmt.Sprintf("%dd ago", -days)
	}
}

// renderDashboard renders the event list with a preview pane when wide enough.
func (m Model) renderDashboard() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	if len(m.snapshot.Events) == 0 {
		msg := "No events yet. Press a to analyze a school notice."
		if !m.snapshot.Loaded {
			msg = "Loading events..."
			if m.snapshot.LastError != nil {
				msg = "Could not load events. Press r to retry."
			}
		} else if m.prefs.FutureOnly {
			msg = "No upcoming events. Press f to show past events too."
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}

	if m.width < LayoutSplitWidth {
		return m.renderTitledBox(m.dashboardTitle(), m.renderEventRows(m.width-2, m.theme.FocusBg), m.width, height, true)
	}

	listWidth := m.width * 55 / 100
	if m.width >= LayoutExtraWideWidth {
		listWidth = m.width * 45 / 100
	}
	previewWidth := m.width - listWidth

	list := m.renderTitledBox(m.dashboardTitle(), m.renderEventRows(listWidth-2, m.theme.FocusBg), listWidth, height, true)

	var preview string
	if ev, ok := m.selectedEvent(); ok {
		preview = m.renderEventPreview(ev, previewWidth-4, m.theme.SurfaceAlt)
	}
	previewBox := m.renderTitledBox("Preview", preview, previewWidth, height, false)

	return lipgloss.JoinHorizontal(lipgloss.Top, list, previewBox)
}

// dashboardTitle names the list with the active filter.
func (m Model) dashboardTitle() string {
	label := "All events"
	if m.prefs.FutureOnly {
		label = "Upcoming events"
	}
	return fmt.Sprintf("%s (%d)", label, len(m.snapshot.Events))
}

// renderEventRows renders one line per event, scrolled to keep the selection visible.
func (m Model) renderEventRows(width int, bgColor string) string {
	events := m.snapshot.Events
	visible := max(m.contentHeight()-2, 1)
	start := 0
	if m.selectedRow >= visible {
		start = m.selectedRow - visible + 1
	}
	end := min(start+visible, len(events))

	today := m.now()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		selected := i == m.selectedRow
		rowBg := bgColor
		if selected {
			rowBg = m.theme.SelectionBg
		}
		content := m.formatEventRow(events[i], width, rowBg, selected, today)
		lines = append(lines, lipgloss.NewStyle().Background(lipgloss.Color(rowBg)).Width(width).Render(content))
	}
	return strings.Join(lines, "\n")
}

// formatEventRow formats "MM/DD HH:MM Name · tags 2/3".
func (m Model) formatEventRow(ev sensecoach.Event, width int, bgColor string, selected bool, today time.Time) string {
	bg := NewBgStyle(bgColor)

	when := ev.Date
	if d := ev.ParsedDate(); !d.IsZero() {
		when = d.Format("01/02 Mon")
	}
	clock := padRight(ev.Time, 5)

	var suffixParts []string
	if tags := ev.ChildTags(); len(tags) > 0 {
		suffixParts = append(suffixParts, strings.Join(tags, ", "))
	}
	if checked, total := ev.Progress(); total > 0 {
		suffixParts = append(suffixParts, fmt.Sprintf("%d/%d", checked, total))
	}
	suffix := strings.Join(suffixParts, " ")

	fixed := runewidth.StringWidth(when) + 1 + runewidth.StringWidth(clock) + 1
	if suffix != "" {
		fixed += 3 + runewidth.StringWidth(suffix)
	}
	nameWidth := max(width-fixed-1, 8)

	var whenStyle, nameStyle, mutedStyle, stateStyle lipgloss.Style
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		whenStyle, nameStyle, mutedStyle, stateStyle = selText, selText.Bold(true), selText, selText
	} else {
		styles := m.theme.Styles()
		whenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.colorForState(eventState(ev, today))))
		nameStyle = styles.Text
		mutedStyle = styles.MutedText
		stateStyle = styles.InfoText
	}

	row := bg.Render(when, whenStyle) + bg.Space() +
		bg.Render(clock, mutedStyle) + bg.Space() +
		bg.Render(truncate(ev.Name, nameWidth), nameStyle)
	if suffix != "" {
		row += bg.Render(" · ", mutedStyle) + bg.Render(suffix, stateStyle)
	}
	return row
}

// renderEventPreview summarizes an event in the preview pane.
func (m Model) renderEventPreview(ev sensecoach.Event, width int, bgColor string) string {
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)
	today := m.now()

	var lines []string
	lines = append(lines, bg.Render(truncate(ev.Name, width), styles.Text.Bold(true)))

	when := strings.TrimSpace(ev.Date + " " + ev.Time)
	if rel := relativeDay(ev, today); rel != "" {
		when += " (" + rel + ")"
	}
	lines = append(lines, bg.Render(when, lipgloss.NewStyle().Foreground(lipgloss.Color(m.colorForState(eventState(ev, today))))))

	if tags := ev.ChildTags(); len(tags) > 0 {
		lines = append(lines, bg.Render("Children: ", styles.MutedText)+bg.Render(strings.Join(tags, ", "), styles.InfoText))
	}
	lines = append(lines, "")

	for _, section := range []struct{ title, body string }{
		{"Translation", ev.Translation},
		{"Tips", ev.Tips},
		{"Memo", ev.Memo},
	} {
		if strings.TrimSpace(section.body) == "" {
			continue
		}
		lines = append(lines, bg.Render(section.title, styles.AccentText.Bold(true)))
		for _, line := range wrapText(section.body, width) {
			lines = append(lines, bg.Render(line, styles.Text))
		}
		lines = append(lines, "")
	}

	if checked, total := ev.Progress(); total > 0 {
		lines = append(lines, bg.Render(fmt.Sprintf("Checklist %d/%d", checked, total), styles.AccentText.Bold(true)))
		for _, item := range ev.Checklist {
			mark, style := "[ ]", styles.Text
			if item.Checked {
				mark, style = "[x]", styles.MutedText
			}
			lines = append(lines, bg.Render(truncate(mark+" "+item.Name, width), style))
		}
	}

	return strings.Join(lines, "\n")
}

// colorForState returns the theme color for an event state.
func (m Model) colorForState(state string) string {
	if color, ok := m.theme.StatusColors[state]; ok {
		return color
	}
	return m.theme.Text
}

// renderTitledBox renders content in a box with the title embedded in the top border.
// Focused boxes use the focus border and background.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 1)
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := runewidth.StringWidth(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColorStr))

	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	paddedLines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		paddedLines = append(paddedLines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(paddedLines, "\n") + "\n" + bottomBorder
}

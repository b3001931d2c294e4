package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sensecoach/coach/internal/logtail"
)

// LogTailLines bounds how much of the log file the log screen loads.
const LogTailLines = 500

type logMsg struct {
	entries []logtail.Entry
	err     error
}

func (m Model) loadLogCmd() tea.Cmd {
	path := m.logPath
	return func() tea.Msg {
		entries, err := logtail.Tail(path, LogTailLines)
		return logMsg{entries: entries, err: err}
	}
}

// applyLog renders fetched log entries into the log viewport, newest at the bottom.
func (m *Model) applyLog(msg logMsg) {
	if msg.err != nil {
		m.setError("Reading log failed", msg.err)
		return
	}
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)

	if len(msg.entries) == 0 {
		m.logView.SetContent(bg.Render("Log is empty.", styles.MutedText))
		return
	}

	lines := make([]string, 0, len(msg.entries))
	for _, entry := range msg.entries {
		lines = append(lines, bg.Render(truncate(entry.Text, m.logView.Width), m.levelStyle(entry.Level, styles)))
	}
	m.logView.SetContent(strings.Join(lines, "\n"))
	m.logView.GotoBottom()
}

func (m Model) levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "ERROR":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.FaintText
	default:
		return styles.Text
	}
}

// handleLogKey scrolls the log screen.
func (m Model) handleLogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		m.logView.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.logView.ScrollUp(1)
	case key.Matches(msg, m.keys.Top):
		m.logView.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logView.GotoBottom()
	case key.Matches(msg, m.keys.PageDown):
		m.logView.HalfPageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.logView.HalfPageUp()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadLogCmd()
	}
	return m, nil
}

// renderLog renders the tail of the client log.
func (m Model) renderLog() string {
	title := "Log"
	if m.logPath != "" {
		title += " " + m.logPath
	}
	return m.renderTitledBox(title, m.logView.View(), m.width, m.contentHeight(), true)
}

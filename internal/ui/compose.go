package ui

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	composeNotice = iota
	composeImage
)

var errEmptyNotice = errors.New("enter notice text or an image path")

// Countries are the analysis contexts offered on the compose screen.
var Countries = []string{"네덜란드", "미국", "독일", "영국", "기타"}

// countryChoices returns Countries, with configured first when it is not
// one of them.
func countryChoices(configured string) []string {
	if configured == "" || slices.Contains(Countries, configured) {
		return slices.Clone(Countries)
	}
	return append([]string{configured}, Countries...)
}

// nextCountry returns the choice after current, wrapping around.
func nextCountry(choices []string, current string) string {
	if len(choices) == 0 {
		return current
	}
	i := slices.Index(choices, current)
	return choices[(i+1)%len(choices)]
}

// openCompose switches to the compose screen with the notice focused.
func (m *Model) openCompose() tea.Cmd {
	m.screen = ScreenCompose
	m.composeFocus = composeNotice
	m.imagePath.Blur()
	return m.notice.Focus()
}

// handleComposeKey processes keyboard input for the compose screen. Only
// esc, ctrl+s, ctrl+o and tab are intercepted; everything else edits the
// focused field.
func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.notice.Blur()
		m.imagePath.Blur()
		m.screen = ScreenDashboard
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submitCompose()

	case key.Matches(msg, m.keys.Country):
		if !m.analyzing {
			m.country = nextCountry(m.countries, m.country)
		}
		return m, nil

	case key.Matches(msg, m.keys.SwitchPane):
		if m.composeFocus == composeNotice {
			m.composeFocus = composeImage
			m.notice.Blur()
			return m, m.imagePath.Focus()
		}
		m.composeFocus = composeNotice
		m.imagePath.Blur()
		return m, m.notice.Focus()
	}

	var cmd tea.Cmd
	if m.composeFocus == composeImage {
		m.imagePath, cmd = m.imagePath.Update(msg)
	} else {
		m.notice, cmd = m.notice.Update(msg)
	}
	return m, cmd
}

// submitCompose sends the notice for analysis. An image path takes priority
// and the text travels along as extra context.
func (m Model) submitCompose() (tea.Model, tea.Cmd) {
	if m.analyzing {
		return m, nil
	}
	text := strings.TrimSpace(m.notice.Value())
	path := expandHome(strings.TrimSpace(m.imagePath.Value()))

	if path == "" && text == "" {
		m.setError("Analyze", errEmptyNotice)
		return m, nil
	}

	m.analyzing = true
	m.setStatus("Analyzing notice...")
	if path != "" {
		return m, m.startBusy(m.analyzeImageCmd(path, text))
	}
	return m, m.startBusy(m.analyzeTextCmd(text))
}

// renderCompose renders the notice editor and image path field.
func (m Model) renderCompose() string {
	bgColor := m.theme.FocusBg
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)

	labelStyle := styles.MutedText
	if m.composeFocus == composeNotice {
		labelStyle = styles.AccentText.Bold(true)
	}

	var lines []string
	lines = append(lines, bg.Render("Notice text", labelStyle))
	lines = append(lines, m.notice.View())
	lines = append(lines, "")

	labelStyle = styles.MutedText
	if m.composeFocus == composeImage {
		labelStyle = styles.AccentText.Bold(true)
	}
	lines = append(lines, bg.Render(padRight("Image path", 14), labelStyle)+m.imagePath.View())
	lines = append(lines, "")

	chips := make([]string, 0, len(m.countries))
	for _, c := range m.countries {
		if c == m.country {
			chips = append(chips, bg.Render("["+c+"]", styles.AccentText.Bold(true)))
			continue
		}
		chips = append(chips, bg.Render(" "+c+" ", styles.MutedText))
	}
	lines = append(lines, bg.Render(padRight("Country", 14), styles.MutedText)+strings.Join(chips, bg.Space()))
	lines = append(lines, "")

	hint := "ctrl+s analyze  ·  tab switch field  ·  ctrl+o country  ·  esc back"
	if m.analyzing {
		hint = m.spinner.View() + " analyzing, this can take a while..."
	}
	lines = append(lines, bg.Render(hint, styles.MutedText))

	return m.renderTitledBox("New notice", strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
}

// expandHome resolves a leading ~ in a user-typed path.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

package ui

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sensecoach/coach/internal/sensecoach"
)

// handleAnalyzed shows analysis results or reports the failure.
func (m Model) handleAnalyzed(msg analyzedMsg) (tea.Model, tea.Cmd) {
	m.analyzing = false
	if msg.err != nil {
		m.setError("Analysis failed", msg.err)
		return m, nil
	}
	if msg.result == nil {
		return m, nil
	}

	m.notice.Blur()
	m.imagePath.Blur()
	result := *msg.result
	// Edits on this screen change the local copy only.
	result.ParsedEvents = slices.Clone(result.ParsedEvents)
	m.results = resultsState{
		result: result,
		tags:   make(map[int][]string),
		saved:  make(map[int]int64),
	}
	m.screen = ScreenResults

	found := len(msg.result.ParsedEvents)
	switch found {
	case 0:
		m.setStatus("No events found in the notice")
	case 1:
		m.setStatus("Found 1 event")
	default:
		m.setStatus(fmt.Sprintf("Found %d events", found))
	}

	// Usage changed server-side; the refresh picks up the new membership.
	return m, m.startBusy(m.refreshCmd(""))
}

// handleResultsKey processes keyboard input for the analysis results screen.
func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	parsed := m.results.result.ParsedEvents

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.results.cursor < len(parsed)-1 {
			m.results.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.results.cursor > 0 {
			m.results.cursor--
		}

	case key.Matches(msg, m.keys.CycleTags):
		i, ok := m.editableResult()
		if !ok {
			return m, nil
		}
		options := m.tagOptions()
		current := slices.IndexFunc(options, func(o []string) bool {
			return slices.Equal(o, m.results.tags[i])
		})
		m.results.tags[i] = options[(current+1)%len(options)]

	case key.Matches(msg, m.keys.EditTags):
		i, ok := m.editableResult()
		if !ok {
			return m, nil
		}
		placeholder := "Comma-separated child names"
		if len(m.snapshot.Children) > 0 {
			placeholder = "e.g. " + strings.Join(m.snapshot.Children, ", ")
		}
		return m, m.beginInput(inputTags, placeholder, strings.Join(m.results.tags[i], ", "), ChildNameCharLimit*4)

	case key.Matches(msg, m.keys.EditName):
		if i, ok := m.editableResult(); ok {
			return m, m.beginInput(inputName, "Event name", parsed[i].Name, EventNameCharLimit)
		}
	case key.Matches(msg, m.keys.EditDate):
		if i, ok := m.editableResult(); ok {
			return m, m.beginInput(inputDate, "YYYY-MM-DD", parsed[i].Date, len(sensecoach.DateLayout))
		}
	case key.Matches(msg, m.keys.EditTime):
		if i, ok := m.editableResult(); ok {
			return m, m.beginInput(inputTime, "HH:MM, empty clears", parsed[i].Time, len(sensecoach.TimeLayout))
		}

	case key.Matches(msg, m.keys.Save):
		i, ok := m.editableResult()
		if !ok {
			return m, nil
		}
		if strings.TrimSpace(parsed[i].Date) == "" {
			m.setError("Save failed", errNoDate)
			return m, nil
		}
		return m, m.startBusy(m.saveEventCmd(i, parsed[i].NewEvent(m.chosenTags(i))))

	case key.Matches(msg, m.keys.Compose):
		return m, m.openCompose()
	}

	return m, nil
}

var errNoDate = errors.New("the event has no date; press d to set one")

// editableResult returns the selected parsed event index when it exists and
// has not been saved yet.
func (m *Model) editableResult() (int, bool) {
	i := m.results.cursor
	if i < 0 || i >= len(m.results.result.ParsedEvents) {
		return 0, false
	}
	if _, done := m.results.saved[i]; done {
		m.setStatus("Already saved")
		return 0, false
	}
	return i, true
}

// editResult applies a completed input to the selected parsed event.
func (m Model) editResult(mode inputMode, value string) (tea.Model, tea.Cmd) {
	i, ok := m.editableResult()
	if !ok {
		return m, nil
	}
	ev := &m.results.result.ParsedEvents[i]

	if mode == inputTags {
		m.results.tags[i] = sensecoach.SplitChildTags(sensecoach.JoinChildTags(strings.Split(value, ",")))
		return m, nil
	}

	value, err := checkEventField(mode, value)
	if err != nil {
		m.setError("Edit event", err)
		return m, nil
	}
	switch mode {
	case inputName:
		ev.Name = value
	case inputDate:
		ev.Date = value
		m.setStatus("Date set to " + value)
	case inputTime:
		ev.Time = value
	}
	return m, nil
}

// tagOptions lists the child tag choices: nobody, each child, then everyone.
func (m Model) tagOptions() [][]string {
	children := m.snapshot.Children
	options := [][]string{nil}
	for _, name := range children {
		options = append(options, []string{name})
	}
	if len(children) > 1 {
		all := make([]string, len(children))
		copy(all, children)
		options = append(options, all)
	}
	return options
}

// chosenTags returns the selected child tags for parsed event i.
func (m Model) chosenTags(i int) []string {
	return m.results.tags[i]
}

func tagLabel(tags []string) string {
	if len(tags) == 0 {
		return sensecoach.NoChildTag
	}
	return strings.Join(tags, ", ")
}

// renderResults renders the parsed events with their tag choice and save state.
func (m Model) renderResults() string {
	bgColor := m.theme.FocusBg
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)
	width := max(m.width-4, 10)
	result := m.results.result

	var lines []string
	add := func(s string) { lines = append(lines, s) }
	selLine := 0
	if m.inputMode != inputNone {
		add(m.renderInputRow())
		add("")
	}

	if len(result.ParsedEvents) == 0 {
		add(bg.Render("The service found no events in this notice.", styles.MutedText))
		if raw := strings.TrimSpace(result.RawResult); raw != "" {
			add("")
			for _, line := range wrapText(raw, width) {
				add(bg.Render(line, styles.FaintText))
			}
		}
	}

	for i, ev := range result.ParsedEvents {
		selected := i == m.results.cursor
		prefix, nameBg, nameStyle := "  ", bg, styles.Text.Bold(true)
		if selected {
			prefix, nameBg, nameStyle = "› ", NewBgStyle(m.theme.SelectionBg), styles.Selected.Bold(true)
		}

		state := "unsaved"
		stateStyle := styles.MutedText
		if id, ok := m.results.saved[i]; ok {
			state = fmt.Sprintf("saved #%d", id)
			stateStyle = styles.SuccessText
		}

		if selected {
			selLine = len(lines)
		}
		when, whenStyle := strings.TrimSpace(ev.Date+" "+ev.Time), styles.WarningText
		if strings.TrimSpace(ev.Date) == "" {
			when, whenStyle = "no date (d to set)", styles.DangerText
		}
		header := truncate(prefix+ev.Name, max(width-24, 10))
		add(nameBg.Render(header, nameStyle) + bg.Space() + bg.Render(when, whenStyle) + bg.Space() + bg.Render("["+state+"]", stateStyle))
		add(bg.Render("    children: "+tagLabel(m.chosenTags(i)), styles.AccentText))

		if !selected {
			continue
		}
		for _, section := range []struct{ title, body string }{
			{"Translation", ev.Translation},
			{"Cultural context", ev.CulturalContext},
			{"Tips", ev.Tips},
		} {
			if strings.TrimSpace(section.body) == "" {
				continue
			}
			add(bg.Render("    "+section.title, styles.MutedText.Bold(true)))
			for _, line := range wrapText(section.body, width-6) {
				add(bg.Render("      "+line, styles.Text))
			}
		}
		if len(ev.ChecklistItems) > 0 {
			add(bg.Render("    Checklist", styles.MutedText.Bold(true)))
			for _, item := range ev.ChecklistItems {
				add(bg.Render(truncate("      - "+item, width), styles.Text))
			}
		}
		add("")
	}

	add("")
	if result.Unlimited() {
		add(bg.Render(fmt.Sprintf("Analyses this month: %d (unlimited)", result.Usage), styles.FaintText))
	} else {
		add(bg.Render(fmt.Sprintf("Analyses this month: %d/%d", result.Usage, result.Limit), styles.FaintText))
	}

	// Scroll so the selected event and its details stay visible.
	if visible := m.contentHeight() - 2; len(lines) > visible {
		lines = lines[min(selLine, len(lines)-visible):]
	}

	title := fmt.Sprintf("Analysis (%d)", len(result.ParsedEvents))
	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
}

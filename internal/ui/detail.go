package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sensecoach/coach/internal/sensecoach"
)

// handleDetailKey processes keyboard input for the event detail screen.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.detail.event.Checklist
	client := m.client
	eventID := m.detail.eventID

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.detail.cursor < len(items)-1 {
			m.detail.cursor++
			m.updateDetailViewport()
		}
	case key.Matches(msg, m.keys.Up):
		if m.detail.cursor > 0 {
			m.detail.cursor--
			m.updateDetailViewport()
		}
	case key.Matches(msg, m.keys.Top):
		m.detail.cursor = 0
		m.detail.viewport.GotoTop()
		m.updateDetailViewport()
	case key.Matches(msg, m.keys.Bottom):
		m.detail.cursor = max(len(items)-1, 0)
		m.updateDetailViewport()
	case key.Matches(msg, m.keys.PageDown):
		m.detail.viewport.HalfPageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.detail.viewport.HalfPageUp()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.startBusy(m.loadEventCmd(eventID))

	case key.Matches(msg, m.keys.Toggle):
		item, ok := m.selectedChecklistItem()
		if !ok {
			return m, nil
		}
		checked := !item.Checked
		status := ternary(checked, "Checked ", "Unchecked ") + item.Name
		return m, m.startBusy(m.mutateEventCmd(eventID, status, func(ctx context.Context) error {
			_, err := client.UpdateChecklistItem(ctx, item.ID, checked)
			return err
		}))

	case key.Matches(msg, m.keys.Add):
		return m, m.beginInput(inputChecklistItem, "New checklist item", "", ItemNameCharLimit)

	case key.Matches(msg, m.keys.Remove):
		item, ok := m.selectedChecklistItem()
		if !ok {
			return m, nil
		}
		m.confirmItem = item
		m.askConfirm(confirmDeleteItem, fmt.Sprintf("Delete checklist item %q?", item.Name))

	case key.Matches(msg, m.keys.DeleteAll):
		m.askConfirm(confirmDeleteEvent, fmt.Sprintf("Delete event %q?", m.detail.event.Name))

	case key.Matches(msg, m.keys.EditMemo):
		return m, m.beginInput(inputMemo, "Memo", m.detail.event.Memo, MemoCharLimit)

	case key.Matches(msg, m.keys.EditName):
		return m, m.beginInput(inputName, "Event name", m.detail.event.Name, EventNameCharLimit)
	case key.Matches(msg, m.keys.EditDate):
		return m, m.beginInput(inputDate, "YYYY-MM-DD", m.detail.event.Date, len(sensecoach.DateLayout))
	case key.Matches(msg, m.keys.EditTime):
		return m, m.beginInput(inputTime, "HH:MM, empty clears", m.detail.event.Time, len(sensecoach.TimeLayout))

	case key.Matches(msg, m.keys.EditTags):
		current := strings.Join(m.detail.event.ChildTags(), ", ")
		placeholder := "Comma-separated child names"
		if len(m.snapshot.Children) > 0 {
			placeholder = "e.g. " + strings.Join(m.snapshot.Children, ", ")
		}
		return m, m.beginInput(inputTags, placeholder, current, ChildNameCharLimit*4)
	}

	return m, nil
}

// handleEventMsg applies a fetched event to the detail screen and cache.
func (m Model) handleEventMsg(msg eventMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setError("Event update failed", msg.err)
		if m.screen == ScreenDetail && errorIsNotFound(msg.err) {
			m.screen = ScreenDashboard
			return m, m.startBusy(m.refreshCmd(""))
		}
		return m, nil
	}
	if msg.event == nil {
		return m, nil
	}

	ev := *msg.event
	if m.store != nil {
		m.store.PutEvent(ev)
		m.syncSnapshot()
	}
	if ev.ID == m.detail.eventID {
		m.detail.event = ev
		m.detail.loaded = true
		m.detail.cursor = clampIndex(m.detail.cursor, len(ev.Checklist))
		m.updateDetailViewport()
	}
	if msg.status != "" {
		m.setStatus(msg.status)
	}
	return m, nil
}

// selectedChecklistItem returns the checklist item under the cursor.
func (m Model) selectedChecklistItem() (sensecoach.ChecklistItem, bool) {
	items := m.detail.event.Checklist
	if m.detail.cursor < 0 || m.detail.cursor >= len(items) {
		return sensecoach.ChecklistItem{}, false
	}
	return items[m.detail.cursor], true
}

// updateDetailViewport re-renders the detail body and keeps the cursor in view.
func (m *Model) updateDetailViewport() {
	if m.screen != ScreenDetail || m.detail.viewport.Width <= 0 {
		return
	}
	body, cursorLine := m.renderDetailBody(m.detail.viewport.Width)
	m.detail.viewport.SetContent(body)

	if cursorLine < 0 {
		return
	}
	vp := &m.detail.viewport
	if cursorLine < vp.YOffset {
		vp.SetYOffset(cursorLine)
	} else if cursorLine >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorLine - vp.Height + 1)
	}
}

// renderDetailBody builds the scrollable detail text. It returns the line
// index of the checklist cursor, or -1 when the checklist is empty.
func (m Model) renderDetailBody(width int) (string, int) {
	bgColor := m.theme.FocusBg
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)
	ev := m.detail.event
	today := m.now()

	var lines []string
	add := func(s string) { lines = append(lines, s) }

	add(bg.Render(truncate(ev.Name, width), styles.Text.Bold(true)))
	when := strings.TrimSpace(ev.Date + " " + ev.Time)
	if rel := relativeDay(ev, today); rel != "" {
		when += " (" + rel + ")"
	}
	add(bg.Render(when, styles.WarningText))

	meta := []string{}
	if ev.Country != "" {
		meta = append(meta, ev.Country)
	}
	if tags := ev.ChildTags(); len(tags) > 0 {
		meta = append(meta, "children: "+strings.Join(tags, ", "))
	} else {
		meta = append(meta, "no child tagged")
	}
	if created := ev.ParsedCreatedAt(); !created.IsZero() {
		meta = append(meta, "saved "+created.Local().Format("2006-01-02 15:04"))
	}
	add(bg.Render(strings.Join(meta, "  ·  "), styles.MutedText))
	if !m.detail.loaded {
		add(bg.Render("refreshing...", styles.FaintText))
	}
	add("")

	for _, section := range []struct{ title, body string }{
		{"Translation", ev.Translation},
		{"Cultural context", ev.CulturalContext},
		{"Tips", ev.Tips},
		{"Memo", ev.Memo},
	} {
		if strings.TrimSpace(section.body) == "" {
			continue
		}
		add(bg.Render(section.title, styles.AccentText.Bold(true)))
		for _, line := range wrapText(section.body, width) {
			add(bg.Render(line, styles.Text))
		}
		add("")
	}

	checked, total := ev.Progress()
	add(bg.Render(fmt.Sprintf("Checklist %d/%d", checked, total), styles.AccentText.Bold(true)))
	if total == 0 {
		add(bg.Render("No items. Press n to add one.", styles.MutedText))
		return strings.Join(lines, "\n"), -1
	}

	selBg := NewBgStyle(m.theme.SelectionBg)
	cursorLine := -1
	for i, item := range ev.Checklist {
		mark, style := "[ ]", styles.Text
		if item.Checked {
			mark, style = "[x]", styles.SuccessText
		}
		if i == m.detail.cursor {
			cursorLine = len(lines)
			add(selBg.Render(truncate("› "+mark+" "+item.Name, width), styles.Selected))
			continue
		}
		add(bg.Render(truncate("  "+mark+" "+item.Name, width), style))
	}
	return strings.Join(lines, "\n"), cursorLine
}

// renderDetail renders the detail screen with an optional input row.
func (m Model) renderDetail() string {
	height := m.contentHeight()
	content := m.detail.viewport.View()
	if m.inputMode != inputNone {
		content = m.renderInputRow() + "\n" + content
	}
	title := fmt.Sprintf("Event #%d", m.detail.eventID)
	return m.renderTitledBox(title, content, m.width, height, true)
}

// renderInputRow renders the single-line input with a label.
func (m Model) renderInputRow() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	labels := map[inputMode]string{
		inputChecklistItem: "Add item",
		inputMemo:          "Memo",
		inputTags:          "Children",
		inputChildName:     "New child",
		inputChildRename:   "Rename to",
		inputName:          "Name",
		inputDate:          "Date",
		inputTime:          "Time",
	}
	return styles.AccentText.Bold(true).Render(padRight(labels[m.inputMode]+":", 12)) + m.input.View()
}

func errorIsNotFound(err error) bool {
	return errors.Is(err, sensecoach.ErrNotFound)
}

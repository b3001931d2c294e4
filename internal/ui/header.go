package ui

import (
	"fmt"
	"strings"
	"time"
)

// renderHeader renders the status bar with service, filter and plan information.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	var parts []string
	parts = append(parts, bg.Render("coach", styles.Logo))

	switch {
	case m.health == nil && m.healthErr == nil:
		parts = append(parts, bg.Render("● ...", styles.MutedText))
	case m.healthErr == nil && m.health.Healthy():
		parts = append(parts, bg.Render("● ON", styles.SuccessText))
	default:
		parts = append(parts, bg.Render("● OFF", styles.DangerText))
	}

	if m.snapshot.Loaded {
		label := "Events:"
		if m.prefs.FutureOnly {
			label = "Upcoming:"
		}
		parts = append(parts,
			bg.Render(label, styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", len(m.snapshot.Events)), styles.Text))
		if !compact {
			parts = append(parts,
				bg.Render("Children:", styles.MutedText)+bg.Space()+
					bg.Render(fmt.Sprintf("%d", len(m.snapshot.Children)), styles.Text))
		}
	} else {
		parts = append(parts, bg.Render("Loading...", styles.WarningText.Bold(true)))
	}

	if plan := m.formatMembership(compact); plan != "" {
		parts = append(parts, bg.Render(plan, styles.InfoText))
	}

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if m.snapshot.IsOffline() {
		parts = append(parts, bg.Render("OFFLINE", styles.DangerText.Bold(true)))
	} else if m.snapshot.LastError != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		errText := truncate(firstLine(m.snapshot.LastError.Error()), maxErr)
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(errText, styles.DangerText))
	}

	if m.busy > 0 {
		parts = append(parts, bg.Render(m.spinner.View(), styles.AccentText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// formatMembership renders "FREE 3/5" style plan usage.
func (m Model) formatMembership(compact bool) string {
	if !m.snapshot.HasMembership {
		return ""
	}
	ms := m.snapshot.Membership
	tier := strings.ToUpper(strings.TrimSpace(ms.Tier))
	if tier == "" {
		tier = "PLAN"
	}
	if ms.Remaining() < 0 {
		if compact {
			return tier + " ∞"
		}
		return fmt.Sprintf("%s %d used (unlimited)", tier, ms.Usage)
	}
	return fmt.Sprintf("%s %d/%d", tier, ms.Usage, ms.Limit)
}

// formatTimestamp formats the last update time with relative indicator.
func (m Model) formatTimestamp() string {
	if m.lastUpdated.IsZero() {
		return ""
	}

	since := m.now().Sub(m.lastUpdated)
	ts := m.lastUpdated.Format("15:04:05")

	switch {
	case since < time.Minute:
		ts += " (now)"
	case since < time.Hour:
		ts += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		ts += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return ts
}

type command struct{ key, desc string }

// screenCommands returns the key hints for the active screen.
func (m Model) screenCommands() []command {
	switch m.screen {
	case ScreenDetail:
		return []command{
			{"space", "Check"},
			{"n", "Add item"},
			{"x", "Remove item"},
			{"m", "Memo"},
			{"t", "Children"},
			{"N/d/w", "Name/date/time"},
			{"D", "Delete event"},
			{"esc", "Back"},
		}
	case ScreenChildren:
		return []command{
			{"n", "Add"},
			{"R", "Rename"},
			{"x", "Remove"},
			{"esc", "Back"},
		}
	case ScreenCompose:
		return []command{
			{"ctrl+s", "Analyze"},
			{"tab", "Field"},
			{"ctrl+o", m.country},
			{"esc", "Back"},
		}
	case ScreenLog:
		return []command{
			{"j/k", "Scroll"},
			{"g/G", "Top/Bottom"},
			{"r", "Reload"},
			{"esc", "Back"},
		}
	case ScreenResults:
		return []command{
			{"j/k", "Navigate"},
			{"space/t", "Children"},
			{"N/d/w", "Name/date/time"},
			{"s", "Save"},
			{"a", "New notice"},
			{"esc", "Dashboard"},
		}
	default:
		return []command{
			{"enter", "Open"},
			{"f", ternary(m.prefs.FutureOnly, "Upcoming", "All")},
			{"a", "Analyze"},
			{"c", "Children"},
			{"r", "Refresh"},
			{"L", "Log"},
			{"?", "More"},
		}
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	colon := bg.Sep(":")
	commands := m.screenCommands()
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.screen != ScreenCompose {
		segments = append(segments,
			bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderStatusLine renders the transient status or error message.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if m.status == "" {
		return styles.Footer.Width(m.width).Render("")
	}

	style := styles.SuccessText
	switch {
	case m.statusIsError:
		style = styles.DangerText
	case m.confirm != confirmNone:
		style = styles.WarningText.Bold(true)
	}
	text := truncate(firstLine(m.status), max(m.width-2, 1))
	return styles.Footer.Width(m.width).Render(bg.Render(text, style))
}

package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sensecoach/coach/internal/sensecoach"
)

// Messages

type clockMsg time.Time

type healthMsg struct {
	health *sensecoach.Health
	err    error
}

type refreshedMsg struct {
	status string
	err    error
}

type eventMsg struct {
	event  *sensecoach.Event
	status string
	err    error
}

type eventDeletedMsg struct {
	id  int64
	err error
}

type childrenChangedMsg struct {
	action string
	status string
	err    error
}

type analyzedMsg struct {
	result *sensecoach.AnalysisResult
	err    error
}

type savedMsg struct {
	index int
	event *sensecoach.Event
	err   error
}

type resetMsg struct {
	err error
}

// Commands

func clockCmd() tea.Cmd {
	return tea.Tick(ClockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

func (m Model) healthCmd() tea.Cmd {
	client, ctx := m.client, m.ctx
	if client == nil {
		return nil
	}
	return func() tea.Msg {
		health, err := client.CheckHealth(ctx)
		return healthMsg{health: health, err: err}
	}
}

// refreshCmd reloads events, children and membership through the refresher.
// Callers account for it with startBusy.
func (m Model) refreshCmd(status string) tea.Cmd {
	refresher, ctx, futureOnly := m.refresher, m.ctx, m.prefs.FutureOnly
	return func() tea.Msg {
		if refresher == nil {
			return refreshedMsg{status: status}
		}
		return refreshedMsg{status: status, err: refresher.Refresh(ctx, futureOnly)}
	}
}

func (m Model) loadEventCmd(id int64) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		ev, err := client.GetEventByID(ctx, id)
		return eventMsg{event: ev, err: err}
	}
}

// mutateEventCmd applies mutate and then refetches the event so the detail
// screen always shows server state.
func (m Model) mutateEventCmd(id int64, status string, mutate func(ctx context.Context) error) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		if err := mutate(ctx); err != nil {
			return eventMsg{err: err}
		}
		ev, err := client.GetEventByID(ctx, id)
		return eventMsg{event: ev, status: status, err: err}
	}
}

func (m Model) deleteEventCmd(id int64) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		_, err := client.DeleteEvent(ctx, id)
		return eventDeletedMsg{id: id, err: err}
	}
}

func (m Model) addChildCmd(name string) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		_, err := client.AddChild(ctx, name)
		return childrenChangedMsg{action: "Add child", status: fmt.Sprintf("Added %s", name), err: err}
	}
}

func (m Model) deleteChildCmd(name string) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		_, err := client.DeleteChild(ctx, name)
		return childrenChangedMsg{action: "Delete child", status: fmt.Sprintf("Removed %s", name), err: err}
	}
}

func (m Model) renameChildCmd(oldName, newName string) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		_, err := client.RenameChild(ctx, oldName, newName)
		return childrenChangedMsg{action: "Rename child", status: fmt.Sprintf("Renamed %s to %s", oldName, newName), err: err}
	}
}

func (m Model) analyzeTextCmd(text string) tea.Cmd {
	client, ctx, country, userID := m.client, m.ctx, m.country, m.userID
	return func() tea.Msg {
		result, err := client.AnalyzeNotice(ctx, text, country, userID)
		return analyzedMsg{result: result, err: err}
	}
}

func (m Model) analyzeImageCmd(path, text string) tea.Cmd {
	client, ctx, country, userID := m.client, m.ctx, m.country, m.userID
	return func() tea.Msg {
		file, err := os.Open(path)
		if err != nil {
			return analyzedMsg{err: fmt.Errorf("open image: %w", err)}
		}
		defer file.Close()
		result, err := client.AnalyzeImage(ctx, file, filepath.Base(path), country, userID, text)
		return analyzedMsg{result: result, err: err}
	}
}

func (m Model) saveEventCmd(index int, ev sensecoach.NewEvent) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		saved, err := client.SaveEvent(ctx, ev)
		return savedMsg{index: index, event: saved, err: err}
	}
}

func (m Model) resetCmd() tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		_, err := client.ResetData(ctx)
		return resetMsg{err: err}
	}
}

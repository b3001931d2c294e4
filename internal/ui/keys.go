package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Back       key.Binding
	Refresh    key.Binding
	Logs       key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Open     key.Binding

	// Dashboard
	ToggleFuture key.Binding
	Compose      key.Binding
	Children     key.Binding
	ResetData    key.Binding

	// Event detail and children
	Toggle     key.Binding
	Add        key.Binding
	Remove     key.Binding
	DeleteAll  key.Binding
	EditMemo   key.Binding
	EditTags   key.Binding
	EditName   key.Binding
	EditDate   key.Binding
	EditTime   key.Binding
	Rename     key.Binding
	Confirm    key.Binding
	Submit     key.Binding
	SwitchPane key.Binding
	Country    key.Binding

	// Results
	CycleTags key.Binding
	Save      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		Logs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Client log"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Scroll down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open event"),
		),

		// Dashboard
		ToggleFuture: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Upcoming/all events"),
		),
		Compose: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Analyze a notice"),
		),
		Children: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Children"),
		),
		ResetData: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Delete all data"),
		),

		// Event detail and children
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Check/uncheck item"),
		),
		Add: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Add"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Delete selected"),
		),
		DeleteAll: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Delete event"),
		),
		EditMemo: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Edit memo"),
		),
		EditTags: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Edit child tags"),
		),
		EditName: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "Edit name"),
		),
		EditDate: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Edit date"),
		),
		EditTime: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "Edit time"),
		),
		Rename: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Rename child"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Confirm"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Analyze"),
		),
		SwitchPane: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "Text/image field"),
		),
		Country: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "Next country"),
		),

		// Results
		CycleTags: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Cycle child tags"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Save event"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		{k.Open, k.ToggleFuture, k.Refresh, k.Compose, k.Children, k.ResetData},
		{k.Toggle, k.Add, k.Remove, k.DeleteAll, k.EditMemo, k.EditTags},
		{k.EditName, k.EditDate, k.EditTime, k.Rename},
		{k.Submit, k.SwitchPane, k.Country, k.CycleTags, k.Save},
		{k.Logs, k.CycleTheme, k.Help, k.Back, k.Quit},
	}
}

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sensecoach/coach/internal/prefs"
	"github.com/sensecoach/coach/internal/sensecoach"
	"github.com/sensecoach/coach/internal/state"
)

// Screen is the active top-level screen.
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenDetail
	ScreenChildren
	ScreenCompose
	ScreenResults
	ScreenLog
)

// inputMode names what the single-line input is currently editing.
type inputMode int

const (
	inputNone inputMode = iota
	inputChecklistItem
	inputMemo
	inputTags
	inputChildName
	inputChildRename
	inputName // event name, on the detail or results screen
	inputDate
	inputTime
)

// confirmAction is a destructive action waiting for "y".
type confirmAction int

const (
	confirmNone confirmAction = iota
	confirmDeleteEvent
	confirmDeleteItem
	confirmDeleteChild
	confirmReset
)

// Refresher reloads dashboard data into the store.
type Refresher interface {
	Refresh(ctx context.Context, futureOnly bool) error
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Client    sensecoach.DataClient
	Store     *state.Store
	Refresher Refresher
	Prefs     prefs.Prefs
	PrefsPath string
	Country   string
	UserID    string
	Logger    *slog.Logger
	LogPath   string           // shown on the log screen
	Now       func() time.Time // nil uses time.Now
}

// detailState holds the event detail screen.
type detailState struct {
	eventID  int64
	event    sensecoach.Event
	loaded   bool
	cursor   int // checklist index
	viewport viewport.Model
}

// resultsState holds the analysis results screen.
type resultsState struct {
	result sensecoach.AnalysisResult
	cursor int
	tags   map[int][]string // parsed event index -> chosen child names
	saved  map[int]int64    // parsed event index -> saved event id
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	client    sensecoach.DataClient
	store     *state.Store
	refresher Refresher
	logger    *slog.Logger
	prefsPath string
	prefs     prefs.Prefs
	country   string
	countries []string
	userID    string
	now       func() time.Time
	keys      keyMap

	// UI state
	theme    Theme
	screen   Screen
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time
	health      *sensecoach.Health
	healthErr   error

	// Activity and status line
	busy          int
	spinner       spinner.Model
	status        string
	statusIsError bool
	statusAt      time.Time

	// Pending confirmation and single-line input. The confirm targets are
	// captured when the prompt is shown so a refetch in between cannot move
	// the action to another row.
	confirm      confirmAction
	confirmItem  sensecoach.ChecklistItem
	confirmChild string
	renameFrom   string
	input        textinput.Model
	inputMode    inputMode

	// Dashboard
	selectedRow int

	// Event detail
	detail detailState

	// Children
	childRow int

	// Compose
	notice       textarea.Model
	imagePath    textinput.Model
	composeFocus int // composeNotice or composeImage
	analyzing    bool

	// Results
	results resultsState

	// Log
	logPath string
	logView viewport.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	userPrefs := opts.Prefs
	if strings.TrimSpace(userPrefs.Theme) == "" {
		userPrefs.Theme = prefs.Default().Theme
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	input := textinput.New()
	input.Width = 40

	notice := textarea.New()
	notice.Placeholder = "Paste the school notice here"
	notice.CharLimit = NoticeCharLimit
	notice.ShowLineNumbers = false

	imagePath := textinput.New()
	imagePath.Placeholder = "optional: path to a photo of the notice (.jpg)"
	imagePath.Width = 50

	country := strings.TrimSpace(opts.Country)

	m := Model{
		ctx:       ctx,
		client:    opts.Client,
		store:     opts.Store,
		refresher: opts.Refresher,
		logger:    logger,
		prefsPath: prefsPath,
		prefs:     userPrefs,
		country:   country,
		countries: countryChoices(country),
		userID:    strings.TrimSpace(opts.UserID),
		now:       now,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(userPrefs.Theme),
		screen:    ScreenDashboard,
		spinner:   sp,
		input:     input,
		notice:    notice,
		imagePath: imagePath,
		detail:    detailState{viewport: viewport.New(0, 0)},
		logPath:   opts.LogPath,
		logView:   viewport.New(0, 0),
	}
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.spinner.Tick,
		m.healthCmd(),
		m.refreshCmd(""),
		clockCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clockMsg:
		if !m.statusIsError && m.status != "" && m.now().Sub(m.statusAt) > StatusTTL {
			m.status = ""
		}
		return m, clockCmd()

	case healthMsg:
		m.health, m.healthErr = msg.health, msg.err
		if msg.err != nil {
			m.logger.Warn("health check failed", "error", msg.err)
		}
		return m, nil

	case refreshedMsg:
		m.busy--
		m.syncSnapshot()
		if msg.err != nil {
			m.setError("Refresh failed", msg.err)
		} else if msg.status != "" {
			m.setStatus(msg.status)
		}
		return m, nil

	case eventMsg:
		m.busy--
		return m.handleEventMsg(msg)

	case eventDeletedMsg:
		m.busy--
		if msg.err != nil {
			m.setError("Delete failed", msg.err)
			return m, nil
		}
		if m.store != nil {
			m.store.RemoveEvent(msg.id)
		}
		m.syncSnapshot()
		if m.screen == ScreenDetail && m.detail.eventID == msg.id {
			m.screen = ScreenDashboard
		}
		m.setStatus("Event deleted")
		return m, m.startBusy(m.refreshCmd(""))

	case childrenChangedMsg:
		m.busy--
		if msg.err != nil {
			m.setError(msg.action+" failed", msg.err)
			return m, nil
		}
		return m, m.startBusy(m.refreshCmd(msg.status))

	case analyzedMsg:
		m.busy--
		return m.handleAnalyzed(msg)

	case savedMsg:
		m.busy--
		if msg.err != nil {
			m.setError("Save failed", msg.err)
			return m, nil
		}
		m.results.saved[msg.index] = msg.event.ID
		return m, m.startBusy(m.refreshCmd("Saved \"" + msg.event.Name + "\""))

	case logMsg:
		m.applyLog(msg)
		return m, nil

	case resetMsg:
		m.busy--
		if msg.err != nil {
			m.setError("Reset failed", msg.err)
			return m, nil
		}
		m.screen = ScreenDashboard
		return m, m.startBusy(m.refreshCmd("All data deleted"))
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	return b.String()
}

// renderContent renders the main content area based on the current screen.
func (m Model) renderContent() string {
	switch m.screen {
	case ScreenDetail:
		return m.renderDetail()
	case ScreenChildren:
		return m.renderChildren()
	case ScreenCompose:
		return m.renderCompose()
	case ScreenResults:
		return m.renderResults()
	case ScreenLog:
		return m.renderLog()
	default:
		return m.renderDashboard()
	}
}

// contentHeight is the rows left after header, command bar and status line.
func (m Model) contentHeight() int {
	return max(m.height-3, 3)
}

// resize propagates the window size to sized components.
func (m *Model) resize() {
	inner := max(m.width-4, 10)
	m.detail.viewport.Width = inner
	m.detail.viewport.Height = max(m.contentHeight()-2, 1)
	m.notice.SetWidth(inner)
	m.notice.SetHeight(max(m.contentHeight()-8, 3))
	m.logView.Width = inner
	m.logView.Height = max(m.contentHeight()-2, 1)
	m.imagePath.Width = max(inner-14, 10)
	m.input.Width = max(inner-20, 10)
	m.updateDetailViewport()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.confirm != confirmNone {
		return m.handleConfirmKey(msg)
	}

	if m.inputMode != inputNone {
		return m.handleInputKey(msg)
	}

	// The compose screen owns every key so notices can contain any letter.
	if m.screen == ScreenCompose {
		return m.handleComposeKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.updateDetailViewport()
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		m.screen = ScreenLog
		return m, m.loadLogCmd()

	case key.Matches(msg, m.keys.Back):
		if m.screen != ScreenDashboard {
			m.screen = ScreenDashboard
			m.syncSnapshot()
		}
		return m, nil
	}

	switch m.screen {
	case ScreenDetail:
		return m.handleDetailKey(msg)
	case ScreenChildren:
		return m.handleChildrenKey(msg)
	case ScreenResults:
		return m.handleResultsKey(msg)
	case ScreenLog:
		return m.handleLogKey(msg)
	default:
		return m.handleDashboardKey(msg)
	}
}

// handleConfirmKey resolves a pending destructive action.
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.confirm
	m.confirm = confirmNone
	if !key.Matches(msg, m.keys.Confirm) {
		m.setStatus("Cancelled")
		return m, nil
	}

	switch action {
	case confirmDeleteEvent:
		return m, m.startBusy(m.deleteEventCmd(m.detail.eventID))
	case confirmDeleteItem:
		item := m.confirmItem
		if item.ID == 0 {
			return m, nil
		}
		eventID := m.detail.eventID
		client := m.client
		return m, m.startBusy(m.mutateEventCmd(eventID, "Item deleted", func(ctx context.Context) error {
			_, err := client.DeleteChecklistItem(ctx, item.ID)
			return err
		}))
	case confirmDeleteChild:
		if m.confirmChild == "" {
			return m, nil
		}
		return m, m.startBusy(m.deleteChildCmd(m.confirmChild))
	case confirmReset:
		return m, m.startBusy(m.resetCmd())
	}
	return m, nil
}

// askConfirm arms a destructive action and prompts for "y".
func (m *Model) askConfirm(action confirmAction, prompt string) {
	m.confirm = action
	m.status = prompt + " (y to confirm)"
	m.statusIsError = false
	m.statusAt = m.now()
}

// beginInput focuses the single-line input for mode.
func (m *Model) beginInput(mode inputMode, placeholder, value string, limit int) tea.Cmd {
	m.inputMode = mode
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.CharLimit = limit
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

// handleInputKey edits or submits the single-line input.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inputMode = inputNone
		m.input.Blur()
		return m, nil
	case "enter":
		mode := m.inputMode
		value := strings.TrimSpace(m.input.Value())
		m.inputMode = inputNone
		m.input.Blur()
		return m.submitInput(mode, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInput dispatches a completed input to the service.
func (m Model) submitInput(mode inputMode, value string) (tea.Model, tea.Cmd) {
	client := m.client
	eventID := m.detail.eventID

	if m.screen == ScreenResults {
		return m.editResult(mode, value)
	}

	switch mode {
	case inputChecklistItem:
		if value == "" {
			return m, nil
		}
		return m, m.startBusy(m.mutateEventCmd(eventID, "Item added", func(ctx context.Context) error {
			_, err := client.AddChecklistItem(ctx, eventID, value)
			return err
		}))

	case inputMemo:
		return m, m.startBusy(m.mutateEventCmd(eventID, "Memo saved", func(ctx context.Context) error {
			_, err := client.UpdateEvent(ctx, eventID, sensecoach.EventUpdate{Memo: sensecoach.String(value)})
			return err
		}))

	case inputTags:
		tag := sensecoach.JoinChildTags(strings.Split(value, ","))
		return m, m.startBusy(m.mutateEventCmd(eventID, "Child tags saved", func(ctx context.Context) error {
			_, err := client.UpdateEvent(ctx, eventID, sensecoach.EventUpdate{ChildTag: sensecoach.String(tag)})
			return err
		}))

	case inputChildName:
		if value == "" {
			return m, nil
		}
		return m, m.startBusy(m.addChildCmd(value))

	case inputChildRename:
		oldName := m.renameFrom
		if oldName == "" || value == "" || value == oldName {
			return m, nil
		}
		return m, m.startBusy(m.renameChildCmd(oldName, value))

	case inputName, inputDate, inputTime:
		value, err := checkEventField(mode, value)
		if err != nil {
			m.setError("Edit event", err)
			return m, nil
		}
		update, status := sensecoach.EventUpdate{}, ""
		switch mode {
		case inputName:
			update.Name, status = sensecoach.String(value), "Name saved"
		case inputDate:
			update.Date, status = sensecoach.String(value), "Date saved"
		default:
			update.Time, status = sensecoach.String(value), "Time saved"
		}
		return m, m.startBusy(m.mutateEventCmd(eventID, status, func(ctx context.Context) error {
			_, err := client.UpdateEvent(ctx, eventID, update)
			return err
		}))
	}
	return m, nil
}

// checkEventField validates an edited event name, date or time. An empty
// time clears it.
func checkEventField(mode inputMode, value string) (string, error) {
	switch mode {
	case inputName:
		if value == "" {
			return "", errors.New("event name cannot be empty")
		}
	case inputDate:
		if _, err := time.Parse(sensecoach.DateLayout, value); err != nil {
			return "", fmt.Errorf("date %q must be YYYY-MM-DD", value)
		}
	case inputTime:
		if value == "" {
			return "", nil
		}
		if _, err := time.Parse(sensecoach.TimeLayout, value); err != nil {
			return "", fmt.Errorf("time %q must be HH:MM", value)
		}
	}
	return value, nil
}

// syncSnapshot pulls the latest store snapshot and clamps selections.
func (m *Model) syncSnapshot() {
	if m.store == nil {
		return
	}
	m.snapshot = m.store.Snapshot()
	m.lastUpdated = m.snapshot.LastUpdated
	m.updateDashboardSelection()
	m.childRow = clampIndex(m.childRow, len(m.snapshot.Children))
}

// startBusy marks an operation in flight and runs cmd.
func (m *Model) startBusy(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	m.busy++
	return cmd
}

// setStatus shows a transient success message.
func (m *Model) setStatus(text string) {
	m.status = text
	m.statusIsError = false
	m.statusAt = m.now()
}

// setError shows err's user-facing message until the next action.
func (m *Model) setError(prefix string, err error) {
	m.logger.Warn(prefix, "error", err)
	m.status = prefix + ": " + sensecoach.Message(err)
	m.statusIsError = true
	m.statusAt = m.now()
}

// savePrefs persists preferences, reporting failures in the status line.
func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.setError("Saving preferences failed", err)
	}
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, programOpts...)
	_, err := p.Run()
	if err != nil && opts.Context != nil && opts.Context.Err() != nil {
		// Interrupted by a signal; not a UI failure.
		return nil
	}
	return err
}

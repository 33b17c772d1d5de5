package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InboxView ViewState = iota
	ExportView
	ResultView
)

// Inbox is the notification store the inbox view renders.
type Inbox interface {
	Refresh(ctx context.Context) error
	MarkAsRead(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Notifications() []models.Notification
	UnreadCount() int
}

// Exporter runs a library export with progress reporting.
type Exporter interface {
	Export(ctx context.Context, prog chan<- tasks.ProgressUpdate, opts tasks.ExportOpts) (*tasks.ExportResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	inbox      Inbox
	exporter   Exporter
	exportOpts tasks.ExportOpts

	width, height int
	list          list.Model
	unread        int
	loading       bool
	spinner       spinner.Model
	status        string
	statusErr     bool

	progressChan <-chan tasks.ProgressUpdate
	exportDone   <-chan exportOutcome
	progress     tasks.ProgressUpdate
	result       *tasks.ExportResult
	err          error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model. exporter may be nil, which disables the export view.
func NewModel(ctx context.Context, inbox Inbox, exporter Exporter, opts tasks.ExportOpts) *Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	m := &Model{
		ctx:        ctx,
		view:       InboxView,
		inbox:      inbox,
		exporter:   exporter,
		exportOpts: opts,
		list:       l,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:       help.New(),
		keys:       newKeyMap(),
	}
	m.sync()
	return m
}

// Init renders what the store already holds and refreshes it in the background.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.refresh())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case InboxView:
			return m.handleInboxKeys(msg)
		case ExportView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgInboxSynced:
		m.loading = false
		m.sync()
		if err, _ := msg.data.(error); err != nil {
			m.setStatus("Could not load notifications", true)
		} else {
			m.setStatus("", false)
		}
		return m, nil

	case MsgMutationDone:
		mu := msg.data.(mutation)
		m.sync()
		switch {
		case mu.err != nil && mu.op == "read":
			m.setStatus("Could not mark notification as read", true)
		case mu.err != nil:
			m.setStatus("Could not delete notification", true)
		case mu.op == "delete":
			m.setStatus("Notification deleted", false)
		}
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgExportComplete:
		out := msg.data.(exportOutcome)
		m.result = out.result
		m.err = out.err
		m.progressChan = nil
		m.exportDone = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case InboxView:
		return m.renderInbox()
	case ExportView:
		return m.renderExport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleInboxKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.read):
		if n, ok := m.selected(); ok && n.IsUnread() {
			m.markLocallyRead(n.UserNotificationID)
			return m, m.markRead(n.UserNotificationID)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if n, ok := m.selected(); ok {
			return m, m.remove(n.UserNotificationID)
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.loading = true
		m.setStatus("Refreshing…", false)
		return m, tea.Batch(m.spinner.Tick, m.refresh())
	case key.Matches(msg, m.keys.export):
		if m.exporter == nil {
			m.setStatus("Export is not available", true)
			return m, nil
		}
		m.view = ExportView
		m.progress = tasks.ProgressUpdate{}
		return m, m.startExport()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = InboxView
		m.result = nil
		m.err = nil
	}
	return m, nil
}

func (m *Model) selected() (models.Notification, bool) {
	item, ok := m.list.SelectedItem().(notificationItem)
	if !ok {
		return models.Notification{}, false
	}
	return item.n, true
}

// sync rebuilds the list and counter from the store.
func (m *Model) sync() {
	m.list.SetItems(toItems(m.inbox.Notifications()))
	m.unread = m.inbox.UnreadCount()
	m.list.Title = m.title()
}

// markLocallyRead flips the item before the store call returns so the change renders immediately.
func (m *Model) markLocallyRead(id int64) {
	for i, item := range m.list.Items() {
		ni, ok := item.(notificationItem)
		if !ok || ni.n.UserNotificationID != id || !ni.n.IsUnread() {
			continue
		}
		ni.n.Status = models.StatusRead
		m.list.SetItem(i, ni)
		if m.unread > 0 {
			m.unread--
		}
		m.list.Title = m.title()
		return
	}
}

func (m *Model) title() string {
	if m.unread == 0 {
		return "Notifications"
	}
	return fmt.Sprintf("Notifications (%d unread)", m.unread)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return inboxSyncedMsg(m.inbox.Refresh(m.ctx))
	}
}

func (m *Model) markRead(id int64) tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg("read", id, m.inbox.MarkAsRead(m.ctx, id))
	}
}

func (m *Model) remove(id int64) tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg("delete", id, m.inbox.Delete(m.ctx, id))
	}
}

func (m *Model) startExport() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan exportOutcome, 1)
	m.progressChan = progress
	m.exportDone = done

	go func() {
		result, err := m.exporter.Export(m.ctx, progress, m.exportOpts)
		done <- exportOutcome{result: result, err: err}
		close(progress)
	}()

	return m.waitForProgress()
}

// waitForProgress relays one progress update, or the final outcome once the channel closes.
func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.exportDone
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			out := <-done
			return exportCompleteMsg(out.result, out.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderInbox() string {
	var b strings.Builder
	if len(m.list.Items()) == 0 && !m.loading {
		b.WriteString(styles.title.Render(m.title()))
		b.WriteString("\nNo notifications.\n")
	} else {
		b.WriteString(m.list.View())
	}

	b.WriteString("\n")
	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " " + m.status)
	case m.statusErr:
		b.WriteString(styles.err.Render(m.status))
	case m.status != "":
		b.WriteString(styles.ok.Render(m.status))
	}

	helpKeys := []key.Binding{m.keys.read, m.keys.remove, m.keys.refresh}
	if m.exporter != nil {
		helpKeys = append(helpKeys, m.keys.export)
	}
	helpKeys = append(helpKeys, m.keys.quit)
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderExport() string {
	title := styles.title.Render("Exporting Library")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchLibrary:
		phase = "Fetching followed series..."
	case tasks.ExportSeries:
		phase = fmt.Sprintf("Exporting series (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.WriteManifest:
		phase = "Writing manifest..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Export failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Export Complete!")
	info := fmt.Sprintf(
		"\nSeries: %d exported, %d failed (of %d)\nOutput: %s\nManifest: %s",
		m.result.SuccessfulExports,
		m.result.FailedExports,
		m.result.TotalSeries,
		m.result.OutputDirectory,
		m.result.ManifestPath,
	)

	var failed []string
	for _, r := range m.result.Results {
		if !r.Success {
			failed = append(failed, fmt.Sprintf("  ✗ %s: %v", r.SeriesName, r.Error))
		}
	}
	if len(failed) > 0 {
		info += "\n\n" + styles.warn.Render("Failed:\n"+strings.Join(failed, "\n"))
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

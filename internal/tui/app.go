package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/nexus/internal/export"
	"github.com/sadopc/nexus/internal/focus"
	"github.com/sadopc/nexus/internal/store"
	"github.com/sadopc/nexus/internal/tasks"
)

// Deps are the collaborators the App drives. Bridge must be the one whose
// methods were handed to the controllers as notify callbacks.
type Deps struct {
	Ctx    context.Context
	Store  *store.Store
	Tasks  *tasks.Controller
	Timer  *focus.Timer
	Bridge *Bridge
}

type exportFormat int

const (
	exportTasksCSV exportFormat = iota
	exportTasksJSON
	exportSessionsCSV
)

var exportFormats = []string{"Tasks (CSV)", "Tasks (JSON)", "Focus sessions (CSV)"}

// App is the root Bubble Tea model.
type App struct {
	store  *store.Store
	ctl    *tasks.Controller
	bridge *Bridge
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	exportDir     string

	tasks    taskListModel
	focus    focusModel
	stats    statsModel
	settings settingsModel

	help      help.Model
	status    string
	statusErr bool
	signedOut bool
}

func NewApp(d Deps) App {
	ctx := d.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	h := help.New()
	h.ShowAll = false

	home, _ := os.UserHomeDir()

	return App{
		store:      d.Store,
		ctl:        d.Tasks,
		bridge:     d.Bridge,
		activeView: viewTasks,
		exportDir:  home,
		tasks:      newTaskListModel(ctx, d.Tasks),
		focus:      newFocusModel(ctx, d.Timer, d.Store),
		stats:      newStatsModel(d.Store),
		settings:   newSettingsModel(d.Store, d.Timer),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.bridge.waitTasks(),
		a.bridge.waitFocus(),
		a.bridge.waitUnauthorized(),
		a.tasks.load(a.tasks.snap.Filter),
		a.focus.seed(),
		a.focus.refreshToday(),
		a.stats.refresh(),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.tasks.setSize(a.width, contentHeight)
		a.focus.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		a.stats.buildChart()
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewTasks)
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewFocus)
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewStats)
		case key.Matches(msg, keys.Tab4):
			return a.switchView(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
		}

	// Controller notifications go to their views whichever view is active.
	case tasksSnapshotMsg:
		var cmd tea.Cmd
		a.tasks, cmd = a.tasks.update(msg)
		return a, tea.Batch(cmd, a.bridge.waitTasks())

	case focusSnapshotMsg:
		var cmd tea.Cmd
		a.focus, cmd = a.focus.update(msg)
		return a, tea.Batch(cmd, a.bridge.waitFocus())

	case loadDoneMsg, taskAddedMsg:
		var cmd tea.Cmd
		a.tasks, cmd = a.tasks.update(msg)
		return a, cmd

	case focusTodayMsg, focusSeededMsg:
		var cmd tea.Cmd
		a.focus, cmd = a.focus.update(msg)
		if a.activeView == viewStats {
			cmd = tea.Batch(cmd, a.stats.refresh())
		}
		return a, cmd

	case statsDataMsg:
		var cmd tea.Cmd
		a.stats, cmd = a.stats.update(msg)
		return a, cmd

	case settingsSavedMsg:
		a.focus.loadSettings()
		a.focus.refresh()
		return a, nil

	case unauthorizedMsg:
		a.signedOut = true
		a.status = "Session expired: set NEXUS_TOKEN and restart"
		a.statusErr = true
		return a, a.bridge.waitUnauthorized()

	case statusMsg:
		// A signed-out banner outranks later failures, which are all 401s.
		if a.signedOut && msg.isError {
			return a, nil
		}
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewFocus:
		a.focus, cmd = a.focus.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTasks:
		return a.tasks.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewFocus:
		return a.focus.refreshToday()
	case viewStats:
		return a.stats.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTasks:
		content = a.tasks.view()
	case viewFocus:
		content = a.focus.view()
	case viewStats:
		content = a.stats.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("nexus")
	if a.signedOut {
		title += errorStyle.Render("  signed out")
	}
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	var helpView string
	if a.showHelp {
		helpView = a.help.View(keys)
	} else {
		helpView = a.help.View(viewKeys{keyMap: keys, view: a.activeView})
	}

	status := ""
	if a.status != "" {
		if a.statusErr {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	// Focus timer indicator in footer
	timerInfo := ""
	clock := formatClock(a.focus.snap.Remaining)
	switch {
	case a.focus.running():
		timerInfo = successStyle.Render(" ● " + clock)
	case a.focus.paused():
		timerInfo = warningStyle.Render(" ⏸ " + clock)
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(exportFormat(a.exportCursor))
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport writes the confirmed task list (or the session journal) into
// exportDir. Unconfirmed local edits are not exported.
func (a App) doExport(format exportFormat) tea.Cmd {
	ctl, s, dir := a.ctl, a.store, a.exportDir
	return func() tea.Msg {
		dateStr := time.Now().Format("2006-01-02")

		var path string
		switch format {
		case exportTasksCSV:
			path = filepath.Join(dir, fmt.Sprintf("nexus-tasks-%s.csv", dateStr))
			if err := export.TasksToCSV(ctl.Confirmed(), path); err != nil {
				return errorStatus("CSV error", err)
			}
		case exportTasksJSON:
			path = filepath.Join(dir, fmt.Sprintf("nexus-tasks-%s.json", dateStr))
			if err := export.TasksToJSON(ctl.Confirmed(), path); err != nil {
				return errorStatus("JSON error", err)
			}
		case exportSessionsCSV:
			sessions, err := s.ListCompletions(store.CompletionFilter{})
			if err != nil {
				return errorStatus("Export error", err)
			}
			path = filepath.Join(dir, fmt.Sprintf("nexus-sessions-%s.csv", dateStr))
			if err := export.SessionsToCSV(sessions, path); err != nil {
				return errorStatus("CSV error", err)
			}
		}

		return exportDoneMsg{path: path}
	}
}

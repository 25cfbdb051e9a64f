package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/sadopc/nexus/internal/model"
	"github.com/sadopc/nexus/internal/tasks"
)

type taskListModel struct {
	ctl    *tasks.Controller
	ctx    context.Context
	width  int
	height int

	snap    tasks.Snapshot
	cursor  int
	loading bool

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formTitle    *string
	formDesc     *string
	formCategory *string
	formPriority *model.Priority
	formDue      *string
}

func newTaskListModel(ctx context.Context, ctl *tasks.Controller) taskListModel {
	title, desc, cat, due := "", "", model.DefaultCategory, ""
	prio := model.PriorityMedium
	return taskListModel{
		ctl:          ctl,
		ctx:          ctx,
		snap:         ctl.Snapshot(),
		formTitle:    &title,
		formDesc:     &desc,
		formCategory: &cat,
		formPriority: &prio,
		formDue:      &due,
	}
}

func (m *taskListModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

// loadDoneMsg reports the end of a Load or Reconcile.
type loadDoneMsg struct {
	err error
}

type taskAddedMsg struct {
	task model.Task
}

func (m taskListModel) load(filter model.Filter) tea.Cmd {
	ctl, ctx := m.ctl, m.ctx
	return func() tea.Msg {
		return loadDoneMsg{err: ctl.Load(ctx, filter)}
	}
}

func (m taskListModel) reconcile() tea.Cmd {
	ctl, ctx := m.ctl, m.ctx
	return func() tea.Msg {
		return loadDoneMsg{err: ctl.Reconcile(ctx)}
	}
}

func (m taskListModel) add(d model.Draft) tea.Cmd {
	ctl, ctx := m.ctl, m.ctx
	return func() tea.Msg {
		t, err := ctl.Add(ctx, d)
		if err != nil {
			return errorStatus("Add failed", err)
		}
		return taskAddedMsg{task: t}
	}
}

// awaitWrite reports a failed background write on the status line.
func awaitWrite(p *tasks.Pending, what string) tea.Cmd {
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		<-p.Done()
		if err := p.Err(); err != nil && !tasks.IsSuperseded(err) {
			return errorStatus(what+" failed", err)
		}
		return nil
	}
}

func (m taskListModel) update(msg tea.Msg) (taskListModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksSnapshotMsg:
		if msg.snap.Seq > m.snap.Seq {
			m.snap = msg.snap
			m.clampCursor()
		}
		return m, nil

	case loadDoneMsg:
		m.loading = false
		m.refresh()
		if msg.err != nil && !tasks.IsSuperseded(msg.err) {
			return m, statusCmd(errorStatus("Load failed", msg.err))
		}
		return m, nil

	case taskAddedMsg:
		m.refresh()
		if i := m.indexOf(msg.task.ID); i >= 0 {
			m.cursor = i
		}
		return m, statusCmd(statusMsg{text: "Added " + msg.task.Title})

	case tea.KeyMsg:
		if m.formActive && m.form != nil {
			return m.updateForm(msg)
		}
		return m.updateKeys(msg)
	}
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m taskListModel) updateKeys(msg tea.KeyMsg) (taskListModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.snap.Tasks)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.New):
		return m.showForm()
	case key.Matches(msg, keys.Filter):
		m.loading = true
		return m, m.load(m.snap.Filter.Next())
	case key.Matches(msg, keys.Reconcile):
		m.loading = true
		return m, m.reconcile()
	case key.Matches(msg, keys.Toggle):
		if t, ok := m.selected(); ok {
			p, err := m.ctl.ToggleStatus(t.ID)
			return m.afterWrite(p, err, "Update")
		}
	case key.Matches(msg, keys.Delete):
		if t, ok := m.selected(); ok {
			p, err := m.ctl.Remove(t.ID)
			return m.afterWrite(p, err, "Delete")
		}
	case key.Matches(msg, keys.MoveUp):
		if m.cursor > 0 {
			return m.move(m.cursor - 1)
		}
	case key.Matches(msg, keys.MoveDown):
		if m.cursor < len(m.snap.Tasks)-1 {
			return m.move(m.cursor + 1)
		}
	}
	return m, nil
}

// move relocates the selected task to index to and keeps it selected.
func (m taskListModel) move(to int) (taskListModel, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	p, err := m.ctl.Move(m.cursor, to)
	m, cmd := m.afterWrite(p, err, "Reorder")
	if i := m.indexOf(t.ID); i >= 0 {
		m.cursor = i
	}
	return m, cmd
}

func (m taskListModel) afterWrite(p *tasks.Pending, err error, what string) (taskListModel, tea.Cmd) {
	m.refresh()
	if err != nil {
		return m, statusCmd(errorStatus(what+" failed", err))
	}
	return m, awaitWrite(p, what)
}

// refresh pulls the current snapshot without waiting for the notification.
func (m *taskListModel) refresh() {
	if s := m.ctl.Snapshot(); s.Seq > m.snap.Seq {
		m.snap = s
	}
	m.clampCursor()
}

func (m *taskListModel) clampCursor() {
	if m.cursor >= len(m.snap.Tasks) {
		m.cursor = max(0, len(m.snap.Tasks)-1)
	}
}

func (m taskListModel) selected() (model.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Tasks) {
		return model.Task{}, false
	}
	return m.snap.Tasks[m.cursor], true
}

func (m taskListModel) indexOf(id string) int {
	for i, t := range m.snap.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// ==================== New task form ====================

func (m taskListModel) showForm() (taskListModel, tea.Cmd) {
	*m.formTitle = ""
	*m.formDesc = ""
	*m.formCategory = model.DefaultCategory
	*m.formPriority = model.PriorityMedium
	*m.formDue = ""

	catOptions := make([]huh.Option[string], len(model.Categories))
	for i, c := range model.Categories {
		catOptions[i] = huh.NewOption(c, c)
	}
	prioOptions := make([]huh.Option[model.Priority], len(model.Priorities))
	for i, p := range model.Priorities {
		prioOptions[i] = huh.NewOption(string(p), p)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(m.formTitle).Validate(validateTitle),
			huh.NewInput().Title("Description").Value(m.formDesc),
			huh.NewSelect[string]().Title("Category").Options(catOptions...).Value(m.formCategory),
			huh.NewSelect[model.Priority]().Title("Priority").Options(prioOptions...).Value(m.formPriority),
			huh.NewInput().Title("Due date (YYYY-MM-DD, optional)").Value(m.formDue).Validate(validateDue),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m taskListModel) updateForm(msg tea.Msg) (taskListModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		d, err := m.draft()
		if err != nil {
			return m, statusCmd(errorStatus("Invalid task", err))
		}
		return m, m.add(d)
	}

	return m, cmd
}

func (m taskListModel) draft() (model.Draft, error) {
	d := model.Draft{
		Title:       *m.formTitle,
		Description: strings.TrimSpace(*m.formDesc),
		Category:    *m.formCategory,
		Priority:    *m.formPriority,
	}
	if due := strings.TrimSpace(*m.formDue); due != "" {
		t, err := time.Parse("2006-01-02", due)
		if err != nil {
			return model.Draft{}, fmt.Errorf("due date: %w", err)
		}
		d.DueDate = &t
	}
	return d.Normalize()
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

func validateDue(s string) error {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}

// ==================== View ====================

func (m taskListModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("New Task"), "", m.form.View()),
		)
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Tasks"), "  ", m.renderFilterTabs(), "  ", m.renderSyncState(),
	)

	var body string
	if len(m.snap.Tasks) == 0 {
		if m.loading {
			body = mutedStyle.Render("  Loading...")
		} else {
			body = mutedStyle.Render("  No tasks. Press n to add one.")
		}
	} else {
		body = m.renderRows(w)
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", body),
	)
}

func (m taskListModel) renderFilterTabs() string {
	var tabs []string
	for _, f := range model.Filters {
		label := strings.ToUpper(string(f[:1])) + string(f[1:])
		if f == m.snap.Filter {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (m taskListModel) renderSyncState() string {
	switch {
	case m.snap.Err != nil:
		return errorStyle.Render("! out of sync (r to reload)")
	case m.snap.Pending > 0:
		return warningStyle.Render(fmt.Sprintf("⟳ syncing %d", m.snap.Pending))
	case m.loading:
		return mutedStyle.Render("⟳ loading")
	case m.snap.Stale:
		return mutedStyle.Render("○ cached")
	}
	return successStyle.Render("● synced")
}

// visibleRange keeps the cursor inside a window that fits the panel.
func (m taskListModel) visibleRange() (int, int) {
	n := len(m.snap.Tasks)
	rows := m.height - 8
	if rows < 3 {
		rows = 3
	}
	if n <= rows {
		return 0, n
	}
	start := m.cursor - rows/2
	start = max(0, min(start, n-rows))
	return start, start + rows
}

func (m taskListModel) renderRows(w int) string {
	now := time.Now()
	start, end := m.visibleRange()

	var rows []string
	for i := start; i < end; i++ {
		t := m.snap.Tasks[i]
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		check := "[ ]"
		if t.Completed() {
			check = successStyle.Render("[x]")
			if i != m.cursor {
				style = doneItemStyle
			}
		}

		title := t.Title
		if maxTitle := w - 40; maxTitle > 10 {
			title = ansi.Truncate(title, maxTitle, "…")
		}

		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format("Jan 02")
			if t.Overdue(now) {
				due = errorStyle.Render(due)
			} else {
				due = mutedStyle.Render(due)
			}
		}

		rows = append(rows, fmt.Sprintf("%s%s %s  %s %s %s",
			cursor, check, style.Render(title),
			priorityStyle(t.Priority).Render("●"),
			mutedStyle.Render(t.Category),
			due,
		))
	}
	if start > 0 || end < len(m.snap.Tasks) {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %d-%d of %d", start+1, end, len(m.snap.Tasks))))
	}
	return strings.Join(rows, "\n")
}

func statusCmd(msg statusMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

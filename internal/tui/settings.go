package tui

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/nexus/internal/focus"
	"github.com/sadopc/nexus/internal/store"
)

type settingsModel struct {
	store  *store.Store
	timer  *focus.Timer
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	focusMinutes *string
	dailyGoal    *string
}

func newSettingsModel(s *store.Store, t *focus.Timer) settingsModel {
	fm, dg := "", ""
	return settingsModel{
		store:        s,
		timer:        t,
		focusMinutes: &fm,
		dailyGoal:    &dg,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

// settingsSavedMsg lets other views pick up new values.
type settingsSavedMsg struct{}

func (s settingsModel) refresh() tea.Cmd {
	st := s.store
	return func() tea.Msg {
		settings, _ := st.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(settingsDataMsg); ok {
		s.settings = msg.settings
		return s, nil
	}
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.focusMinutes = secsToMin(s.getVal(store.SettingPomodoroWork, "1500"))
	*s.dailyGoal = s.getVal(store.SettingDailyGoal, "4")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Focus length (min)").Value(s.focusMinutes).Validate(positiveInt),
			huh.NewInput().Title("Daily goal (sessions)").Value(s.dailyGoal).Validate(positiveInt),
		).Title("Focus"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, tea.Batch(s.saveSettings(), s.refresh())
	}

	return s, cmd
}

// saveSettings persists the form and applies the focus length to an idle
// timer. A running timer keeps its length until the next reset.
func (s settingsModel) saveSettings() tea.Cmd {
	work := minToSecs(*s.focusMinutes)
	if err := s.store.SetSetting(store.SettingPomodoroWork, work); err != nil {
		return statusCmd(errorStatus("Save settings", err))
	}
	if err := s.store.SetSetting(store.SettingDailyGoal, *s.dailyGoal); err != nil {
		return statusCmd(errorStatus("Save settings", err))
	}

	text := "Settings saved"
	if secs, err := strconv.Atoi(work); err == nil {
		err := s.timer.SetTotal(time.Duration(secs)*time.Second)
		switch {
		case errors.Is(err, focus.ErrBusy):
			text = "Settings saved; focus length applies after reset"
		case err != nil:
			return statusCmd(errorStatus("Focus length", err))
		}
	}
	return tea.Batch(
		statusCmd(statusMsg{text: text}),
		func() tea.Msg { return settingsSavedMsg{} },
	)
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.GetSetting(k)
	if err != nil {
		return fallback
	}
	return v
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(setting.Key)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case store.SettingPomodoroWork:
		if secs, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%d min", secs/60)
		}
	case store.SettingDailyGoal:
		return v + " sessions"
	}
	return v
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return errors.New("enter a whole number above zero")
	}
	return nil
}

func secsToMin(s string) string {
	if secs, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(secs / 60)
	}
	return s
}

func minToSecs(s string) string {
	if mins, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(mins * 60)
	}
	return s
}

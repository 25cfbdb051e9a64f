package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/nexus/internal/focus"
	"github.com/sadopc/nexus/internal/model"
	"github.com/sadopc/nexus/internal/store"
)

type focusModel struct {
	timer  *focus.Timer
	store  *store.Store
	ctx    context.Context
	width  int
	height int

	snap  focus.Snapshot
	today int
	goal  int
}

func newFocusModel(ctx context.Context, t *focus.Timer, s *store.Store) focusModel {
	m := focusModel{
		timer: t,
		store: s,
		ctx:   ctx,
		snap:  t.Snapshot(),
	}
	m.loadSettings()
	return m
}

func (f *focusModel) loadSettings() {
	f.goal = f.store.GetIntSetting(store.SettingDailyGoal, 4)
}

// workDuration is the configured focus length.
func (f focusModel) workDuration() time.Duration {
	secs := f.store.GetIntSetting(store.SettingPomodoroWork, int(model.DefaultFocusDuration/time.Second))
	return time.Duration(secs) * time.Second
}

func (f *focusModel) setSize(w, h int) {
	f.width = w
	f.height = h
}

type focusTodayMsg struct {
	count int
}

type focusSeededMsg struct{}

func (f focusModel) refreshToday() tea.Cmd {
	s := f.store
	return func() tea.Msg {
		n, err := s.TodayCount()
		if err != nil {
			return errorStatus("Focus stats", err)
		}
		return focusTodayMsg{count: n}
	}
}

// seed loads the completed count from the backend once at startup.
func (f focusModel) seed() tea.Cmd {
	t, ctx := f.timer, f.ctx
	return func() tea.Msg {
		if err := t.Seed(ctx); err != nil {
			return errorStatus("Focus history unavailable", err)
		}
		return focusSeededMsg{}
	}
}

func (f focusModel) update(msg tea.Msg) (focusModel, tea.Cmd) {
	switch msg := msg.(type) {
	case focusSnapshotMsg:
		if msg.snap.Seq <= f.snap.Seq {
			return f, nil
		}
		prev := f.snap
		f.snap = msg.snap
		if prev.Phase == focus.Running && msg.snap.Completed > prev.Completed {
			return f, tea.Batch(
				statusCmd(statusMsg{text: "Focus session complete! \a"}),
				f.refreshToday(),
			)
		}
		return f, nil

	case focusTodayMsg:
		f.today = msg.count
		return f, nil

	case focusSeededMsg:
		f.refresh()
		return f, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			f.timer.Start()
		case key.Matches(msg, keys.Toggle):
			f.timer.Toggle()
		case key.Matches(msg, keys.Reset):
			f.timer.Reset()
			if err := f.timer.SetTotal(f.workDuration()); err != nil && !errors.Is(err, focus.ErrBusy) {
				f.refresh()
				return f, statusCmd(errorStatus("Focus length", err))
			}
		default:
			return f, nil
		}
		f.refresh()
	}
	return f, nil
}

func (f *focusModel) refresh() {
	if s := f.timer.Snapshot(); s.Seq > f.snap.Seq {
		f.snap = s
	}
}

func (f focusModel) running() bool { return f.snap.Phase == focus.Running }

func (f focusModel) paused() bool { return f.snap.Phase == focus.Paused }

func (f focusModel) view() string {
	w := f.width - 4
	clock := formatClock(f.snap.Remaining)

	var timeDisplay, phaseLabel string
	switch f.snap.Phase {
	case focus.Running:
		timeDisplay = timerRunningStyle.Width(w - 6).Render(clock)
		phaseLabel = accentStyle.Bold(true).Render("FOCUS")
	case focus.Paused:
		timeDisplay = timerPausedStyle.Width(w - 6).Render(clock)
		phaseLabel = warningStyle.Bold(true).Render("PAUSED")
	case focus.Completed:
		timeDisplay = successStyle.Bold(true).Width(w - 6).Align(lipgloss.Center).Render("Done!")
		phaseLabel = successStyle.Bold(true).Render("SESSION COMPLETE")
	default:
		timeDisplay = timerStyle.Width(w - 6).Render(clock)
		phaseLabel = mutedStyle.Render("Ready to start")
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Focus Timer"),
		"",
		timeDisplay,
		phaseLabel,
		"",
		f.renderBar(min(40, w-10)),
		"",
		f.renderGoal(),
		mutedStyle.Render(fmt.Sprintf("%d sessions completed", f.snap.Completed)),
	)

	var controls string
	switch f.snap.Phase {
	case focus.Running:
		controls = mutedStyle.Render("space: pause  x: reset")
	case focus.Paused:
		controls = mutedStyle.Render("space/s: resume  x: reset")
	default:
		controls = mutedStyle.Render("s: start")
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", controls),
	)
}

func (f focusModel) renderBar(width int) string {
	if width < 10 {
		width = 10
	}
	filled := int(f.snap.Progress() * float64(width))
	return successStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
}

// renderGoal draws today's sessions against the daily goal.
func (f focusModel) renderGoal() string {
	var parts []string
	for i := 0; i < max(f.goal, f.today); i++ {
		switch {
		case i < f.today:
			parts = append(parts, successStyle.Render("●"))
		case i == f.today && f.snap.Phase == focus.Running:
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d/%d today", f.today, f.goal))
	return strings.Join(parts, " ") + counter
}

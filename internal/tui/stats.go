package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/nexus/internal/store"
)

type statsMode int

const (
	statsDaily statsMode = iota
	statsWeekly
)

type statsModel struct {
	store  *store.Store
	width  int
	height int

	mode   statsMode
	days   []store.DailyCount
	offset int // weeks or 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newStatsModel(s *store.Store) statsModel {
	return statsModel{
		store: s,
		chart: barchart.New(60, 12),
	}
}

func (r *statsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type statsDataMsg struct {
	days []store.DailyCount
}

func (r statsModel) refresh() tea.Cmd {
	s := r.store
	from, to := r.dateRange()
	return func() tea.Msg {
		days, err := s.CompletionsPerDay(from, to)
		if err != nil {
			return errorStatus("Stats", err)
		}
		return statsDataMsg{days: days}
	}
}

func (r statsModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch r.mode {
	case statsWeekly:
		weekday := today.Weekday()
		if weekday == time.Sunday {
			weekday = 7
		}
		startOfWeek := today.AddDate(0, 0, -int(weekday-time.Monday))
		startOfWeek = startOfWeek.AddDate(0, 0, -7*r.offset)
		return startOfWeek, startOfWeek.AddDate(0, 0, 7)
	default:
		// Last 7 days including today
		end := today.AddDate(0, 0, 1-7*r.offset)
		return end.AddDate(0, 0, -7), end
	}
}

func (r statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statsDataMsg:
		r.days = msg.days
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		case key.Matches(msg, keys.Enter):
			if r.mode == statsDaily {
				r.mode = statsWeekly
			} else {
				r.mode = statsDaily
			}
			r.offset = 0
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *statsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	byDate := make(map[string]store.DailyCount, len(r.days))
	for _, d := range r.days {
		byDate[d.Date] = d
	}

	from, to := r.dateRange()
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		style := lipgloss.NewStyle().Foreground(colorSubtle)
		value := 0.0
		if dc, ok := byDate[d.Format("2006-01-02")]; ok {
			value = float64(dc.Sessions)
			style = lipgloss.NewStyle().Foreground(colorPrimary)
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("Mon 02"),
			Values: []barchart.BarValue{{Name: "sessions", Value: value, Style: style}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r statsModel) totals() (sessions int, secs int64) {
	for _, d := range r.days {
		sessions += d.Sessions
		secs += d.TotalSeconds
	}
	return
}

func (r statsModel) view() string {
	w := r.width - 4

	dailyTab := inactiveTabStyle.Render("Daily")
	weeklyTab := inactiveTabStyle.Render("Weekly")
	if r.mode == statsDaily {
		dailyTab = activeTabStyle.Render("Daily")
	} else {
		weeklyTab = activeTabStyle.Render("Weekly")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, dailyTab, weeklyTab)

	from, to := r.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Focus Stats"), "  ", modeTabs, "  ", dateLabel,
	)

	sessions, secs := r.totals()
	summary := highlightStyle.Render(fmt.Sprintf("  %d sessions  %s focused", sessions, formatSeconds(secs)))

	nav := mutedStyle.Render("  ←/→: navigate  enter: switch mode")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", summary, "", r.renderTable(w), "", nav,
		),
	)
}

func (r statsModel) renderTable(w int) string {
	if len(r.days) == 0 {
		return mutedStyle.Render("  No focus sessions in this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %10s %10s", "Date", "Sessions", "Focused")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 34))))

	for _, d := range r.days {
		rows = append(rows, fmt.Sprintf("  %-12s %10d %10s", d.Date, d.Sessions, formatSeconds(d.TotalSeconds)))
	}
	return strings.Join(rows, "\n")
}

package store

import "time"

type Setting struct {
	Key   string
	Value string
}

// Setting keys with seeded defaults.
const (
	SettingPomodoroWork = "pomodoro_work" // seconds
	SettingTaskFilter   = "task_filter"
	SettingDailyGoal    = "daily_goal" // sessions per day
)

// Completion is one journaled focus session. RemoteID is empty when the
// backend never acknowledged it.
type Completion struct {
	ID          int64
	RemoteID    string
	Duration    int64 // seconds
	CompletedAt time.Time
}

func (c Completion) Synced() bool { return c.RemoteID != "" }

// CompletionFilter is used to filter journaled sessions in queries.
type CompletionFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// DailyCount is the number of sessions completed on one UTC day.
type DailyCount struct {
	Date         string
	Sessions     int
	TotalSeconds int64
}

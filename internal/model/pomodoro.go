package model

import "time"

// DefaultFocusDuration is the session length when no setting overrides it.
const DefaultFocusDuration = 25 * time.Minute

type PomodoroSession struct {
	ID          string
	Duration    time.Duration
	CompletedAt time.Time
}

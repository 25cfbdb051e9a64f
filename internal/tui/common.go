package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/nexus/internal/focus"
	"github.com/sadopc/nexus/internal/tasks"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTasks viewState = iota
	viewFocus
	viewStats
	viewSettings
)

var viewNames = []string{"Tasks", "Focus", "Stats", "Settings"}

// --- Messages ---

type tasksSnapshotMsg struct {
	snap tasks.Snapshot
}

type focusSnapshotMsg struct {
	snap focus.Snapshot
}

// unauthorizedMsg means the backend rejected the credential.
type unauthorizedMsg struct{}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

// formatClock renders a countdown as MM:SS; minutes may exceed 59.
func formatClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func errorStatus(prefix string, err error) statusMsg {
	return statusMsg{text: fmt.Sprintf("%s: %v", prefix, err), isError: true}
}

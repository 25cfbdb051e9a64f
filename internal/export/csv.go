package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/nexus/internal/model"
	"github.com/sadopc/nexus/internal/store"
)

// TasksToCSV writes tasks in list order, one row per task.
func TasksToCSV(tasks []model.Task, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Position", "ID", "Title", "Category", "Priority", "Status", "Due", "Created", "Description"}); err != nil {
		return err
	}

	for i, t := range tasks {
		row := []string{
			strconv.Itoa(i + 1),
			t.ID,
			t.Title,
			t.Category,
			string(t.Priority),
			string(t.Status),
			formatDue(t.DueDate),
			formatTime(t.CreatedAt),
			t.Description,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// SessionsToCSV writes journaled focus sessions.
func SessionsToCSV(sessions []store.Completion, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ID", "Completed", "Duration (s)", "Duration", "Remote ID"}); err != nil {
		return err
	}

	for _, s := range sessions {
		row := []string{
			strconv.FormatInt(s.ID, 10),
			formatTime(s.CompletedAt),
			strconv.FormatInt(s.Duration, 10),
			formatDuration(s.Duration),
			s.RemoteID,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatDue(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format("2006-01-02")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(time.RFC3339)
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

package api

import (
	"fmt"
	"math"
	"time"

	"github.com/sadopc/nexus/internal/model"
)

const dateLayout = "2006-01-02"

type taskJSON struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	DueDate     *string `json:"due_date"`
	Order       int     `json:"order"`
	CreatedAt   string  `json:"created_at"`
}

func (w taskJSON) task() (model.Task, error) {
	if w.ID == "" {
		return model.Task{}, fmt.Errorf("task %q has no id", w.Title)
	}
	t := model.Task{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Category:    w.Category,
		Priority:    model.Priority(w.Priority),
		Status:      model.Status(w.Status),
		Order:       w.Order,
	}
	if t.Category == "" {
		t.Category = model.DefaultCategory
	}
	if !t.Priority.Valid() {
		t.Priority = model.PriorityMedium
	}
	if t.Status != model.StatusCompleted {
		t.Status = model.StatusActive
	}
	if w.DueDate != nil && *w.DueDate != "" {
		d, err := parseDate(*w.DueDate)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s due date: %w", w.ID, err)
		}
		t.DueDate = &d
	}
	if w.CreatedAt != "" {
		if ts, err := parseTimestamp(w.CreatedAt); err == nil {
			t.CreatedAt = ts
		}
	}
	return t, nil
}

// parseDate accepts a bare date or a full timestamp, keeping the date part.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, nil
	}
	ts, err := parseTimestamp(s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// parseTimestamp handles ISO-8601 with and without a zone; the backend
// writes both depending on where the value came from.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

type draftJSON struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date"`
}

func newDraftJSON(d model.Draft) draftJSON {
	return draftJSON{
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Priority:    string(d.Priority),
		DueDate:     formatDate(d.DueDate),
	}
}

// patchJSON omits unset fields; the backend treats null as "leave alone".
type patchJSON struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

func newPatchJSON(p model.Patch) patchJSON {
	w := patchJSON{
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		DueDate:     formatDate(p.DueDate),
	}
	if p.Priority != nil {
		s := string(*p.Priority)
		w.Priority = &s
	}
	if p.Status != nil {
		s := string(*p.Status)
		w.Status = &s
	}
	return w
}

type reorderJSON struct {
	TaskIDs []string `json:"task_ids"`
}

// completeJSON carries whole minutes for the backend plus the exact length.
type completeJSON struct {
	DurationMinutes int `json:"duration_minutes"`
	DurationSeconds int `json:"duration_seconds"`
}

func newCompleteJSON(d time.Duration) completeJSON {
	return completeJSON{
		DurationMinutes: int(math.Round(d.Minutes())),
		DurationSeconds: int(d / time.Second),
	}
}

type pomodoroJSON struct {
	ID              string   `json:"id"`
	DurationMinutes float64  `json:"duration_minutes"`
	DurationSeconds *float64 `json:"duration_seconds"`
	CompletedAt     string   `json:"completed_at"`
}

func (w pomodoroJSON) session() model.PomodoroSession {
	s := model.PomodoroSession{
		ID:       w.ID,
		Duration: time.Duration(w.DurationMinutes * float64(time.Minute)),
	}
	if w.DurationSeconds != nil {
		s.Duration = time.Duration(*w.DurationSeconds * float64(time.Second))
	}
	if ts, err := parseTimestamp(w.CompletedAt); err == nil {
		s.CompletedAt = ts
	}
	return s
}

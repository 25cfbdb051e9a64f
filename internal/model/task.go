package model

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Flip returns the opposite status. Anything that is not completed counts as active.
func (s Status) Flip() Status {
	if s == StatusCompleted {
		return StatusActive
	}
	return StatusCompleted
}

// DefaultCategory is what the backend assigns when a draft carries none.
const DefaultCategory = "General"

var Categories = []string{DefaultCategory, "Academics", "Work", "Personal"}

type Task struct {
	ID          string
	Title       string
	Description string
	Category    string
	Priority    Priority
	Status      Status
	DueDate     *time.Time // date only
	Order       int        // server-side position, read only
	CreatedAt   time.Time
}

func (t Task) Completed() bool { return t.Status == StatusCompleted }

// Overdue reports whether an active task's due date lies before the day of now.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate == nil || t.Completed() {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return t.DueDate.Before(today)
}

// Draft is a task that has not been created yet.
type Draft struct {
	Title       string
	Description string
	Category    string
	Priority    Priority
	DueDate     *time.Time
}

// Normalize trims the title and fills server defaults, rejecting drafts the
// backend would refuse.
func (d Draft) Normalize() (Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return d, fmt.Errorf("title is required")
	}
	if d.Category == "" {
		d.Category = DefaultCategory
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if !d.Priority.Valid() {
		return d, fmt.Errorf("unknown priority %q", d.Priority)
	}
	return d, nil
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *Priority
	Status      *Status
	DueDate     *time.Time
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Priority == nil && p.Status == nil && p.DueDate == nil
}

// Apply returns t with the patch fields set.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	return t
}

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	case "":
		return FilterAll, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q", s)
}

// Next cycles all -> active -> completed -> all.
func (f Filter) Next() Filter {
	for i, v := range Filters {
		if v == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

// Match reports whether a task belongs in a list loaded with this filter.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterActive:
		return t.Status != StatusCompleted
	case FilterCompleted:
		return t.Status == StatusCompleted
	}
	return true
}

// IDs returns the ids of tasks in order.
func IDs(tasks []Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// DuplicateID returns the first id that appears more than once, or "".
func DuplicateID(tasks []Task) string {
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return t.ID
		}
		seen[t.ID] = true
	}
	return ""
}

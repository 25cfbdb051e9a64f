package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/nexus/internal/model"
)

const dateLayout = "2006-01-02"

// SaveTasks replaces the cached list with tasks, in order, and remembers the
// filter they were loaded with.
func (s *Store) SaveTasks(filter model.Filter, tasks []model.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save tasks: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM task_cache`); err != nil {
		return fmt.Errorf("clear task cache: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO task_cache (id, position, title, description, category, priority, status, due_date, server_order, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare task insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tasks {
		var due sql.NullString
		if t.DueDate != nil {
			due = sql.NullString{String: t.DueDate.Format(dateLayout), Valid: true}
		}
		var created string
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.UTC().Format(time.RFC3339)
		}
		if _, err := stmt.Exec(t.ID, i, t.Title, t.Description, t.Category, string(t.Priority), string(t.Status), due, t.Order, created); err != nil {
			return fmt.Errorf("cache task %s: %w", t.ID, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		SettingTaskFilter, string(filter),
	); err != nil {
		return fmt.Errorf("save task filter: %w", err)
	}
	return tx.Commit()
}

// LoadTasks returns the cached list in the order it was saved. An empty cache
// is not an error.
func (s *Store) LoadTasks() (model.Filter, []model.Task, error) {
	filter := model.FilterAll
	if v, err := s.GetSetting(SettingTaskFilter); err == nil {
		if f, err := model.ParseFilter(v); err == nil {
			filter = f
		}
	}

	rows, err := s.db.Query(
		`SELECT id, title, description, category, priority, status, due_date, server_order, created_at
		 FROM task_cache ORDER BY position`,
	)
	if err != nil {
		return filter, nil, fmt.Errorf("load cached tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var priority, status, createdAt string
		var due sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &priority, &status, &due, &t.Order, &createdAt); err != nil {
			return filter, nil, err
		}
		t.Priority = model.Priority(priority)
		t.Status = model.Status(status)
		if due.Valid {
			if d, err := time.Parse(dateLayout, due.String); err == nil {
				t.DueDate = &d
			}
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		tasks = append(tasks, t)
	}
	return filter, tasks, rows.Err()
}

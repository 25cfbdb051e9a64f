package store

import (
	"fmt"
	"time"
)

// RecordCompletion journals one completed focus session and returns its row
// id. An empty remoteID marks the session as not yet synced.
func (s *Store) RecordCompletion(d time.Duration, remoteID string, at time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO pomodoro_log (remote_id, duration, completed_at) VALUES (?, ?, ?)`,
		remoteID, int64(d/time.Second), at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("record completion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record completion: %w", err)
	}
	return id, nil
}

// SetRemoteID marks a journaled session as synced.
func (s *Store) SetRemoteID(id int64, remoteID string) error {
	res, err := s.db.Exec(`UPDATE pomodoro_log SET remote_id = ? WHERE id = ?`, remoteID, id)
	if err != nil {
		return fmt.Errorf("set remote id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set remote id: completion %d not found", id)
	}
	return nil
}

func (s *Store) ListCompletions(f CompletionFilter) ([]Completion, error) {
	query := `SELECT id, remote_id, duration, completed_at FROM pomodoro_log WHERE 1=1`
	var args []any

	if f.From != nil {
		query += ` AND completed_at >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += ` AND completed_at < ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY completed_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var out []Completion
	for rows.Next() {
		var c Completion
		var completedAt string
		if err := rows.Scan(&c.ID, &c.RemoteID, &c.Duration, &completedAt); err != nil {
			return nil, err
		}
		c.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CompletionsPerDay aggregates the journal by UTC day, oldest first. Days
// without sessions are absent.
func (s *Store) CompletionsPerDay(from, to time.Time) ([]DailyCount, error) {
	rows, err := s.db.Query(`
		SELECT date(completed_at) AS day, COUNT(*), COALESCE(SUM(duration), 0)
		FROM pomodoro_log
		WHERE completed_at >= ? AND completed_at < ?
		GROUP BY day
		ORDER BY day`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("completions per day: %w", err)
	}
	defer rows.Close()

	var days []DailyCount
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Date, &d.Sessions, &d.TotalSeconds); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// CountCompletions returns the number of sessions and their total length in
// seconds within [from, to).
func (s *Store) CountCompletions(from, to time.Time) (count int, totalSeconds int64, err error) {
	err = s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(duration), 0)
		FROM pomodoro_log
		WHERE completed_at >= ? AND completed_at < ?`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	).Scan(&count, &totalSeconds)
	if err != nil {
		err = fmt.Errorf("count completions: %w", err)
	}
	return
}

// TodayCount is CountCompletions for the current UTC day.
func (s *Store) TodayCount() (int, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, _, err := s.CountCompletions(start, start.AddDate(0, 0, 1))
	return n, err
}

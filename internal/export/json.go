package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/nexus/internal/model"
)

type jsonExport struct {
	ExportedAt string     `json:"exported_at"`
	Count      int        `json:"count"`
	Tasks      []jsonTask `json:"tasks"`
}

type jsonTask struct {
	Position    int    `json:"position"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	DueDate     string `json:"due_date,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// TasksToJSON writes tasks in list order as an indented document.
func TasksToJSON(tasks []model.Task, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(tasks),
		Tasks:      make([]jsonTask, 0, len(tasks)),
	}

	for i, t := range tasks {
		export.Tasks = append(export.Tasks, jsonTask{
			Position:    i + 1,
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Category:    t.Category,
			Priority:    string(t.Priority),
			Status:      string(t.Status),
			DueDate:     formatDue(t.DueDate),
			CreatedAt:   formatTime(t.CreatedAt),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

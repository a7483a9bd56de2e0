package repository

import (
	"context"
	"fmt"
	"strings"

	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

const todoColumnCount = 13

// InsertTodos writes todos with multi-row INSERTs of up to batchSize rows.
func (r *Repository) InsertTodos(ctx context.Context, todos []models.Todo, batchSize int) error {
	if batchSize < 1 {
		batchSize = 500
	}
	for start := 0; start < len(todos); start += batchSize {
		batch := todos[start:min(start+batchSize, len(todos))]
		args := make([]any, 0, len(batch)*todoColumnCount)
		placeholders := make([]string, 0, len(batch))
		for i, t := range batch {
			ph := make([]string, todoColumnCount)
			for j := range ph {
				ph[j] = fmt.Sprintf("$%d", i*todoColumnCount+j+1)
			}
			placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
			args = append(args, t.ID, t.UserID, t.ProjectID, t.ParentTodoID, t.Title, t.Description, string(t.Status),
				t.Priority, t.DueDate, t.CompletedAt, t.IsAIGenerated, t.CreatedAt, t.UpdatedAt)
		}
		q := `INSERT INTO todos (` + todoColumns + `) VALUES ` + strings.Join(placeholders, ",")
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			logger.Error(ctx, "Repository InsertTodos failed", "error", err, "offset", start)
			return err
		}
	}
	return nil
}

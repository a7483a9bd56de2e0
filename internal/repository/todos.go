package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

const todoColumns = `id, user_id, project_id, parent_todo_id, title, description, status, priority,
	due_date, completed_at, is_ai_generated, created_at, updated_at`

func scanTodo(s scanner) (models.Todo, error) {
	var t models.Todo
	var status string
	err := s.Scan(&t.ID, &t.UserID, &t.ProjectID, &t.ParentTodoID, &t.Title, &t.Description, &status, &t.Priority,
		&t.DueDate, &t.CompletedAt, &t.IsAIGenerated, &t.CreatedAt, &t.UpdatedAt)
	t.Status = models.TodoStatus(status)
	return t, err
}

// ListTodos returns one page of the user's todos, newest first, and the total
// number of todos matching the filter.
func (r *Repository) ListTodos(ctx context.Context, userID string, f models.TodoFilter, limit, offset int) ([]models.Todo, int, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+" = $"+strconv.Itoa(len(args)))
	}
	if f.ProjectID != "" {
		add("project_id", f.ProjectID)
	}
	if f.ParentTodoID != "" {
		add("parent_todo_id", f.ParentTodoID)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos WHERE `+clause, args...).Scan(&total); err != nil {
		logger.Error(ctx, "Repository CountTodos failed", "error", err)
		return nil, 0, err
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE `+clause+
			` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		logger.Error(ctx, "Repository ListTodos failed", "error", err)
		return nil, 0, err
	}
	defer rows.Close()
	todos := []models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			logger.Error(ctx, "Repository scan todo failed", "error", err)
			return nil, 0, err
		}
		todos = append(todos, t)
	}
	return todos, total, rows.Err()
}

// GetTodo returns the todo with id owned by userID, or models.ErrNotFound.
func (r *Repository) GetTodo(ctx context.Context, userID, id string) (*models.Todo, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository GetTodo failed", "error", err, "id", id)
		return nil, err
	}
	return &t, nil
}

// CreateTodo inserts a fully populated todo.
func (r *Repository) CreateTodo(ctx context.Context, t *models.Todo) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (`+todoColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.UserID, t.ProjectID, t.ParentTodoID, t.Title, t.Description, string(t.Status), t.Priority,
		t.DueDate, t.CompletedAt, t.IsAIGenerated, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		logger.Error(ctx, "Repository CreateTodo failed", "error", err, "id", t.ID)
		return err
	}
	return nil
}

// UpdateTodo overwrites every mutable column of the user's todo.
func (r *Repository) UpdateTodo(ctx context.Context, t *models.Todo) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE todos SET project_id = $1, parent_todo_id = $2, title = $3, description = $4, status = $5,
		 priority = $6, due_date = $7, completed_at = $8, is_ai_generated = $9, updated_at = $10
		 WHERE id = $11 AND user_id = $12`,
		t.ProjectID, t.ParentTodoID, t.Title, t.Description, string(t.Status),
		t.Priority, t.DueDate, t.CompletedAt, t.IsAIGenerated, t.UpdatedAt, t.ID, t.UserID)
	if err != nil {
		logger.Error(ctx, "Repository UpdateTodo failed", "error", err, "id", t.ID)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteTodo removes a todo by ID and user_id. Deleting a missing todo is not an error.
func (r *Repository) DeleteTodo(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.Error(ctx, "Repository DeleteTodo failed", "error", err, "id", id)
		return err
	}
	return nil
}

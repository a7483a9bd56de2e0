package repository

import (
	"context"
	"database/sql"
	"errors"

	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

const projectSelect = `SELECT p.id, p.user_id, p.name, p.description,
	COUNT(t.id) AS todo_count,
	COUNT(t.id) FILTER (WHERE t.status = 'done') AS completed_todo_count,
	p.created_at, p.updated_at
	FROM projects p LEFT JOIN todos t ON t.project_id = p.id`

func scanProject(s scanner) (models.Project, error) {
	var p models.Project
	err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.TodoCount, &p.CompletedTodoCount, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProjects returns one page of the user's projects with their todo counters.
func (r *Repository) ListProjects(ctx context.Context, userID string, limit, offset int) ([]models.Project, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE user_id = $1`, userID).Scan(&total); err != nil {
		logger.Error(ctx, "Repository CountProjects failed", "error", err)
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		projectSelect+` WHERE p.user_id = $1 GROUP BY p.id ORDER BY p.created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		logger.Error(ctx, "Repository ListProjects failed", "error", err)
		return nil, 0, err
	}
	defer rows.Close()
	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			logger.Error(ctx, "Repository scan project failed", "error", err)
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, total, rows.Err()
}

// GetProject returns the user's project with counters, or models.ErrNotFound.
func (r *Repository) GetProject(ctx context.Context, userID, id string) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx, projectSelect+` WHERE p.id = $1 AND p.user_id = $2 GROUP BY p.id`, id, userID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository GetProject failed", "error", err, "id", id)
		return nil, err
	}
	return &p, nil
}

// CreateProject inserts a project. Counters are not stored.
func (r *Repository) CreateProject(ctx context.Context, p *models.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.UserID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		logger.Error(ctx, "Repository CreateProject failed", "error", err, "id", p.ID)
		return err
	}
	return nil
}

// UpdateProject overwrites name and description.
func (r *Repository) UpdateProject(ctx context.Context, p *models.Project) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET name = $1, description = $2, updated_at = $3 WHERE id = $4 AND user_id = $5`,
		p.Name, p.Description, p.UpdatedAt, p.ID, p.UserID)
	if err != nil {
		logger.Error(ctx, "Repository UpdateProject failed", "error", err, "id", p.ID)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteProject removes a project; its todos keep existing with project_id cleared.
func (r *Repository) DeleteProject(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.Error(ctx, "Repository DeleteProject failed", "error", err, "id", id)
		return err
	}
	return nil
}

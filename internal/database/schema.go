package database

import (
	"context"
	"database/sql"
	"fmt"

	"taskflow/pkg/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		project_id      TEXT REFERENCES projects(id) ON DELETE SET NULL,
		parent_todo_id  TEXT REFERENCES todos(id) ON DELETE CASCADE,
		title           TEXT NOT NULL,
		description     TEXT,
		status          TEXT NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'in_progress', 'done')),
		priority        INTEGER NOT NULL DEFAULT 3 CHECK (priority BETWEEN 1 AND 5),
		due_date        TIMESTAMPTZ,
		completed_at    TIMESTAMPTZ,
		is_ai_generated BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_user_created ON projects (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_user_created ON todos (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_project ON todos (project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_parent ON todos (parent_todo_id)`,
}

// Migrate creates the tables and indexes if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return sql.ErrConnDone
	}
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	logger.Info(ctx, "Schema ensured", "statements", len(schema))
	return nil
}

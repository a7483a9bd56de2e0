package repository

import (
	"context"
	"database/sql"
)

// Repository reads and writes todos and projects in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New wraps an open pool.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return sql.ErrConnDone
	}
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

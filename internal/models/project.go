package models

import (
	"fmt"
	"strings"
	"time"
)

// Project groups todos. TodoCount and CompletedTodoCount are computed by the
// server and never taken from a request body.
type Project struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Description        *string   `json:"description"`
	TodoCount          int       `json:"todo_count"`
	CompletedTodoCount int       `json:"completed_todo_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Validate checks the fields a client may set.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	return nil
}

// ProjectPatch is a partial project body.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

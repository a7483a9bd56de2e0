package models

import (
	"fmt"
	"strings"
	"time"
)

// TodoStatus is the workflow state of a todo. Any status may be set directly.
type TodoStatus string

const (
	StatusTodo       TodoStatus = "todo"
	StatusInProgress TodoStatus = "in_progress"
	StatusDone       TodoStatus = "done"
)

const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 3
)

// Valid reports whether s is one of the known statuses.
func (s TodoStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Todo represents a todo item.
type Todo struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	ProjectID     *string    `json:"project_id"`
	ParentTodoID  *string    `json:"parent_todo_id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	Status        TodoStatus `json:"status"`
	Priority      int        `json:"priority"`
	DueDate       *time.Time `json:"due_date"`
	CompletedAt   *time.Time `json:"completed_at"`
	IsAIGenerated bool       `json:"is_ai_generated"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewTodoDefaults returns the values a created todo starts from before the
// request body is overlaid.
func NewTodoDefaults() Todo {
	return Todo{Status: StatusTodo, Priority: DefaultPriority}
}

// Validate checks the fields a client may set.
func (t *Todo) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: status must be one of todo, in_progress, done", ErrInvalid)
	}
	if t.Priority < MinPriority || t.Priority > MaxPriority {
		return fmt.Errorf("%w: priority must be between %d and %d", ErrInvalid, MinPriority, MaxPriority)
	}
	if t.ParentTodoID != nil && *t.ParentTodoID == t.ID && t.ID != "" {
		return fmt.Errorf("%w: a todo cannot be its own parent", ErrInvalid)
	}
	return nil
}

// StampCompletion keeps completed_at in step with status: it is set when the
// todo enters done and cleared when it leaves.
func (t *Todo) StampCompletion(now time.Time) {
	if t.Status == StatusDone {
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		return
	}
	t.CompletedAt = nil
}

// TodoFilter narrows a todo listing. Empty fields do not filter.
type TodoFilter struct {
	ProjectID    string
	ParentTodoID string
	Status       TodoStatus
}

// CacheKey renders the filter as a stable cache key fragment.
func (f TodoFilter) CacheKey() string {
	return "p=" + f.ProjectID + ";parent=" + f.ParentTodoID + ";s=" + string(f.Status)
}

// TodoPatch is a partial todo body; nil fields are left out of the request.
type TodoPatch struct {
	ProjectID     *string     `json:"project_id,omitempty"`
	ParentTodoID  *string     `json:"parent_todo_id,omitempty"`
	Title         *string     `json:"title,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Status        *TodoStatus `json:"status,omitempty"`
	Priority      *int        `json:"priority,omitempty"`
	DueDate       *time.Time  `json:"due_date,omitempty"`
	IsAIGenerated *bool       `json:"is_ai_generated,omitempty"`
}

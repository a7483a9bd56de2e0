package models

import "time"

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	EntityTodo    = "todo"
	EntityProject = "project"
)

// Command is the message payload for Kafka (create/update/delete of a todo or project).
// Create and update carry the full entity as it should be stored.
type Command struct {
	Action      string    `json:"action"`
	Entity      string    `json:"entity"`
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Todo        *Todo     `json:"todo,omitempty"`
	Project     *Project  `json:"project,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

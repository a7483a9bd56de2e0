package models

// GenerateSubtasksRequest asks the assistant to break a todo into subtasks.
type GenerateSubtasksRequest struct {
	TodoID      string `json:"todo_id"`
	MinSubtasks int    `json:"min_subtasks"`
	MaxSubtasks int    `json:"max_subtasks"`
}

// Subtask is one generated step. Order is 1-based.
type Subtask struct {
	Title         string  `json:"title"`
	Description   *string `json:"description,omitempty"`
	Priority      int     `json:"priority"`
	EstimatedTime *string `json:"estimated_time,omitempty"`
	Order         int     `json:"order"`
}

// GenerateSubtasksResponse wraps the generated list.
type GenerateSubtasksResponse struct {
	Subtasks []Subtask `json:"subtasks"`
}

package mockapi

import (
	"strconv"
	"time"

	"taskflow/internal/models"
)

const (
	NewTodoID    = "new_todo_id"
	NewProjectID = "new_project_id"

	ServerErrorMessage  = "Internal Server Error"
	UnauthorizedMessage = "Unauthorized"
)

var fixtureTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

// MockTodo returns a fresh copy of the todo fixture.
func MockTodo() models.Todo {
	due := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	return models.Todo{
		ID:          "1",
		UserID:      "user1",
		ProjectID:   strPtr("1"),
		Title:       "Test Todo",
		Description: strPtr("Test Description"),
		Status:      models.StatusTodo,
		Priority:    models.DefaultPriority,
		DueDate:     &due,
		CreatedAt:   fixtureTime,
		UpdatedAt:   fixtureTime,
	}
}

// MockProject returns a fresh copy of the project fixture.
func MockProject() models.Project {
	return models.Project{
		ID:                 "1",
		UserID:             "user1",
		Name:               "Test Project",
		Description:        strPtr("Test Description"),
		TodoCount:          5,
		CompletedTodoCount: 2,
		CreatedAt:          fixtureTime,
		UpdatedAt:          fixtureTime,
	}
}

// pageItem synthesizes the single item shown on page p: the fixture itself on
// page 1, the fixture re-keyed by page number afterwards, nothing past the end.
func pageItem[T any](fixture T, setID func(*T, string), p, pages int) []T {
	if p > pages {
		return []T{}
	}
	if p > 1 {
		setID(&fixture, strconv.Itoa(p))
	}
	return []T{fixture}
}

package ai

import (
	"context"

	"taskflow/internal/models"
)

// Fixed always returns the same two subtasks and ignores the requested bounds.
// It backs the mock API.
type Fixed struct{}

func (Fixed) Generate(ctx context.Context, todo *models.Todo, lo, hi int) ([]models.Subtask, error) {
	return FixedSubtasks(), nil
}

// FixedSubtasks returns a fresh copy of the canned subtask list.
func FixedSubtasks() []models.Subtask {
	d1, d2 := "First subtask description", "Second subtask description"
	e1, e2 := "30 minutes", "1 hour"
	return []models.Subtask{
		{Title: "Subtask 1", Description: &d1, Priority: 3, EstimatedTime: &e1, Order: 1},
		{Title: "Subtask 2", Description: &d2, Priority: 2, EstimatedTime: &e2, Order: 2},
	}
}

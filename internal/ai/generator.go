// Package ai breaks a todo into generated subtasks.
package ai

import (
	"context"

	"taskflow/internal/models"
)

const (
	DefaultMinSubtasks = 3
	DefaultMaxSubtasks = 5
	MaxSubtasks        = 10
)

// Generator produces subtasks for a todo within [lo, hi].
type Generator interface {
	Generate(ctx context.Context, todo *models.Todo, lo, hi int) ([]models.Subtask, error)
}

// Bounds normalizes the requested subtask range: zero values take defaults,
// lo is at least 1, hi is at least lo and at most MaxSubtasks.
func Bounds(lo, hi int) (int, int) {
	if lo <= 0 {
		lo = DefaultMinSubtasks
	}
	if hi <= 0 {
		hi = DefaultMaxSubtasks
	}
	lo = min(lo, MaxSubtasks)
	hi = min(max(hi, lo), MaxSubtasks)
	return lo, hi
}

// Normalize truncates to hi, fills an out-of-range priority and renumbers order 1..n.
func Normalize(subtasks []models.Subtask, hi int) []models.Subtask {
	if len(subtasks) > hi {
		subtasks = subtasks[:hi]
	}
	out := make([]models.Subtask, len(subtasks))
	for i, s := range subtasks {
		if s.Priority < models.MinPriority || s.Priority > models.MaxPriority {
			s.Priority = models.DefaultPriority
		}
		s.Order = i + 1
		out[i] = s
	}
	return out
}

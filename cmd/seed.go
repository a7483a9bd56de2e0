package main

import (
	"errors"
	"fmt"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/database"
	"taskflow/internal/models"
	"taskflow/internal/repository"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var (
		userID   string
		projects int
		todos    int
		batch    int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo projects and todos into DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if config.Get().DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			db := database.DB(ctx)
			if db == nil {
				return errors.New("database not available")
			}
			defer database.Close()
			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("schema: %w", err)
			}

			start := time.Now()
			repo := repository.New(db)
			projectList, todoList := seedData(userID, projects, todos, start.UTC())
			for i := range projectList {
				if err := repo.CreateProject(ctx, &projectList[i]); err != nil {
					return fmt.Errorf("insert project: %w", err)
				}
			}
			if err := repo.InsertTodos(ctx, todoList, batch); err != nil {
				return fmt.Errorf("insert todos: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Done: %d projects, %d todos for %s in %v\n",
				len(projectList), len(todoList), userID, time.Since(start))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "seed-user", "Owner of the seeded data")
	cmd.Flags().IntVar(&projects, "projects", 10, "Number of projects")
	cmd.Flags().IntVar(&todos, "todos", 10_000, "Number of todos")
	cmd.Flags().IntVar(&batch, "batch", 500, "Rows per INSERT")
	return cmd
}

var seedStatuses = []models.TodoStatus{models.StatusTodo, models.StatusInProgress, models.StatusDone}

// seedData spreads todos round-robin over the projects and cycles status and
// priority. Every tenth todo is a subtask of the todo before it.
func seedData(userID string, projects, todos int, now time.Time) ([]models.Project, []models.Todo) {
	projectList := make([]models.Project, projects)
	for i := range projectList {
		desc := fmt.Sprintf("Description for project %d", i+1)
		projectList[i] = models.Project{
			ID:          uuid.New().String(),
			UserID:      userID,
			Name:        fmt.Sprintf("Project %d", i+1),
			Description: &desc,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	todoList := make([]models.Todo, todos)
	for i := range todoList {
		n := i + 1
		desc := fmt.Sprintf("Description for todo %d", n)
		t := models.Todo{
			ID:          uuid.New().String(),
			UserID:      userID,
			Title:       fmt.Sprintf("Todo %d", n),
			Description: &desc,
			Status:      seedStatuses[i%len(seedStatuses)],
			Priority:    i%models.MaxPriority + 1,
			CreatedAt:   now.Add(-time.Duration(i) * time.Second),
			UpdatedAt:   now,
		}
		if projects > 0 {
			t.ProjectID = &projectList[i%projects].ID
		}
		if n%10 == 0 {
			parent := todoList[i-1].ID
			t.ParentTodoID = &parent
			t.ProjectID = todoList[i-1].ProjectID
		}
		t.StampCompletion(now)
		todoList[i] = t
	}
	return projectList, todoList
}

package controller

import (
	"net/http"

	"taskflow/internal/ai"
	"taskflow/internal/models"
	"taskflow/pkg/logger"

	"github.com/gin-gonic/gin"
)

// GenerateSubtasks asks the generator to split the caller's todo. The
// generated subtasks are returned, not stored.
func (h *Handlers) GenerateSubtasks(c *gin.Context) {
	ctx := c.Request.Context()
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var body models.GenerateSubtasksRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if body.TodoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": "todo_id is required"})
		return
	}
	todo, err := h.store.GetTodo(ctx, uid, body.TodoID)
	if err != nil {
		fail(c, "Generate subtasks", err)
		return
	}
	lo, hi := ai.Bounds(body.MinSubtasks, body.MaxSubtasks)
	subtasks, err := h.generator.Generate(ctx, todo, lo, hi)
	if err != nil {
		if ctx.Err() != nil {
			c.Abort()
			return
		}
		logger.Error(ctx, "Subtask generation failed", "error", err, "todo_id", body.TodoID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Subtask generation failed"})
		return
	}
	c.JSON(http.StatusOK, models.GenerateSubtasksResponse{Subtasks: ai.Normalize(subtasks, hi)})
}

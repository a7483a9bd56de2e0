package controller

import (
	"context"
	"net/http"
	"time"

	"taskflow/internal/cache"
	"taskflow/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handlers) GetProjects(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	p, ok := pageParams(c)
	if !ok {
		return
	}
	h.servePage(c, uid, cache.KindProjects, cache.Key(p.Page, p.Limit, ""), func(ctx context.Context) (any, error) {
		projects, total, err := h.store.ListProjects(ctx, uid, p.Limit, p.Offset())
		if err != nil {
			return nil, err
		}
		return models.NewPage(projects, total, p.Page, p.Limit), nil
	})
}

func (h *Handlers) GetProject(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	project, err := h.store.GetProject(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, "Get project", err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// CreateProject ignores any counters in the body; a new project has none.
func (h *Handlers) CreateProject(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var project models.Project
	if !bindOverlay(c, &project) {
		return
	}
	now := time.Now().UTC()
	project.ID = uuid.New().String()
	project.UserID = uid
	project.TodoCount = 0
	project.CompletedTodoCount = 0
	project.CreatedAt = now
	project.UpdatedAt = now
	if err := project.Validate(); err != nil {
		fail(c, "Create project", err)
		return
	}
	cmd := &models.Command{
		Action:      models.ActionCreate,
		Entity:      models.EntityProject,
		ID:          project.ID,
		UserID:      uid,
		Project:     &project,
		RequestedAt: now,
	}
	if !h.publish(c, cmd) {
		return
	}
	c.JSON(http.StatusCreated, project)
}

// UpdateProject overlays the body on the stored project; counters and the
// path id are not taken from the body.
func (h *Handlers) UpdateProject(c *gin.Context) {
	ctx := c.Request.Context()
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	project, err := h.store.GetProject(ctx, uid, id)
	if err != nil {
		fail(c, "Update project", err)
		return
	}
	stored := *project
	if !bindOverlay(c, project) {
		return
	}
	now := time.Now().UTC()
	project.ID = id
	project.UserID = uid
	project.TodoCount = stored.TodoCount
	project.CompletedTodoCount = stored.CompletedTodoCount
	project.CreatedAt = stored.CreatedAt
	project.UpdatedAt = now
	if err := project.Validate(); err != nil {
		fail(c, "Update project", err)
		return
	}
	cmd := &models.Command{
		Action:      models.ActionUpdate,
		Entity:      models.EntityProject,
		ID:          id,
		UserID:      uid,
		Project:     project,
		RequestedAt: now,
	}
	if !h.publish(c, cmd) {
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handlers) DeleteProject(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	cmd := &models.Command{
		Action:      models.ActionDelete,
		Entity:      models.EntityProject,
		ID:          c.Param("id"),
		UserID:      uid,
		RequestedAt: time.Now().UTC(),
	}
	if !h.publish(c, cmd) {
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: models.ProjectDeletedMessage})
}

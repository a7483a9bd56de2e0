package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"taskflow/internal/cache"
	"taskflow/internal/models"
	"taskflow/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// servePage answers a list request cache-first as raw bytes. Misses are
// coalesced per (user, kind, key); the leader reads the cache version before
// loading and stores the page under it.
func (h *Handlers) servePage(c *gin.Context, uid, kind, key string, load func(ctx context.Context) (any, error)) {
	ctx := c.Request.Context()
	if h.cache != nil {
		if b, ok := h.cache.Get(ctx, uid, kind, key); ok {
			c.Data(http.StatusOK, "application/json", b)
			return
		}
	}
	v, err, _ := h.reads.Do(uid+"|"+kind+"|"+key, func() (interface{}, error) {
		bg := context.WithoutCancel(ctx)
		var version string
		cacheable := false
		if h.cache != nil {
			version, cacheable = h.cache.Version(bg, uid, kind)
		}
		page, err := load(bg)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(page)
		if err != nil {
			return nil, err
		}
		if cacheable {
			h.cache.SetAsync(uid, kind, version, key, b)
		}
		return b, nil
	})
	if err != nil {
		fail(c, "List "+kind, err)
		return
	}
	c.Data(http.StatusOK, "application/json", v.([]byte))
}

// GetTodos returns one page of the caller's todos, optionally filtered by
// project_id, parent_todo_id and status.
func (h *Handlers) GetTodos(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	p, ok := pageParams(c)
	if !ok {
		return
	}
	f := models.TodoFilter{
		ProjectID:    c.Query("project_id"),
		ParentTodoID: c.Query("parent_todo_id"),
		Status:       models.TodoStatus(c.Query("status")),
	}
	if f.Status != "" && !f.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}
	h.servePage(c, uid, cache.KindTodos, cache.Key(p.Page, p.Limit, f.CacheKey()), func(ctx context.Context) (any, error) {
		todos, total, err := h.store.ListTodos(ctx, uid, f, p.Limit, p.Offset())
		if err != nil {
			return nil, err
		}
		return models.NewPage(todos, total, p.Page, p.Limit), nil
	})
}

func (h *Handlers) GetTodo(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	todo, err := h.store.GetTodo(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, "Get todo", err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// CreateTodo overlays the body on the defaults, assigns a fresh id and returns
// the todo with 201 once the create command is accepted.
func (h *Handlers) CreateTodo(c *gin.Context) {
	ctx := c.Request.Context()
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	todo := models.NewTodoDefaults()
	if !bindOverlay(c, &todo) {
		return
	}
	now := time.Now().UTC()
	todo.ID = uuid.New().String()
	todo.UserID = uid
	todo.CreatedAt = now
	todo.UpdatedAt = now
	todo.CompletedAt = nil
	todo.StampCompletion(now)
	if err := h.checkTodo(ctx, uid, &todo); err != nil {
		fail(c, "Create todo", err)
		return
	}
	cmd := &models.Command{
		Action:      models.ActionCreate,
		Entity:      models.EntityTodo,
		ID:          todo.ID,
		UserID:      uid,
		Todo:        &todo,
		RequestedAt: now,
	}
	if !h.publish(c, cmd) {
		return
	}
	c.JSON(http.StatusCreated, todo)
}

// UpdateTodo overlays the body on the stored todo. The path id always wins.
func (h *Handlers) UpdateTodo(c *gin.Context) {
	ctx := c.Request.Context()
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	todo, err := h.store.GetTodo(ctx, uid, id)
	if err != nil {
		fail(c, "Update todo", err)
		return
	}
	createdAt, completedAt := todo.CreatedAt, todo.CompletedAt
	if !bindOverlay(c, todo) {
		return
	}
	now := time.Now().UTC()
	todo.ID = id
	todo.UserID = uid
	todo.CreatedAt = createdAt
	todo.CompletedAt = completedAt
	todo.UpdatedAt = now
	todo.StampCompletion(now)
	if err := h.checkTodo(ctx, uid, todo); err != nil {
		fail(c, "Update todo", err)
		return
	}
	cmd := &models.Command{
		Action:      models.ActionUpdate,
		Entity:      models.EntityTodo,
		ID:          id,
		UserID:      uid,
		Todo:        todo,
		RequestedAt: now,
	}
	if !h.publish(c, cmd) {
		return
	}
	c.JSON(http.StatusOK, todo)
}

// DeleteTodo is idempotent: deleting a missing todo still succeeds.
func (h *Handlers) DeleteTodo(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	cmd := &models.Command{
		Action:      models.ActionDelete,
		Entity:      models.EntityTodo,
		ID:          c.Param("id"),
		UserID:      uid,
		RequestedAt: time.Now().UTC(),
	}
	if !h.publish(c, cmd) {
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: models.TodoDeletedMessage})
}

// maxParentDepth bounds the ancestor walk in checkTodo.
const maxParentDepth = 64

// checkTodo validates fields and that referenced project and parent belong to
// the caller. The parent chain must not lead back to t.
func (h *Handlers) checkTodo(ctx context.Context, uid string, t *models.Todo) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ProjectID != nil {
		if _, err := h.store.GetProject(ctx, uid, *t.ProjectID); err != nil {
			return refErr("project_id", err)
		}
	}
	if t.ParentTodoID == nil {
		return nil
	}
	parent, err := h.store.GetTodo(ctx, uid, *t.ParentTodoID)
	if err != nil {
		return refErr("parent_todo_id", err)
	}
	for depth := 1; parent.ParentTodoID != nil; depth++ {
		if *parent.ParentTodoID == t.ID {
			return fmt.Errorf("%w: parent_todo_id would create a cycle", models.ErrInvalid)
		}
		if depth >= maxParentDepth {
			return fmt.Errorf("%w: parent chain deeper than %d", models.ErrInvalid, maxParentDepth)
		}
		parent, err = h.store.GetTodo(ctx, uid, *parent.ParentTodoID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func refErr(field string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: %s does not exist", models.ErrInvalid, field)
	}
	return err
}

// publish hands cmd to the publisher, writing an error response on failure.
func (h *Handlers) publish(c *gin.Context, cmd *models.Command) bool {
	ctx := c.Request.Context()
	err := h.publisher.Publish(ctx, cmd)
	if err == nil {
		return true
	}
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalid) || ctx.Err() != nil {
		fail(c, "Publish", err)
		return false
	}
	logger.Error(ctx, "Publish command failed", "error", err, "action", cmd.Action, "entity", cmd.Entity, "id", cmd.ID)
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request queued failed"})
	return false
}

// bindOverlay decodes the JSON body onto dst, leaving absent fields untouched.
// An empty body is accepted.
func bindOverlay(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return false
	}
	return true
}

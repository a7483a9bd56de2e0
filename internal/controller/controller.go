package controller

import (
	"context"
	"errors"
	"net/http"

	"taskflow/internal/ai"
	"taskflow/internal/middleware"
	"taskflow/internal/models"
	"taskflow/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

// Store is the read side of the repository.
type Store interface {
	ListTodos(ctx context.Context, userID string, f models.TodoFilter, limit, offset int) ([]models.Todo, int, error)
	GetTodo(ctx context.Context, userID, id string) (*models.Todo, error)
	ListProjects(ctx context.Context, userID string, limit, offset int) ([]models.Project, int, error)
	GetProject(ctx context.Context, userID, id string) (*models.Project, error)
}

// PageCache holds rendered list pages. Pages are stored under the version
// read before they were loaded.
type PageCache interface {
	Get(ctx context.Context, userID, kind, key string) ([]byte, bool)
	Version(ctx context.Context, userID, kind string) (string, bool)
	SetAsync(userID, kind, version, key string, b []byte)
}

// Publisher hands a write command to the queue (or applies it inline).
type Publisher interface {
	Publish(ctx context.Context, cmd *models.Command) error
}

// Pinger reports dependency health for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers serves the live API.
type Handlers struct {
	store     Store
	cache     PageCache
	publisher Publisher
	generator ai.Generator
	checks    map[string]Pinger
	reads     singleflight.Group
}

// Option configures Handlers.
type Option func(*Handlers)

// WithCache enables cache-first list reads.
func WithCache(c PageCache) Option {
	return func(h *Handlers) { h.cache = c }
}

// WithReadinessCheck adds a named dependency to /ready.
func WithReadinessCheck(name string, p Pinger) Option {
	return func(h *Handlers) { h.checks[name] = p }
}

// New builds live handlers.
func New(store Store, publisher Publisher, generator ai.Generator, opts ...Option) *Handlers {
	h := &Handlers{
		store:     store,
		publisher: publisher,
		generator: generator,
		checks:    map[string]Pinger{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the authenticated routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/todos", h.GetTodos)
	r.GET("/todos/:id", h.GetTodo)
	r.POST("/todos", h.CreateTodo)
	r.PUT("/todos/:id", h.UpdateTodo)
	r.DELETE("/todos/:id", h.DeleteTodo)

	r.GET("/projects", h.GetProjects)
	r.GET("/projects/:id", h.GetProject)
	r.POST("/projects", h.CreateProject)
	r.PUT("/projects/:id", h.UpdateProject)
	r.DELETE("/projects/:id", h.DeleteProject)

	r.POST("/ai/generate-subtasks", h.GenerateSubtasks)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// currentUser returns the caller or writes 401.
func currentUser(c *gin.Context) (string, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return uid, true
}

// fail maps an error to a response: 404 for ErrNotFound, 400 for ErrInvalid,
// nothing for a cancelled request, 500 otherwise.
func fail(c *gin.Context, op string, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, models.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
	case ctx.Err() != nil || isContextErr(err):
		c.Abort()
	default:
		logger.Error(ctx, op+" failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
}

func pageParams(c *gin.Context) (models.PageParams, bool) {
	p, err := models.ParsePageParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return p, false
	}
	return p, true
}

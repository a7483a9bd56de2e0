// Package mockapi serves the deterministic backend contract used by client
// integration tests. Handlers are stateless: every response is computed from
// the request and the fixtures alone.
package mockapi

import (
	"errors"
	"io"
	"net/http"

	"taskflow/internal/ai"
	"taskflow/internal/models"
	"taskflow/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers serves the mock routes. Total is the simulated record count for
// list endpoints.
type Handlers struct {
	Total int
}

// New returns mock handlers reporting total records on list endpoints.
func New(total int) *Handlers {
	return &Handlers{Total: total}
}

// Register mounts every mock route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/todos", h.ListTodos)
	r.GET("/todos/error", h.ServerError)
	r.GET("/todos/unauthorized", h.Unauthorized)
	r.GET("/todos/:id", h.GetTodo)
	r.POST("/todos", h.CreateTodo)
	r.PUT("/todos/:id", h.UpdateTodo)
	r.DELETE("/todos/:id", h.DeleteTodo)

	r.GET("/projects", h.ListProjects)
	r.GET("/projects/:id", h.GetProject)
	r.POST("/projects", h.CreateProject)
	r.PUT("/projects/:id", h.UpdateProject)
	r.DELETE("/projects/:id", h.DeleteProject)

	r.POST("/ai/generate-subtasks", h.GenerateSubtasks)
}

func (h *Handlers) ListTodos(c *gin.Context) {
	p, ok := pageParams(c)
	if !ok {
		return
	}
	pages := models.PageCount(h.Total, p.Limit)
	items := pageItem(MockTodo(), func(t *models.Todo, id string) { t.ID = id }, p.Page, pages)
	c.JSON(http.StatusOK, models.NewPage(items, h.Total, p.Page, p.Limit))
}

func (h *Handlers) GetTodo(c *gin.Context) {
	todo := MockTodo()
	todo.ID = c.Param("id")
	c.JSON(http.StatusOK, todo)
}

// CreateTodo overlays the body on the fixture and assigns NewTodoID.
func (h *Handlers) CreateTodo(c *gin.Context) {
	todo := MockTodo()
	if !bindOverlay(c, &todo) {
		return
	}
	todo.ID = NewTodoID
	c.JSON(http.StatusCreated, todo)
}

// UpdateTodo overlays the body on the fixture; the path id wins over any body id.
func (h *Handlers) UpdateTodo(c *gin.Context) {
	todo := MockTodo()
	if !bindOverlay(c, &todo) {
		return
	}
	todo.ID = c.Param("id")
	c.JSON(http.StatusOK, todo)
}

func (h *Handlers) DeleteTodo(c *gin.Context) {
	c.JSON(http.StatusOK, models.MessageResponse{Message: models.TodoDeletedMessage})
}

func (h *Handlers) ListProjects(c *gin.Context) {
	p, ok := pageParams(c)
	if !ok {
		return
	}
	pages := models.PageCount(h.Total, p.Limit)
	items := pageItem(MockProject(), func(pr *models.Project, id string) { pr.ID = id }, p.Page, pages)
	c.JSON(http.StatusOK, models.NewPage(items, h.Total, p.Page, p.Limit))
}

func (h *Handlers) GetProject(c *gin.Context) {
	project := MockProject()
	project.ID = c.Param("id")
	c.JSON(http.StatusOK, project)
}

func (h *Handlers) CreateProject(c *gin.Context) {
	project := MockProject()
	if !bindOverlay(c, &project) {
		return
	}
	project.ID = NewProjectID
	keepCounters(&project)
	c.JSON(http.StatusCreated, project)
}

func (h *Handlers) UpdateProject(c *gin.Context) {
	project := MockProject()
	if !bindOverlay(c, &project) {
		return
	}
	project.ID = c.Param("id")
	keepCounters(&project)
	c.JSON(http.StatusOK, project)
}

func (h *Handlers) DeleteProject(c *gin.Context) {
	c.JSON(http.StatusOK, models.MessageResponse{Message: models.ProjectDeletedMessage})
}

// GenerateSubtasks always answers with the fixed two-item list; the requested
// bounds are accepted but not applied. An empty body is accepted.
func (h *Handlers) GenerateSubtasks(c *gin.Context) {
	ctx := c.Request.Context()
	var body models.GenerateSubtasksRequest
	if !bindOverlay(c, &body) {
		return
	}
	subtasks := ai.FixedSubtasks()
	logger.Debug(ctx, "Mock subtasks generated", "todo_id", body.TodoID, "count", len(subtasks))
	c.JSON(http.StatusOK, models.GenerateSubtasksResponse{Subtasks: subtasks})
}

func (h *Handlers) ServerError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": ServerErrorMessage})
}

func (h *Handlers) Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": UnauthorizedMessage})
}

func pageParams(c *gin.Context) (models.PageParams, bool) {
	p, err := models.ParsePageParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return p, false
	}
	return p, true
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

func keepCounters(p *models.Project) {
	fixture := MockProject()
	p.TodoCount = fixture.TodoCount
	p.CompletedTodoCount = fixture.CompletedTodoCount
}

package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"taskflow/internal/cache"
	"taskflow/internal/middleware"
	"taskflow/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	todos    map[string]models.Todo
	projects map[string]models.Project
	listErr  error
	lists    int
	onList   func()
}

func newMemStore() *memStore {
	return &memStore{todos: map[string]models.Todo{}, projects: map[string]models.Project{}}
}

func (s *memStore) ListTodos(ctx context.Context, userID string, f models.TodoFilter, limit, offset int) ([]models.Todo, int, error) {
	s.lists++
	if s.onList != nil {
		s.onList()
	}
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var out []models.Todo
	for _, t := range s.todos {
		if t.UserID == userID && (f.Status == "" || t.Status == f.Status) {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func (s *memStore) GetTodo(ctx context.Context, userID, id string) (*models.Todo, error) {
	t, ok := s.todos[id]
	if !ok || t.UserID != userID {
		return nil, models.ErrNotFound
	}
	return &t, nil
}

func (s *memStore) ListProjects(ctx context.Context, userID string, limit, offset int) ([]models.Project, int, error) {
	var out []models.Project
	for _, p := range s.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (s *memStore) GetProject(ctx context.Context, userID, id string) (*models.Project, error) {
	p, ok := s.projects[id]
	if !ok || p.UserID != userID {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

type recordingPublisher struct {
	cmds []*models.Command
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, cmd *models.Command) error {
	if p.err != nil {
		return p.err
	}
	p.cmds = append(p.cmds, cmd)
	return nil
}

type memCache struct {
	mu       sync.Mutex
	versions map[string]int
	pages    map[string][]byte
	sets     chan struct{}
}

func newMemCache() *memCache {
	return &memCache{versions: map[string]int{}, pages: map[string][]byte{}, sets: make(chan struct{}, 8)}
}

func (c *memCache) Get(ctx context.Context, userID, kind, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.pages[userID+"|"+kind+"|"+strconv.Itoa(c.versions[userID+"|"+kind])+"|"+key]
	return b, ok
}

func (c *memCache) Version(ctx context.Context, userID, kind string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strconv.Itoa(c.versions[userID+"|"+kind]), true
}

func (c *memCache) SetAsync(userID, kind, version, key string, b []byte) {
	c.mu.Lock()
	c.pages[userID+"|"+kind+"|"+version+"|"+key] = b
	c.mu.Unlock()
	c.sets <- struct{}{}
}

func (c *memCache) invalidate(userID, kind string) {
	c.mu.Lock()
	c.versions[userID+"|"+kind]++
	c.mu.Unlock()
}

func (c *memCache) waitSet(t *testing.T) {
	t.Helper()
	select {
	case <-c.sets:
	case <-time.After(time.Second):
		t.Fatal("page was not cached")
	}
}

type stubGenerator struct {
	lo, hi int
	out    []models.Subtask
	err    error
}

func (g *stubGenerator) Generate(ctx context.Context, todo *models.Todo, lo, hi int) ([]models.Subtask, error) {
	g.lo, g.hi = lo, hi
	return g.out, g.err
}

type fixture struct {
	store *memStore
	pub   *recordingPublisher
	cache *memCache
	gen   *stubGenerator
	r     *gin.Engine
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{store: newMemStore(), pub: &recordingPublisher{}, cache: newMemCache(), gen: &stubGenerator{}}
	h := New(f.store, f.pub, f.gen, WithCache(f.cache))
	f.r = gin.New()
	f.r.Use(func(c *gin.Context) {
		if u := c.GetHeader("X-Test-User"); u != "" {
			c.Set(middleware.UserKey, u)
		}
	})
	h.Register(f.r)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "u1")
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestUnauthenticated(t *testing.T) {
	f := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetTodos_CachesPage(t *testing.T) {
	f := setup(t)
	f.store.todos["t1"] = models.Todo{ID: "t1", UserID: "u1", Title: "A", Status: models.StatusTodo, Priority: 3}
	f.store.todos["t2"] = models.Todo{ID: "t2", UserID: "u2", Title: "B", Status: models.StatusTodo, Priority: 3}

	w := f.do(t, http.MethodGet, "/todos?page=1&limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[models.Page[models.Todo]](t, w)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Pages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "t1", page.Items[0].ID)

	f.cache.waitSet(t)

	w = f.do(t, http.MethodGet, "/todos?page=1&limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.store.lists, "second read served from cache")
}

func TestGetTodos_WriteDuringLoadIsNotCached(t *testing.T) {
	f := setup(t)
	f.store.todos["t1"] = models.Todo{ID: "t1", UserID: "u1", Title: "A", Status: models.StatusTodo, Priority: 3}
	f.store.onList = func() { f.cache.invalidate("u1", cache.KindTodos) }

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/todos", "").Code)
	f.cache.waitSet(t)
	f.store.onList = nil

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/todos", "").Code)
	assert.Equal(t, 2, f.store.lists, "page rendered before the write is not served")
	f.cache.waitSet(t)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/todos", "").Code)
	assert.Equal(t, 2, f.store.lists)
}

func TestGetTodos_BadParams(t *testing.T) {
	f := setup(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/todos?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/todos?status=blocked", "").Code)
}

func TestGetTodos_StoreError(t *testing.T) {
	f := setup(t)
	f.store.listErr = errors.New("db down")
	w := f.do(t, http.MethodGet, "/todos", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, decode[models.ErrorResponse](t, w).Error)
}

func TestCreateTodo(t *testing.T) {
	f := setup(t)
	f.store.projects["p1"] = models.Project{ID: "p1", UserID: "u1", Name: "Home"}

	w := f.do(t, http.MethodPost, "/todos", `{"id":"mine","user_id":"u9","title":"Mow lawn","project_id":"p1","status":"done"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	td := decode[models.Todo](t, w)
	assert.NotEqual(t, "mine", td.ID)
	assert.NotEmpty(t, td.ID)
	assert.Equal(t, "u1", td.UserID)
	assert.Equal(t, models.DefaultPriority, td.Priority)
	assert.NotNil(t, td.CompletedAt)
	assert.False(t, td.CreatedAt.IsZero())

	require.Len(t, f.pub.cmds, 1)
	cmd := f.pub.cmds[0]
	assert.Equal(t, models.ActionCreate, cmd.Action)
	assert.Equal(t, models.EntityTodo, cmd.Entity)
	assert.Equal(t, td.ID, cmd.Todo.ID)
}

func TestCreateTodo_IDsAreFresh(t *testing.T) {
	f := setup(t)
	a := decode[models.Todo](t, f.do(t, http.MethodPost, "/todos", `{"title":"a"}`))
	b := decode[models.Todo](t, f.do(t, http.MethodPost, "/todos", `{"title":"b"}`))
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateTodo_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{}`},
		{"bad priority", `{"title":"x","priority":9}`},
		{"bad status", `{"title":"x","status":"later"}`},
		{"unknown project", `{"title":"x","project_id":"nope"}`},
		{"unknown parent", `{"title":"x","parent_todo_id":"nope"}`},
		{"malformed", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			w := f.do(t, http.MethodPost, "/todos", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, f.pub.cmds)
		})
	}
}

func TestCreateTodo_PublishFailure(t *testing.T) {
	f := setup(t)
	f.pub.err = errors.New("broker down")
	w := f.do(t, http.MethodPost, "/todos", `{"title":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUpdateTodo_PathIDWins(t *testing.T) {
	f := setup(t)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.store.todos["abc"] = models.Todo{ID: "abc", UserID: "u1", Title: "Old", Status: models.StatusDone,
		Priority: 2, CompletedAt: &created, CreatedAt: created, UpdatedAt: created}

	w := f.do(t, http.MethodPut, "/todos/abc", `{"id":"ignored","title":"Y","status":"in_progress","created_at":"2030-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)

	td := decode[models.Todo](t, w)
	assert.Equal(t, "abc", td.ID)
	assert.Equal(t, "Y", td.Title)
	assert.Equal(t, 2, td.Priority, "absent fields keep stored values")
	assert.Equal(t, models.StatusInProgress, td.Status)
	assert.Nil(t, td.CompletedAt, "leaving done clears completed_at")
	assert.Equal(t, created, td.CreatedAt)

	require.Len(t, f.pub.cmds, 1)
	assert.Equal(t, "abc", f.pub.cmds[0].ID)
	assert.Equal(t, "abc", f.pub.cmds[0].Todo.ID)
}

func TestUpdateTodo_CompletedAtIsServerStamped(t *testing.T) {
	f := setup(t)
	stamped := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.store.todos["done"] = models.Todo{ID: "done", UserID: "u1", Title: "D", Status: models.StatusDone,
		Priority: 3, CompletedAt: &stamped}
	f.store.todos["open"] = models.Todo{ID: "open", UserID: "u1", Title: "O", Status: models.StatusTodo, Priority: 3}

	w := f.do(t, http.MethodPut, "/todos/done", `{"title":"Z","completed_at":"2030-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)
	td := decode[models.Todo](t, w)
	require.NotNil(t, td.CompletedAt)
	assert.Equal(t, stamped, *td.CompletedAt)

	before := time.Now().UTC().Add(-time.Second)
	w = f.do(t, http.MethodPut, "/todos/open", `{"status":"done","completed_at":"2030-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)
	td = decode[models.Todo](t, w)
	require.NotNil(t, td.CompletedAt)
	assert.True(t, td.CompletedAt.After(before))
	assert.True(t, td.CompletedAt.Before(time.Now().Add(time.Minute)))
}

func TestTodoParentChain(t *testing.T) {
	ptr := func(s string) *string { return &s }
	todo := func(id string, parent *string) models.Todo {
		return models.Todo{ID: id, UserID: "u1", Title: id, Status: models.StatusTodo, Priority: 3, ParentTodoID: parent}
	}

	tests := []struct {
		name   string
		stored []models.Todo
		method string
		path   string
		body   string
		status int
	}{
		{
			name:   "two-step loop",
			stored: []models.Todo{todo("a", ptr("b")), todo("b", nil)},
			method: http.MethodPut, path: "/todos/b", body: `{"parent_todo_id":"a"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "three-step loop",
			stored: []models.Todo{todo("a", ptr("b")), todo("b", ptr("c")), todo("c", nil)},
			method: http.MethodPut, path: "/todos/c", body: `{"parent_todo_id":"a"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "own parent",
			stored: []models.Todo{todo("b", nil)},
			method: http.MethodPut, path: "/todos/b", body: `{"parent_todo_id":"b"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "existing loop above the parent",
			stored: []models.Todo{todo("x", ptr("y")), todo("y", ptr("x"))},
			method: http.MethodPost, path: "/todos", body: `{"title":"n","parent_todo_id":"x"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "reparent under a chain",
			stored: []models.Todo{todo("a", ptr("b")), todo("b", nil), todo("c", nil)},
			method: http.MethodPut, path: "/todos/c", body: `{"parent_todo_id":"a"}`,
			status: http.StatusOK,
		},
		{
			name:   "create under a chain",
			stored: []models.Todo{todo("a", ptr("b")), todo("b", nil)},
			method: http.MethodPost, path: "/todos", body: `{"title":"n","parent_todo_id":"a"}`,
			status: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			for _, td := range tt.stored {
				f.store.todos[td.ID] = td
			}
			w := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status >= http.StatusBadRequest {
				assert.Empty(t, f.pub.cmds)
			}
		})
	}
}

func TestUpdateTodo_NotFound(t *testing.T) {
	f := setup(t)
	f.store.todos["other"] = models.Todo{ID: "other", UserID: "u2", Title: "x", Status: models.StatusTodo, Priority: 3}

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/todos/missing", `{"title":"Y"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/todos/other", `{"title":"Y"}`).Code)
	assert.Empty(t, f.pub.cmds)
}

func TestDeleteTodo_Idempotent(t *testing.T) {
	f := setup(t)
	for i := 0; i < 2; i++ {
		w := f.do(t, http.MethodDelete, "/todos/never-existed", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.TodoDeletedMessage, decode[models.MessageResponse](t, w).Message)
	}
	assert.Len(t, f.pub.cmds, 2)
}

func TestGetTodo(t *testing.T) {
	f := setup(t)
	f.store.todos["t1"] = models.Todo{ID: "t1", UserID: "u1", Title: "A"}

	assert.Equal(t, "A", decode[models.Todo](t, f.do(t, http.MethodGet, "/todos/t1", "")).Title)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/todos/t2", "").Code)
}

func TestProjects(t *testing.T) {
	f := setup(t)

	w := f.do(t, http.MethodPost, "/projects", `{"name":"X","todo_count":7}`)
	require.Equal(t, http.StatusCreated, w.Code)
	p := decode[models.Project](t, w)
	assert.Equal(t, "X", p.Name)
	assert.NotEmpty(t, p.ID)
	assert.Zero(t, p.TodoCount)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/projects", `{"description":"no name"}`).Code)

	f.store.projects["p1"] = models.Project{ID: "p1", UserID: "u1", Name: "Home", TodoCount: 4, CompletedTodoCount: 1}
	w = f.do(t, http.MethodPut, "/projects/p1", `{"id":"zzz","name":"House","todo_count":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	p = decode[models.Project](t, w)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "House", p.Name)
	assert.Equal(t, 4, p.TodoCount)
	assert.Equal(t, 1, p.CompletedTodoCount)

	w = f.do(t, http.MethodDelete, "/projects/p1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ProjectDeletedMessage, decode[models.MessageResponse](t, w).Message)

	page := decode[models.Page[models.Project]](t, f.do(t, http.MethodGet, "/projects", ""))
	assert.Equal(t, 1, page.Total)

	require.Len(t, f.pub.cmds, 3)
	assert.Equal(t, models.EntityProject, f.pub.cmds[2].Entity)
	assert.Equal(t, models.ActionDelete, f.pub.cmds[2].Action)
}

func TestGenerateSubtasks(t *testing.T) {
	f := setup(t)
	f.store.todos["t1"] = models.Todo{ID: "t1", UserID: "u1", Title: "Plan trip"}
	f.gen.out = []models.Subtask{{Title: "Book flights", Priority: 4}, {Title: "Pack", Priority: 2}, {Title: "Go", Priority: 1}}

	w := f.do(t, http.MethodPost, "/ai/generate-subtasks", `{"todo_id":"t1","min_subtasks":1,"max_subtasks":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.GenerateSubtasksResponse](t, w)
	require.Len(t, resp.Subtasks, 2, "bounded by max_subtasks")
	assert.Equal(t, 1, resp.Subtasks[0].Order)
	assert.Equal(t, 2, resp.Subtasks[1].Order)
	assert.Equal(t, 1, f.gen.lo)
	assert.Equal(t, 2, f.gen.hi)
}

func TestGenerateSubtasks_Errors(t *testing.T) {
	f := setup(t)
	f.store.todos["t1"] = models.Todo{ID: "t1", UserID: "u1", Title: "Plan trip"}

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/ai/generate-subtasks", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/ai/generate-subtasks", `{"todo_id":"nope"}`).Code)

	f.gen.err = errors.New("model offline")
	assert.Equal(t, http.StatusBadGateway, f.do(t, http.MethodPost, "/ai/generate-subtasks", `{"todo_id":"t1"}`).Code)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	down := false
	h := New(newMemStore(), &recordingPublisher{}, &stubGenerator{},
		WithReadinessCheck("database", pingFunc(func(ctx context.Context) error {
			if down {
				return errors.New("down")
			}
			return nil
		})))
	r := gin.New()
	r.GET("/health", Health)
	r.GET("/ready", h.Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	down = true
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "database unavailable")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "OK", w.Body.String())
}

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskflow/internal/ai"
	"taskflow/internal/controller"
	"taskflow/internal/middleware"
	"taskflow/internal/mockapi"
	"taskflow/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyStore struct{}

func (emptyStore) ListTodos(ctx context.Context, userID string, f models.TodoFilter, limit, offset int) ([]models.Todo, int, error) {
	return nil, 0, nil
}

func (emptyStore) GetTodo(ctx context.Context, userID, id string) (*models.Todo, error) {
	return nil, models.ErrNotFound
}

func (emptyStore) ListProjects(ctx context.Context, userID string, limit, offset int) ([]models.Project, int, error) {
	return nil, 0, nil
}

func (emptyStore) GetProject(ctx context.Context, userID, id string) (*models.Project, error) {
	return nil, models.ErrNotFound
}

type dropPublisher struct{}

func (dropPublisher) Publish(ctx context.Context, cmd *models.Command) error { return nil }

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMockRouter(t *testing.T) {
	r := Mock(mockapi.New(1), middleware.NewMetrics())

	w := get(r, "/todos", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	assert.Equal(t, http.StatusOK, get(r, "/health", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ready", "").Code)
	assert.Equal(t, http.StatusInternalServerError, get(r, "/todos/error", "").Code)

	metrics := get(r, "/metrics", "")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `taskflow_http_requests_total{method="GET",route="/todos",status="200"} 1`)
}

func TestLiveRouter_RequiresToken(t *testing.T) {
	const secret = "router-secret"
	h := controller.New(emptyStore{}, dropPublisher{}, ai.Fixed{})
	r := Live(h, secret, middleware.NewMetrics())

	assert.Equal(t, http.StatusOK, get(r, "/health", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ready", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/todos", "").Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	w := get(r, "/todos", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"total":0,"page":1,"limit":10,"pages":0}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, get(r, "/projects/missing", token).Code)
}

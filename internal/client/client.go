// Package client is a typed HTTP client for the todo and project API.
// It speaks the same JSON as the server in either mode.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/models"
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client calls the API at a base URL.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends a Bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig targets the configured API_BASE_URL.
func FromConfig(opts ...Option) *Client {
	return New(config.Get().APIBaseURL, opts...)
}

// ListOptions selects a page and optional todo filters. Zero values are omitted.
type ListOptions struct {
	Page         int
	Limit        int
	ProjectID    string
	ParentTodoID string
	Status       models.TodoStatus
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.ProjectID != "" {
		q.Set("project_id", o.ProjectID)
	}
	if o.ParentTodoID != "" {
		q.Set("parent_todo_id", o.ParentTodoID)
	}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) ListTodos(ctx context.Context, opts ListOptions) (*models.Page[models.Todo], error) {
	var page models.Page[models.Todo]
	if err := c.do(ctx, http.MethodGet, "/todos"+opts.query(), nil, &page); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return &page, nil
}

func (c *Client) GetTodo(ctx context.Context, id string) (*models.Todo, error) {
	var todo models.Todo
	if err := c.do(ctx, http.MethodGet, "/todos/"+url.PathEscape(id), nil, &todo); err != nil {
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return &todo, nil
}

func (c *Client) CreateTodo(ctx context.Context, body models.TodoPatch) (*models.Todo, error) {
	var todo models.Todo
	if err := c.do(ctx, http.MethodPost, "/todos", body, &todo); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return &todo, nil
}

// UpdateTodo sends only the non-nil fields of body.
func (c *Client) UpdateTodo(ctx context.Context, id string, body models.TodoPatch) (*models.Todo, error) {
	var todo models.Todo
	if err := c.do(ctx, http.MethodPut, "/todos/"+url.PathEscape(id), body, &todo); err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return &todo, nil
}

// DeleteTodo returns the server's confirmation message.
func (c *Client) DeleteTodo(ctx context.Context, id string) (string, error) {
	var msg models.MessageResponse
	if err := c.do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, &msg); err != nil {
		return "", fmt.Errorf("delete todo: %w", err)
	}
	return msg.Message, nil
}

// ListProjects ignores the todo filters in opts.
func (c *Client) ListProjects(ctx context.Context, opts ListOptions) (*models.Page[models.Project], error) {
	var page models.Page[models.Project]
	q := ListOptions{Page: opts.Page, Limit: opts.Limit}.query()
	if err := c.do(ctx, http.MethodGet, "/projects"+q, nil, &page); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return &page, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), nil, &project); err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &project, nil
}

func (c *Client) CreateProject(ctx context.Context, body models.ProjectPatch) (*models.Project, error) {
	var project models.Project
	if err := c.do(ctx, http.MethodPost, "/projects", body, &project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &project, nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, body models.ProjectPatch) (*models.Project, error) {
	var project models.Project
	if err := c.do(ctx, http.MethodPut, "/projects/"+url.PathEscape(id), body, &project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return &project, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) (string, error) {
	var msg models.MessageResponse
	if err := c.do(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id), nil, &msg); err != nil {
		return "", fmt.Errorf("delete project: %w", err)
	}
	return msg.Message, nil
}

func (c *Client) GenerateSubtasks(ctx context.Context, req models.GenerateSubtasksRequest) ([]models.Subtask, error) {
	var resp models.GenerateSubtasksResponse
	if err := c.do(ctx, http.MethodPost, "/ai/generate-subtasks", req, &resp); err != nil {
		return nil, fmt.Errorf("generate subtasks: %w", err)
	}
	return resp.Subtasks, nil
}

// SimulateError calls GET /{resource}/error, which always fails with 500.
func (c *Client) SimulateError(ctx context.Context, resource string) error {
	return c.do(ctx, http.MethodGet, "/"+resource+"/error", nil, nil)
}

// SimulateUnauthorized calls GET /{resource}/unauthorized, which always fails with 401.
func (c *Client) SimulateUnauthorized(ctx context.Context, resource string) error {
	return c.do(ctx, http.MethodGet, "/"+resource+"/unauthorized", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFrom(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorFrom(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body models.ErrorResponse
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

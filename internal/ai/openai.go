package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"taskflow/internal/models"
	"taskflow/pkg/logger"

	"github.com/sashabaranov/go-openai"
)

// ErrEmptyCompletion is returned when the model answers with no usable subtasks.
var ErrEmptyCompletion = errors.New("model returned no subtasks")

const systemPrompt = `You split a task into concrete subtasks.
Reply with a JSON object {"subtasks":[{"title":string,"description":string,"priority":1-5,"estimated_time":string}]}.
Priority 1 is lowest and 5 is highest. Do not add any other keys.`

// OpenAI asks an OpenAI-compatible chat completion endpoint for subtasks.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds a generator for the given endpoint. baseURL may point at any
// OpenAI-compatible server (Ollama, vLLM, a test double).
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (g *OpenAI) Generate(ctx context.Context, todo *models.Todo, lo, hi int) ([]models.Subtask, error) {
	lo, hi = Bounds(lo, hi)
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(todo, lo, hi)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}
	var out models.GenerateSubtasksResponse
	if err := json.Unmarshal([]byte(extractJSON(resp.Choices[0].Message.Content)), &out); err != nil {
		return nil, fmt.Errorf("decode subtasks: %w", err)
	}
	subtasks := Normalize(out.Subtasks, hi)
	if len(subtasks) == 0 {
		return nil, ErrEmptyCompletion
	}
	if len(subtasks) < lo {
		logger.Warn(ctx, "Model returned fewer subtasks than requested", "want_min", lo, "got", len(subtasks))
	}
	return subtasks, nil
}

func userPrompt(todo *models.Todo, lo, hi int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", todo.Title)
	if todo.Description != nil && *todo.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", *todo.Description)
	}
	fmt.Fprintf(&b, "Produce between %d and %d subtasks in execution order.", lo, hi)
	return b.String()
}

// extractJSON strips a surrounding markdown code fence if the model added one.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

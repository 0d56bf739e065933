// Package model defines the minimal language-model interface workflow steps
// depend on, plus a deterministic mock used by tests and local development.
// Provider adapters live in subpackages (anthropic, openai).
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/planmesh/planmesh/core"
)

// Request captures one generation call: system instructions, the prior
// conversation, and the prompt for this turn.
type Request struct {
	Instructions string         `json:"instructions,omitempty"`
	History      []core.Message `json:"history,omitempty"`
	Prompt       string         `json:"prompt"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completed generation for one request.
type Response struct {
	Text  string      `json:"text"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the single opaque capability workflow steps call. Implementations
// are fallible and latent; the executor adds no retry, so callers needing
// resilience wrap the model themselves.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
// Responses are keyed by prompt; unknown prompts echo a deterministic reply.
type MockModel struct {
	mu        sync.RWMutex
	info      Info
	responses map[string]string
	err       error
	calls     int
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailWith makes every subsequent Generate call return err.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many Generate calls the mock has served.
func (m *MockModel) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Generate implements Model.
func (m *MockModel) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	text, ok := m.responses[req.Prompt]
	if !ok {
		text = fmt.Sprintf("Mock response to: %s", req.Prompt)
	}
	return &Response{Text: text}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

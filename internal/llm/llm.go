// Package llm adapts hosted generative-model APIs to the transcript/tool vocabulary used by
// the agent.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/comigor/chat-relay/internal/config"
	"github.com/comigor/chat-relay/internal/history"
)

// ToolDeclaration describes a tool the model may ask to invoke. Parameters is a JSON schema.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCall is a model request to run a declared tool.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// Output is either reply text or one or more tool calls.
type Output struct {
	Text      string
	ToolCalls []ToolCall
}

// HasToolCalls reports whether the model asked for a tool instead of answering.
func (o Output) HasToolCalls() bool {
	return len(o.ToolCalls) > 0
}

// Options tune a single Generate call. A nil Tools slice disables tool use.
type Options struct {
	SystemInstruction string
	Tools             []ToolDeclaration
}

// Client is the minimal surface the agent needs from a model provider; it is easy to mock
// in tests.
type Client interface {
	Generate(ctx context.Context, transcript []history.Turn, opts Options) (Output, error)
}

// NewClient builds the provider selected by cfg.Provider.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

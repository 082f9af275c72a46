package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/chat-relay/internal/config"
	"github.com/comigor/chat-relay/internal/history"
)

// ChatCompleter is the subset of openai.Client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements Client on any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	api   ChatCompleter
	model string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return NewOpenAIClientFrom(openai.NewClientWithConfig(oc), cfg.Model)
}

// NewOpenAIClientFrom wraps an existing completer, e.g. a test double.
func NewOpenAIClientFrom(api ChatCompleter, model string) *OpenAIClient {
	return &OpenAIClient{api: api, model: model}
}

func (c *OpenAIClient) Generate(ctx context.Context, transcript []history.Turn, opts Options) (Output, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(transcript)+1)
	if opts.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.SystemInstruction,
		})
	}
	for _, t := range transcript {
		role := openai.ChatMessageRoleUser
		if t.Role == history.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Text()})
	}

	var tools []openai.Tool
	for _, d := range opts.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return Output{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Output{}, errors.New("openai chat completion: no choices returned")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return Output{Text: msg.Content}, nil
	}

	out := Output{ToolCalls: make([]ToolCall, 0, len(msg.ToolCalls))}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return Output{}, fmt.Errorf("openai tool call %s: invalid arguments: %w", tc.Function.Name, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{Name: tc.Function.Name, Arguments: args})
	}
	return out, nil
}

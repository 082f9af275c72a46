package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/chat-relay/internal/config"
	"github.com/comigor/chat-relay/internal/history"
)

type mockCompleter struct {
	got  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (m *mockCompleter) CreateChatCompletion(_ context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.got = r
	return m.resp, m.err
}

func TestOpenAIGenerate_Text(t *testing.T) {
	mock := &mockCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "hi there"}}},
	}}
	c := NewOpenAIClientFrom(mock, "gpt-4o")

	out, err := c.Generate(context.Background(),
		[]history.Turn{history.UserTurn("hello"), history.ModelTurn("prev")},
		Options{SystemInstruction: "sys", Tools: []ToolDeclaration{searchDecl}})
	require.NoError(t, err)
	require.Equal(t, Output{Text: "hi there"}, out)

	require.Equal(t, "gpt-4o", mock.got.Model)
	require.Len(t, mock.got.Messages, 3)
	require.Equal(t, openai.ChatMessageRoleSystem, mock.got.Messages[0].Role)
	require.Equal(t, "sys", mock.got.Messages[0].Content)
	require.Equal(t, openai.ChatMessageRoleUser, mock.got.Messages[1].Role)
	require.Equal(t, openai.ChatMessageRoleAssistant, mock.got.Messages[2].Role)
	require.Len(t, mock.got.Tools, 1)
	require.Equal(t, "search_web", mock.got.Tools[0].Function.Name)
}

func TestOpenAIGenerate_ToolCall(t *testing.T) {
	mock := &mockCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
			ToolCalls: []openai.ToolCall{{
				ID:       "call_123",
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: "search_web", Arguments: `{"query":"weather in Paris today"}`},
			}},
		}}},
	}}
	c := NewOpenAIClientFrom(mock, "gpt-4o")

	out, err := c.Generate(context.Background(), []history.Turn{history.UserTurn("weather?")}, Options{})
	require.NoError(t, err)
	require.Equal(t, []ToolCall{{Name: "search_web", Arguments: map[string]any{"query": "weather in Paris today"}}}, out.ToolCalls)
	require.Nil(t, mock.got.Tools)
}

func TestOpenAIGenerate_Errors(t *testing.T) {
	c := NewOpenAIClientFrom(&mockCompleter{err: context.DeadlineExceeded}, "m")
	_, err := c.Generate(context.Background(), nil, Options{})
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	c = NewOpenAIClientFrom(&mockCompleter{}, "m")
	_, err = c.Generate(context.Background(), nil, Options{})
	require.ErrorContains(t, err, "no choices")

	c = NewOpenAIClientFrom(&mockCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
			ToolCalls: []openai.ToolCall{{Function: openai.FunctionCall{Name: "search_web", Arguments: `{not json`}}},
		}}},
	}}, "m")
	_, err = c.Generate(context.Background(), nil, Options{})
	require.ErrorContains(t, err, "invalid arguments")
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(context.Background(), config.LLMConfig{Provider: config.ProviderOpenAI, Model: "gpt"})
	require.NoError(t, err)
	require.IsType(t, &OpenAIClient{}, c)

	_, err = NewClient(context.Background(), config.LLMConfig{Provider: "claude"})
	require.Error(t, err)
}

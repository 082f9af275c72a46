package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/chat-relay/internal/search"
)

type stubSearcher struct {
	queries []string
	records []search.Record
	err     error
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]search.Record, error) {
	s.queries = append(s.queries, query)
	return s.records, s.err
}

type namedTool struct{ name string }

func (n namedTool) Name() string                { return n.name }
func (n namedTool) Description() string         { return "desc " + n.name }
func (n namedTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (n namedTool) Invoke(context.Context, map[string]any) (Result, error) {
	return Result{}, nil
}

func TestToolManager_GetTool(t *testing.T) {
	m := NewToolManager(NewWebSearchTool(&stubSearcher{}))

	tool, err := m.GetTool(WebSearchToolName)
	require.NoError(t, err)
	require.Equal(t, WebSearchToolName, tool.Name())

	_, err = m.GetTool("get_weather")
	require.ErrorIs(t, err, ErrToolNotFound)
	require.ErrorContains(t, err, "get_weather")
}

func TestToolManager_Declarations(t *testing.T) {
	m := NewToolManager(namedTool{"zeta"}, NewWebSearchTool(&stubSearcher{}), namedTool{"alpha"})

	decls := m.Declarations()
	require.Len(t, decls, 3)
	require.Equal(t, "alpha", decls[0].Name)
	require.Equal(t, WebSearchToolName, decls[1].Name)
	require.Equal(t, "zeta", decls[2].Name)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(decls[1].Parameters, &schema))
	require.Equal(t, []any{"query"}, schema["required"])
}

func TestToolManager_Empty(t *testing.T) {
	m := NewToolManager()
	require.Empty(t, m.List())
	require.Nil(t, m.Declarations())
}

func TestWebSearchTool_Invoke(t *testing.T) {
	s := &stubSearcher{records: []search.Record{{Content: "Paris: 18°C, cloudy"}}}
	tool := NewWebSearchTool(s)

	res, err := tool.Invoke(context.Background(), map[string]any{"query": "weather in Paris today"})
	require.NoError(t, err)
	require.Equal(t, []search.Record{{Content: "Paris: 18°C, cloudy"}}, res.Records)
	require.Equal(t, []string{"weather in Paris today"}, s.queries)
}

func TestWebSearchTool_InvalidArguments(t *testing.T) {
	s := &stubSearcher{}
	tool := NewWebSearchTool(s)

	for _, args := range []map[string]any{nil, {}, {"query": ""}, {"query": 42}} {
		_, err := tool.Invoke(context.Background(), args)
		require.ErrorIs(t, err, ErrInvalidArguments)
	}
	require.Empty(t, s.queries)
}

func TestWebSearchTool_SearchError(t *testing.T) {
	boom := errors.New("tavily down")
	_, err := NewWebSearchTool(&stubSearcher{err: boom}).Invoke(context.Background(), map[string]any{"query": "q"})
	require.ErrorIs(t, err, boom)
}

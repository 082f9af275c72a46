package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/comigor/chat-relay/internal/search"
)

// WebSearchToolName is the name the model uses to request a search.
const WebSearchToolName = "search_web"

// ErrInvalidArguments is returned when the model calls a tool with unusable arguments.
var ErrInvalidArguments = errors.New("invalid tool arguments")

var webSearchSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "description": "The search query to find relevant information."
    }
  },
  "required": ["query"]
}`)

// WebSearchTool lets the model look things up on the web.
type WebSearchTool struct {
	searcher search.Searcher
}

// NewWebSearchTool creates a WebSearchTool backed by s
func NewWebSearchTool(s search.Searcher) *WebSearchTool {
	return &WebSearchTool{searcher: s}
}

// Name returns the name of the tool
func (t *WebSearchTool) Name() string { return WebSearchToolName }

// Description returns the description of the tool
func (t *WebSearchTool) Description() string {
	return "Useful for when you need to answer questions about current events or the world"
}

func (t *WebSearchTool) Parameters() json.RawMessage { return webSearchSchema }

// Invoke runs the search for args["query"].
func (t *WebSearchTool) Invoke(ctx context.Context, args map[string]any) (Result, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return Result{}, fmt.Errorf("%w: %s requires a non-empty string \"query\"", ErrInvalidArguments, WebSearchToolName)
	}
	records, err := t.searcher.Search(ctx, query)
	if err != nil {
		return Result{}, err
	}
	return Result{Records: records}, nil
}

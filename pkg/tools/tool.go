package tools

import (
	"context"
	"encoding/json"

	"github.com/comigor/chat-relay/internal/search"
)

// Result is what a tool hands back for the transcript. Records keep their ranking order.
type Result struct {
	Records []search.Record
}

// Tool is the interface for all tools
type Tool interface {
	Name() string
	Description() string
	// Parameters is the JSON schema of the arguments object.
	Parameters() json.RawMessage
	Invoke(ctx context.Context, args map[string]any) (Result, error)
}

// Package search wraps hosted web-search backends behind a single Searcher interface.
package search

import (
	"context"
	"fmt"

	"github.com/comigor/chat-relay/internal/config"
)

// Record is one ranked search hit. Content is the snippet fed back to the model.
type Record struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher runs a web query and returns ranked records.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Record, error)
}

// New builds the backend selected by cfg.Provider.
func New(ctx context.Context, cfg config.SearchConfig) (Searcher, error) {
	switch cfg.Provider {
	case config.SearchTavily:
		return NewTavilyClient(cfg), nil
	case config.SearchMCP:
		return NewMCPSearcher(ctx, cfg.MCP)
	default:
		return nil, fmt.Errorf("unsupported search provider %q", cfg.Provider)
	}
}

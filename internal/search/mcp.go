package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/comigor/chat-relay/internal/config"
	"github.com/comigor/chat-relay/internal/logger"
)

// MCPClientInterface is the subset of the mcp-go client the searcher relies on.
type MCPClientInterface interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// MCPSearcher delegates queries to a search tool exposed by an MCP server.
type MCPSearcher struct {
	client MCPClientInterface
	server string
	tool   string
}

// NewMCPSearcher connects to the configured MCP server and performs the initialize
// handshake.
func NewMCPSearcher(ctx context.Context, cfg config.MCPServerConfig) (*MCPSearcher, error) {
	var (
		mcpC *client.Client
		err  error
	)
	switch cfg.Type {
	case config.ClientTypeSSE:
		var opts []transport.ClientOption
		if len(cfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(cfg.Headers))
		}
		mcpC, err = client.NewSSEMCPClient(cfg.URL, opts...)
	case config.ClientTypeStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(cfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(cfg.Headers))
		}
		mcpC, err = client.NewStreamableHttpClient(cfg.URL, opts...)
	case config.ClientTypeStdio:
		var env []string
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", strings.ToUpper(k), v))
		}
		mcpC, err = client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	default:
		return nil, fmt.Errorf("unsupported MCP server type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("create MCP client %s: %w", cfg.Name, err)
	}

	// stdio clients start their transport on construction
	if cfg.Type != config.ClientTypeStdio {
		if err := mcpC.Start(ctx); err != nil {
			_ = mcpC.Close()
			return nil, fmt.Errorf("start MCP transport %s: %w", cfg.Name, err)
		}
	}

	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      mcp.Implementation{Name: "chat-relay", Version: "1.0.0"},
			Capabilities:    mcp.ClientCapabilities{},
		},
	}
	if _, err := mcpC.Initialize(ctx, initReq); err != nil {
		_ = mcpC.Close()
		return nil, fmt.Errorf("initialize MCP client %s: %w", cfg.Name, err)
	}
	logger.L.Info("MCP search server initialized", "name", cfg.Name, "tool", cfg.Tool)

	return NewMCPSearcherFromClient(mcpC, cfg.Name, cfg.Tool), nil
}

// NewMCPSearcherFromClient wraps an already initialized client.
func NewMCPSearcherFromClient(c MCPClientInterface, server, tool string) *MCPSearcher {
	return &MCPSearcher{client: c, server: server, tool: tool}
}

// Search calls the configured tool with {"query": query}. Every text content item in the
// result becomes one record.
func (s *MCPSearcher) Search(ctx context.Context, query string) ([]Record, error) {
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      s.tool,
			Arguments: map[string]any{"query": query},
		},
	}
	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mcp %s/%s: %w", s.server, s.tool, err)
	}
	if res == nil {
		return nil, fmt.Errorf("mcp %s/%s: empty result", s.server, s.tool)
	}

	var records []Record
	for _, item := range res.Content {
		if text, ok := item.(mcp.TextContent); ok {
			records = append(records, Record{Content: text.Text})
		}
	}
	if res.IsError {
		msg := "tool reported an error"
		if len(records) > 0 {
			msg = records[0].Content
		}
		return nil, fmt.Errorf("mcp %s/%s: %s", s.server, s.tool, msg)
	}
	return records, nil
}

// Close releases the underlying MCP transport.
func (s *MCPSearcher) Close() error {
	return s.client.Close()
}

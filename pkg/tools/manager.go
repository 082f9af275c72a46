package tools

import (
	"errors"
	"fmt"
	"sort"

	"github.com/comigor/chat-relay/internal/llm"
)

// ErrToolNotFound is returned by GetTool when no tool is registered under the name.
var ErrToolNotFound = errors.New("tool not found")

// ToolManager manages the available tools
type ToolManager struct {
	tools map[string]Tool
}

// NewToolManager creates a new ToolManager
func NewToolManager(tools ...Tool) *ToolManager {
	m := &ToolManager{
		tools: make(map[string]Tool),
	}
	for _, t := range tools {
		m.RegisterTool(t)
	}
	return m
}

// RegisterTool registers a new tool, replacing any tool with the same name
func (m *ToolManager) RegisterTool(tool Tool) {
	m.tools[tool.Name()] = tool
}

// GetTool retrieves a tool by name
func (m *ToolManager) GetTool(name string) (Tool, error) {
	tool, ok := m.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool, nil
}

// List returns all registered tools ordered by name
func (m *ToolManager) List() []Tool {
	ts := make([]Tool, 0, len(m.tools))
	for _, t := range m.tools {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Name() < ts[j].Name() })
	return ts
}

// Declarations describes every registered tool for the model.
func (m *ToolManager) Declarations() []llm.ToolDeclaration {
	var decls []llm.ToolDeclaration
	for _, t := range m.List() {
		decls = append(decls, llm.ToolDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return decls
}

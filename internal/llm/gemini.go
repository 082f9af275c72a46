package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/comigor/chat-relay/internal/config"
	"github.com/comigor/chat-relay/internal/history"
)

// contentGenerator is implemented by *genai.Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient implements Client on the Gemini API.
type GeminiClient struct {
	models contentGenerator
	model  string
}

// NewGeminiClient creates a Gemini API client authenticated with cfg.APIKey.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiClient{models: gc.Models, model: cfg.Model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, transcript []history.Turn, opts Options) (Output, error) {
	tools, err := convertGeminiTools(opts.Tools)
	if err != nil {
		return Output{}, err
	}
	cfg := &genai.GenerateContentConfig{Tools: tools}
	if opts.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}

	res, err := c.models.GenerateContent(ctx, c.model, convertGeminiContents(transcript), cfg)
	if err != nil {
		return Output{}, fmt.Errorf("gemini generate content: %w", err)
	}
	return parseGeminiResponse(res), nil
}

func convertGeminiContents(turns []history.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == history.RoleModel {
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, 0, len(t.Parts))
		for _, p := range t.Parts {
			parts = append(parts, &genai.Part{Text: p.Text})
		}
		contents = append(contents, &genai.Content{Role: string(role), Parts: parts})
	}
	return contents
}

func convertGeminiTools(tools []ToolDeclaration) ([]*genai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		var schema map[string]any
		if err := json.Unmarshal(t.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("gemini: tool %s: invalid parameter schema: %w", t.Name, err)
		}
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: schema,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

func parseGeminiResponse(res *genai.GenerateContentResponse) Output {
	if res == nil {
		return Output{}
	}
	if calls := res.FunctionCalls(); len(calls) > 0 {
		out := Output{ToolCalls: make([]ToolCall, 0, len(calls))}
		for _, fc := range calls {
			args := fc.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{Name: fc.Name, Arguments: args})
		}
		return out
	}
	return Output{Text: res.Text()}
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"weather-a2a/internal/mcp"
)

const requestTimeout = 60 * time.Second

// Chat Completions wire types.
type (
	openaiRequest struct {
		Model    string          `json:"model"`
		Messages []openaiMessage `json:"messages"`
		Tools    []openaiTool    `json:"tools,omitempty"`
	}

	openaiMessage struct {
		Role       string           `json:"role"`
		Content    string           `json:"content"`
		ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
		ToolCallID string           `json:"tool_call_id,omitempty"`
	}

	openaiTool struct {
		Type     string         `json:"type"`
		Function openaiFunction `json:"function"`
	}

	openaiFunction struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	}

	openaiToolCall struct {
		ID       string             `json:"id"`
		Type     string             `json:"type"`
		Function openaiToolCallFunc `json:"function"`
	}

	openaiToolCallFunc struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	}

	openaiResponse struct {
		Choices []openaiChoice `json:"choices"`
	}

	openaiChoice struct {
		Message openaiMessage `json:"message"`
	}

	openaiErrorBody struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
)

// OpenAICompatibleClient calls the Chat Completions API of any provider in
// the registry.
type OpenAICompatibleClient struct {
	model  string
	config providerConfig
	client *http.Client
}

// NewOpenAICompatibleClient never fails. Credentials are checked by the
// provider on the first request.
func NewOpenAICompatibleClient(cfg providerConfig, model string) *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		model:  model,
		config: cfg.resolved(),
		client: &http.Client{Timeout: requestTimeout},
	}
}

func (c *OpenAICompatibleClient) GenerateWithTools(ctx context.Context, systemPrompt string, messages []Message, tools []mcp.Tool) (*Response, error) {
	req, err := c.encode(systemPrompt, messages, tools)
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	var decoded openaiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}
	return decodeChoice(decoded.Choices[0].Message, tools)
}

func (c *OpenAICompatibleClient) encode(systemPrompt string, messages []Message, tools []mcp.Tool) ([]byte, error) {
	req := openaiRequest{
		Model:    c.model,
		Messages: make([]openaiMessage, 0, len(messages)+1),
		Tools:    functionsFor(tools),
	}
	if systemPrompt != "" {
		req.Messages = append(req.Messages, openaiMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		wire, err := encodeMessage(m)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, wire)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return body, nil
}

// post sends the request and returns the body of a 2xx response.
func (c *OpenAICompatibleClient) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.config.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		reason := http.StatusText(resp.StatusCode)
		var apiErr openaiErrorBody
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
			reason = apiErr.Error.Message
		}
		return nil, fmt.Errorf("%s API error (%d): %s", c.config.name, resp.StatusCode, reason)
	}
	return body, nil
}

func decodeChoice(msg openaiMessage, tools []mcp.Tool) (*Response, error) {
	out := &Response{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments of tool %q: %w", tc.Function.Name, err)
			}
		}
		call := ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args}
		CoerceToolCallArgs(&call, tools)
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out, nil
}

func encodeMessage(m Message) (openaiMessage, error) {
	wire := openaiMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
	if wire.Role == "model" {
		wire.Role = "assistant"
	}
	for _, tc := range m.ToolCalls {
		args, err := json.Marshal(tc.Arguments)
		if err != nil {
			return openaiMessage{}, fmt.Errorf("failed to marshal arguments of tool %q: %w", tc.Name, err)
		}
		wire.ToolCalls = append(wire.ToolCalls, openaiToolCall{
			ID:       tc.ID,
			Type:     "function",
			Function: openaiToolCallFunc{Name: tc.Name, Arguments: string(args)},
		})
	}
	return wire, nil
}

// functionsFor exposes MCP tools as Chat Completions functions.
func functionsFor(tools []mcp.Tool) []openaiTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openaiTool, len(tools))
	for i, t := range tools {
		out[i] = openaiTool{
			Type: "function",
			Function: openaiFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schemaFor(t.InputSchema),
			},
		}
	}
	return out
}

func schemaFor(in mcp.InputSchema) map[string]any {
	schema := map[string]any{"type": "object"}
	if in.Required != nil {
		schema["required"] = in.Required
	}
	if in.Properties == nil {
		return schema
	}

	props := make(map[string]any, len(in.Properties))
	for name, p := range in.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[name] = prop
	}
	schema["properties"] = props
	return schema
}

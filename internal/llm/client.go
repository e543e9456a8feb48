package llm

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"weather-a2a/internal/mcp"
)

// Client generates the next assistant turn of a conversation, possibly
// asking for tool calls.
type Client interface {
	GenerateWithTools(ctx context.Context, systemPrompt string, messages []Message, tools []mcp.Tool) (*Response, error)
}

// Message is one turn. Role is user, assistant, system or tool; "model" is
// accepted as an alias for assistant.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Response is final when ToolCalls is empty. Otherwise the caller runs the
// calls, appends their results and asks again.
type Response struct {
	Text      string     `json:"text,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// NewClient resolves a "provider:model" name, for example
// "openai:gpt-4o-mini" or "ollama:llama3", to a client. Every supported
// provider speaks the Chat Completions protocol.
func NewClient(model string) (Client, error) {
	provider, name, ok := strings.Cut(model, ":")
	if !ok {
		return nil, fmt.Errorf("invalid model format %q: expected \"provider:model\" (e.g. \"openai:gpt-4o-mini\")", model)
	}

	cfg, known := providers[provider]
	if !known {
		return nil, fmt.Errorf("unknown LLM provider: %q", provider)
	}
	return NewOpenAICompatibleClient(cfg, name), nil
}

// CoerceToolCallArgs rewrites numeric and boolean arguments as strings when
// the tool schema declares a string. Models tend to send a postal code like
// 75001 as a number.
func CoerceToolCallArgs(tc *ToolCall, tools []mcp.Tool) {
	if tc == nil {
		return
	}
	i := slices.IndexFunc(tools, func(t mcp.Tool) bool { return t.Name == tc.Name })
	if i < 0 {
		return
	}
	for key, prop := range tools[i].InputSchema.Properties {
		if prop.Type != "string" {
			continue
		}
		if s, ok := stringify(tc.Arguments[key]); ok {
			tc.Arguments[key] = s
		}
	}
}

func stringify(v any) (string, bool) {
	switch v := v.(type) {
	case float64:
		if !math.IsInf(v, 0) && v == math.Trunc(v) {
			return strconv.FormatFloat(v, 'f', 0, 64), true
		}
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// Package agent runs the conversational agents exposed by the runtime.
package agent

import (
	"context"
	"errors"
)

// ErrMaxSteps is returned when the model keeps requesting tools past the
// configured step budget.
var ErrMaxSteps = errors.New("maximum number of steps reached")

// Message is one conversation turn handed to an agent.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the outcome of a generation. ToolResults holds one entry per tool
// invocation, in call order.
type Reply struct {
	Text        string `json:"text"`
	ToolResults []any  `json:"toolResults,omitempty"`
}

// ToolResult records a single tool invocation made while generating.
type ToolResult struct {
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	Args       map[string]any `json:"args"`
	Result     any            `json:"result"`
	IsError    bool           `json:"isError,omitempty"`
}

// Agent produces a reply for a conversation.
type Agent interface {
	Generate(ctx context.Context, messages []Message) (*Reply, error)
}

// Info describes a registered agent.
type Info struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Model       string   `json:"model,omitempty"`
	URL         string   `json:"url,omitempty"`
	Tools       []string `json:"tools"`
}

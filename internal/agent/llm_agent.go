package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"weather-a2a/internal/llm"
	"weather-a2a/internal/mcp"
)

const maxConcurrentToolCalls = 4

// LLMAgent answers with a language model, running MCP tools on its behalf.
type LLMAgent struct {
	instructions string
	model        llm.Client
	tools        mcp.Client
	maxSteps     int
}

// NewLLMAgent creates an agent. A nil tools client means no tools.
func NewLLMAgent(instructions string, model llm.Client, tools mcp.Client, maxSteps int) *LLMAgent {
	if tools == nil {
		tools = &mcp.NopClient{}
	}
	if maxSteps <= 0 {
		maxSteps = 1
	}
	return &LLMAgent{
		instructions: instructions,
		model:        model,
		tools:        tools,
		maxSteps:     maxSteps,
	}
}

// Generate runs the tool loop: each model turn either answers in text, which
// ends the generation, or requests tools whose results are fed back.
func (a *LLMAgent) Generate(ctx context.Context, messages []Message) (*Reply, error) {
	conv := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		conv = append(conv, llm.Message{Role: llmRole(m.Role), Content: m.Content})
	}

	tools := a.tools.Tools()
	var results []any

	for step := 0; step < a.maxSteps; step++ {
		resp, err := a.model.GenerateWithTools(ctx, a.instructions, conv, tools)
		if err != nil {
			return nil, fmt.Errorf("failed to generate: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			return &Reply{Text: resp.Text, ToolResults: results}, nil
		}

		calls := make([]llm.ToolCall, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			if tc.ID == "" {
				tc.ID = fmt.Sprintf("call_%d_%d", step, i)
			}
			calls[i] = tc
		}
		conv = append(conv, llm.Message{Role: "assistant", Content: resp.Text, ToolCalls: calls})

		outcomes, err := a.runTools(ctx, calls)
		if err != nil {
			return nil, err
		}
		for i, out := range outcomes {
			results = append(results, out)
			conv = append(conv, llm.Message{Role: "tool", ToolCallID: calls[i].ID, Content: toolMessage(out)})
		}
	}

	return nil, fmt.Errorf("%w (%d)", ErrMaxSteps, a.maxSteps)
}

// runTools executes the requested calls concurrently, keeping call order in
// the returned slice. Tool failures become error results, not errors.
func (a *LLMAgent) runTools(ctx context.Context, calls []llm.ToolCall) ([]ToolResult, error) {
	outcomes := make([]ToolResult, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentToolCalls)
	for i, tc := range calls {
		g.Go(func() error {
			outcomes[i] = a.callTool(gctx, tc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tool execution interrupted: %w", err)
	}
	return outcomes, nil
}

func (a *LLMAgent) callTool(ctx context.Context, tc llm.ToolCall) ToolResult {
	out := ToolResult{ToolCallID: tc.ID, ToolName: tc.Name, Args: tc.Arguments}
	if out.Args == nil {
		out.Args = map[string]any{}
	}

	if a.tools.GetTool(tc.Name) == nil {
		out.IsError = true
		out.Result = fmt.Sprintf("Tool not found: %s", tc.Name)
		return out
	}

	result, err := a.tools.CallTool(ctx, tc.Name, out.Args)
	if err != nil {
		out.IsError = true
		out.Result = fmt.Sprintf("Tool execution failed: %v", err)
		return out
	}

	out.IsError = result.IsError
	out.Result = toolValue(result)
	return out
}

// toolValue prefers structured content, then JSON text, then plain text.
func toolValue(result *mcp.CallToolResult) any {
	if result.StructuredContent != nil {
		return result.StructuredContent
	}
	text := result.Text()
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v
	}
	return text
}

func toolMessage(out ToolResult) string {
	if s, ok := out.Result.(string); ok {
		return s
	}
	b, err := json.Marshal(out.Result)
	if err != nil {
		return fmt.Sprintf("%v", out.Result)
	}
	return string(b)
}

// llmRole maps A2A roles onto chat completion roles.
func llmRole(role string) string {
	switch strings.ToLower(role) {
	case "agent", "assistant", "model":
		return "assistant"
	case "system":
		return "system"
	default:
		return "user"
	}
}

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

const (
	requestTimeout = 30 * time.Second
	dialBackoff    = 500 * time.Millisecond
	dialAttempts   = 20
)

var clientInfo = mcpgo.Implementation{Name: "weather-a2a", Version: "1.0.0"}

// session is one initialized connection together with the tools it exposes.
type session struct {
	conn  *mcpclient.Client
	tools []Tool
	index map[string]int
}

func (s *session) lookup(name string) *Tool {
	i, ok := s.index[name]
	if !ok {
		return nil
	}
	return &s.tools[i]
}

// HTTPClient talks to a single MCP server over Streamable HTTP.
type HTTPClient struct {
	name string
	url  string

	mu   sync.RWMutex
	sess *session
}

// NewHTTPClient creates a client for the server at url. Nothing is dialed
// until Start.
func NewHTTPClient(name, url string) *HTTPClient {
	return &HTTPClient{name: name, url: url}
}

// Start dials the server, retrying for a while so tool servers may come up
// after the agent process.
func (c *HTTPClient) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		return nil
	}

	sess, err := c.dialWithRetry(ctx)
	if err != nil {
		return err
	}
	c.sess = sess
	return nil
}

func (c *HTTPClient) dialWithRetry(ctx context.Context) (*session, error) {
	var err error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		var sess *session
		if sess, err = c.dial(ctx); err == nil {
			return sess, nil
		}
		if attempt == dialAttempts {
			break
		}

		slog.Warn("MCP server not reachable yet",
			"server", c.name, "attempt", attempt, "of", dialAttempts, "error", err)

		timer := time.NewTimer(dialBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("failed to connect to MCP server %q: %w", c.name, ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("failed to connect to MCP server %q after %d attempts: %w", c.name, dialAttempts, err)
}

func (c *HTTPClient) dial(ctx context.Context) (*session, error) {
	tr, err := transport.NewStreamableHTTP(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	conn := mcpclient.NewClient(tr)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := conn.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start transport: %w", err)
	}

	sess, err := c.handshake(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return sess, nil
}

// handshake runs initialize and tools/list on a started connection.
func (c *HTTPClient) handshake(ctx context.Context, conn *mcpclient.Client) (*session, error) {
	var init mcpgo.InitializeRequest
	init.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = clientInfo

	if _, err := conn.Initialize(ctx, init); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}

	listed, err := conn.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	sess := &session{
		conn:  conn,
		tools: make([]Tool, len(listed.Tools)),
		index: make(map[string]int, len(listed.Tools)),
	}
	for i, t := range listed.Tools {
		sess.tools[i] = toolFromWire(t, c.name)
		sess.index[t.Name] = i
	}
	return sess, nil
}

// Stop closes the connection. Calling Stop on a stopped client is a no-op.
func (c *HTTPClient) Stop() error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.conn.Close()
}

func (c *HTTPClient) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.sess == nil {
		return nil
	}
	return c.sess.tools
}

func (c *HTTPClient) GetTool(name string) *Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.sess == nil {
		return nil
	}
	return c.sess.lookup(name)
}

// CallTool runs a tool. Tool-level failures come back as a result with
// IsError set, transport failures as an error.
func (c *HTTPClient) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	c.mu.RLock()
	sess := c.sess
	c.mu.RUnlock()

	if sess == nil {
		return nil, fmt.Errorf("MCP server %q not started", c.name)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var req mcpgo.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := sess.conn.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call tool %q on %q: %w", name, c.name, err)
	}
	return resultFromWire(res), nil
}

func toolFromWire(t mcpgo.Tool, server string) Tool {
	tool := Tool{
		Name:        t.Name,
		Description: t.Description,
		Server:      server,
		InputSchema: InputSchema{
			Type:     t.InputSchema.Type,
			Required: t.InputSchema.Required,
		},
	}
	if hint := t.Annotations.ReadOnlyHint; hint != nil {
		tool.ReadOnly = *hint
	}

	if len(t.InputSchema.Properties) > 0 {
		tool.InputSchema.Properties = make(map[string]Property, len(t.InputSchema.Properties))
		for key, raw := range t.InputSchema.Properties {
			tool.InputSchema.Properties[key] = propertyFromWire(raw)
		}
	}
	return tool
}

// propertyFromWire keeps only the type and description of a JSON schema
// property; anything else is dropped.
func propertyFromWire(raw any) Property {
	fields, _ := raw.(map[string]any)
	typ, _ := fields["type"].(string)
	desc, _ := fields["description"].(string)
	return Property{Type: typ, Description: desc}
}

func resultFromWire(res *mcpgo.CallToolResult) *CallToolResult {
	out := &CallToolResult{
		IsError:           res.IsError,
		StructuredContent: res.StructuredContent,
	}
	for _, content := range res.Content {
		if text, ok := mcpgo.AsTextContent(content); ok {
			out.Content = append(out.Content, ContentBlock{Type: "text", Text: text.Text})
		}
	}
	return out
}

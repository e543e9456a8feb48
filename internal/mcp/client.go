package mcp

import (
	"context"
	"fmt"
)

// Client is the interface for MCP communication.
type Client interface {
	Start(ctx context.Context) error
	Stop() error
	Tools() []Tool
	GetTool(name string) *Tool
	CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error)
}

// ServerConfig names a Streamable HTTP MCP endpoint.
type ServerConfig struct {
	Name string
	URL  string
}

// NewClient creates a Client for the given servers. No servers yields a
// NopClient, one server an HTTPClient, several a CompositeClient.
func NewClient(servers []ServerConfig) Client {
	switch len(servers) {
	case 0:
		return &NopClient{}
	case 1:
		return NewHTTPClient(servers[0].Name, servers[0].URL)
	default:
		clients := make([]NamedClient, 0, len(servers))
		for _, s := range servers {
			clients = append(clients, NamedClient{Name: s.Name, Client: NewHTTPClient(s.Name, s.URL)})
		}
		return NewCompositeClient(clients)
	}
}

// NopClient is a no-op MCP client for agents without tools.
type NopClient struct{}

func (c *NopClient) Start(context.Context) error { return nil }
func (c *NopClient) Stop() error                 { return nil }
func (c *NopClient) Tools() []Tool               { return nil }
func (c *NopClient) GetTool(string) *Tool        { return nil }
func (c *NopClient) CallTool(context.Context, string, map[string]any) (*CallToolResult, error) {
	return nil, fmt.Errorf("no MCP server configured")
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// NamedClient pairs a Client with its configured server name.
type NamedClient struct {
	Name   string
	Client Client
}

type route struct {
	owner  Client
	server string
	tool   Tool
}

// CompositeClient merges several MCP servers behind one Client. Tool names
// must be unique across servers.
type CompositeClient struct {
	servers []NamedClient

	mu      sync.RWMutex
	running bool
	order   []string
	routes  map[string]route
}

// NewCompositeClient wraps the given servers.
func NewCompositeClient(servers []NamedClient) *CompositeClient {
	return &CompositeClient{servers: servers}
}

// Start connects to every server concurrently, then builds the routing
// table. Either all servers end up running or none do.
func (c *CompositeClient) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range c.servers {
		g.Go(func() error {
			if err := s.Client.Start(gctx); err != nil {
				return fmt.Errorf("failed to start MCP server %q: %w", s.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = c.stopServers()
		return err
	}

	routes, order, err := c.buildRoutes()
	if err != nil {
		_ = c.stopServers()
		return err
	}

	c.routes, c.order, c.running = routes, order, true
	return nil
}

func (c *CompositeClient) buildRoutes() (map[string]route, []string, error) {
	routes := make(map[string]route)
	var order []string

	for _, s := range c.servers {
		for _, tool := range s.Client.Tools() {
			if prev, dup := routes[tool.Name]; dup {
				return nil, nil, fmt.Errorf("duplicate tool name %q found in MCP servers %q and %q", tool.Name, prev.server, s.Name)
			}
			tool.Server = s.Name
			routes[tool.Name] = route{owner: s.Client, server: s.Name, tool: tool}
			order = append(order, tool.Name)
		}
	}
	return routes, order, nil
}

// Stop disconnects every server. Failures are reported per server.
func (c *CompositeClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false
	c.routes, c.order = nil, nil
	return c.stopServers()
}

func (c *CompositeClient) stopServers() error {
	var errs []error
	for _, s := range c.servers {
		if err := s.Client.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Tools lists every tool in server order, each tagged with its server name.
func (c *CompositeClient) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tools := make([]Tool, 0, len(c.order))
	for _, name := range c.order {
		tools = append(tools, c.routes[name].tool)
	}
	return tools
}

// GetTool returns nil for unknown names.
func (c *CompositeClient) GetTool(name string) *Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.routes[name]
	if !ok {
		return nil
	}
	return &r.tool
}

// CallTool forwards the call to the server that exposes name.
func (c *CompositeClient) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	c.mu.RLock()
	r, ok := c.routes[name]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return r.owner.CallTool(ctx, name, args)
}

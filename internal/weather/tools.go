package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolGetWeather is the MCP tool name for current weather lookups.
const ToolGetWeather = "get_weather"

// NewMCPServer creates an MCP server exposing the weather tools.
func NewMCPServer(c *Client, version string) *server.MCPServer {
	s := server.NewMCPServer("mcp-weather", version,
		server.WithToolCapabilities(true),
	)
	s.AddTool(
		mcp.NewTool(ToolGetWeather,
			mcp.WithDescription("Get current weather for a location. Returns temperature (°C), feels-like temperature, humidity (%), wind speed and gusts (km/h) and a short description of the conditions."),
			mcp.WithString("location", mcp.Required(), mcp.Description("City name")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		c.GetWeather(),
	)
	return s
}

// GetWeather returns the handler of the get_weather tool.
func (c *Client) GetWeather() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		location := req.GetString("location", "")
		if location == "" {
			return mcp.NewToolResultError("location is required"), nil
		}

		report, err := c.Current(ctx, location)
		logTool(ToolGetWeather, location, time.Since(start), err)
		if err != nil {
			if errors.Is(err, ErrLocationNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Location '%s' not found", location)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(report)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func logTool(toolName, location string, dur time.Duration, err error) {
	if err != nil {
		slog.Warn("tool call failed", "tool", toolName, "location", location, "duration", dur, "error", err)
	} else {
		slog.Info("tool call", "tool", toolName, "location", location, "duration", dur)
	}
}

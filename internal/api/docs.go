package api

import (
	"bytes"
	"html/template"
	"sort"

	"github.com/gofiber/fiber/v2"
)

// APISpec represents the API specification.
type APISpec struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Version     string     `json:"version"`
	Endpoints   []Endpoint `json:"endpoints"`
}

// Endpoint represents an API endpoint specification.
type Endpoint struct {
	Method      string                  `json:"method"`
	Path        string                  `json:"path"`
	Summary     string                  `json:"summary"`
	Description string                  `json:"description"`
	Request     *RequestSpec            `json:"request,omitempty"`
	Responses   map[string]ResponseSpec `json:"responses"`
}

// RequestSpec represents request body specification.
type RequestSpec struct {
	ContentType string           `json:"content_type"`
	Schema      map[string]Field `json:"schema"`
	Example     any              `json:"example,omitempty"`
}

// ResponseSpec represents a response specification.
type ResponseSpec struct {
	Description string `json:"description"`
	Example     any    `json:"example,omitempty"`
}

// Field represents a schema field.
type Field struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

func rpcError(code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"error":   map[string]any{"code": code, "message": message},
	}
}

// getAPISpec returns the API specification.
func getAPISpec() APISpec {
	return APISpec{
		Title:       "Weather A2A API",
		Description: "Exposes configured agents over the A2A JSON-RPC 2.0 protocol. Each message/send call runs the agent once and returns the result as a completed A2A task.",
		Version:     Version,
		Endpoints: []Endpoint{
			{
				Method:      "GET",
				Path:        "/health",
				Summary:     "Health Check",
				Description: "Returns the health status of the API server.",
				Responses: map[string]ResponseSpec{
					"200": {
						Description: "Server is healthy",
						Example:     map[string]string{"status": "ok"},
					},
				},
			},
			{
				Method:      "GET",
				Path:        "/api/agents",
				Summary:     "List Agents",
				Description: "Returns the agents registered in the runtime, in configuration order.",
				Responses: map[string]ResponseSpec{
					"200": {
						Description: "Registered agents",
						Example: map[string]any{
							"agents": []map[string]any{
								{"id": "weatherAgent", "name": "Weather Agent", "model": "openai:gpt-4o-mini", "tools": []string{"get_weather"}},
							},
						},
					},
				},
			},
			{
				Method:      "GET",
				Path:        "/api/agents/:agentId/runs",
				Summary:     "List Runs",
				Description: "Returns the most recent recorded runs of an agent, newest first. The limit query parameter defaults to 20.",
				Responses: map[string]ResponseSpec{
					"200": {
						Description: "Recorded runs",
						Example: map[string]any{
							"agentId": "weatherAgent",
							"runs": []map[string]any{
								{"id": "run-uuid", "agentId": "weatherAgent", "status": "completed", "output": "It is sunny in Paris."},
							},
							"total": 1,
						},
					},
					"400": {
						Description: "Invalid limit",
						Example:     map[string]string{"error": "limit must be a positive integer"},
					},
					"404": {
						Description: "Agent not found",
						Example:     map[string]string{"error": "Agent 'unknown' not found"},
					},
				},
			},
			{
				Method:      "GET",
				Path:        "/a2a/agent/:agentId/.well-known/agent.json",
				Summary:     "Agent Card (A2A)",
				Description: "Returns the A2A Agent Card describing the agent's identity and skills. Used by other A2A agents for discovery.",
				Responses: map[string]ResponseSpec{
					"200": {
						Description: "Agent card with skills",
						Example: map[string]any{
							"name":            "Weather Agent",
							"url":             "http://localhost:4111/a2a/agent/weatherAgent",
							"protocolVersion": "0.3.0",
							"capabilities":    map[string]bool{"streaming": false, "pushNotifications": true},
							"skills": []map[string]any{
								{"id": "get_weather", "name": "get_weather", "tags": []string{"tool"}},
							},
						},
					},
					"404": {
						Description: "Agent not found",
						Example:     map[string]string{"error": "Agent 'unknown' not found"},
					},
				},
			},
			{
				Method:      "POST",
				Path:        "/a2a/agent/:agentId",
				Summary:     "A2A JSON-RPC Endpoint",
				Description: "JSON-RPC 2.0 endpoint for the A2A protocol. Accepts either a single message or a list of messages, runs the agent and returns a completed task. With configuration.blocking false and a pushNotificationConfig, a submitted task is returned immediately and the final response is POSTed to the webhook.",
				Request: &RequestSpec{
					ContentType: "application/json",
					Schema: map[string]Field{
						"jsonrpc": {Type: "string", Description: "Must be \"2.0\"", Required: true},
						"id":      {Type: "string|integer", Description: "Request ID, echoed in the response", Required: true},
						"method":  {Type: "string", Description: "\"message/send\"", Required: false},
						"params":  {Type: "object", Description: "message or messages, plus optional contextId, taskId, metadata and configuration", Required: true},
					},
					Example: map[string]any{
						"jsonrpc": "2.0",
						"id":      1,
						"method":  "message/send",
						"params": map[string]any{
							"message": map[string]any{
								"role":      "user",
								"messageId": "msg-1",
								"parts": []map[string]string{
									{"kind": "text", "text": "What's the weather in Paris?"},
								},
							},
						},
					},
				},
				Responses: map[string]ResponseSpec{
					"200": {
						Description: "JSON-RPC response with a completed task",
						Example: map[string]any{
							"jsonrpc": "2.0",
							"id":      1,
							"result": map[string]any{
								"id":        "task-uuid",
								"contextId": "context-uuid",
								"kind":      "task",
								"status":    map[string]string{"state": "completed", "timestamp": "2025-01-01T00:00:00.000Z"},
								"artifacts": []map[string]any{
									{"artifactId": "artifact-uuid", "name": "weatherAgentResponse", "parts": []map[string]string{{"kind": "text", "text": "It is sunny in Paris."}}},
								},
							},
						},
					},
					"400": {
						Description: "Invalid request or params",
						Example:     rpcError(-32602, "Invalid params: message or messages is required"),
					},
					"404": {
						Description: "Agent not found",
						Example:     rpcError(-32602, "Agent 'unknown' not found"),
					},
					"500": {
						Description: "Agent generation failed",
						Example:     rpcError(-32603, "Internal error"),
					},
				},
			},
		},
	}
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} {{.Version}}</title>
<style>
body { font: 15px/1.5 system-ui, sans-serif; max-width: 960px; margin: 2em auto; padding: 0 1em; color: #222; }
h1 small { font-size: 0.5em; color: #777; font-weight: normal; }
details { border: 1px solid #ddd; border-radius: 4px; margin: 0.6em 0; }
details[open] > summary { border-bottom: 1px solid #ddd; }
summary { cursor: pointer; padding: 0.5em 0.8em; }
summary code { font-size: 1em; }
.verb { display: inline-block; width: 4.5em; font-weight: 600; }
.verb.GET { color: #1565c0; }
.verb.POST { color: #2e7d32; }
.note { color: #666; float: right; }
.body { padding: 0.4em 1em 1em; }
h3 { font-size: 0.8em; text-transform: uppercase; letter-spacing: 0.05em; color: #555; }
table { border-collapse: collapse; width: 100%; }
td, th { text-align: left; padding: 0.3em 0.5em; border-bottom: 1px solid #eee; vertical-align: top; }
.req { color: #c62828; font-size: 0.8em; }
.status { font-family: monospace; font-weight: 600; margin-right: 0.6em; }
.status.ok { color: #2e7d32; }
.status.err { color: #c62828; }
</style>
</head>
<body>
<h1>{{.Title}} <small>v{{.Version}}</small></h1>
<p>{{.Description}}</p>
{{range .Endpoints}}
<details>
<summary><span class="verb {{.Method}}">{{.Method}}</span><code>{{.Path}}</code><span class="note">{{.Summary}}</span></summary>
<div class="body">
<p>{{.Description}}</p>
{{- if .Fields}}
<h3>Request body</h3>
<table>
<tr><th>Field</th><th>Type</th><th></th></tr>
{{- range .Fields}}
<tr><td><code>{{.Name}}</code>{{if .Required}} <span class="req">required</span>{{end}}</td><td>{{.Type}}</td><td>{{.Description}}</td></tr>
{{- end}}
</table>
{{- end}}
<h3>Responses</h3>
{{- range .Responses}}
<p><span class="status {{if .Error}}err{{else}}ok{{end}}">{{.Code}}</span>{{.Description}}</p>
{{- end}}
</div>
</details>
{{end}}
</body>
</html>`))

type docsField struct {
	Field
	Name string
}

type docsResponse struct {
	ResponseSpec
	Code  string
	Error bool
}

type docsEndpoint struct {
	Endpoint
	Fields    []docsField
	Responses []docsResponse
}

// handleDocsJSON returns the API specification as JSON.
func handleDocsJSON(c *fiber.Ctx) error {
	return c.JSON(getAPISpec())
}

// handleDocsHTML returns an HTML documentation page.
func handleDocsHTML(c *fiber.Ctx) error {
	spec := getAPISpec()

	endpoints := make([]docsEndpoint, 0, len(spec.Endpoints))
	for _, ep := range spec.Endpoints {
		view := docsEndpoint{Endpoint: ep}
		if ep.Request != nil {
			for name, field := range ep.Request.Schema {
				view.Fields = append(view.Fields, docsField{Field: field, Name: name})
			}
			sort.Slice(view.Fields, func(i, j int) bool { return view.Fields[i].Name < view.Fields[j].Name })
		}
		for code, resp := range ep.Responses {
			view.Responses = append(view.Responses, docsResponse{
				ResponseSpec: resp,
				Code:         code,
				Error:        code[0] == '4' || code[0] == '5',
			})
		}
		sort.Slice(view.Responses, func(i, j int) bool { return view.Responses[i].Code < view.Responses[j].Code })
		endpoints = append(endpoints, view)
	}

	var buf bytes.Buffer
	err := docsTemplate.Execute(&buf, struct {
		APISpec
		Endpoints []docsEndpoint
	}{spec, endpoints})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}

	c.Set("Content-Type", "text/html")
	return c.Send(buf.Bytes())
}

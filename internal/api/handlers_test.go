package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-a2a/internal/storage"
)

func get(t *testing.T, s *Server, path string, header ...string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeAgent{}, nil)

	resp, body := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, &fakeAgent{}, nil)

	resp, _ := get(t, s, "/health", "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))

	resp, _ = get(t, s, "/health")
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)
}

func TestDocs(t *testing.T) {
	s := newTestServer(t, &fakeAgent{}, nil)

	resp, body := get(t, s, "/docs")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "Weather A2A API")
	assert.Contains(t, string(body), "/a2a/agent/:agentId")
	assert.Contains(t, string(body), `Must be &#34;2.0&#34;`)

	resp, body = get(t, s, "/docs/json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var spec APISpec
	require.NoError(t, json.Unmarshal(body, &spec))
	assert.Equal(t, Version, spec.Version)

	paths := make([]string, 0, len(spec.Endpoints))
	for _, ep := range spec.Endpoints {
		paths = append(paths, ep.Method+" "+ep.Path)
	}
	assert.Contains(t, paths, "POST /a2a/agent/:agentId")
	assert.Contains(t, paths, "GET /api/agents/:agentId/runs")
}

func TestListAgents(t *testing.T) {
	s := newTestServer(t, &fakeAgent{}, nil)

	resp, body := get(t, s, "/api/agents")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"agents":[{
		"id":"weatherAgent",
		"name":"Weather Agent",
		"description":"Provides weather information.",
		"model":"openai:gpt-4o-mini",
		"tools":["get_weather"]
	}]}`, string(body))
}

func TestAgentCard(t *testing.T) {
	s := newTestServer(t, &fakeAgent{}, nil)

	resp, body := get(t, s, "/a2a/agent/weatherAgent/.well-known/agent.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var card map[string]any
	require.NoError(t, json.Unmarshal(body, &card))
	assert.Equal(t, "Weather Agent", card["name"])
	assert.Equal(t, "http://localhost:4111/a2a/agent/weatherAgent", card["url"])
	assert.Equal(t, "0.3.0", card["protocolVersion"])
	assert.Equal(t, map[string]any{"streaming": false, "pushNotifications": true}, card["capabilities"])
	assert.Equal(t, []any{map[string]any{"id": "get_weather", "name": "get_weather", "tags": []any{"tool"}}}, card["skills"])
}

func TestAgentCard_NotFound(t *testing.T) {
	s := newTestServer(t, &fakeAgent{}, nil)

	resp, body := get(t, s, "/a2a/agent/ghost/.well-known/agent.json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Agent 'ghost' not found"}`, string(body))
}

func TestListRuns(t *testing.T) {
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	runs := &fakeRuns{runs: []*storage.Run{{
		ID:        "run-1",
		AgentID:   "weatherAgent",
		Status:    storage.StatusCompleted,
		Output:    "Sunny",
		CreatedAt: created,
	}}}
	s := newTestServer(t, &fakeAgent{}, runs)

	resp, body := get(t, s, "/api/agents/weatherAgent/runs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "weatherAgent", runs.gotAgent)
	assert.Equal(t, defaultRunsLimit, runs.gotLimit)

	var out struct {
		AgentID string         `json:"agentId"`
		Runs    []*storage.Run `json:"runs"`
		Total   int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "weatherAgent", out.AgentID)
	assert.Equal(t, 1, out.Total)
	require.Len(t, out.Runs, 1)
	assert.Equal(t, "run-1", out.Runs[0].ID)
	assert.Equal(t, "Sunny", out.Runs[0].Output)

	_, _ = get(t, s, "/api/agents/weatherAgent/runs?limit=5")
	assert.Equal(t, 5, runs.gotLimit)
}

func TestListRuns_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		storeErr   error
		wantStatus int
		wantError  string
	}{
		{"unknown agent", "/api/agents/ghost/runs", nil, http.StatusNotFound, "Agent 'ghost' not found"},
		{"zero limit", "/api/agents/weatherAgent/runs?limit=0", nil, http.StatusBadRequest, "limit must be a positive integer"},
		{"negative limit", "/api/agents/weatherAgent/runs?limit=-3", nil, http.StatusBadRequest, "limit must be a positive integer"},
		{"store failure", "/api/agents/weatherAgent/runs", errors.New("database is locked"), http.StatusInternalServerError, "database is locked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeAgent{}, &fakeRuns{err: tt.storeErr})

			resp, body := get(t, s, tt.path)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var out map[string]string
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, tt.wantError, out["error"])
		})
	}
}

func TestListRuns_NoStore(t *testing.T) {
	s := newTestServer(t, &fakeAgent{}, nil)

	resp, body := get(t, s, "/api/agents/weatherAgent/runs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"agentId":"weatherAgent","runs":[],"total":0}`, string(body))
}

func TestListRuns_SQLiteStore(t *testing.T) {
	store, err := storage.New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	s := newTestServer(t, &fakeAgent{}, store)
	for _, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, store.SaveRun(t.Context(), &storage.Run{
			ID:        id,
			AgentID:   "weatherAgent",
			Status:    storage.StatusCompleted,
			CreatedAt: time.Now(),
		}))
	}

	resp, body := get(t, s, "/api/agents/weatherAgent/runs?limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Runs  []*storage.Run `json:"runs"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 2, out.Total)
}

package a2a

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendMessages(t *testing.T) {
	var captured map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"jsonrpc": "2.0",
			"id": 1,
			"result": {
				"id": "task-1",
				"contextId": "ctx-1",
				"kind": "task",
				"status": {"state": "completed", "timestamp": "2025-10-02T12:00:00.000Z"},
				"artifacts": [{"artifactId": "a-1", "name": "remoteResponse", "parts": [{"kind": "text", "text": "Sunny"}]}],
				"history": []
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	task, err := client.SendMessages(context.Background(), []Message{
		{Role: "user", Parts: []Part{NewTextPart("Weather in Paris?")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "2.0", captured["jsonrpc"])
	assert.Equal(t, "message/send", captured["method"])
	assert.EqualValues(t, 1, captured["id"])
	params := captured["params"].(map[string]any)
	assert.Contains(t, params, "message")
	assert.NotContains(t, params, "messages")

	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, TaskStateCompleted, task.Status.State)
	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, "Sunny", task.Artifacts[0].Parts[0].Flatten())
}

func TestClient_SendMessages_Multiple(t *testing.T) {
	var captured map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"id":"t","contextId":"c","kind":"task","status":{"state":"completed","timestamp":""},"history":[]}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SendMessages(context.Background(), []Message{
		{Role: "user", Parts: []Part{NewTextPart("one")}},
		{Role: "user", Parts: []Part{NewTextPart("two")}},
	})
	require.NoError(t, err)

	params := captured["params"].(map[string]any)
	assert.Len(t, params["messages"], 2)
}

func TestClient_RPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Agent 'ghost' not found"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SendMessages(context.Background(), []Message{{Role: "user"}})
	require.Error(t, err)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)
}

func TestClient_InvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SendMessages(context.Background(), []Message{{Role: "user"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse A2A response")
}

func TestClient_FetchAgentCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/agent.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"name":"Weather Agent","url":"http://x","version":"1.0.0","capabilities":{"streaming":false,"pushNotifications":true}}`))
	}))
	defer srv.Close()

	card, err := NewClient(srv.URL).FetchAgentCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Weather Agent", card.Name)
	assert.True(t, card.Capabilities.PushNotifications)
}

func TestClient_FetchAgentCard_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchAgentCard(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

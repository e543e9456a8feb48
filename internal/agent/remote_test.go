package agent

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

func newRemote(t *testing.T, result string, capture *map[string]any) *RemoteAgent {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if capture != nil {
			require.NoError(t, json.Unmarshal(body, capture))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return NewRemoteAgent(srv.URL)
}

func TestRemoteAgent_Generate(t *testing.T) {
	var req map[string]any
	a := newRemote(t, `"result":{
		"id":"task-1","contextId":"ctx-1","kind":"task",
		"status":{"state":"completed","timestamp":"2025-01-01T00:00:00.000Z"},
		"artifacts":[
			{"artifactId":"a1","name":"weatherAgentResponse","parts":[{"kind":"text","text":"Sunny in Paris"}]},
			{"artifactId":"a2","name":"ToolResults","parts":[{"kind":"data","data":{"toolName":"get_weather"}}]}
		],
		"history":[]}`, &req)

	reply, err := a.Generate(context.Background(), []Message{{Role: "user", Content: "Weather in Paris?"}})
	require.NoError(t, err)
	assert.Equal(t, "Sunny in Paris", reply.Text)
	require.Len(t, reply.ToolResults, 1)
	raw, err := json.Marshal(reply.ToolResults[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"toolName":"get_weather"}`, string(raw))

	assert.Equal(t, "message/send", req["method"])
	msg := req["params"].(map[string]any)["message"].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.NotEmpty(t, msg["messageId"])
	assert.Equal(t, []any{map[string]any{"kind": "text", "text": "Weather in Paris?"}}, msg["parts"])
}

func TestRemoteAgent_SendsConversationAsMessages(t *testing.T) {
	var req map[string]any
	a := newRemote(t, `"result":{"id":"t","contextId":"c","kind":"task","status":{"state":"completed","message":{"role":"agent","parts":[{"kind":"text","text":"from status"}]}},"history":[]}`, &req)

	reply, err := a.Generate(context.Background(), []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "from status", reply.Text)

	msgs := req["params"].(map[string]any)["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "agent", msgs[1].(map[string]any)["role"])
}

func TestRemoteAgent_RPCError(t *testing.T) {
	a := newRemote(t, `"error":{"code":-32602,"message":"Agent 'x' not found"}`, nil)

	_, err := a.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Agent 'x' not found")
}

func TestRemoteAgent_FailedTask(t *testing.T) {
	a := newRemote(t, `"result":{"id":"t","contextId":"c","kind":"task","status":{"state":"failed","message":{"role":"agent","parts":[{"kind":"text","text":"quota exceeded"}]}},"history":[]}`, nil)

	_, err := a.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRemoteAgent_NoTextFallsBackToStatus(t *testing.T) {
	a := newRemote(t, `"result":{"id":"t-9","contextId":"c","kind":"task","status":{"state":"completed"},"history":[]}`, nil)

	reply, err := a.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "Task t-9: completed", reply.Text)
}

package agent

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-a2a/internal/config"
	"weather-a2a/internal/storage"
)

type stubAgent struct {
	reply *Reply
	err   error
}

func (s *stubAgent) Generate(context.Context, []Message) (*Reply, error) {
	return s.reply, s.err
}

type memRecorder struct {
	runs []*storage.Run
	err  error
}

func (m *memRecorder) SaveRun(_ context.Context, run *storage.Run) error {
	m.runs = append(m.runs, run)
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRegistry_LookupAndDescribe(t *testing.T) {
	r := NewRegistry()
	r.Register(Info{ID: "weatherAgent", Name: "Weather"}, &stubAgent{})
	r.Register(Info{ID: "plannerAgent", Name: "Planner"}, &stubAgent{})
	r.Register(Info{ID: "weatherAgent", Name: "Weather v2"}, &stubAgent{})

	_, ok := r.Lookup("weatherAgent")
	assert.True(t, ok)
	_, ok = r.Lookup("unknown")
	assert.False(t, ok)

	infos := r.Describe()
	require.Len(t, infos, 2)
	assert.Equal(t, "Weather v2", infos[0].Name)
	assert.Equal(t, "plannerAgent", infos[1].ID)
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
agents:
  - id: weatherAgent
    model: openai:gpt-4o-mini
    instructions: be helpful
  - id: remoteAgent
    url: http://localhost:9999/a2a/agent/weatherAgent
`))
	require.NoError(t, err)

	r, err := FromConfig(context.Background(), cfg, nil, discardLogger())
	require.NoError(t, err)
	defer r.Close()

	a, ok := r.Lookup("weatherAgent")
	require.True(t, ok)
	assert.IsType(t, &LLMAgent{}, a)

	a, ok = r.Lookup("remoteAgent")
	require.True(t, ok)
	assert.IsType(t, &RemoteAgent{}, a)

	infos := r.Describe()
	require.Len(t, infos, 2)
	assert.Equal(t, "openai:gpt-4o-mini", infos[0].Model)
	assert.Equal(t, []string{}, infos[0].Tools)
	assert.Equal(t, "http://localhost:9999/a2a/agent/weatherAgent", infos[1].URL)
}

func TestFromConfig_UnknownProvider(t *testing.T) {
	cfg, err := config.Parse([]byte(`
agents:
  - id: weatherAgent
    model: acme:model
`))
	require.NoError(t, err)

	_, err = FromConfig(context.Background(), cfg, nil, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `agent "weatherAgent"`)
}

func TestFromConfig_WrapsWithRecorder(t *testing.T) {
	cfg, err := config.Parse([]byte(`
agents:
  - id: weatherAgent
    model: openai:gpt-4o-mini
`))
	require.NoError(t, err)

	r, err := FromConfig(context.Background(), cfg, &memRecorder{}, discardLogger())
	require.NoError(t, err)

	a, _ := r.Lookup("weatherAgent")
	assert.IsType(t, &recordedAgent{}, a)
}

func TestRecorded_SavesCompletedRun(t *testing.T) {
	rec := &memRecorder{}
	inner := &stubAgent{reply: &Reply{
		Text:        "Sunny",
		ToolResults: []any{ToolResult{ToolCallID: "c1", ToolName: "get_weather", Args: map[string]any{"location": "Paris"}, Result: "ok"}},
	}}
	a := Recorded("weatherAgent", inner, rec, discardLogger()).(*recordedAgent)
	a.newID = func() string { return "run-1" }
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	reply, err := a.Generate(context.Background(), []Message{{Role: "user", Content: "Paris?"}})
	require.NoError(t, err)
	assert.Equal(t, "Sunny", reply.Text)

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "weatherAgent", run.AgentID)
	assert.Equal(t, storage.StatusCompleted, run.Status)
	assert.Equal(t, "Sunny", run.Output)
	assert.JSONEq(t, `[{"role":"user","content":"Paris?"}]`, string(run.Input))
	assert.JSONEq(t, `[{"toolCallId":"c1","toolName":"get_weather","args":{"location":"Paris"},"result":"ok"}]`, string(run.ToolResults))
	assert.Equal(t, time.Second, run.CompletedAt.Sub(run.CreatedAt))
}

func TestRecorded_SavesFailedRun(t *testing.T) {
	rec := &memRecorder{}
	a := Recorded("weatherAgent", &stubAgent{err: errors.New("model unavailable")}, rec, discardLogger())

	_, err := a.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.EqualError(t, err, "model unavailable")

	require.Len(t, rec.runs, 1)
	assert.Equal(t, storage.StatusFailed, rec.runs[0].Status)
	assert.Equal(t, "model unavailable", rec.runs[0].Error)
	assert.Nil(t, rec.runs[0].ToolResults)
}

func TestRecorded_RecorderFailureIgnored(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	a := Recorded("weatherAgent", &stubAgent{reply: &Reply{Text: "ok"}}, rec, discardLogger())

	reply, err := a.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Text)
}

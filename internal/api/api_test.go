package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-a2a/internal/agent"
)

// slowAgent answers after a delay.
type slowAgent struct{ delay time.Duration }

func (a slowAgent) Generate(context.Context, []agent.Message) (*agent.Reply, error) {
	time.Sleep(a.delay)
	return &agent.Reply{Text: "late but sunny"}, nil
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRun_WaitsForPendingDeliveries(t *testing.T) {
	notifier := &fakeNotifier{}
	s := newTestServer(t, slowAgent{delay: 300 * time.Millisecond}, nil)
	s.notifier = notifier
	s.config.Host = "127.0.0.1"
	s.config.Port = freePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", s.config.Port)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, 5*time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := client.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := client.Post(base+"/a2a/agent/weatherAgent", "application/json", strings.NewReader(asyncRequest))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.sent, 1, "delivery finished before Run returned")
	assert.Contains(t, string(notifier.sent[0].payload), "late but sunny")
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := newTestServer(t, &fakeAgent{}, nil)
	s.config.Host = "127.0.0.1"
	s.config.Port = ln.Addr().(*net.TCPAddr).Port

	err = s.Run(context.Background(), time.Second)
	require.Error(t, err)
}

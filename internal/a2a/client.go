package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client calls message/send on a remote A2A agent endpoint.
type Client struct {
	url  string
	http *http.Client
	seq  atomic.Int64
}

func NewClient(url string) *Client {
	return &Client{url: url, http: &http.Client{Timeout: defaultTimeout}}
}

func (c *Client) URL() string { return c.url }

// FetchAgentCard reads <url>/.well-known/agent.json.
func (c *Client) FetchAgentCard(ctx context.Context) (*AgentCard, error) {
	status, body, err := exchange(ctx, c.http, http.MethodGet, c.url+"/.well-known/agent.json", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("agent card request failed with status %d: %s", status, body)
	}

	card := new(AgentCard)
	if err := json.Unmarshal(body, card); err != nil {
		return nil, fmt.Errorf("failed to parse agent card: %w", err)
	}
	return card, nil
}

// SendMessages uses params.message for a single message and params.messages
// otherwise.
func (c *Client) SendMessages(ctx context.Context, messages []Message) (*Task, error) {
	var params MessageSendParams
	if len(messages) == 1 {
		params.Message = &messages[0]
	} else {
		params.Messages = messages
	}

	task := new(Task)
	if err := c.invoke(ctx, "message/send", params, task); err != nil {
		return nil, err
	}
	return task, nil
}

// invoke performs one JSON-RPC round trip. A JSON-RPC error object is
// returned as *Error whatever the HTTP status.
func (c *Client) invoke(ctx context.Context, method string, params, out any) error {
	payload, err := json.Marshal(Request{
		JSONRPC: Version,
		ID:      json.RawMessage(strconv.FormatInt(c.seq.Add(1), 10)),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal A2A request: %w", err)
	}

	status, body, err := exchange(ctx, c.http, http.MethodPost, c.url, payload, nil)
	if err != nil {
		return fmt.Errorf("failed to send A2A request: %w", err)
	}

	var reply struct {
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return fmt.Errorf("failed to parse A2A response (status %d): %w", status, err)
	}

	switch {
	case reply.Error != nil:
		return reply.Error
	case out == nil || IsNull(reply.Result):
		return nil
	}
	if err := json.Unmarshal(reply.Result, out); err != nil {
		return fmt.Errorf("failed to unmarshal A2A result: %w", err)
	}
	return nil
}

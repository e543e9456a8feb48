package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"weather-a2a/internal/a2a"
	"weather-a2a/internal/agent"
)

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

const (
	kindMessage = "message"
	kindTask    = "task"
	roleAgent   = "agent"
)

// sendCall is a validated message/send invocation.
type sendCall struct {
	messages      []a2a.Message
	contextID     string
	taskID        string
	metadata      json.RawMessage
	configuration *a2a.MessageSendConfiguration
}

// decodeEnvelope parses a JSON-RPC envelope. ok is false when the body is not
// a JSON object, jsonrpc is not "2.0" or the id is missing. The returned id
// is nil unless it is a usable identifier.
func decodeEnvelope(body []byte) (id json.RawMessage, params map[string]json.RawMessage, ok bool) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil || env == nil {
		return nil, nil, false
	}

	if a2a.ValidID(env["id"]) {
		id = env["id"]
	}

	var version string
	if err := json.Unmarshal(env["jsonrpc"], &version); err != nil || version != a2a.Version || id == nil {
		return id, nil, false
	}

	// A params member that is not an object carries nothing usable.
	if err := json.Unmarshal(env["params"], &params); err != nil || params == nil {
		params = map[string]json.RawMessage{}
	}
	return id, params, true
}

// decodeSendParams extracts the messages and routing fields of a
// message/send call. A singular message wins over the messages list, and its
// contextId, taskId and metadata fall back to the top-level values.
func decodeSendParams(params map[string]json.RawMessage) (*sendCall, bool) {
	call := &sendCall{
		contextID: stringField(params["contextId"]),
		taskID:    stringField(params["taskId"]),
	}
	if a2a.Truthy(params["metadata"]) {
		call.metadata = params["metadata"]
	}

	var cfg a2a.MessageSendConfiguration
	if err := json.Unmarshal(params["configuration"], &cfg); err == nil {
		call.configuration = &cfg
	}

	if a2a.Truthy(params["message"]) {
		msg, ok := decodeMessage(params["message"])
		if !ok {
			return nil, false
		}
		call.messages = []a2a.Message{msg}
		if msg.ContextID != "" {
			call.contextID = msg.ContextID
		}
		if msg.TaskID != "" {
			call.taskID = msg.TaskID
		}
		if a2a.Truthy(msg.Metadata) {
			call.metadata = msg.Metadata
		}
		return call, true
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(params["messages"], &raws); err != nil || len(raws) == 0 {
		return nil, false
	}
	for _, raw := range raws {
		msg, ok := decodeMessage(raw)
		if !ok {
			return nil, false
		}
		call.messages = append(call.messages, msg)
	}
	return call, true
}

// decodeMessage reads a message object field by field so that members of an
// unexpected type are ignored instead of failing the whole message. The raw
// parts member is kept for re-emission.
func decodeMessage(raw json.RawMessage) (a2a.Message, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return a2a.Message{}, false
	}

	msg := a2a.Message{
		Role:      stringField(fields["role"]),
		MessageID: stringField(fields["messageId"]),
		TaskID:    stringField(fields["taskId"]),
		ContextID: stringField(fields["contextId"]),
		Metadata:  fields["metadata"],
		Parts:     []a2a.Part{},
		RawParts:  fields["parts"],
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(fields["parts"], &parts); err == nil {
		for _, p := range parts {
			msg.Parts = append(msg.Parts, a2a.UnmarshalPart(p))
		}
	}
	return msg, true
}

func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// flatten converts A2A messages to agent turns: the parts of each message are
// flattened and joined with newlines, in order.
func flatten(msgs []a2a.Message) []agent.Message {
	out := make([]agent.Message, 0, len(msgs))
	for _, m := range msgs {
		texts := make([]string, 0, len(m.Parts))
		for _, p := range m.Parts {
			texts = append(texts, p.Flatten())
		}
		out = append(out, agent.Message{Role: m.Role, Content: strings.Join(texts, "\n")})
	}
	return out
}

// taskBuilder shapes agent output into A2A tasks.
type taskBuilder struct {
	newID func() string
	now   func() time.Time
}

// identity resolves the task and context ids of a call, generating the
// ones the caller omitted.
func (b taskBuilder) identity(call *sendCall) (taskID, contextID string) {
	taskID, contextID = call.taskID, call.contextID
	if taskID == "" {
		taskID = b.newID()
	}
	if contextID == "" {
		contextID = b.newID()
	}
	return taskID, contextID
}

// history re-emits the input messages with their parts exactly as
// received, filling in messageId, taskId and metadata when the input message
// lacks them.
func (b taskBuilder) history(call *sendCall, taskID string) []a2a.Message {
	out := make([]a2a.Message, 0, len(call.messages)+1)
	for _, m := range call.messages {
		entry := a2a.Message{
			Kind:      kindMessage,
			Role:      m.Role,
			Parts:     m.Parts,
			RawParts:  m.RawParts,
			MessageID: m.MessageID,
			TaskID:    m.TaskID,
			Metadata:  m.Metadata,
		}
		if entry.MessageID == "" {
			entry.MessageID = b.newID()
		}
		if entry.TaskID == "" {
			entry.TaskID = taskID
		}
		if !a2a.Truthy(entry.Metadata) {
			entry.Metadata = call.metadata
		}
		out = append(out, entry)
	}
	return out
}

// submitted builds the acknowledgement returned for non-blocking calls.
func (b taskBuilder) submitted(call *sendCall, taskID, contextID string) *a2a.Task {
	return &a2a.Task{
		ID:        taskID,
		ContextID: contextID,
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateSubmitted,
			Timestamp: b.timestamp(),
		},
		History: b.history(call, taskID),
		Kind:    kindTask,
	}
}

// completed builds the task for a successful generation.
func (b taskBuilder) completed(agentID string, call *sendCall, taskID, contextID string, reply *agent.Reply) *a2a.Task {
	text := reply.Text

	artifacts := []a2a.Artifact{{
		ArtifactID: b.newID(),
		Name:       fmt.Sprintf("%sResponse", agentID),
		Parts:      []a2a.Part{a2a.NewTextPart(text)},
	}}
	if len(reply.ToolResults) > 0 {
		parts := make([]a2a.Part, 0, len(reply.ToolResults))
		for _, r := range reply.ToolResults {
			parts = append(parts, a2a.NewDataPart(r))
		}
		artifacts = append(artifacts, a2a.Artifact{
			ArtifactID: b.newID(),
			Name:       "ToolResults",
			Parts:      parts,
		})
	}

	history := b.history(call, taskID)
	history = append(history, a2a.Message{
		Kind:      kindMessage,
		Role:      roleAgent,
		Parts:     []a2a.Part{a2a.NewTextPart(text)},
		MessageID: b.newID(),
		TaskID:    taskID,
		Metadata:  call.metadata,
	})

	return &a2a.Task{
		ID:        taskID,
		ContextID: contextID,
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateCompleted,
			Timestamp: b.timestamp(),
			Message: &a2a.Message{
				Kind:      kindMessage,
				Role:      roleAgent,
				Parts:     []a2a.Part{a2a.NewTextPart(text)},
				MessageID: b.newID(),
			},
		},
		Artifacts: artifacts,
		History:   history,
		Kind:      kindTask,
	}
}

func (b taskBuilder) timestamp() string {
	return b.now().UTC().Format(timestampLayout)
}

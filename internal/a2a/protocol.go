package a2a

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON-RPC 2.0 protocol types for A2A communication.

// Version is the only accepted value of the jsonrpc member.
const Version = "2.0"

// JSON-RPC error codes used by the A2A route.
const (
	CodeInvalidRequest = -32600
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  any             `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response. A nil ID is encoded as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("A2A error %d: %s", e.Code, e.Message)
}

// NewResult wraps a result in a success envelope.
func NewResult(id json.RawMessage, result any) Response {
	return Response{JSONRPC: Version, ID: id, Result: result}
}

// NewError wraps an error object in a failure envelope.
func NewError(id json.RawMessage, code int, message string, data any) Response {
	return Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

// ValidID reports whether a raw id carries a usable identifier. Absent,
// null, false, empty-string and zero ids are rejected.
func ValidID(raw json.RawMessage) bool {
	return Truthy(raw)
}

// Truthy reports whether raw holds a value other than absent, null, false,
// "" or a zero number.
func Truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch string(raw) {
	case "null", "false", `""`:
		return false
	}
	if raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9') {
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil || n == 0 {
			return false
		}
	}
	return true
}

// IsNull reports whether raw is absent or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// AgentCard describes an A2A agent's capabilities.
type AgentCard struct {
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	URL                string       `json:"url"`
	Version            string       `json:"version"`
	ProtocolVersion    string       `json:"protocolVersion,omitempty"`
	Capabilities       Capabilities `json:"capabilities"`
	DefaultInputModes  []string     `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string     `json:"defaultOutputModes,omitempty"`
	Skills             []Skill      `json:"skills,omitempty"`
}

// Capabilities lists optional protocol features supported by an agent.
type Capabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// Skill describes a capability of an A2A agent.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// MessageSendParams is the params for the message/send method.
type MessageSendParams struct {
	Message       *Message                  `json:"message,omitempty"`
	Messages      []Message                 `json:"messages,omitempty"`
	ContextID     string                    `json:"contextId,omitempty"`
	TaskID        string                    `json:"taskId,omitempty"`
	Metadata      json.RawMessage           `json:"metadata,omitempty"`
	Configuration *MessageSendConfiguration `json:"configuration,omitempty"`
}

// MessageSendConfiguration controls how a message/send call is delivered.
type MessageSendConfiguration struct {
	Blocking               *bool                   `json:"blocking,omitempty"`
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitempty"`
}

// PushNotificationConfig names the webhook that receives the completed task.
type PushNotificationConfig struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}

// Async reports whether the caller asked for non-blocking delivery to a webhook.
func (c *MessageSendConfiguration) Async() bool {
	return c != nil &&
		c.Blocking != nil && !*c.Blocking &&
		c.PushNotificationConfig != nil && c.PushNotificationConfig.URL != ""
}

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
)

// Message represents an A2A message.
type Message struct {
	Kind      string          `json:"kind,omitempty"`
	Role      string          `json:"role"`
	Parts     []Part          `json:"parts,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	TaskID    string          `json:"taskId,omitempty"`
	ContextID string          `json:"contextId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`

	// RawParts, when set, is encoded in place of Parts so that a received
	// parts member is echoed byte for byte.
	RawParts json.RawMessage `json:"-"`
}

// MarshalJSON encodes RawParts verbatim when present.
func (m Message) MarshalJSON() ([]byte, error) {
	type messageAlias Message
	if m.RawParts == nil {
		return json.Marshal(messageAlias(m))
	}
	return json.Marshal(struct {
		messageAlias
		Parts json.RawMessage `json:"parts"`
	}{messageAlias(m), m.RawParts})
}

// UnmarshalJSON decodes the polymorphic parts list.
func (m *Message) UnmarshalJSON(data []byte) error {
	type messageAlias Message
	var tmp struct {
		messageAlias
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	*m = Message(tmp.messageAlias)
	m.Parts = decodeParts(tmp.Parts)
	return nil
}

// TextContent returns the text of all text parts, concatenated.
func (m Message) TextContent() string {
	var buf bytes.Buffer
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			buf.WriteString(tp.Text)
		}
	}
	return buf.String()
}

// TaskStatus represents the status of an A2A task.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Timestamp string    `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
}

// Artifact represents output from an A2A task.
type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name"`
	Parts      []Part `json:"parts"`
}

// UnmarshalJSON decodes the polymorphic parts list.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	type artifactAlias Artifact
	var tmp struct {
		artifactAlias
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	*a = Artifact(tmp.artifactAlias)
	a.Parts = decodeParts(tmp.Parts)
	return nil
}

// Task represents an A2A task.
type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
	History   []Message  `json:"history"`
	Kind      string     `json:"kind"`
}

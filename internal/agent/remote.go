package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"weather-a2a/internal/a2a"
)

// toolResultsArtifact names the artifact that carries tool results.
const toolResultsArtifact = "ToolResults"

// RemoteAgent delegates generation to another A2A agent.
type RemoteAgent struct {
	client *a2a.Client
}

// NewRemoteAgent creates an agent backed by the A2A endpoint at url.
func NewRemoteAgent(url string) *RemoteAgent {
	return &RemoteAgent{client: a2a.NewClient(url)}
}

// Generate sends the conversation with message/send and unwraps the task.
func (a *RemoteAgent) Generate(ctx context.Context, messages []Message) (*Reply, error) {
	msgs := make([]a2a.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, a2a.Message{
			Kind:      "message",
			Role:      a2aRole(m.Role),
			Parts:     []a2a.Part{a2a.NewTextPart(m.Content)},
			MessageID: uuid.NewString(),
		})
	}

	task, err := a.client.SendMessages(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("remote agent %s: %w", a.client.URL(), err)
	}
	if task.Status.State == a2a.TaskStateFailed {
		reason := "task failed"
		if task.Status.Message != nil {
			reason = task.Status.Message.TextContent()
		}
		return nil, fmt.Errorf("remote agent %s: %s", a.client.URL(), reason)
	}

	return replyFromTask(task), nil
}

// replyFromTask extracts the reply text and tool results from a task.
func replyFromTask(task *a2a.Task) *Reply {
	reply := &Reply{}
	var texts []string
	for _, art := range task.Artifacts {
		if art.Name == toolResultsArtifact {
			for _, p := range art.Parts {
				if dp, ok := p.(a2a.DataPart); ok {
					reply.ToolResults = append(reply.ToolResults, dp.Data)
				}
			}
			continue
		}
		for _, p := range art.Parts {
			if tp, ok := p.(a2a.TextPart); ok && tp.Text != "" {
				texts = append(texts, tp.Text)
			}
		}
	}

	switch {
	case len(texts) > 0:
		reply.Text = strings.Join(texts, "")
	case task.Status.Message != nil:
		reply.Text = task.Status.Message.TextContent()
	default:
		reply.Text = fmt.Sprintf("Task %s: %s", task.ID, task.Status.State)
	}
	return reply
}

func a2aRole(role string) string {
	switch strings.ToLower(role) {
	case "assistant", "agent", "model":
		return "agent"
	default:
		return "user"
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"weather-a2a/internal/a2a"
	"weather-a2a/internal/agent"
)

const (
	msgInvalidRequest = `Invalid Request: jsonrpc must be "2.0" and id is required`
	msgInvalidParams  = "Invalid params: message or messages is required"
	msgInternalError  = "Internal error"
)

// a2aHandler serves message/send calls for one agent. Every call runs the
// agent once and answers with a completed task, or with a submitted task
// when the caller asked for webhook delivery.
func (s *Server) a2aHandler(c *fiber.Ctx) error {
	agentID := utils.CopyString(c.Params("agentId"))

	id, params, ok := decodeEnvelope(c.Body())
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(
			a2a.NewError(id, a2a.CodeInvalidRequest, msgInvalidRequest, nil))
	}

	ag, found := s.agents.Lookup(agentID)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(
			a2a.NewError(id, a2a.CodeInvalidParams, fmt.Sprintf("Agent '%s' not found", agentID), nil))
	}

	call, ok := decodeSendParams(params)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(
			a2a.NewError(id, a2a.CodeInvalidParams, msgInvalidParams, nil))
	}

	taskID, contextID := s.tasks.identity(call)

	if call.configuration.Async() {
		s.logger.Info("accepted non-blocking call",
			"agent_id", agentID,
			"task_id", taskID,
			"webhook", call.configuration.PushNotificationConfig.URL,
		)
		s.dispatch(agentID, ag, id, call, taskID, contextID)
		return c.JSON(a2a.NewResult(id, s.tasks.submitted(call, taskID, contextID)))
	}

	resp, err := s.generate(c.UserContext(), agentID, ag, id, call, taskID, contextID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(resp)
	}
	return c.JSON(resp)
}

// errNoReply is reported when an agent returns neither a reply nor an error.
var errNoReply = errors.New("agent returned no reply")

// generate runs the agent and wraps the outcome in a JSON-RPC envelope. On
// failure, including a panic while generating or shaping the task, the
// returned envelope carries the -32603 error.
func (s *Server) generate(ctx context.Context, agentID string, ag agent.Agent, id json.RawMessage, call *sendCall, taskID, contextID string) (resp a2a.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
			resp = s.internalError(agentID, taskID, id, err)
		}
	}()

	reply, err := ag.Generate(ctx, flatten(call.messages))
	if err == nil && reply == nil {
		err = errNoReply
	}
	if err != nil {
		return s.internalError(agentID, taskID, id, err), err
	}

	return a2a.NewResult(id, s.tasks.completed(agentID, call, taskID, contextID, reply)), nil
}

func (s *Server) internalError(agentID, taskID string, id json.RawMessage, err error) a2a.Response {
	s.logger.Error("agent generation failed",
		"agent_id", agentID,
		"task_id", taskID,
		"error", err,
	)
	return a2a.NewError(id, a2a.CodeInternalError, msgInternalError, map[string]string{
		"details": err.Error(),
	})
}

// dispatch generates in the background and POSTs the final envelope to the
// caller's webhook. The generation is detached from the request and bounded
// by the configured push timeout.
func (s *Server) dispatch(agentID string, ag agent.Agent, id json.RawMessage, call *sendCall, taskID, contextID string) {
	hook := *call.configuration.PushNotificationConfig

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("push notification aborted", "agent_id", agentID, "task_id", taskID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.config.A2A.PushTimeout)
		defer cancel()

		resp, _ := s.generate(ctx, agentID, ag, id, call, taskID, contextID)
		if err := s.notifier.Notify(ctx, hook, resp); err != nil {
			s.logger.Error("failed to deliver push notification",
				"agent_id", agentID,
				"task_id", taskID,
				"webhook", hook.URL,
				"error", err,
			)
			return
		}
		s.logger.Debug("push notification delivered", "agent_id", agentID, "task_id", taskID)
	}()
}

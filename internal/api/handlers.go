package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"weather-a2a/internal/a2a"
	"weather-a2a/internal/agent"
	"weather-a2a/internal/storage"
)

const defaultRunsLimit = 20

// healthHandler returns the API health status.
func (s *Server) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// listAgentsHandler returns the registered agents.
func (s *Server) listAgentsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"agents": s.agents.Describe(),
	})
}

// listRunsHandler returns the most recent recorded runs of an agent.
func (s *Server) listRunsHandler(c *fiber.Ctx) error {
	agentID := c.Params("agentId")
	if _, ok := s.findAgent(agentID); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("Agent '%s' not found", agentID),
		})
	}

	limit := c.QueryInt("limit", defaultRunsLimit)
	if limit < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be a positive integer",
		})
	}

	runs := []*storage.Run{}
	if s.runs != nil {
		var err error
		runs, err = s.runs.ListRuns(c.UserContext(), agentID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	return c.JSON(fiber.Map{
		"agentId": agentID,
		"runs":    runs,
		"total":   len(runs),
	})
}

// agentCardHandler serves the A2A agent card of an agent.
func (s *Server) agentCardHandler(c *fiber.Ctx) error {
	agentID := c.Params("agentId")
	info, ok := s.findAgent(agentID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("Agent '%s' not found", agentID),
		})
	}
	return c.JSON(s.agentCard(info))
}

func (s *Server) agentCard(info agent.Info) a2a.AgentCard {
	skills := make([]a2a.Skill, 0, len(info.Tools))
	for _, tool := range info.Tools {
		skills = append(skills, a2a.Skill{ID: tool, Name: tool, Tags: []string{"tool"}})
	}
	if len(skills) == 0 {
		skills = append(skills, a2a.Skill{ID: info.ID, Name: info.Name, Description: info.Description})
	}

	return a2a.AgentCard{
		Name:               info.Name,
		Description:        info.Description,
		URL:                fmt.Sprintf("%s/a2a/agent/%s", s.config.BaseURL, info.ID),
		Version:            Version,
		ProtocolVersion:    "0.3.0",
		Capabilities:       a2a.Capabilities{Streaming: false, PushNotifications: true},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             skills,
	}
}

func (s *Server) findAgent(id string) (agent.Info, bool) {
	for _, info := range s.agents.Describe() {
		if info.ID == id {
			return info, true
		}
	}
	return agent.Info{}, false
}

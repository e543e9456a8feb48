package api

func (s *Server) setupRoutes() {
	// Documentation
	s.app.Get("/docs", handleDocsHTML)
	s.app.Get("/docs/json", handleDocsJSON)

	// Health check
	s.app.Get("/health", s.healthHandler)

	// Agents and their recorded runs
	s.app.Get("/api/agents", s.listAgentsHandler)
	s.app.Get("/api/agents/:agentId/runs", s.listRunsHandler)

	// A2A
	s.app.Get("/a2a/agent/:agentId/.well-known/agent.json", s.agentCardHandler)
	s.app.Post("/a2a/agent/:agentId", s.a2aHandler)
}

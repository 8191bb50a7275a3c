package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all TrustGate tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("trustgate", "1.0.0")
	client := NewTrustGateClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolEvaluateTrust, h.HandleEvaluateTrust)
	s.AddTool(ToolGetEvaluation, h.HandleGetEvaluation)
	s.AddTool(ToolListEvaluations, h.HandleListEvaluations)
	s.AddTool(ToolGetDecayHistory, h.HandleGetDecayHistory)
	s.AddTool(ToolListTrustedClusters, h.HandleListTrustedClusters)
	s.AddTool(ToolGetBaseline, h.HandleGetBaseline)

	return s
}

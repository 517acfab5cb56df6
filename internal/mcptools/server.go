package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/psantana5/grain/internal/shop"
)

// NewServer builds an MCP server with every Grain tool bound to one user's shop
func NewServer(svc *shop.Service, userID, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"grain",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Grain tracks a woodworking shop's inventory and projects. "+
			"Use grain_list_projects to find project IDs before calling grain_project_cost."),
	)

	boardFeet := NewBoardFeetTool()
	s.AddTool(boardFeet.Definition(), boardFeet.Handle)

	unitPrice := NewUnitPriceTool()
	s.AddTool(unitPrice.Definition(), unitPrice.Handle)

	dashboard := NewDashboardTool(svc, userID)
	s.AddTool(dashboard.Definition(), dashboard.Handle)

	projectCost := NewProjectCostTool(svc, userID)
	s.AddTool(projectCost.Definition(), projectCost.Handle)

	listProjects := NewListProjectsTool(svc, userID)
	s.AddTool(listProjects.Definition(), listProjects.Handle)

	return s
}

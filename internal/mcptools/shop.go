package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/psantana5/grain/internal/shop"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
)

// DashboardTool handles the grain_dashboard MCP tool.
type DashboardTool struct {
	shop   *shop.Service
	userID string
}

// NewDashboardTool creates a DashboardTool serving one user's shop.
func NewDashboardTool(svc *shop.Service, userID string) *DashboardTool {
	return &DashboardTool{shop: svc, userID: userID}
}

// Definition returns the MCP tool definition for grain_dashboard.
func (t *DashboardTool) Definition() mcp.Tool {
	return mcp.NewTool("grain_dashboard",
		mcp.WithDescription("Summarize the shop: inventory counts and value, projects by status, average project cost."),
	)
}

// Handle processes the grain_dashboard tool call.
func (t *DashboardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := t.shop.Dashboard(ctx, t.userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build dashboard: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("## Shop Dashboard\n\n")
	fmt.Fprintf(&b, "- **Lumber**: %d stacks, %s bf, %s\n", d.Lumber.Count, number(d.LumberBoardFeet), money(d.Lumber.Value))
	fmt.Fprintf(&b, "- **Finishes**: %d, %s\n", d.Finishes.Count, money(d.Finishes.Value))
	fmt.Fprintf(&b, "- **Sheet goods**: %d, %s\n", d.SheetGoods.Count, money(d.SheetGoods.Value))
	fmt.Fprintf(&b, "- **Consumables**: %d, %s\n", d.Consumables.Count, money(d.Consumables.Value))
	fmt.Fprintf(&b, "- **Tools**: %d, %s\n", d.Tools.Count, money(d.Tools.Value))
	fmt.Fprintf(&b, "- **Inventory value**: %s (with tools %s)\n", money(d.InventoryValue), money(d.TotalValue))
	fmt.Fprintf(&b, "- **Items in trash**: %d\n\n", d.TrashCount)

	fmt.Fprintf(&b, "### Projects (%d)\n\n", d.ProjectCount)
	for _, sc := range d.ProjectsByStatus {
		fmt.Fprintf(&b, "- %s: %d\n", sc.Status, sc.Count)
	}
	fmt.Fprintf(&b, "- **Total cost**: %s, average %s\n", money(d.TotalProjectCost), money(d.AverageProjectCost))

	if len(d.RecentProjects) > 0 {
		b.WriteString("\n### Recently updated\n\n")
		for _, p := range d.RecentProjects {
			fmt.Fprintf(&b, "- %s (%s) `%s`\n", p.Name, p.Status, p.ID)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ProjectCostTool handles the grain_project_cost MCP tool.
type ProjectCostTool struct {
	shop   *shop.Service
	userID string
}

// NewProjectCostTool creates a ProjectCostTool.
func NewProjectCostTool(svc *shop.Service, userID string) *ProjectCostTool {
	return &ProjectCostTool{shop: svc, userID: userID}
}

// Definition returns the MCP tool definition for grain_project_cost.
func (t *ProjectCostTool) Definition() mcp.Tool {
	return mcp.NewTool("grain_project_cost",
		mcp.WithDescription("Itemized cost breakdown of a project: materials, labor, total, profit and margin."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project ID, see grain_list_projects")),
	)
}

// Handle processes the grain_project_cost tool call.
func (t *ProjectCostTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("project_id", "")
	if id == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	project, err := t.shop.Projects.Get(ctx, t.userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("project %s not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load project: %v", err)), nil
	}
	cost, err := t.shop.ProjectCost(ctx, t.userID, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to cost project: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s)\n\n", project.Name, project.Status)
	if len(cost.Lines) == 0 {
		b.WriteString("No materials.\n")
	}
	for _, l := range cost.Lines {
		fmt.Fprintf(&b, "- %s: %s %s x %s = %s\n", l.Name, number(l.Quantity), l.Unit, money(l.UnitCost), money(l.Cost))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- **Lumber**: %s (%s bf)\n", money(cost.MaterialCost), number(cost.BoardFeet))
	fmt.Fprintf(&b, "- **Finishes**: %s\n", money(cost.FinishCost))
	fmt.Fprintf(&b, "- **Sheet goods**: %s\n", money(cost.SheetGoodCost))
	fmt.Fprintf(&b, "- **Consumables**: %s\n", money(cost.ConsumableCost))
	fmt.Fprintf(&b, "- **Labor**: %s\n", money(cost.LaborCost))
	fmt.Fprintf(&b, "- **Misc**: %s\n", money(cost.MiscCost))
	fmt.Fprintf(&b, "- **Total**: %s\n", money(cost.Total))
	if cost.SalePrice > 0 {
		fmt.Fprintf(&b, "- **Sale price**: %s, profit %s (%s%% margin)\n", money(cost.SalePrice), money(cost.Profit), number(cost.Margin))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ListProjectsTool handles the grain_list_projects MCP tool.
type ListProjectsTool struct {
	shop   *shop.Service
	userID string
}

// NewListProjectsTool creates a ListProjectsTool.
func NewListProjectsTool(svc *shop.Service, userID string) *ListProjectsTool {
	return &ListProjectsTool{shop: svc, userID: userID}
}

// Definition returns the MCP tool definition for grain_list_projects.
func (t *ListProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("grain_list_projects",
		mcp.WithDescription("List active projects with their IDs and status."),
		mcp.WithString("search", mcp.Description("Case-insensitive substring of the project name")),
		mcp.WithString("status",
			mcp.Description("Only projects in this status"),
			mcp.Enum("planned", "in_progress", "completed", "cancelled"),
		),
		mcp.WithNumber("limit", mcp.Description("Max results (default 50)")),
	)
}

// Handle processes the grain_list_projects tool call.
func (t *ListProjectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 50
	if v, ok := floatArg(req, "limit"); ok && v > 0 {
		limit = int(v)
	}
	status := models.ProjectStatus(req.GetString("status", ""))

	projects, err := t.shop.Projects.List(ctx, t.userID, store.ListFilter{Search: req.GetString("search", "")})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	var b strings.Builder
	n := 0
	for _, p := range projects {
		if status != "" && p.Status != status {
			continue
		}
		if n == limit {
			break
		}
		n++
		fmt.Fprintf(&b, "- %s (%s) `%s`", p.Name, p.Status, p.ID)
		if p.ClientName != "" {
			fmt.Fprintf(&b, " for %s", p.ClientName)
		}
		b.WriteString("\n")
	}
	if n == 0 {
		return mcp.NewToolResultText("No projects found."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d projects:\n\n%s", n, b.String())), nil
}

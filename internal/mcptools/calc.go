package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/psantana5/grain/internal/costing"
)

// BoardFeetTool handles the grain_board_feet MCP tool.
type BoardFeetTool struct{}

// NewBoardFeetTool creates a BoardFeetTool.
func NewBoardFeetTool() *BoardFeetTool {
	return &BoardFeetTool{}
}

// Definition returns the MCP tool definition for grain_board_feet.
func (t *BoardFeetTool) Definition() mcp.Tool {
	return mcp.NewTool("grain_board_feet",
		mcp.WithDescription("Compute board feet: width (in) x thickness (in) x length (in) / 144 x quantity."),
		mcp.WithNumber("width", mcp.Required(), mcp.Description("Board width in inches")),
		mcp.WithNumber("thickness", mcp.Required(), mcp.Description("Board thickness in inches")),
		mcp.WithNumber("length", mcp.Required(), mcp.Description("Board length, in the given unit")),
		mcp.WithString("unit",
			mcp.Description("Length unit (default in)"),
			mcp.Enum("in", "ft", "yd", "vara", "cm", "m"),
		),
		mcp.WithNumber("quantity", mcp.Description("Number of boards (default 1)")),
	)
}

// Handle processes the grain_board_feet tool call.
func (t *BoardFeetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	width, ok1 := floatArg(req, "width")
	thickness, ok2 := floatArg(req, "thickness")
	length, ok3 := floatArg(req, "length")
	if !ok1 || !ok2 || !ok3 {
		return mcp.NewToolResultError("'width', 'thickness' and 'length' are required numbers"), nil
	}
	quantity, ok := floatArg(req, "quantity")
	if !ok {
		quantity = 1
	}
	if width <= 0 || thickness <= 0 || length <= 0 || quantity <= 0 {
		return mcp.NewToolResultError("dimensions and quantity must be positive"), nil
	}

	unit := costing.LengthUnit(req.GetString("unit", string(costing.UnitInch)))
	inches, err := costing.ToInches(length, unit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	bf := costing.BoardFeet(width, thickness, inches, quantity)
	return mcp.NewToolResultText(fmt.Sprintf("%s board feet (%g boards of %g\" x %g\" x %g %s)",
		number(bf), quantity, width, thickness, length, unit)), nil
}

// UnitPriceTool handles the grain_unit_price MCP tool.
type UnitPriceTool struct{}

// NewUnitPriceTool creates a UnitPriceTool.
func NewUnitPriceTool() *UnitPriceTool {
	return &UnitPriceTool{}
}

// Definition returns the MCP tool definition for grain_unit_price.
func (t *UnitPriceTool) Definition() mcp.Tool {
	return mcp.NewTool("grain_unit_price",
		mcp.WithDescription("Price of a single unit of a package, e.g. one screw out of a box of 100."),
		mcp.WithNumber("package_price", mcp.Required(), mcp.Description("Price of the whole package")),
		mcp.WithNumber("package_quantity", mcp.Required(), mcp.Description("Units in the package")),
	)
}

// Handle processes the grain_unit_price tool call.
func (t *UnitPriceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	price, ok1 := floatArg(req, "package_price")
	qty, ok2 := floatArg(req, "package_quantity")
	if !ok1 || !ok2 {
		return mcp.NewToolResultError("'package_price' and 'package_quantity' are required numbers"), nil
	}
	if price < 0 || qty < 0 {
		return mcp.NewToolResultError("price and quantity must not be negative"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s per unit", money(costing.UnitPrice(price, qty)))), nil
}

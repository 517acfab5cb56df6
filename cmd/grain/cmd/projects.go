package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const breakdownFields = `lines { kind itemId name quantity unit unitCost cost }
	boardFeet materialCost finishCost sheetGoodCost consumableCost laborCost miscCost total salePrice profit margin`

func projectCommands() []*cobra.Command {
	return []*cobra.Command{projectCostCmd(), projectShareCmd(), projectUnshareCmd(), projectItemsCmd()}
}

func projectCostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cost ID",
		Short: "Show the itemized cost of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := connect(true)
			if err != nil {
				return err
			}
			var data struct{ ProjectCost record }
			query := `query($id: ID!) { projectCost(id: $id) { ` + breakdownFields + ` } }`
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"id": args[0]}, &data); err != nil {
				return err
			}
			return render(stdout(cmd), outputFormat, data.ProjectCost, func(w io.Writer) error {
				return renderBreakdown(w, data.ProjectCost)
			})
		},
	}
}

// renderBreakdown prints the cost lines followed by the totals
func renderBreakdown(w io.Writer, b record) error {
	lines, _ := b["lines"].([]interface{})
	if len(lines) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header("Item", "Kind", "Qty", "Unit cost", "Cost")
		for _, l := range lines {
			line, _ := l.(record)
			qty := text(line["quantity"])
			if unit := text(line["unit"]); unit != "" {
				qty += " " + unit
			}
			if err := table.Append(text(line["name"]), text(line["kind"]), qty,
				money(num(line["unitCost"])), money(num(line["cost"]))); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	rows := [][2]string{
		{"Lumber", fmt.Sprintf("%s (%s bf)", money(num(b["materialCost"])), text(b["boardFeet"]))},
		{"Finishes", money(num(b["finishCost"]))},
		{"Sheet goods", money(num(b["sheetGoodCost"]))},
		{"Consumables", money(num(b["consumableCost"]))},
		{"Labor", money(num(b["laborCost"]))},
		{"Misc", money(num(b["miscCost"]))},
		{"Total", money(num(b["total"]))},
	}
	if num(b["salePrice"]) > 0 {
		rows = append(rows,
			[2]string{"Sale price", money(num(b["salePrice"]))},
			[2]string{"Profit", fmt.Sprintf("%s (%s%%)", money(num(b["profit"])), text(b["margin"]))})
	}
	return renderFields(w, rows)
}

func projectShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share ID",
		Short: "Publish a read-only view of a project and print its link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := connect(true)
			if err != nil {
				return err
			}
			var data struct{ ShareProject record }
			query := `mutation($id: ID!) { shareProject(id: $id) { id name shareToken } }`
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"id": args[0]}, &data); err != nil {
				return err
			}
			token := text(data.ShareProject["shareToken"])
			out := record{"id": args[0], "shareToken": token, "url": cl.server + "/api/shared/" + token}
			return render(stdout(cmd), outputFormat, out, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "✓ %s is shared\n  Token: %s\n  URL:   %s\n",
					text(data.ShareProject["name"]), token, out["url"])
				return err
			})
		},
	}
}

func projectUnshareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unshare ID",
		Short: "Revoke the public link of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := connect(true)
			if err != nil {
				return err
			}
			query := `mutation($id: ID!) { unshareProject(id: $id) { id } }`
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"id": args[0]}, nil); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "✓ project %s is no longer shared\n", args[0])
			return nil
		},
	}
}

const itemFields = `items { kind itemId name quantity percentage unit amount unitCost cost itemDeleted }`

func projectItemsCmd() *cobra.Command {
	items := &cobra.Command{
		Use:   "items",
		Short: "Show and change the inventory lines of a project",
	}

	show := &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List the lines of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := connect(true)
			if err != nil {
				return err
			}
			var data struct{ Project record }
			query := `query($id: ID!) { project(id: $id) { ` + itemFields + ` } }`
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"id": args[0]}, &data); err != nil {
				return err
			}
			if data.Project == nil {
				return fmt.Errorf("project %s not found", args[0])
			}
			return renderItems(cmd, data.Project)
		},
	}

	var quantity, percentage float64
	add := &cobra.Command{
		Use:   "add PROJECT_ID KIND ITEM_ID",
		Short: "Add a line, or change the amount of an existing one",
		Long: `Add a line to a project. KIND is lumber, finish, sheet_good, consumable or tool.
Lumber takes --quantity in boards, finishes take --percentage of one container.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := connect(true)
			if err != nil {
				return err
			}
			item := map[string]interface{}{"kind": enumName(args[1]), "itemId": args[2]}
			if cmd.Flags().Changed("quantity") {
				item["quantity"] = quantity
			}
			if cmd.Flags().Changed("percentage") {
				item["percentage"] = percentage
			}
			var data struct{ AddProjectItem record }
			query := `mutation($id: ID!, $item: ProjectItemInput!) { addProjectItem(projectId: $id, item: $item) { ` + itemFields + ` } }`
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"id": args[0], "item": item}, &data); err != nil {
				return err
			}
			return renderItems(cmd, data.AddProjectItem)
		},
	}
	add.Flags().Float64VarP(&quantity, "quantity", "q", 0, "amount used")
	add.Flags().Float64VarP(&percentage, "percentage", "p", 0, "percent of a finish container used")

	remove := &cobra.Command{
		Use:   "remove PROJECT_ID KIND ITEM_ID",
		Short: "Remove a line from a project",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := connect(true)
			if err != nil {
				return err
			}
			var data struct{ RemoveProjectItem record }
			query := `mutation($id: ID!, $kind: ItemKind!, $item: ID!) {
				removeProjectItem(projectId: $id, kind: $kind, itemId: $item) { ` + itemFields + ` } }`
			vars := map[string]interface{}{"id": args[0], "kind": enumName(args[1]), "item": args[2]}
			if err := cl.do(cmd.Context(), query, vars, &data); err != nil {
				return err
			}
			return renderItems(cmd, data.RemoveProjectItem)
		},
	}

	items.AddCommand(show, add, remove)
	return items
}

func renderItems(cmd *cobra.Command, project record) error {
	lines, _ := project["items"].([]interface{})
	return render(stdout(cmd), outputFormat, lines, func(w io.Writer) error {
		if len(lines) == 0 {
			_, err := fmt.Fprintln(w, "No lines")
			return err
		}
		table := tablewriter.NewWriter(w)
		table.Header("Kind", "Item ID", "Name", "Amount", "Cost", "")
		for _, l := range lines {
			line, _ := l.(record)
			amount := text(line["amount"]) + " " + text(line["unit"])
			note := ""
			if line["itemDeleted"] == true {
				note = "in trash"
			}
			if err := table.Append(strings.ToLower(text(line["kind"])), text(line["itemId"]), text(line["name"]),
				amount, money(num(line["cost"])), note); err != nil {
				return err
			}
		}
		return table.Render()
	})
}

// enumName converts a CLI value such as sheet-good to the GraphQL enum name SHEET_GOOD
func enumName(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
}

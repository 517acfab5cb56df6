package cmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/grain/pkg/middleware"
)

const kindStatsFields = `{ count trashed value }`

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Summarize inventory and projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := connect(true)
		if err != nil {
			return err
		}
		query := `{ dashboard {
			lumber ` + kindStatsFields + ` finishes ` + kindStatsFields + ` sheetGoods ` + kindStatsFields + `
			consumables ` + kindStatsFields + ` tools ` + kindStatsFields + `
			lumberBoardFeet inventoryValue totalValue projectCount
			projectsByStatus { status count }
			totalProjectCost averageProjectCost trashCount
			recentProjects { id name status updatedAt }
		} }`
		var data struct{ Dashboard record }
		if err := cl.do(cmd.Context(), query, nil, &data); err != nil {
			return err
		}
		return render(stdout(cmd), outputFormat, data.Dashboard, func(w io.Writer) error {
			return renderDashboard(w, data.Dashboard)
		})
	},
}

func renderDashboard(w io.Writer, d record) error {
	table := tablewriter.NewWriter(w)
	table.Header("Inventory", "Count", "Trashed", "Value")
	for _, k := range []struct{ label, key string }{
		{"Lumber", "lumber"}, {"Finishes", "finishes"}, {"Sheet goods", "sheetGoods"},
		{"Consumables", "consumables"}, {"Tools", "tools"},
	} {
		stats, _ := d[k.key].(record)
		if err := table.Append(k.label, text(stats["count"]), text(stats["trashed"]), money(num(stats["value"]))); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	statuses := []string{}
	if list, ok := d["projectsByStatus"].([]interface{}); ok {
		for _, s := range list {
			sc, _ := s.(record)
			statuses = append(statuses, fmt.Sprintf("%s %s", strings.ToLower(text(sc["status"])), text(sc["count"])))
		}
	}
	rows := [][2]string{
		{"Lumber on hand", text(d["lumberBoardFeet"]) + " bf"},
		{"Materials value", money(num(d["inventoryValue"]))},
		{"Total value", money(num(d["totalValue"]))},
		{"Projects", fmt.Sprintf("%s (%s)", text(d["projectCount"]), strings.Join(statuses, ", "))},
		{"Total project cost", money(num(d["totalProjectCost"]))},
		{"Average project cost", money(num(d["averageProjectCost"]))},
		{"In trash", text(d["trashCount"])},
	}
	if err := renderFields(w, rows); err != nil {
		return err
	}

	recent, _ := d["recentProjects"].([]interface{})
	if len(recent) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nRecently updated")
	records := make([]record, 0, len(recent))
	for _, p := range recent {
		if r, ok := p.(record); ok {
			records = append(records, r)
		}
	}
	t := tablewriter.NewWriter(w)
	t.Header("ID", "Name", "Status", "Updated")
	for _, r := range records {
		if err := t.Append(text(r["id"]), text(r["name"]), strings.ToLower(text(r["status"])), ago(r["updatedAt"])); err != nil {
			return err
		}
	}
	return t.Render()
}

var sharedCmd = &cobra.Command{
	Use:   "shared TOKEN",
	Short: "Show a shared project; no login needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := connect(false)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, cl.server+"/api/shared/"+args[0], nil)
		if err != nil {
			return err
		}
		resp, err := cl.http.Do(req)
		if err != nil {
			return fmt.Errorf("failed to reach %s: %w", cl.server, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			var e middleware.ErrorResponse
			if decodeJSON(resp.Body, &e) == nil && e.Message != "" {
				return fmt.Errorf("%s", e.Message)
			}
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		var view record
		if err := decodeJSON(resp.Body, &view); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return render(stdout(cmd), outputFormat, view, func(w io.Writer) error {
			rows := [][2]string{
				{"Project", text(view["name"])},
				{"Status", text(view["status"])},
				{"Client", text(view["clientName"])},
			}
			if d := text(view["description"]); d != "" {
				rows = append(rows, [2]string{"Description", d})
			}
			if err := renderFields(w, rows); err != nil {
				return err
			}
			fmt.Fprintln(w)
			cost, _ := view["cost"].(record)
			return renderBreakdown(w, cost)
		})
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd, sharedCmd)
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// kind describes how one record type is reached through the API and shown in a table
type kind struct {
	use      string
	aliases  []string
	label    string // human name, singular
	typeName string // GraphQL type, e.g. SheetGood
	single   string
	plural   string
	fields   string
	enums    []string // input keys holding GraphQL enum values
	columns  []column
}

const recordMeta = `id createdAt updatedAt deletedAt deleted`

var kinds = []kind{
	{
		use: "lumber", label: "lumber", typeName: "Lumber", single: "lumber", plural: "lumbers",
		fields: `species grade width thickness length lengthUnit quantity pricePerBoardFoot supplier notes boardFeet inventoryValue`,
		columns: []column{
			field("ID", "id"), field("Species", "species"), field("Grade", "grade"),
			{header: "Size", value: func(r record) string {
				return fmt.Sprintf("%s x %s x %s %s", text(r["thickness"]), text(r["width"]), text(r["length"]), text(r["lengthUnit"]))
			}},
			field("Qty", "quantity"), field("BF", "boardFeet"), moneyField("$/BF", "pricePerBoardFoot"),
			moneyField("Value", "inventoryValue"),
		},
	},
	{
		use: "finishes", aliases: []string{"finish"}, label: "finish", typeName: "Finish", single: "finish", plural: "finishes",
		fields: `name brand finishType volume volumeUnit price quantity notes inventoryValue`,
		enums:  []string{"finishType"},
		columns: []column{
			field("ID", "id"), field("Name", "name"), field("Brand", "brand"), field("Type", "finishType"),
			field("Qty", "quantity"), moneyField("Price", "price"), moneyField("Value", "inventoryValue"),
		},
	},
	{
		use: "sheet-goods", aliases: []string{"sheets", "sheet-good"}, label: "sheet good", typeName: "SheetGood",
		single: "sheetGood", plural: "sheetGoods",
		fields: `name material width length thickness price quantity notes inventoryValue`,
		enums:  []string{"material"},
		columns: []column{
			field("ID", "id"), field("Name", "name"), field("Material", "material"),
			{header: "Size", value: func(r record) string {
				return fmt.Sprintf("%s x %s x %s", text(r["width"]), text(r["length"]), text(r["thickness"]))
			}},
			field("Qty", "quantity"), moneyField("Price", "price"), moneyField("Value", "inventoryValue"),
		},
	},
	{
		use: "consumables", aliases: []string{"consumable"}, label: "consumable", typeName: "Consumable",
		single: "consumable", plural: "consumables",
		fields: `name category packagePrice packageQuantity unit quantity notes unitPrice inventoryValue`,
		enums:  []string{"category"},
		columns: []column{
			field("ID", "id"), field("Name", "name"), field("Category", "category"),
			{header: "Qty", value: func(r record) string { return text(r["quantity"]) + " " + text(r["unit"]) }},
			moneyField("Unit price", "unitPrice"), moneyField("Value", "inventoryValue"),
		},
	},
	{
		use: "tools", aliases: []string{"tool"}, label: "tool", typeName: "Tool", single: "tool", plural: "tools",
		fields: `name brand model category purchasePrice purchaseDate condition notes inventoryValue`,
		enums:  []string{"condition"},
		columns: []column{
			field("ID", "id"), field("Name", "name"), field("Brand", "brand"), field("Model", "model"),
			field("Condition", "condition"), moneyField("Price", "purchasePrice"),
		},
	},
	{
		use: "projects", aliases: []string{"project"}, label: "project", typeName: "Project", single: "project", plural: "projects",
		fields: `name description status clientName laborHours hourlyRate miscCost salePrice startDate dueDate completedAt shareToken shared notes cost { total }`,
		enums:  []string{"status"},
		columns: []column{
			field("ID", "id"), field("Name", "name"), field("Status", "status"), field("Client", "clientName"),
			{header: "Cost", value: func(r record) string {
				cost, _ := r["cost"].(record)
				return money(num(cost["total"]))
			}},
			moneyField("Sale", "salePrice"), field("Shared", "shared"),
			{header: "Updated", value: func(r record) string { return ago(r["updatedAt"]) }},
		},
	},
}

func (k kind) selection() string {
	return recordMeta + " " + k.fields
}

// withTrashColumn adds a Trashed column when listing deleted records
func withTrashColumn(columns []column) []column {
	return append(columns[:len(columns):len(columns)], column{header: "Trashed", value: func(r record) string {
		if r["deletedAt"] == nil {
			return ""
		}
		return ago(r["deletedAt"])
	}})
}

func init() {
	for _, k := range kinds {
		c := k.command()
		if k.use == "projects" {
			c.AddCommand(projectCommands()...)
		}
		rootCmd.AddCommand(c)
	}
}

func (k kind) command() *cobra.Command {
	parent := &cobra.Command{
		Use:     k.use,
		Aliases: k.aliases,
		Short:   fmt.Sprintf("Manage %s records", k.label),
	}
	parent.AddCommand(k.listCmd(), k.getCmd(), k.createCmd(), k.updateCmd(),
		k.mutateCmd("delete", "Move a "+k.label+" to the trash"),
		k.mutateCmd("restore", "Take a "+k.label+" out of the trash"),
		k.destroyCmd())
	return parent
}

func (k kind) listCmd() *cobra.Command {
	var (
		search  string
		trashed bool
		all     bool
		limit   int
		offset  int
	)
	c := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s records", k.label),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := connect(true)
			if err != nil {
				return err
			}
			filter := map[string]interface{}{
				"search": search, "onlyDeleted": trashed, "includeDeleted": all, "limit": limit, "offset": offset,
			}
			query := fmt.Sprintf(`query($filter: ListFilter) { items: %s(filter: $filter) { %s } }`, k.plural, k.selection())

			var data struct{ Items []record }
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"filter": filter}, &data); err != nil {
				return err
			}
			columns := k.columns
			if trashed || all {
				columns = withTrashColumn(columns)
			}
			return renderRecords(stdout(cmd), outputFormat, data.Items, columns)
		},
	}
	c.Flags().StringVarP(&search, "search", "s", "", "only records whose name contains this text")
	c.Flags().BoolVar(&trashed, "trash", false, "list the trash instead of active records")
	c.Flags().BoolVar(&all, "all", false, "include trashed records")
	c.Flags().IntVar(&limit, "limit", 0, "maximum number of records (0 for all)")
	c.Flags().IntVar(&offset, "offset", 0, "records to skip")
	return c
}

func (k kind) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: fmt.Sprintf("Show one %s", k.label),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := connect(true)
			if err != nil {
				return err
			}
			query := fmt.Sprintf(`query($id: ID!) { item: %s(id: $id) { %s } }`, k.single, k.selection())
			var data struct{ Item record }
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"id": args[0]}, &data); err != nil {
				return err
			}
			if data.Item == nil {
				return fmt.Errorf("%s %s not found", k.label, args[0])
			}
			return k.show(cmd, data.Item)
		},
	}
}

func (k kind) createCmd() *cobra.Command {
	var file string
	c := &cobra.Command{
		Use:   "create -f FILE",
		Short: fmt.Sprintf("Create a %s from a YAML or JSON file (- for stdin)", k.label),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := k.readInput(cmd, file)
			if err != nil {
				return err
			}
			cl, err := connect(true)
			if err != nil {
				return err
			}
			query := fmt.Sprintf(`mutation($input: %sInput!) { item: create%s(input: $input) { %s } }`,
				k.typeName, k.typeName, k.selection())
			var data struct{ Item record }
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"input": input}, &data); err != nil {
				return err
			}
			return k.show(cmd, data.Item)
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "input file")
	_ = c.MarkFlagRequired("file")
	return c
}

func (k kind) updateCmd() *cobra.Command {
	var file string
	c := &cobra.Command{
		Use:   "update ID -f FILE",
		Short: fmt.Sprintf("Change the fields of a %s listed in a YAML or JSON file", k.label),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := k.readInput(cmd, file)
			if err != nil {
				return err
			}
			cl, err := connect(true)
			if err != nil {
				return err
			}
			query := fmt.Sprintf(`mutation($id: ID!, $input: %sInput!) { item: update%s(id: $id, input: $input) { %s } }`,
				k.typeName, k.typeName, k.selection())
			var data struct{ Item record }
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"id": args[0], "input": input}, &data); err != nil {
				return err
			}
			return k.show(cmd, data.Item)
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "input file")
	_ = c.MarkFlagRequired("file")
	return c
}

func (k kind) mutateCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := connect(true)
			if err != nil {
				return err
			}
			query := fmt.Sprintf(`mutation($id: ID!) { item: %s%s(id: $id) { %s } }`, verb, k.typeName, k.selection())
			var data struct{ Item record }
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"id": args[0]}, &data); err != nil {
				return err
			}
			return render(stdout(cmd), outputFormat, data.Item, func(w io.Writer) error {
				past := map[string]string{"delete": "moved to trash", "restore": "restored"}[verb]
				_, err := fmt.Fprintf(w, "✓ %s %s %s\n", k.label, args[0], past)
				return err
			})
		},
	}
}

func (k kind) destroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy ID",
		Short: fmt.Sprintf("Permanently remove a trashed %s", k.label),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := connect(true)
			if err != nil {
				return err
			}
			query := fmt.Sprintf(`mutation($id: ID!) { destroy%s(id: $id) }`, k.typeName)
			if err := cl.do(cmd.Context(), query, map[string]interface{}{"id": args[0]}, nil); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "✓ %s %s destroyed\n", k.label, args[0])
			return nil
		},
	}
}

// show prints a single record as label/value rows
func (k kind) show(cmd *cobra.Command, r record) error {
	return render(stdout(cmd), outputFormat, r, func(w io.Writer) error {
		rows := make([][2]string, 0, len(k.columns)+2)
		for _, c := range k.columns {
			rows = append(rows, [2]string{c.header, c.value(r)})
		}
		if notes := text(r["notes"]); notes != "" {
			rows = append(rows, [2]string{"Notes", notes})
		}
		if r["deleted"] == true {
			rows = append(rows, [2]string{"Trashed", ago(r["deletedAt"])})
		}
		return renderFields(w, rows)
	})
}

// readInput decodes a YAML or JSON document and converts enum values to their GraphQL names
func (k kind) readInput(cmd *cobra.Command, file string) (map[string]interface{}, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var input map[string]interface{}
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	if len(input) == 0 {
		return nil, fmt.Errorf("input file has no fields")
	}
	for _, key := range k.enums {
		if s, ok := input[key].(string); ok {
			input[key] = strings.ToUpper(s)
		}
	}
	return input, nil
}

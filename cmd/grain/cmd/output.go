package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// record is a GraphQL object as decoded from a response
type record = map[string]interface{}

// column renders one table column from a record
type column struct {
	header string
	value  func(r record) string
}

func field(header, key string) column {
	return column{header: header, value: func(r record) string { return text(r[key]) }}
}

func moneyField(header, key string) column {
	return column{header: header, value: func(r record) string { return money(num(r[key])) }}
}

// render writes v in the requested format. table is only used for the table format.
func render(w io.Writer, format string, v interface{}, table func(w io.Writer) error) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "toml":
		// TOML documents are tables; wrap lists and drop nulls it cannot express
		doc := dropNulls(v)
		if list, ok := doc.([]interface{}); ok {
			doc = map[string]interface{}{"items": list}
		}
		out, err := toml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode TOML: %w", err)
		}
		_, err = w.Write(out)
		return err
	case "table", "":
		return table(w)
	default:
		return fmt.Errorf("unknown output format %q (want table, json, yaml or toml)", format)
	}
}

// renderRecords prints records as a table, or in a structured format
func renderRecords(w io.Writer, format string, records []record, columns []column) error {
	return render(w, format, toAny(records), func(w io.Writer) error {
		if len(records) == 0 {
			_, err := fmt.Fprintln(w, "Nothing found")
			return err
		}
		table := tablewriter.NewWriter(w)
		headers := make([]any, len(columns))
		for i, c := range columns {
			headers[i] = c.header
		}
		table.Header(headers...)
		for _, r := range records {
			row := make([]any, len(columns))
			for i, c := range columns {
				row[i] = c.value(r)
			}
			if err := table.Append(row...); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\nTotal: %d\n", len(records))
		return err
	})
}

// renderFields prints label/value pairs as a two column table
func renderFields(w io.Writer, rows [][2]string) error {
	table := tablewriter.NewWriter(w)
	for _, r := range rows {
		if err := table.Append(r[0], r[1]); err != nil {
			return err
		}
	}
	return table.Render()
}

func toAny(records []record) []interface{} {
	out := make([]interface{}, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}

func dropNulls(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = dropNulls(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, val := range t {
			if val != nil {
				out = append(out, dropNulls(val))
			}
		}
		return out
	default:
		return v
	}
}

func num(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case float64:
		return humanize.CommafWithDigits(t, 2)
	default:
		return fmt.Sprint(t)
	}
}

// ago formats an RFC 3339 timestamp relative to now
func ago(v interface{}) string {
	s, _ := v.(string)
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return humanize.Time(t)
}

package ces

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Columns returns the union of record fields in first-seen order.
func Columns(records []*Record) []string {
	seen := make(map[string]bool)

	var columns []string

	for _, record := range records {
		for _, key := range record.Keys() {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}

	return columns
}

// RenderTable writes records as a text table, one column per field.
func RenderTable(w io.Writer, records []*Record) error {
	columns := Columns(records)

	header := make([]interface{}, len(columns))
	for i, column := range columns {
		header[i] = column
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)

	for _, record := range records {
		row := make([]interface{}, len(columns))

		for i, column := range columns {
			value, _ := record.Get(column)
			row[i] = cellText(value)
		}

		err := table.Append(row...)
		if err != nil {
			return fmt.Errorf("appending table row: %w", err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	return nil
}

func cellText(value interface{}) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case time.Time:
		return typed.Format(time.RFC3339)
	case map[string]interface{}, []interface{}:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}

		return string(encoded)
	default:
		return FormatValue(typed)
	}
}

// RenderJSON writes records as an indented JSON array.
func RenderJSON(w io.Writer, records []*Record) error {
	if records == nil {
		records = []*Record{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(records)
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}

// RenderYAML writes records as a YAML sequence.
func RenderYAML(w io.Writer, records []*Record) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	err := encoder.Encode(records)
	if err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("closing YAML encoder: %w", err)
	}

	return nil
}

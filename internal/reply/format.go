package reply

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/tidwall/gjson"
)

// NoResponse is shown when the remote function answered without usable primary text
const NoResponse = "⚠️ No response from Lambda"

// Format flattens a payload into markdown: the primary text followed by one block per non-empty extra field, each
// separated by a blank line.
func Format(p Payload) string {
	blocks := []string{NoResponse}
	if p.HasReply() {
		blocks[0] = p.Reply
	}

	for _, f := range p.Fields {
		switch f.Shape() {
		case ShapeTable:
			blocks = append(blocks, renderTable(f.Value.Array()))
		case ShapeKeyValue:
			blocks = append(blocks, renderKeyValues(f.Value))
		case ShapeScalar:
			blocks = append(blocks, plain(f.Value))
		}
	}

	return strings.Join(blocks, "\n\n")
}

func renderTable(records []gjson.Result) string {
	// Columns are the union of record keys in first-seen order
	var columns []string
	seen := map[string]bool{}
	for _, record := range records {
		record.ForEach(func(key, _ gjson.Result) bool {
			if !seen[key.String()] {
				seen[key.String()] = true
				columns = append(columns, key.String())
			}
			return true
		})
	}

	tw := table.NewWriter()
	tw.Style().Format.Header = text.FormatDefault
	header := make(table.Row, 0, len(columns))
	for _, c := range columns {
		header = append(header, c)
	}
	tw.AppendHeader(header)

	for _, record := range records {
		values := record.Map()
		row := make(table.Row, 0, len(columns))
		for _, c := range columns {
			row = append(row, plain(values[c]))
		}
		tw.AppendRow(row)
	}

	return tw.RenderMarkdown()
}

func renderKeyValues(obj gjson.Result) string {
	var lines []string
	obj.ForEach(func(key, value gjson.Result) bool {
		lines = append(lines, fmt.Sprintf("- **%s**: %s", key.String(), plain(value)))
		return true
	})
	return strings.Join(lines, "\n")
}

// plain is the string form of a value: strings unquoted, everything else as its JSON text
func plain(v gjson.Result) string {
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return ""
	case v.Type == gjson.String:
		return v.Str
	default:
		return v.Raw
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/wbrown/janus-reasoner/datalog"
)

// formatRelation renders rows as a markdown table with one column per
// position. Rows are sorted; limit > 0 truncates the output.
func formatRelation(name string, rows []datalog.Row, limit int) string {
	if len(rows) == 0 {
		return fmt.Sprintf("_Relation %s is empty_\n", name)
	}

	rows = append([]datalog.Row(nil), rows...)
	datalog.SortRows(rows)

	headers := make([]string, len(rows[0]))
	for i := range headers {
		headers[i] = fmt.Sprintf("%s.%d", name, i)
	}
	if name == "T" && len(headers) == 3 {
		headers = []string{"subject", "predicate", "object"}
	}

	shown := rows
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	cells := make([][]string, len(shown))
	for i, row := range shown {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = datalog.FormatValue(v)
		}
	}

	var sb strings.Builder
	renderTable(&sb, headers, cells)
	if len(shown) < len(rows) {
		sb.WriteString(fmt.Sprintf("\n_%d of %d rows_\n", len(shown), len(rows)))
	} else {
		sb.WriteString(fmt.Sprintf("\n_%d rows_\n", len(rows)))
	}
	return sb.String()
}

func renderTable(sb *strings.Builder, headers []string, cells [][]string) {
	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)
	for _, row := range cells {
		table.Append(row)
	}
	table.Render()
}

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"db-transfer/internal/engine"
	"db-transfer/internal/schema"

	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// printSummary renders the final report, one row per table in selection
// order, followed by the error of every failed table.
func printSummary(w io.Writer, summary engine.TransferSummary) {
	fmt.Fprintln(w, "\n📊 Transfer Summary:")

	table := newTable(w, "#", "Status", "Source", "Table", "Destination", "Mode", "Rows", "Verified", "Duration")
	for i, r := range summary.Results {
		status := "✓"
		if !r.Success {
			status = "✗"
		}
		table.Append([]string{
			fmt.Sprintf("%02d", i+1),
			status,
			r.Source,
			r.Table,
			r.Destination,
			string(r.Mode),
			fmt.Sprintf("%d/%d", r.TransferredRows, r.TotalRows),
			verified(r.DestinationRows),
			r.Duration().Round(time.Millisecond).String(),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "",
		strconv.FormatInt(summary.RowsTransferred, 10), "",
		summary.Duration.Round(time.Millisecond).String()})
	table.Render()

	for _, r := range summary.Failures() {
		fmt.Fprintf(w, "  └ %s:%s: %s\n", r.Source, r.Table, r.ErrMessage())
	}
	fmt.Fprintf(w, "Tables: %d attempted, %d succeeded, %d failed\n",
		summary.Attempted, summary.Succeeded, summary.Failed)
}

func verified(rows int64) string {
	if rows < 0 {
		return "-"
	}
	return strconv.FormatInt(rows, 10)
}

// printPlans renders what a run would do without copying anything.
func printPlans(w io.Writer, plans []engine.PlannedTable) {
	fmt.Fprintln(w, "🔍 Planned Transfers:")

	table := newTable(w, "#", "Source", "Table", "Destination", "Mode", "Truncate", "Predicate", "Reason")
	for i, p := range plans {
		row := []string{fmt.Sprintf("%02d", i+1), p.Ref.Source, p.Ref.Table, "", "", "", "", ""}
		if p.Table != nil {
			row[3] = p.Table.DestinationName()
		}
		if p.Err != nil {
			row[7] = "error: " + p.Err.Error()
		} else {
			row[4] = string(p.Decision.Mode)
			row[5] = strconv.FormatBool(p.Decision.Truncate)
			row[6] = p.Decision.PredicateText()
			row[7] = p.Decision.Reason
		}
		table.Append(row)
	}
	table.Render()
}

// printColumns renders the column mapping of one table.
func printColumns(w io.Writer, t *schema.Table) {
	table := newTable(w, "Column", "Source Type", "ClickHouse Type", "Nullable", "PK")
	for _, c := range t.Columns {
		chType := c.DestinationType()
		if _, known := c.MappedType(); !known {
			chType += " (fallback)"
		}
		pk := ""
		if c.IsPK {
			pk = "✓"
		}
		table.Append([]string{c.Name, c.DataType, chType, strconv.FormatBool(c.IsNullable), pk})
	}
	table.Render()
}

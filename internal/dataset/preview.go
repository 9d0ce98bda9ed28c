package dataset

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Table is a display-ready slice of a dataset.
type Table struct {
	Columns []string   `json:"columns"`
	Index   []string   `json:"index"`
	Rows    [][]string `json:"rows"`
}

// HeadTable returns the first n rows as display text with their row labels.
func (d *Dataset) HeadTable(n int) Table {
	h := d.Head(n)
	t := Table{Columns: h.ColumnNames()}
	for i := 0; i < h.Rows(); i++ {
		t.Index = append(t.Index, strconv.Itoa(h.Label(i)))
		t.Rows = append(t.Rows, h.Row(i))
	}
	return t
}

// Text renders the table as right-aligned fixed-width text with the row
// index in the first column.
func (t Table) Text() string {
	var sb strings.Builder
	tw := tablewriter.NewWriter(&sb)
	tw.SetHeader(append([]string{""}, t.Columns...))
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetBorder(false)
	tw.SetHeaderLine(false)
	tw.SetColumnSeparator("")
	tw.SetCenterSeparator("")
	tw.SetRowSeparator("")
	tw.SetTablePadding("  ")
	tw.SetNoWhiteSpace(true)
	for i, r := range t.Rows {
		label := ""
		if i < len(t.Index) {
			label = t.Index[i]
		}
		tw.Append(append([]string{label}, r...))
	}
	tw.Render()
	return sb.String()
}

// PreviewText renders the first n rows as fixed-width text.
func (d *Dataset) PreviewText(n int) string {
	if d.Rows() == 0 {
		return "Empty DataFrame\nColumns: [" + strings.Join(d.ColumnNames(), ", ") + "]\nIndex: []\n"
	}
	return d.HeadTable(n).Text()
}

package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/KaramelBytes/odap/internal/dataset"
)

// WriteText prints a page for terminal use. Charts are summarized by their
// underlying numbers.
func WriteText(w io.Writer, page *Page) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset: %s (%d rows, %d columns)\n", page.Dataset, page.Rows, len(page.Columns))
	for _, p := range page.Panels {
		fmt.Fprintf(&sb, "\n### %s\n", p.Title)
		if p.Message != "" {
			fmt.Fprintf(&sb, "[%s] %s\n", p.Status, p.Message)
		}
		for _, n := range p.Notes {
			fmt.Fprintf(&sb, "note: %s\n", n)
		}
		switch p.Kind {
		case PanelPreview, PanelSummary:
			if p.Table != nil {
				sb.WriteString(p.Table.Text())
			}
		case PanelSentiment:
			if len(p.Counts) > 0 {
				t := dataset.Table{Columns: []string{"count"}}
				for _, c := range p.Counts {
					t.Index = append(t.Index, c.Value)
					t.Rows = append(t.Rows, []string{strconv.Itoa(c.N)})
				}
				sb.WriteString(t.Text())
			}
		case PanelWordCloud:
			if len(p.FilterOptions) > 0 {
				fmt.Fprintf(&sb, "filter: %s (options: %s)\n", p.Selected, strings.Join(p.FilterOptions, ", "))
			}
			if len(p.Words) > 0 {
				top := p.Words
				if len(top) > 20 {
					top = top[:20]
				}
				parts := make([]string, len(top))
				for i, wd := range top {
					parts[i] = fmt.Sprintf("%s(%d)", wd.Text, wd.Count)
				}
				fmt.Fprintf(&sb, "top words: %s\n", strings.Join(parts, " "))
			}
		case PanelTrend:
			if len(p.Dates) > 0 {
				t := dataset.Table{Index: p.Dates}
				for _, s := range p.Series {
					t.Columns = append(t.Columns, s.Name)
				}
				for i := range p.Dates {
					row := make([]string, len(p.Series))
					for j, s := range p.Series {
						row[j] = strconv.FormatFloat(s.Values[i], 'f', -1, 64)
					}
					t.Rows = append(t.Rows, row)
				}
				sb.WriteString(t.Text())
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

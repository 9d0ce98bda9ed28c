package dataset

// Column names the dashboard looks for.
const (
	SentimentColumn  = "sentiment"
	DateColumn       = "date"
	TitleCleanColumn = "title_clean"
	TitleColumn      = "title"
)

// Capabilities records which optional columns a dataset offers.
type Capabilities struct {
	HasSentiment bool `json:"has_sentiment"`
	HasDate      bool `json:"has_date"`
	// TitleColumn is title_clean when present, else title, else empty.
	TitleColumn string `json:"title_column,omitempty"`
}

// Infer inspects column names only. Matching is exact and case-sensitive.
func Infer(d *Dataset) Capabilities {
	var c Capabilities
	if d == nil {
		return c
	}
	c.HasSentiment = d.HasColumn(SentimentColumn)
	c.HasDate = d.HasColumn(DateColumn)
	switch {
	case d.HasColumn(TitleCleanColumn):
		c.TitleColumn = TitleCleanColumn
	case d.HasColumn(TitleColumn):
		c.TitleColumn = TitleColumn
	}
	return c
}

// SentimentValues returns the distinct non-null sentiment values in order of
// first appearance, or nil when the column is absent.
func SentimentValues(d *Dataset) []string {
	if d == nil {
		return nil
	}
	col, ok := d.Column(SentimentColumn)
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for i, v := range col.Values {
		if col.Null[i] || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

package analysis

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Statistic row labels, in display order.
const (
	StatCount  = "count"
	StatUnique = "unique"
	StatTop    = "top"
	StatFreq   = "freq"
	StatMean   = "mean"
	StatStd    = "std"
	StatMin    = "min"
	StatP25    = "25%"
	StatP50    = "50%"
	StatP75    = "75%"
	StatMax    = "max"
)

// ColumnSummary captures the statistics of one column. Fields that do not
// apply to the column's kind stay unset and render as NaN.
type ColumnSummary struct {
	Name  string
	Kind  dataset.Kind
	Count int

	// Text columns
	Unique int
	Top    string
	Freq   int

	// Numeric columns
	Mean, Std, Min, P25, P50, P75, Max float64

	// Temporal columns
	TMean, TMin, TP25, TP50, TP75, TMax time.Time
}

// Summary is a per-column table of descriptive statistics covering every
// column of a dataset.
type Summary struct {
	Columns []ColumnSummary
	// Stats lists the statistic rows that at least one column contributes.
	Stats []string
}

// Describe computes count for every column; unique, top and freq for text
// columns; mean, std, min, quartiles and max for numeric columns; and mean,
// min, quartiles and max for temporal columns.
func Describe(d *dataset.Dataset) *Summary {
	s := &Summary{}
	var hasText, hasNumeric, hasTemporal bool
	for _, c := range d.Columns() {
		cs := ColumnSummary{Name: c.Name, Kind: c.Kind, Count: c.NonNull()}
		switch c.Kind {
		case dataset.KindNumeric:
			hasNumeric = true
			describeNumeric(c, &cs)
		case dataset.KindTemporal:
			hasTemporal = true
			describeTemporal(c, &cs)
		default:
			hasText = true
			describeText(c, &cs)
		}
		s.Columns = append(s.Columns, cs)
	}
	s.Stats = []string{StatCount}
	if hasText {
		s.Stats = append(s.Stats, StatUnique, StatTop, StatFreq)
	}
	if hasNumeric || hasTemporal {
		s.Stats = append(s.Stats, StatMean)
		if hasNumeric {
			s.Stats = append(s.Stats, StatStd)
		}
		s.Stats = append(s.Stats, StatMin, StatP25, StatP50, StatP75, StatMax)
	}
	return s
}

func describeText(c *dataset.Column, cs *ColumnSummary) {
	counts := map[string]int{}
	for i, v := range c.Values {
		if c.Null[i] {
			continue
		}
		counts[v]++
		// First value reaching the highest count wins ties.
		if counts[v] > cs.Freq {
			cs.Freq = counts[v]
			cs.Top = v
		}
	}
	cs.Unique = len(counts)
}

func describeNumeric(c *dataset.Column, cs *ColumnSummary) {
	vals := make([]float64, 0, len(c.Numbers))
	for i, f := range c.Numbers {
		if !c.Null[i] {
			vals = append(vals, f)
		}
	}
	nan := math.NaN()
	cs.Mean, cs.Std, cs.Min, cs.P25, cs.P50, cs.P75, cs.Max = nan, nan, nan, nan, nan, nan, nan
	if len(vals) == 0 {
		return
	}
	if m, err := stats.Mean(vals); err == nil {
		cs.Mean = m
	}
	if len(vals) > 1 {
		if sd, err := stats.StandardDeviationSample(vals); err == nil {
			cs.Std = sd
		}
	}
	if m, err := stats.Min(vals); err == nil {
		cs.Min = m
	}
	if m, err := stats.Max(vals); err == nil {
		cs.Max = m
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	cs.P25 = quantile(sorted, 0.25)
	cs.P50 = quantile(sorted, 0.50)
	cs.P75 = quantile(sorted, 0.75)
}

func describeTemporal(c *dataset.Column, cs *ColumnSummary) {
	var secs []float64
	for i, t := range c.Times {
		if !c.Null[i] {
			secs = append(secs, float64(t.UnixNano())/1e9)
		}
	}
	if len(secs) == 0 {
		return
	}
	sort.Float64s(secs)
	at := func(s float64) time.Time {
		whole, frac := math.Modf(s)
		return time.Unix(int64(whole), int64(frac*1e9)).UTC()
	}
	cs.TMean = at(stat.Mean(secs, nil))
	cs.TMin = at(secs[0])
	cs.TP25 = at(quantile(secs, 0.25))
	cs.TP50 = at(quantile(secs, 0.50))
	cs.TP75 = at(quantile(secs, 0.75))
	cs.TMax = at(secs[len(secs)-1])
}

// quantile uses linear interpolation between closest ranks on sorted input.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Cell renders one statistic of one column.
func (cs ColumnSummary) Cell(name string) string {
	const na = "NaN"
	if name == StatCount {
		return strconv.Itoa(cs.Count)
	}
	switch cs.Kind {
	case dataset.KindText:
		switch name {
		case StatUnique:
			return strconv.Itoa(cs.Unique)
		case StatTop:
			if cs.Count == 0 {
				return na
			}
			return cs.Top
		case StatFreq:
			if cs.Count == 0 {
				return na
			}
			return strconv.Itoa(cs.Freq)
		}
	case dataset.KindNumeric:
		switch name {
		case StatMean:
			return formatFloat(cs.Mean)
		case StatStd:
			return formatFloat(cs.Std)
		case StatMin:
			return formatFloat(cs.Min)
		case StatP25:
			return formatFloat(cs.P25)
		case StatP50:
			return formatFloat(cs.P50)
		case StatP75:
			return formatFloat(cs.P75)
		case StatMax:
			return formatFloat(cs.Max)
		}
	case dataset.KindTemporal:
		if cs.Count == 0 {
			return na
		}
		switch name {
		case StatMean:
			return formatTime(cs.TMean)
		case StatMin:
			return formatTime(cs.TMin)
		case StatP25:
			return formatTime(cs.TP25)
		case StatP50:
			return formatTime(cs.TP50)
		case StatP75:
			return formatTime(cs.TP75)
		case StatMax:
			return formatTime(cs.TMax)
		}
	}
	return na
}

// Table lays the summary out with statistics as rows and columns as columns.
func (s *Summary) Table() dataset.Table {
	t := dataset.Table{}
	for _, cs := range s.Columns {
		t.Columns = append(t.Columns, cs.Name)
	}
	for _, st := range s.Stats {
		row := make([]string, len(s.Columns))
		for i, cs := range s.Columns {
			row[i] = cs.Cell(st)
		}
		t.Index = append(t.Index, st)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Text renders the summary as fixed-width text.
func (s *Summary) Text() string { return s.Table().Text() }

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 0) {
		if f > 0 {
			return "inf"
		}
		return "-inf"
	}
	return strconv.FormatFloat(math.Round(f*1e6)/1e6, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

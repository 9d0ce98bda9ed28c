package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Kind is the inferred storage kind of a column.
type Kind string

const (
	KindText     Kind = "text"
	KindNumeric  Kind = "numeric"
	KindTemporal Kind = "temporal"
)

// ErrUnknownColumn is returned when an operation names a column the dataset lacks.
var ErrUnknownColumn = errors.New("unknown column")

// Column holds one named column of a Dataset. Columns are never modified
// after construction; operations that change a column build a new one.
type Column struct {
	Name   string
	Kind   Kind
	Values []string // raw cell text of every kept row
	Null   []bool
	// Numbers is set for KindNumeric (NaN where null).
	Numbers []float64
	// Times is set for KindTemporal (zero where null).
	Times []time.Time
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Values) }

// NonNull returns the number of non-null cells.
func (c *Column) NonNull() int {
	n := 0
	for _, null := range c.Null {
		if !null {
			n++
		}
	}
	return n
}

// Display renders cell i for tabular output.
func (c *Column) Display(i int) string {
	if c.Null[i] {
		if c.Kind == KindTemporal {
			return "NaT"
		}
		return "NaN"
	}
	if c.Kind == KindTemporal {
		return formatTime(c.Times[i])
	}
	return c.Values[i]
}

func newColumn(name string, values []string) *Column {
	c := &Column{Name: name, Values: values, Null: make([]bool, len(values))}
	numeric := true
	nums := make([]float64, len(values))
	for i, v := range values {
		if IsNA(v) {
			c.Null[i] = true
			nums[i] = math.NaN()
			continue
		}
		if !numeric {
			continue
		}
		f, ok := parseNumber(v)
		if !ok {
			numeric = false
			continue
		}
		nums[i] = f
	}
	// A column with no values at all is treated as numeric, like a float NaN column.
	if numeric {
		c.Kind = KindNumeric
		c.Numbers = nums
	} else {
		c.Kind = KindText
	}
	return c
}

func temporalColumn(src *Column) *Column {
	c := &Column{
		Name:   src.Name,
		Kind:   KindTemporal,
		Values: src.Values,
		Null:   make([]bool, len(src.Values)),
		Times:  make([]time.Time, len(src.Values)),
	}
	for i, v := range src.Values {
		if src.Null[i] {
			c.Null[i] = true
			continue
		}
		t, ok := parseTimeMaybe(v)
		if !ok {
			c.Null[i] = true
			continue
		}
		c.Times[i] = t
	}
	return c
}

// take builds a new column from the given row positions.
func (c *Column) take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Values: make([]string, len(rows)), Null: make([]bool, len(rows))}
	if c.Numbers != nil {
		out.Numbers = make([]float64, len(rows))
	}
	if c.Times != nil {
		out.Times = make([]time.Time, len(rows))
	}
	for j, i := range rows {
		out.Values[j] = c.Values[i]
		out.Null[j] = c.Null[i]
		if out.Numbers != nil {
			out.Numbers[j] = c.Numbers[i]
		}
		if out.Times != nil {
			out.Times[j] = c.Times[i]
		}
	}
	return out
}

// Dataset is an in-memory table of named columns with aligned rows.
type Dataset struct {
	Name string
	// Skipped counts data rows discarded at load; SkippedLines holds their
	// 1-based line numbers in the source.
	Skipped      int
	SkippedLines []int

	columns []*Column
	index   map[string]int
	rows    int
	// positions holds the original row labels, used by the preview index.
	positions []int
}

// New builds a Dataset from a header and rows. Every row must have exactly
// len(header) fields. Duplicate header names get a numeric suffix (a, a.1).
func New(name string, header []string, rows [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, ErrNoColumns
	}
	names := dedupeNames(header)
	cols := make([][]string, len(names))
	for j := range cols {
		cols[j] = make([]string, len(rows))
	}
	for i, r := range rows {
		if len(r) != len(names) {
			return nil, fmt.Errorf("row %d has %d fields, want %d", i, len(r), len(names))
		}
		for j, v := range r {
			cols[j][i] = v
		}
	}
	d := &Dataset{Name: name, index: make(map[string]int, len(names)), rows: len(rows)}
	for j, n := range names {
		d.columns = append(d.columns, newColumn(n, cols[j]))
		d.index[n] = j
	}
	d.positions = make([]int, len(rows))
	for i := range d.positions {
		d.positions[i] = i
	}
	return d, nil
}

func dedupeNames(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		if n, dup := seen[h]; dup {
			for {
				n++
				name = fmt.Sprintf("%s.%d", h, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[h] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int { return d.rows }

// Columns returns the columns in header order.
func (d *Dataset) Columns() []*Column {
	out := make([]*Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// ColumnNames returns the column names in header order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// HasColumn reports whether a column with the exact name exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Clone returns a dataset sharing the immutable columns with d. Replacing a
// column on the clone (CoerceDates) leaves d untouched.
func (d *Dataset) Clone() *Dataset {
	c := *d
	c.columns = d.Columns()
	c.index = make(map[string]int, len(d.index))
	for k, v := range d.index {
		c.index[k] = v
	}
	c.SkippedLines = append([]int(nil), d.SkippedLines...)
	return &c
}

func (d *Dataset) subset(rows []int) *Dataset {
	out := &Dataset{
		Name:         d.Name,
		Skipped:      d.Skipped,
		SkippedLines: d.SkippedLines,
		index:        d.index,
		rows:         len(rows),
		positions:    make([]int, len(rows)),
	}
	for j, i := range rows {
		out.positions[j] = d.positions[i]
	}
	out.columns = make([]*Column, len(d.columns))
	for i, c := range d.columns {
		out.columns[i] = c.take(rows)
	}
	return out
}

// Head returns the first n rows (all rows when n exceeds the row count).
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > d.rows {
		n = d.rows
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return d.subset(rows)
}

// Filter returns the rows whose column value equals value. Null cells never match.
func (d *Dataset) Filter(column, value string) (*Dataset, error) {
	c, ok := d.Column(column)
	if !ok {
		return nil, fmt.Errorf("filter %q: %w", column, ErrUnknownColumn)
	}
	var rows []int
	for i, v := range c.Values {
		if !c.Null[i] && v == value {
			rows = append(rows, i)
		}
	}
	return d.subset(rows), nil
}

// Count is one entry of a value frequency table.
type Count struct {
	Value string `json:"value"`
	N     int    `json:"n"`
}

// ValueCounts counts the non-null values of a column, most frequent first.
// Ties keep the order of first appearance.
func (d *Dataset) ValueCounts(column string) ([]Count, error) {
	c, ok := d.Column(column)
	if !ok {
		return nil, fmt.Errorf("value counts %q: %w", column, ErrUnknownColumn)
	}
	return countValues(c), nil
}

func countValues(c *Column) []Count {
	pos := map[string]int{}
	var out []Count
	for i, v := range c.Values {
		if c.Null[i] {
			continue
		}
		key := v
		if c.Kind == KindTemporal {
			key = formatTime(c.Times[i])
		}
		if p, ok := pos[key]; ok {
			out[p].N++
			continue
		}
		pos[key] = len(out)
		out = append(out, Count{Value: key, N: 1})
	}
	sortCounts(out)
	return out
}

// sortCounts orders by count descending, keeping first-seen order on ties.
func sortCounts(cs []Count) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].N > cs[j].N })
}

// CoerceDates replaces the named column with a temporal column; unparsable
// or missing cells become null. The receiver is modified, so callers sharing
// a dataset should coerce on a Clone. Coercing a temporal column is a no-op.
func (d *Dataset) CoerceDates(column string) error {
	i, ok := d.index[column]
	if !ok {
		return fmt.Errorf("coerce %q: %w", column, ErrUnknownColumn)
	}
	if d.columns[i].Kind == KindTemporal {
		return nil
	}
	d.columns[i] = temporalColumn(d.columns[i])
	return nil
}

// Row returns the display text of row i in header order.
func (d *Dataset) Row(i int) []string {
	out := make([]string, len(d.columns))
	for j, c := range d.columns {
		out[j] = c.Display(i)
	}
	return out
}

// Label returns the original row position of row i, used as the row index.
func (d *Dataset) Label(i int) int { return d.positions[i] }

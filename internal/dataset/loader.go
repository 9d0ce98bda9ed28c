package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrMalformed means the parser rejected the structure of the file: the
	// header could not be read, or a quoted field runs to the end of input.
	ErrMalformed = errors.New("malformed csv")
	// ErrNoColumns means the input had no header row.
	ErrNoColumns = errors.New("no columns to parse from file")
)

// Options controls CSV parsing.
type Options struct {
	// Name labels the dataset (usually the uploaded file name).
	Name string
	// Delimiter for CSV. If 0, ',' is used.
	Delimiter rune
	// LazyQuotes tolerates stray quotes inside unquoted fields.
	LazyQuotes bool
	// MaxRows limits kept data rows; 0 means unlimited.
	MaxRows int
}

// DefaultOptions returns the options used by the dashboard.
func DefaultOptions() Options {
	return Options{Delimiter: ',', LazyQuotes: true}
}

// Load reads a CSV stream into a Dataset. Short data rows are padded with
// empty (null) fields. Rows with more fields than the header, or that the CSV
// reader rejects, are discarded and recorded on the result.
func Load(r io.Reader, opt Options) (*Dataset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return LoadBytes(b, opt)
}

// LoadBytes parses an in-memory CSV document.
func LoadBytes(b []byte, opt Options) (*Dataset, error) {
	comma := ','
	if opt.Delimiter != 0 {
		comma = opt.Delimiter
	}
	if line, ok := unclosedQuote(b, comma); ok {
		return nil, fmt.Errorf("%w: quoted field starting on line %d is never closed", ErrMalformed, line)
	}
	cr := csv.NewReader(bytes.NewReader(b))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = opt.LazyQuotes
	cr.Comma = comma

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoColumns
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if len(header) == 1 && strings.TrimSpace(header[0]) == "" {
		return nil, ErrNoColumns
	}
	header = append([]string(nil), header...)

	var (
		rows    [][]string
		skipped []int
	)
	for {
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			break
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped = append(skipped, pe.StartLine)
				continue
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			skipped = append(skipped, line)
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}

	d, err := New(opt.Name, header, rows)
	if err != nil {
		return nil, err
	}
	d.Skipped = len(skipped)
	d.SkippedLines = skipped
	return d, nil
}

// unclosedQuote reports whether a field that opens with a quote is still open
// at the end of b, and the line it started on. A quote that does not open a
// field is literal.
func unclosedQuote(b []byte, comma rune) (int, bool) {
	var (
		line       = 1
		start      = 0
		inQuote    bool
		fieldStart = true
	)
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c == '\n' {
			line++
		}
		if inQuote {
			if c == '"' {
				if i+1 < len(b) && b[i+1] == '"' {
					i++
					continue
				}
				inQuote = false
			}
			continue
		}
		switch {
		case c == '"' && fieldStart:
			inQuote, fieldStart, start = true, false, line
		case c == '\n' || rune(c) == comma:
			fieldStart = true
		case c == '\r':
		default:
			fieldStart = false
		}
	}
	return start, inQuote
}

// UserMessage renders a load error for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMalformed) {
		return "Error loading dataset: The file contains invalid or inconsistent rows."
	}
	return "Error loading dataset: " + err.Error()
}

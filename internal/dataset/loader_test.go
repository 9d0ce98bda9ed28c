package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSkipsMalformedRows(t *testing.T) {
	src := "title,sentiment,date\n" +
		"good day,positive,2024-01-01\n" +
		"too,many,fields,here\n" +
		"bad day,negative,2024-01-02\n" +
		"short\n" +
		"fine day,neutral,2024-01-03\n"
	d, err := LoadBytes([]byte(src), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, d.Rows())
	assert.Equal(t, []string{"title", "sentiment", "date"}, d.ColumnNames())
	assert.Equal(t, 1, d.Skipped)
	assert.Equal(t, []int{3}, d.SkippedLines)

	col, ok := d.Column("sentiment")
	require.True(t, ok)
	assert.Equal(t, []string{"positive", "negative", "", "neutral"}, col.Values)
	assert.True(t, col.Null[2], "the short row is padded with nulls")
}

func TestLoadPadsShortRows(t *testing.T) {
	d, err := LoadBytes([]byte("title,sentiment,date\nmarkets rally,pos\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, d.Rows())
	assert.Equal(t, 0, d.Skipped)
	title, _ := d.Column("title")
	assert.Equal(t, "markets rally", title.Values[0])
	date, _ := d.Column("date")
	assert.True(t, date.Null[0])
}

func TestLoadAllRowsTooLong(t *testing.T) {
	d, err := LoadBytes([]byte("a,b\n1,2,3\n4,5,6\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, d.Rows())
	assert.Equal(t, []string{"a", "b"}, d.ColumnNames())
	assert.Equal(t, []int{2, 3}, d.SkippedLines)
}

func TestLoadInfersKindsAndNulls(t *testing.T) {
	src := "a,b,c\n1,x,\n2.5,NA,\n,y,\n"
	d, err := LoadBytes([]byte(src), DefaultOptions())
	require.NoError(t, err)

	a, _ := d.Column("a")
	assert.Equal(t, KindNumeric, a.Kind)
	assert.Equal(t, []bool{false, false, true}, a.Null)
	assert.Equal(t, 2.5, a.Numbers[1])

	b, _ := d.Column("b")
	assert.Equal(t, KindText, b.Kind)
	assert.True(t, b.Null[1])
	assert.Equal(t, "NaN", b.Display(1))

	c, _ := d.Column("c")
	assert.Equal(t, KindNumeric, c.Kind, "an all-null column is numeric")
	assert.Equal(t, 0, c.NonNull())
}

func TestLoadDuplicateAndEmptyHeaders(t *testing.T) {
	d, err := LoadBytes([]byte("\ufeffa,a,,a\n1,2,3,4\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.2"}, d.ColumnNames())
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadBytes(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoColumns)
	assert.Equal(t, "Error loading dataset: no columns to parse from file", UserMessage(err))

	_, err = LoadBytes([]byte("a,b\n1,\"open\n2,3\n"), DefaultOptions())
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, "Error loading dataset: The file contains invalid or inconsistent rows.", UserMessage(err))

	strict := DefaultOptions()
	strict.LazyQuotes = false
	_, err = LoadBytes([]byte("a\"b,c\n1,2\n"), strict)
	assert.ErrorIs(t, err, ErrMalformed)

	d, err := LoadBytes([]byte("a,b\n\"x \"\"quoted\"\" y\",2\nsay \"hi\",3\n"), DefaultOptions())
	require.NoError(t, err, "escaped and literal quotes are not unclosed")
	assert.Equal(t, 2, d.Rows())

	_, err = Load(strings.NewReader("a,b\n1,\"x\n"), DefaultOptions())
	assert.ErrorIs(t, err, ErrMalformed)

	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Error loading dataset: boom", UserMessage(errors.New("boom")))
}

func TestLoadHeaderOnlyAndMaxRows(t *testing.T) {
	d, err := LoadBytes([]byte("a,b\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, d.Rows())
	assert.Contains(t, d.PreviewText(5), "Empty DataFrame")

	opt := DefaultOptions()
	opt.MaxRows = 2
	opt.Delimiter = ';'
	d, err = Load(strings.NewReader("a;b\n1;2\n3;4\n5;6\n"), opt)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Rows())
}

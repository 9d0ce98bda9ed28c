package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newsCSV = `title_clean,sentiment,date
markets rally strong earnings,positive,2024-01-01
storm damages coastal towns,negative,2024-01-01
city opens new park,positive,2024-01-02
council delays budget vote,neutral,2024-01-02
markets slip after rally,negative,2024-01-02
new school year begins,positive,2024-01-03
earnings beat forecasts,positive,2024-01-03
traffic delays downtown,negative,not-a-date
park festival draws crowds,positive,2024-01-04
budget talks resume,neutral,2024-01-04
`

func load(t *testing.T, src string) *dataset.Dataset {
	t.Helper()
	d, err := dataset.LoadBytes([]byte(src), dataset.DefaultOptions())
	require.NoError(t, err)
	return d
}

func kinds(p *Page) []PanelKind {
	out := make([]PanelKind, len(p.Panels))
	for i, pn := range p.Panels {
		out[i] = pn.Kind
	}
	return out
}

func TestRenderFullDataset(t *testing.T) {
	d := load(t, newsCSV)
	var observed []PanelKind
	opt := DefaultOptions()
	opt.Observe = func(k PanelKind, _ Status, _ time.Duration) { observed = append(observed, k) }

	page := Render(context.Background(), d, Selection{}, opt)
	want := []PanelKind{PanelPreview, PanelSentiment, PanelWordCloud, PanelTrend, PanelSummary}
	require.Equal(t, want, kinds(page))
	assert.Equal(t, want, observed)
	assert.Equal(t, 10, page.Rows)

	preview, _ := page.Panel(PanelPreview)
	assert.Equal(t, StatusOK, preview.Status)
	require.NotNil(t, preview.Table)
	assert.Len(t, preview.Table.Rows, 5)

	sent, _ := page.Panel(PanelSentiment)
	assert.Equal(t, StatusOK, sent.Status)
	assert.Equal(t, []dataset.Count{{Value: "positive", N: 5}, {Value: "negative", N: 3}, {Value: "neutral", N: 2}}, sent.Counts)
	assert.True(t, sent.HasChart())

	wc, _ := page.Panel(PanelWordCloud)
	assert.Equal(t, StatusOK, wc.Status, wc.Message)
	assert.Equal(t, []string{"All", "positive", "negative", "neutral"}, wc.FilterOptions)
	assert.Equal(t, "All", wc.Selected)
	assert.True(t, wc.HasChart())
	assert.LessOrEqual(t, len(wc.Words), 100)

	trend, _ := page.Panel(PanelTrend)
	assert.Equal(t, StatusOK, trend.Status, trend.Message)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}, trend.Dates)
	require.Len(t, trend.Series, 3)
	assert.Equal(t, "negative", trend.Series[0].Name)
	assert.Equal(t, []float64{1, 1, 0, 0}, trend.Series[0].Values)
	assert.Equal(t, "positive", trend.Series[2].Name)
	assert.Equal(t, []float64{1, 1, 2, 1}, trend.Series[2].Values)
	assert.NotEmpty(t, trend.Notes, "the invalid date row is reported")

	summary, _ := page.Panel(PanelSummary)
	assert.Equal(t, StatusOK, summary.Status)
	require.NotNil(t, summary.Table)
	assert.Equal(t, []string{"title_clean", "sentiment", "date"}, summary.Table.Columns)

	// The loaded dataset is untouched by date coercion.
	col, _ := d.Column("date")
	assert.Equal(t, dataset.KindText, col.Kind)
}

func TestRenderWithoutOptionalColumns(t *testing.T) {
	d := load(t, "name,value\nalpha,1\nbeta,2\n")
	page := Render(context.Background(), d, Selection{Sentiment: "positive"}, Options{})

	sent, _ := page.Panel(PanelSentiment)
	assert.Equal(t, StatusWarning, sent.Status)
	assert.Equal(t, MsgNoSentiment, sent.Message)

	wc, _ := page.Panel(PanelWordCloud)
	assert.Equal(t, StatusError, wc.Status)
	assert.True(t, strings.HasPrefix(wc.Message, "Error generating word cloud: "))
	assert.Equal(t, []string{"All"}, wc.FilterOptions)

	trend, _ := page.Panel(PanelTrend)
	assert.Equal(t, StatusInfo, trend.Status)

	summary, _ := page.Panel(PanelSummary)
	assert.Equal(t, StatusOK, summary.Status, "later steps still run")
}

func TestWordCloudFilter(t *testing.T) {
	d := load(t, newsCSV)
	page := Render(context.Background(), d, Selection{Sentiment: "neutral"}, DefaultOptions())
	wc, _ := page.Panel(PanelWordCloud)
	require.Equal(t, StatusOK, wc.Status, wc.Message)
	assert.Equal(t, "neutral", wc.Selected)
	got := map[string]int{}
	for _, w := range wc.Words {
		got[w.Text] = w.Count
	}
	assert.Equal(t, 2, got["budget"])
	assert.NotContains(t, got, "markets")

	// A value with no rows yields the empty-text error.
	page = Render(context.Background(), d, Selection{Sentiment: "furious"}, DefaultOptions())
	wc, _ = page.Panel(PanelWordCloud)
	assert.Equal(t, StatusError, wc.Status)
	assert.Contains(t, wc.Message, "at least 1 word")
}

func TestTrendWithUnparsableDates(t *testing.T) {
	d := load(t, "title,sentiment,date\na b,positive,soon\nc d,negative,later\n")
	page := Render(context.Background(), d, Selection{}, DefaultOptions())
	trend, _ := page.Panel(PanelTrend)
	assert.Equal(t, StatusWarning, trend.Status)
	assert.Equal(t, MsgTrendFailed, trend.Message)

	summary, _ := page.Panel(PanelSummary)
	assert.Equal(t, StatusOK, summary.Status)
}

func TestSentimentCountsIncludeNulls(t *testing.T) {
	d := load(t, "title,sentiment\nx y,positive\nz w,\n")
	page := Render(context.Background(), d, Selection{}, DefaultOptions())
	sent, _ := page.Panel(PanelSentiment)
	assert.Equal(t, []dataset.Count{{Value: "positive", N: 1}, {Value: "NaN", N: 1}}, sent.Counts)
}

func TestPreviewNotesSkippedRows(t *testing.T) {
	d := load(t, "title,sentiment\nok row,positive\nbad,row,extra\n")
	page := Render(context.Background(), d, Selection{}, DefaultOptions())
	preview, _ := page.Panel(PanelPreview)
	require.Len(t, preview.Notes, 1)
	assert.Contains(t, preview.Notes[0], "1 malformed row(s)")
	assert.Contains(t, preview.Notes[0], "lines 3")
}

func TestOptionsClampMaxWords(t *testing.T) {
	opt := DefaultOptions()
	opt.MaxWords = 150
	assert.Equal(t, 100, opt.withDefaults().MaxWords)
	opt.MaxWords = 40
	assert.Equal(t, 40, opt.withDefaults().MaxWords)
}

func TestRunStepRecovers(t *testing.T) {
	e := &env{opt: DefaultOptions().withDefaults()}
	boom := step{kind: PanelSummary, title: TitleSummary, run: func(context.Context, *env) Panel { panic("kaboom") }}
	p := runStep(context.Background(), boom, e)
	assert.Equal(t, StatusError, p.Status)
	assert.Contains(t, p.Message, "kaboom")

	trend := step{kind: PanelTrend, title: TitleTrend, run: func(context.Context, *env) Panel { panic("bad dates") }}
	p = runStep(context.Background(), trend, e)
	assert.Equal(t, StatusWarning, p.Status)
	assert.Equal(t, MsgTrendFailed, p.Message)
}

func TestRenderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := Render(ctx, load(t, newsCSV), Selection{}, DefaultOptions())
	require.Len(t, page.Panels, 5)
	for _, p := range page.Panels {
		assert.Equal(t, StatusError, p.Status)
	}
}

func TestWriteText(t *testing.T) {
	page := Render(context.Background(), load(t, newsCSV), Selection{}, DefaultOptions())
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, page))
	out := buf.String()
	for _, want := range []string{"### Dataset Preview", "### Sentiment Distribution", "positive", "### Word Cloud", "top words:", "### Sentiment Trend Over Time", "2024-01-04", "### Dataset Summary", "unique"} {
		assert.Contains(t, out, want)
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/odap/internal/analysis"
	"github.com/KaramelBytes/odap/internal/charts"
	"github.com/KaramelBytes/odap/internal/dataset"
	"gonum.org/v1/gonum/floats"
)

// nullLabel is the bar label for rows with no sentiment.
const nullLabel = "NaN"

func previewStep(_ context.Context, e *env) Panel {
	t := e.raw.HeadTable(e.opt.PreviewRows)
	p := Panel{Status: StatusOK, Table: &t}
	if e.raw.Skipped > 0 {
		p.Notes = append(p.Notes, fmt.Sprintf(skippedRowsNote, e.raw.Skipped, listLines(e.raw.SkippedLines)))
	}
	return p
}

func listLines(lines []int) string {
	parts := make([]string, 0, maxSkippedListed+1)
	for i, l := range lines {
		if i == maxSkippedListed {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, strconv.Itoa(l))
	}
	return strings.Join(parts, ", ")
}

func sentimentStep(_ context.Context, e *env) Panel {
	if !e.caps.HasSentiment {
		return Panel{Status: StatusWarning, Message: MsgNoSentiment}
	}
	counts, err := e.data.ValueCounts(dataset.SentimentColumn)
	if err != nil {
		return Panel{Status: StatusError, Message: err.Error()}
	}
	col, _ := e.data.Column(dataset.SentimentColumn)
	if nulls := col.Len() - col.NonNull(); nulls > 0 {
		counts = append(counts, dataset.Count{Value: nullLabel, N: nulls})
	}
	p := Panel{Status: StatusOK, Counts: counts}
	if len(counts) == 0 {
		p.Message = "No sentiment values to plot."
		return p
	}
	bars := make([]charts.Bar, len(counts))
	for i, c := range counts {
		bars[i] = charts.Bar{Label: c.Value, Value: float64(c.N)}
	}
	png, err := charts.BarPNG(TitleSentiment, bars, e.opt.ChartWidth, e.opt.ChartHeight)
	if err != nil {
		p.Notes = append(p.Notes, "Chart unavailable: "+err.Error())
		return p
	}
	p.Chart = png
	return p
}

var errNoTitleColumn = errors.New("no 'title_clean' or 'title' column")

func wordCloudStep(_ context.Context, e *env) Panel {
	p := Panel{FilterOptions: append([]string{filterAll}, dataset.SentimentValues(e.data)...), Selected: filterAll}
	if e.caps.TitleColumn == "" {
		p.Status, p.Message = StatusError, fmt.Sprintf(wordCloudErrFmt, errNoTitleColumn)
		return p
	}
	data := e.data
	if e.sel.Filtered() && e.caps.HasSentiment {
		p.Selected = e.sel.Sentiment
		filtered, err := data.Filter(dataset.SentimentColumn, e.sel.Sentiment)
		if err != nil {
			p.Status, p.Message = StatusError, fmt.Sprintf(wordCloudErrFmt, err)
			return p
		}
		data = filtered
	}
	col, _ := data.Column(e.caps.TitleColumn)
	var parts []string
	for i := 0; i < col.Len(); i++ {
		if !col.Null[i] {
			parts = append(parts, col.Display(i))
		}
	}
	opt := charts.DefaultWordCloudOptions()
	opt.MaxWords = e.opt.MaxWords
	opt.Width, opt.Height = e.opt.ChartWidth, e.opt.ChartHeight
	png, words, err := charts.RenderWordCloud(strings.Join(parts, " "), opt)
	if err != nil {
		p.Status, p.Message = StatusError, fmt.Sprintf(wordCloudErrFmt, err)
		return p
	}
	p.Status, p.Chart, p.Words = StatusOK, png, words
	return p
}

// trendStep counts rows per calendar date and sentiment. Rows with a null
// date or sentiment are left out.
func trendStep(_ context.Context, e *env) Panel {
	if !e.caps.HasDate || !e.caps.HasSentiment {
		return Panel{Status: StatusInfo, Message: MsgTrendSkipped}
	}
	fail := Panel{Status: StatusWarning, Message: MsgTrendFailed}
	dates, _ := e.data.Column(dataset.DateColumn)
	sent, _ := e.data.Column(dataset.SentimentColumn)
	if dates.Kind != dataset.KindTemporal {
		return fail
	}

	type key struct{ day, sentiment string }
	counts := map[key]float64{}
	days := map[string]time.Time{}
	names := map[string]bool{}
	for i := 0; i < dates.Len(); i++ {
		if dates.Null[i] || sent.Null[i] {
			continue
		}
		t := dates.Times[i]
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		label := day.Format("2006-01-02")
		days[label] = day
		names[sent.Values[i]] = true
		counts[key{label, sent.Values[i]}]++
	}
	if len(days) == 0 {
		return fail
	}

	labels := make([]string, 0, len(days))
	for l := range days {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	xs := make([]time.Time, len(labels))
	for i, l := range labels {
		xs[i] = days[l]
	}
	sentiments := make([]string, 0, len(names))
	for n := range names {
		sentiments = append(sentiments, n)
	}
	sort.Strings(sentiments)

	series := make([]charts.Series, len(sentiments))
	for i, s := range sentiments {
		vals := make([]float64, len(labels))
		for j, l := range labels {
			vals[j] = counts[key{l, s}]
		}
		series[i] = charts.Series{Name: s, Values: vals}
	}

	p := Panel{Status: StatusOK, Dates: labels, Series: series}
	total := 0.0
	for _, s := range series {
		total += floats.Sum(s.Values)
	}
	if excluded := dates.Len() - int(total); excluded > 0 {
		p.Notes = append(p.Notes, fmt.Sprintf("%d row(s) without a valid date or sentiment were left out.", excluded))
	}
	png, err := charts.LinePNG(TitleTrend, xs, series, e.opt.ChartWidth, e.opt.ChartHeight)
	if err != nil {
		return fail
	}
	p.Chart = png
	return p
}

func summaryStep(_ context.Context, e *env) Panel {
	t := analysis.Describe(e.data).Table()
	return Panel{Status: StatusOK, Table: &t}
}

// Package pipeline turns a dataset and a selection into an ordered list of
// dashboard panels. Each step is isolated: a failing step yields an error or
// warning panel and the remaining steps still run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/KaramelBytes/odap/internal/charts"
	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/KaramelBytes/odap/internal/logger"
	"go.uber.org/zap"
)

// Status of a rendered panel.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusInfo    Status = "info"
)

// PanelKind identifies a pipeline step.
type PanelKind string

const (
	PanelPreview   PanelKind = "preview"
	PanelSentiment PanelKind = "sentiment"
	PanelWordCloud PanelKind = "wordcloud"
	PanelTrend     PanelKind = "trend"
	PanelSummary   PanelKind = "summary"
)

// Panel titles.
const (
	TitlePreview   = "Dataset Preview"
	TitleSentiment = "Sentiment Distribution"
	TitleWordCloud = "Word Cloud"
	TitleTrend     = "Sentiment Trend Over Time"
	TitleSummary   = "Dataset Summary"
)

// User-facing messages.
const (
	MsgNoSentiment   = "The dataset does not contain a 'sentiment' column."
	MsgTrendFailed   = "Could not generate timeline insight: Ensure 'date' column is properly formatted."
	MsgTrendSkipped  = "Add 'date' and 'sentiment' columns to see the sentiment trend."
	wordCloudErrFmt  = "Error generating word cloud: %v"
	filterAll        = "All"
	skippedRowsNote  = "%d malformed row(s) were skipped while loading (lines %s)."
	maxSkippedListed = 10
)

// AllSentiments is the filter option meaning no sentiment filter.
const AllSentiments = filterAll

// Panel is the render description of one step.
type Panel struct {
	Kind    PanelKind `json:"kind"`
	Title   string    `json:"title"`
	Status  Status    `json:"status"`
	Message string    `json:"message,omitempty"`
	Notes   []string  `json:"notes,omitempty"`

	Table *dataset.Table `json:"table,omitempty"`
	// Chart holds PNG bytes for chart panels.
	Chart []byte `json:"-"`

	Counts        []dataset.Count `json:"counts,omitempty"`
	FilterOptions []string        `json:"filter_options,omitempty"`
	Selected      string          `json:"selected,omitempty"`
	Words         []charts.Word   `json:"words,omitempty"`
	Dates         []string        `json:"dates,omitempty"`
	Series        []charts.Series `json:"series,omitempty"`
}

// HasChart reports whether the panel carries an image.
func (p Panel) HasChart() bool { return len(p.Chart) > 0 }

// Selection is the user's current view state.
type Selection struct {
	// Sentiment filters the word cloud; "" or "All" means no filter.
	Sentiment string
}

// Filtered reports whether a specific sentiment is selected.
func (s Selection) Filtered() bool {
	return s.Sentiment != "" && s.Sentiment != filterAll
}

// Options tunes rendering.
type Options struct {
	PreviewRows int
	MaxWords    int
	ChartWidth  int
	ChartHeight int
	Logger      *zap.Logger
	// Observe, when set, is called after each step.
	Observe func(kind PanelKind, status Status, took time.Duration)
}

// DefaultOptions renders a five-row preview and up to 100 words. MaxWords
// above 100 is clamped.
func DefaultOptions() Options {
	return Options{
		PreviewRows: 5,
		MaxWords:    charts.MaxWords,
		ChartWidth:  charts.DefaultWidth,
		ChartHeight: charts.DefaultHeight,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PreviewRows <= 0 {
		o.PreviewRows = d.PreviewRows
	}
	if o.MaxWords <= 0 || o.MaxWords > charts.MaxWords {
		o.MaxWords = d.MaxWords
	}
	if o.ChartWidth <= 0 {
		o.ChartWidth = d.ChartWidth
	}
	if o.ChartHeight <= 0 {
		o.ChartHeight = d.ChartHeight
	}
	o.Logger = logger.OrNop(o.Logger)
	return o
}

// Page is the full render description of one dataset view.
type Page struct {
	Dataset      string               `json:"dataset"`
	Rows         int                  `json:"rows"`
	Columns      []string             `json:"columns"`
	Skipped      int                  `json:"skipped"`
	Capabilities dataset.Capabilities `json:"capabilities"`
	Panels       []Panel              `json:"panels"`
}

// Panel returns the first panel of the given kind.
func (p *Page) Panel(kind PanelKind) (Panel, bool) {
	for _, pn := range p.Panels {
		if pn.Kind == kind {
			return pn, true
		}
	}
	return Panel{}, false
}

// Prepare returns the working copy of d that panels and insight prompts see:
// a clone with the date column coerced when the trend step applies. d itself
// is never modified. Coercion failures leave the column as loaded.
func Prepare(d *dataset.Dataset) *dataset.Dataset {
	work := d.Clone()
	caps := dataset.Infer(work)
	if caps.HasDate && caps.HasSentiment {
		_ = work.CoerceDates(dataset.DateColumn)
	}
	return work
}

type step struct {
	kind  PanelKind
	title string
	run   func(ctx context.Context, env *env) Panel
}

type env struct {
	// raw is the dataset as loaded; data is the prepared working copy.
	raw  *dataset.Dataset
	data *dataset.Dataset
	caps dataset.Capabilities
	sel  Selection
	opt  Options
}

var steps = []step{
	{PanelPreview, TitlePreview, previewStep},
	{PanelSentiment, TitleSentiment, sentimentStep},
	{PanelWordCloud, TitleWordCloud, wordCloudStep},
	{PanelTrend, TitleTrend, trendStep},
	{PanelSummary, TitleSummary, summaryStep},
}

// Render runs every step in order against a working copy of d.
func Render(ctx context.Context, d *dataset.Dataset, sel Selection, opt Options) *Page {
	opt = opt.withDefaults()
	work := Prepare(d)
	e := &env{raw: d, data: work, caps: dataset.Infer(work), sel: sel, opt: opt}
	page := &Page{
		Dataset:      d.Name,
		Rows:         d.Rows(),
		Columns:      d.ColumnNames(),
		Skipped:      d.Skipped,
		Capabilities: e.caps,
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			page.Panels = append(page.Panels, Panel{Kind: s.kind, Title: s.title, Status: StatusError, Message: err.Error()})
			continue
		}
		start := time.Now()
		p := runStep(ctx, s, e)
		took := time.Since(start)
		if opt.Observe != nil {
			opt.Observe(p.Kind, p.Status, took)
		}
		opt.Logger.Debug("rendered panel",
			zap.String("panel", string(p.Kind)), zap.String("status", string(p.Status)), zap.Duration("took", took))
		page.Panels = append(page.Panels, p)
	}
	return page
}

func runStep(ctx context.Context, s step, e *env) (p Panel) {
	defer func() {
		if r := recover(); r != nil {
			e.opt.Logger.Error("panel step panicked", zap.String("panel", string(s.kind)), zap.Any("panic", r))
			p = Panel{Kind: s.kind, Title: s.title, Status: StatusError, Message: fmt.Sprintf("internal error: %v", r)}
			if s.kind == PanelTrend {
				p.Status, p.Message = StatusWarning, MsgTrendFailed
			}
		}
	}()
	p = s.run(ctx, e)
	p.Kind, p.Title = s.kind, s.title
	return p
}

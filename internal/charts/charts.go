// Package charts renders dashboard charts to PNG bytes.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Default canvas sizes.
const (
	DefaultWidth  = 800
	DefaultHeight = 400
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to plot")

// Bar is one labeled bar.
type Bar struct {
	Label string
	Value float64
}

// Series is one named line over a shared time axis.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

var barColor = drawing.ColorFromHex("4c78a8")

func size(w, h int) (int, int) {
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// yRange leaves headroom above the tallest value and never collapses to zero.
func yRange(max float64) *chart.ContinuousRange {
	if max <= 0 || math.IsNaN(max) || math.IsInf(max, 0) {
		max = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: max * 1.1}
}

// BarPNG renders a vertical bar chart.
func BarPNG(title string, bars []Bar, w, h int) ([]byte, error) {
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	w, h = size(w, h)
	max := 0.0
	values := make([]chart.Value, len(bars))
	for i, b := range bars {
		if b.Value > max {
			max = b.Value
		}
		values[i] = chart.Value{
			Label: b.Label,
			Value: b.Value,
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor, StrokeWidth: 1},
		}
	}
	barWidth := (w - 120) / (2 * len(bars))
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 4 {
		barWidth = 4
	}
	bc := chart.BarChart{
		Title:      title,
		Width:      w,
		Height:     h,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      chart.YAxis{Range: yRange(max)},
		Bars:       values,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

// LinePNG renders one line per series over the dates in x. Every series must
// have len(x) values.
func LinePNG(title string, x []time.Time, series []Series, w, h int) ([]byte, error) {
	if len(x) == 0 || len(series) == 0 {
		return nil, ErrNoData
	}
	w, h = size(w, h)
	xs := x
	// A single date has no X extent; plot it twice a day apart.
	if len(x) == 1 {
		xs = []time.Time{x[0], x[0].Add(24 * time.Hour)}
	}
	max := 0.0
	var out []chart.Series
	for i, s := range series {
		if len(s.Values) != len(x) {
			return nil, fmt.Errorf("series %q has %d values, want %d", s.Name, len(s.Values), len(x))
		}
		ys := s.Values
		if len(x) == 1 {
			ys = []float64{s.Values[0], s.Values[0]}
		}
		for _, v := range ys {
			if v > max {
				max = v
			}
		}
		col := chart.GetDefaultColor(i)
		out = append(out, chart.TimeSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 3},
		})
	}
	ch := chart.Chart{
		Title:      title,
		Width:      w,
		Height:     h,
		Background: chart.Style{FillColor: drawing.ColorWhite, Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "date", ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:      chart.YAxis{Name: "count", Range: yRange(max)},
		Series:     out,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render line chart: %w", err)
	}
	return buf.Bytes(), nil
}

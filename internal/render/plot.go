package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/ziadkadry99/auto-report/internal/report"
)

// palette is cycled through for series colors.
var palette = []string{"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f", "#edc948", "#b07aa1"}

const (
	marginLeft   = 48
	marginRight  = 12
	marginTop    = 28
	marginBottom = 40
)

// renderPlot draws p as an inline SVG bar or line chart.
func renderPlot(p *report.Plot, width, height int) (string, error) {
	kind := p.Kind
	if kind == "" {
		kind = report.PlotBar
	}
	if kind != report.PlotBar && kind != report.PlotLine {
		return "", fmt.Errorf("%w: plot kind %q", report.ErrUnsupportedElementType, p.Kind)
	}

	groups := len(p.Labels)
	lo, hi := 0.0, 0.0
	for _, s := range p.Series {
		groups = max(groups, len(s.Values))
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	plotW := width - marginLeft - marginRight
	plotH := height - marginTop - marginBottom
	if plotW <= 0 || plotH <= 0 {
		return "", fmt.Errorf("plot size %dx%d is too small", width, height)
	}
	yOf := func(v float64) int {
		return marginTop + plotH - int(math.Round((v-lo)/(hi-lo)*float64(plotH)))
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(width, height)
	if p.Title != "" {
		canvas.Title(p.Title)
		canvas.Text(width/2, marginTop-10, p.Title, "text-anchor:middle;font-size:14px;font-family:sans-serif")
	}

	// Axes.
	axis := "stroke:#555;stroke-width:1"
	canvas.Line(marginLeft, marginTop, marginLeft, marginTop+plotH, axis)
	canvas.Line(marginLeft, yOf(0), marginLeft+plotW, yOf(0), axis)
	tick := "text-anchor:end;font-size:10px;font-family:sans-serif;fill:#555"
	canvas.Text(marginLeft-4, yOf(hi)+4, formatValue(hi), tick)
	if lo != 0 {
		canvas.Text(marginLeft-4, yOf(lo)+4, formatValue(lo), tick)
	}
	canvas.Text(marginLeft-4, yOf(0)+4, "0", tick)

	if groups > 0 {
		groupW := float64(plotW) / float64(groups)
		label := "text-anchor:middle;font-size:10px;font-family:sans-serif"
		for i, l := range p.Labels {
			x := marginLeft + int(groupW*(float64(i)+0.5))
			canvas.Text(x, marginTop+plotH+14, l, label)
		}

		switch kind {
		case report.PlotBar:
			drawBars(canvas, p.Series, groupW, yOf)
		case report.PlotLine:
			drawLines(canvas, p.Series, groupW, yOf)
		}
	}

	// Legend.
	for i, s := range p.Series {
		if s.Name == "" {
			continue
		}
		x := marginLeft + i*90
		y := height - 10
		canvas.Rect(x, y-8, 8, 8, "fill:"+color(i))
		canvas.Text(x+12, y, s.Name, "font-size:10px;font-family:sans-serif")
	}
	canvas.End()

	out := buf.String()
	// Drop the XML prolog; the SVG is embedded in HTML.
	if i := strings.Index(out, "<svg"); i > 0 {
		out = out[i:]
	}
	return out, nil
}

func drawBars(canvas *svg.SVG, series []report.Series, groupW float64, yOf func(float64) int) {
	if len(series) == 0 {
		return
	}
	barW := max(1, int(groupW*0.8)/len(series))
	base := yOf(0)
	for si, s := range series {
		for gi, v := range s.Values {
			x := marginLeft + int(groupW*float64(gi)+groupW*0.1) + si*barW
			y := yOf(v)
			top, h := y, base-y
			if v < 0 {
				top, h = base, y-base
			}
			canvas.Rect(x, top, barW, max(h, 1), "fill:"+color(si))
		}
	}
}

func drawLines(canvas *svg.SVG, series []report.Series, groupW float64, yOf func(float64) int) {
	for si, s := range series {
		xs := make([]int, len(s.Values))
		ys := make([]int, len(s.Values))
		for gi, v := range s.Values {
			xs[gi] = marginLeft + int(groupW*(float64(gi)+0.5))
			ys[gi] = yOf(v)
		}
		if len(xs) > 1 {
			canvas.Polyline(xs, ys, "fill:none;stroke-width:2;stroke:"+color(si))
		}
		for i := range xs {
			canvas.Circle(xs[i], ys[i], 3, "fill:"+color(si))
		}
	}
}

func color(i int) string {
	return palette[i%len(palette)]
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

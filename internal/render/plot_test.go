package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/ziadkadry99/auto-report/internal/report"
)

func TestRenderPlotBar(t *testing.T) {
	p := &report.Plot{
		Kind:   report.PlotBar,
		Title:  "Sales & returns",
		Labels: []string{"Jan", "Feb", "Mar"},
		Series: []report.Series{
			{Name: "sales", Values: []float64{3, 5, 2}},
			{Name: "returns", Values: []float64{1, -1, 0}},
		},
	}
	out, err := renderPlot(p, 480, 280)
	if err != nil {
		t.Fatalf("renderPlot: %v", err)
	}
	if !strings.HasPrefix(out, "<svg") {
		t.Errorf("expected output to start with <svg, got %.40q", out)
	}
	if strings.Contains(out, "<?xml") {
		t.Error("XML prolog should be stripped")
	}
	// 6 bars + 2 legend swatches.
	if got := strings.Count(out, "<rect"); got != 8 {
		t.Errorf("rect count = %d, want 8", got)
	}
	for _, want := range []string{"Jan", "Mar", "sales", "Sales &amp; returns"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderPlotLine(t *testing.T) {
	p := &report.Plot{
		Kind:   report.PlotLine,
		Labels: []string{"a", "b", "c", "d"},
		Series: []report.Series{{Values: []float64{1, 4, 2, 8}}},
	}
	out, err := renderPlot(p, 400, 200)
	if err != nil {
		t.Fatalf("renderPlot: %v", err)
	}
	if strings.Count(out, "<polyline") != 1 {
		t.Error("expected one polyline")
	}
	if strings.Count(out, "<circle") != 4 {
		t.Error("expected a marker per point")
	}
}

func TestRenderPlotEmpty(t *testing.T) {
	out, err := renderPlot(&report.Plot{}, 300, 200)
	if err != nil {
		t.Fatalf("renderPlot: %v", err)
	}
	if !strings.Contains(out, "</svg>") {
		t.Error("expected a complete svg")
	}
}

func TestRenderPlotInvalid(t *testing.T) {
	_, err := renderPlot(&report.Plot{Kind: "pie"}, 300, 200)
	if !errors.Is(err, report.ErrUnsupportedElementType) {
		t.Errorf("err = %v, want ErrUnsupportedElementType", err)
	}

	if _, err := renderPlot(&report.Plot{}, 10, 10); err == nil {
		t.Error("expected error for tiny canvas")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{12, "12"},
		{-3, "-3"},
		{1.5, "1.50"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package report

import "fmt"

// Flow controls how a section lays out its contents.
type Flow string

const (
	FlowHorizontal Flow = "horizontal"
	FlowVertical   Flow = "vertical"
)

// ParseFlow converts a string into a Flow. The empty string maps to FlowVertical.
func ParseFlow(s string) (Flow, error) {
	switch Flow(s) {
	case "", FlowVertical:
		return FlowVertical, nil
	case FlowHorizontal:
		return FlowHorizontal, nil
	default:
		return "", fmt.Errorf("invalid flow %q: must be horizontal or vertical", s)
	}
}

// ElementType tags the kind of content an Element carries.
type ElementType string

const (
	ElementHeader ElementType = "header"
	ElementText   ElementType = "text"
	ElementPlot   ElementType = "plot"
	ElementImage  ElementType = "image"
	ElementData   ElementType = "data"
	ElementURL    ElementType = "url"
)

// validElementTypes is the set of recognized element types.
var validElementTypes = map[ElementType]bool{
	ElementHeader: true,
	ElementText:   true,
	ElementPlot:   true,
	ElementImage:  true,
	ElementData:   true,
	ElementURL:    true,
}

// Valid reports whether t is one of the known element types.
func (t ElementType) Valid() bool {
	return validElementTypes[t]
}

// PlotKind selects the chart drawn for a PLOT element.
type PlotKind string

const (
	PlotBar  PlotKind = "bar"
	PlotLine PlotKind = "line"
)

// Series is one named run of values in a plot.
type Series struct {
	Name   string    `yaml:"name" json:"name"`
	Values []float64 `yaml:"values" json:"values"`
}

// Plot is the payload of a PLOT element.
type Plot struct {
	Kind   PlotKind `yaml:"kind" json:"kind"`
	Title  string   `yaml:"title" json:"title"`
	Labels []string `yaml:"labels" json:"labels"`
	Series []Series `yaml:"series" json:"series"`
}

// Table is the payload of a DATA element.
type Table struct {
	Columns []string   `yaml:"columns" json:"columns"`
	Rows    [][]string `yaml:"rows" json:"rows"`
}

// Package render turns report elements into HTML.
package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/ziadkadry99/auto-report/internal/report"
)

// HTMLRenderer renders every element type. Text is treated as markdown,
// plots become inline SVG and images are embedded as data URIs when they
// carry their own bytes.
type HTMLRenderer struct {
	md         goldmark.Markdown
	plotWidth  int
	plotHeight int
}

// Option configures an HTMLRenderer.
type Option func(*rendererConfig)

type rendererConfig struct {
	unsafeHTML bool
	plotWidth  int
	plotHeight int
}

// WithUnsafeHTML lets raw HTML in markdown text pass through.
func WithUnsafeHTML() Option {
	return func(c *rendererConfig) { c.unsafeHTML = true }
}

// WithPlotSize sets the SVG canvas size for plots.
func WithPlotSize(width, height int) Option {
	return func(c *rendererConfig) {
		if width > 0 {
			c.plotWidth = width
		}
		if height > 0 {
			c.plotHeight = height
		}
	}
}

// NewHTMLRenderer creates a renderer.
func NewHTMLRenderer(opts ...Option) *HTMLRenderer {
	cfg := rendererConfig{plotWidth: 480, plotHeight: 280}
	for _, opt := range opts {
		opt(&cfg)
	}

	var rendererOpts []goldmark.Option
	if cfg.unsafeHTML {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(goldhtml.WithUnsafe()))
	}
	md := goldmark.New(append([]goldmark.Option{
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	}, rendererOpts...)...)

	return &HTMLRenderer{
		md:         md,
		plotWidth:  cfg.plotWidth,
		plotHeight: cfg.plotHeight,
	}
}

// RenderElement implements report.ElementRenderer.
func (h *HTMLRenderer) RenderElement(el *report.Element) (string, error) {
	switch el.Type {
	case report.ElementHeader:
		return report.BasicRenderer{}.RenderElement(el)
	case report.ElementText:
		var buf bytes.Buffer
		if err := h.md.Convert([]byte(el.Text), &buf); err != nil {
			return "", fmt.Errorf("converting markdown: %w", err)
		}
		return buf.String(), nil
	case report.ElementURL:
		return report.BasicRenderer{}.RenderElement(el)
	case report.ElementImage:
		return renderImage(el)
	case report.ElementData:
		return renderTable(el.Table)
	case report.ElementPlot:
		if el.Plot == nil {
			return "", errors.New("plot element has no plot")
		}
		return renderPlot(el.Plot, h.plotWidth, h.plotHeight)
	default:
		return "", fmt.Errorf("%w: %q", report.ErrUnsupportedElementType, el.Type)
	}
}

func renderImage(el *report.Element) (string, error) {
	src := el.Src
	if src == "" {
		if len(el.Image) == 0 {
			return "", errors.New("image element has neither a source nor data")
		}
		mime := el.MIMEType
		if mime == "" {
			mime = http.DetectContentType(el.Image)
		}
		src = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(el.Image)
	}
	return fmt.Sprintf(`<img src="%s" alt="%s" style="max-width:100%%">`,
		html.EscapeString(src), html.EscapeString(el.Text)), nil
}

var tableTemplate = template.Must(template.New("table").Parse(
	`<table class="report-data" border="1" cellspacing="0" cellpadding="4">` +
		`{{if .Columns}}<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>{{end}}` +
		`<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody></table>`))

func renderTable(t *report.Table) (string, error) {
	if t == nil {
		return "", errors.New("data element has no table")
	}
	var buf bytes.Buffer
	if err := tableTemplate.Execute(&buf, t); err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}
	return buf.String(), nil
}

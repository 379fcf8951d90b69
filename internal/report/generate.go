package report

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// ElementRenderer produces the markup for a single element.
type ElementRenderer interface {
	RenderElement(el *Element) (string, error)
}

// ElementRendererFunc adapts a function to the ElementRenderer interface.
type ElementRendererFunc func(el *Element) (string, error)

// RenderElement calls f(el).
func (f ElementRendererFunc) RenderElement(el *Element) (string, error) { return f(el) }

// BasicRenderer renders headers, plain text and links. Plots, images and data
// tables need a richer renderer and fail with ErrUnsupportedElementType.
// Links other than http, https, mailto or relative ones render as their
// label only.
type BasicRenderer struct{}

// RenderElement implements ElementRenderer.
func (BasicRenderer) RenderElement(el *Element) (string, error) {
	switch el.Type {
	case ElementHeader:
		level := el.Level
		if level < 1 || level > 6 {
			level = 2
		}
		return fmt.Sprintf("<h%d>%s</h%d>", level, html.EscapeString(el.Text), level), nil
	case ElementText:
		var b strings.Builder
		for _, para := range strings.Split(strings.TrimSpace(el.Text), "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(para))
		}
		return b.String(), nil
	case ElementURL:
		if !safeHref(el.Href) {
			return html.EscapeString(el.Text), nil
		}
		return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(el.Href), html.EscapeString(el.Text)), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedElementType, el.Type)
	}
}

// Generate renders the section: its heading, if any, followed by a table
// holding every item of its contents. Horizontal sections place items side by
// side in one row; vertical sections stack them one row per item.
func (s *Section) Generate(er ElementRenderer) (string, error) {
	if er == nil {
		er = BasicRenderer{}
	}
	var b strings.Builder
	if err := s.generate(&b, er); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Section) generate(b *strings.Builder, er ElementRenderer) error {
	if s.title != "" {
		fmt.Fprintf(b, "<h2%s>%s</h2>", styleAttr(s.style), html.EscapeString(s.title))
	}

	flow := s.Flow()
	fmt.Fprintf(b, `<table class="report-section flow-%s">`, flow)
	if flow == FlowHorizontal && len(s.contents) > 0 {
		b.WriteString("<tr>")
	}
	for _, it := range s.contents {
		if flow == FlowVertical {
			b.WriteString("<tr>")
		}
		b.WriteString(`<td valign="top">`)
		switch v := it.(type) {
		case *Element:
			markup, err := er.RenderElement(v)
			if err != nil {
				return fmt.Errorf("rendering %s element: %w", v.Type, err)
			}
			b.WriteString(markup)
		case *Section:
			if err := v.generate(b, er); err != nil {
				return err
			}
		}
		b.WriteString("</td>")
		if flow == FlowVertical {
			b.WriteString("</tr>")
		}
	}
	if flow == FlowHorizontal && len(s.contents) > 0 {
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return nil
}

// Generate renders the report: an optional title heading followed by the
// root section.
func (r *Report) Generate() (string, error) {
	er := r.renderer
	if er == nil {
		er = BasicRenderer{}
	}

	var b strings.Builder
	if r.title != "" {
		fmt.Fprintf(&b, "<h1%s>%s</h1>", styleAttr(r.style), html.EscapeString(r.title))
	}
	b.WriteString(`<table class="report"><tr><td>`)
	if err := r.root.generate(&b, er); err != nil {
		return "", err
	}
	b.WriteString("</td></tr></table>")
	return b.String(), nil
}

func styleAttr(style string) string {
	if style == "" {
		return ""
	}
	return fmt.Sprintf(` style="%s"`, html.EscapeString(style))
}

// safeHref reports whether href is relative or uses http, https or mailto.
func safeHref(href string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}

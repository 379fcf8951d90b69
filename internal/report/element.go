package report

// Item is anything that can be placed in a Section's contents: an *Element or
// a *Section. The set is closed; no other type implements Item.
type Item interface {
	item()
}

func (*Element) item() {}
func (*Section) item() {}

// Element is a leaf in the report tree. Which payload fields are meaningful
// depends on Type.
type Element struct {
	Type ElementType

	// Text is the header text, markdown body, link label or image alt text.
	Text string

	// Level is the heading level of a HEADER element (1-6).
	Level int

	// Href is the target of a URL element.
	Href string

	// Src is an image URL or data URI. When empty, Image and MIMEType are used.
	Src      string
	Image    []byte
	MIMEType string

	Table *Table
	Plot  *Plot

	owner *Section
}

// NewHeader creates a HEADER element. Levels outside 1-6 default to 2.
func NewHeader(text string, level int) *Element {
	if level < 1 || level > 6 {
		level = 2
	}
	return &Element{Type: ElementHeader, Text: text, Level: level}
}

// NewText creates a TEXT element from markdown source.
func NewText(text string) *Element {
	return &Element{Type: ElementText, Text: text}
}

// NewURL creates a URL element. An empty label falls back to the href.
func NewURL(label, href string) *Element {
	if label == "" {
		label = href
	}
	return &Element{Type: ElementURL, Text: label, Href: href}
}

// NewImage creates an IMAGE element pointing at src.
func NewImage(src, alt string) *Element {
	return &Element{Type: ElementImage, Src: src, Text: alt}
}

// NewInlineImage creates an IMAGE element carrying the image bytes themselves.
func NewInlineImage(data []byte, mimeType, alt string) *Element {
	return &Element{Type: ElementImage, Image: data, MIMEType: mimeType, Text: alt}
}

// NewData creates a DATA element.
func NewData(t Table) *Element {
	return &Element{Type: ElementData, Table: &t}
}

// NewPlot creates a PLOT element. An empty kind defaults to a bar chart.
func NewPlot(p Plot) *Element {
	if p.Kind == "" {
		p.Kind = PlotBar
	}
	return &Element{Type: ElementPlot, Plot: &p}
}

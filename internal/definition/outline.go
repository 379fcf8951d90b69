package definition

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/auto-report/internal/report"
)

// Outline returns an indented, one-line-per-item listing of a report tree.
func Outline(r *report.Report) string {
	var b strings.Builder
	title := r.Title()
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "report %s\n", title)
	_ = r.Walk(func(it report.Item, depth int) error {
		indent := strings.Repeat("  ", depth)
		switch v := it.(type) {
		case *report.Section:
			fmt.Fprintf(&b, "%ssection", indent)
			if v.Name() != "" {
				fmt.Fprintf(&b, " [%s]", v.Name())
			}
			if v.Title() != "" {
				fmt.Fprintf(&b, " %q", v.Title())
			}
			fmt.Fprintf(&b, " (%s, %d items)\n", v.Flow(), v.Len())
		case *report.Element:
			fmt.Fprintf(&b, "%s%s%s\n", indent, v.Type, elementSummary(v))
		}
		return nil
	})
	return b.String()
}

func elementSummary(el *report.Element) string {
	const maxLen = 40
	var s string
	switch el.Type {
	case report.ElementHeader, report.ElementText:
		s = el.Text
	case report.ElementURL:
		s = el.Href
	case report.ElementImage:
		s = el.Text
	case report.ElementPlot:
		if el.Plot != nil {
			s = el.Plot.Title
		}
	case report.ElementData:
		if el.Table != nil {
			return fmt.Sprintf(" %d cols x %d rows", len(el.Table.Columns), len(el.Table.Rows))
		}
	}
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	if len(s) > maxLen {
		s = s[:maxLen-3] + "..."
	}
	return " " + s
}

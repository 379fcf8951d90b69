package definition

import (
	"encoding/csv"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/auto-report/internal/report"
)

// Build constructs a report from the definition.
func Build(def *Definition, opts ...report.Option) (*report.Report, error) {
	root, err := buildSection(def, &def.Root, "root")
	if err != nil {
		return nil, err
	}
	r, err := report.New(def.Title, root, opts...)
	if err != nil {
		return nil, err
	}
	r.SetTitle(def.Title, def.Style)
	return r, nil
}

func buildSection(def *Definition, n *Node, where string) (*report.Section, error) {
	s := report.NewSection()
	s.SetTitle(n.Title, n.Style)
	flow, err := report.ParseFlow(n.Flow)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, where, err)
	}
	s.SetFlow(flow)

	for i := range n.Contents {
		child := &n.Contents[i]
		childWhere := fmt.Sprintf("%s.contents[%d]", where, i)
		item, err := buildItem(def, child, childWhere)
		if err != nil {
			return nil, err
		}
		if err := s.Add(item, child.Name); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, childWhere, err)
		}
	}
	return s, nil
}

func buildItem(def *Definition, n *Node, where string) (report.Item, error) {
	var (
		item report.Item
		set  int
	)
	if n.Header != nil {
		set++
		item = report.NewHeader(n.Header.Text, n.Header.Level)
	}
	if n.Text != nil {
		set++
		item = report.NewText(*n.Text)
	}
	if n.URL != nil {
		set++
		if n.URL.Href == "" {
			return nil, fmt.Errorf("%w: %s: url requires href", ErrInvalid, where)
		}
		item = report.NewURL(n.URL.Label, n.URL.Href)
	}
	if n.Image != nil {
		set++
		el, err := buildImage(def, n.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, where, err)
		}
		item = el
	}
	if n.Data != nil {
		set++
		el, err := buildData(def, n.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, where, err)
		}
		item = el
	}
	if n.Plot != nil {
		set++
		kind := report.PlotKind(n.Plot.Kind)
		if kind != "" && kind != report.PlotBar && kind != report.PlotLine {
			return nil, fmt.Errorf("%w: %s: unknown plot kind %q", ErrInvalid, where, n.Plot.Kind)
		}
		item = report.NewPlot(report.Plot{
			Kind:   kind,
			Title:  n.Plot.Title,
			Labels: n.Plot.Labels,
			Series: n.Plot.Series,
		})
	}
	if n.Section != nil {
		set++
		sec, err := buildSection(def, n.Section, where+".section")
		if err != nil {
			return nil, err
		}
		item = sec
	}

	switch set {
	case 0:
		return nil, fmt.Errorf("%w: %s: entry has no content", ErrInvalid, where)
	case 1:
		return item, nil
	default:
		return nil, fmt.Errorf("%w: %s: entry sets %d content kinds, want 1", ErrInvalid, where, set)
	}
}

func buildImage(def *Definition, n *ImageNode) (*report.Element, error) {
	switch {
	case n.Src != "" && n.Path != "":
		return nil, fmt.Errorf("image sets both src and path")
	case n.Src != "":
		return report.NewImage(n.Src, n.Alt), nil
	case n.Path != "":
		full, err := def.resolve(n.Path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("reading image: %w", err)
		}
		mimeType := n.MIME
		if mimeType == "" {
			mimeType = mime.TypeByExtension(filepath.Ext(n.Path))
		}
		return report.NewInlineImage(data, mimeType, n.Alt), nil
	default:
		return nil, fmt.Errorf("image requires src or path")
	}
}

func buildData(def *Definition, n *DataNode) (*report.Element, error) {
	if n.CSV == "" {
		return report.NewData(report.Table{Columns: n.Columns, Rows: n.Rows}), nil
	}
	if len(n.Columns) > 0 || len(n.Rows) > 0 {
		return nil, fmt.Errorf("data sets both csv and inline rows")
	}

	full, err := def.resolve(n.CSV)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return report.NewData(report.Table{}), nil
	}
	return report.NewData(report.Table{Columns: records[0], Rows: records[1:]}), nil
}

// resolve maps a file reference to a path under BaseDir. Absolute paths and
// paths leaving RootDir are refused.
func (d *Definition) resolve(p string) (string, error) {
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return "", fmt.Errorf("file reference %q must be relative", p)
	}
	base := d.BaseDir
	if base == "" {
		base = "."
	}
	root := d.RootDir
	if root == "" {
		root = base
	}
	full := filepath.Join(base, filepath.FromSlash(p))
	if !Within(root, full) {
		return "", fmt.Errorf("file reference %q is outside %s", p, root)
	}
	return full, nil
}

// Within reports whether path lies inside root once both are made absolute.
func Within(root, path string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

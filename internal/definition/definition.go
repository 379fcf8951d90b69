// Package definition loads report definitions from YAML files and builds
// report trees from them.
package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/auto-report/internal/report"
)

// ErrInvalid is returned for malformed definitions.
var ErrInvalid = errors.New("invalid report definition")

// Definition is the on-disk description of a report.
type Definition struct {
	Title string    `yaml:"title"`
	Style string    `yaml:"style"`
	Root  Node      `yaml:"root"`
	Mail  *MailSpec `yaml:"mail,omitempty"`

	// Path is the file the definition was loaded from, if any.
	Path string `yaml:"-"`
	// BaseDir resolves relative image and CSV paths.
	BaseDir string `yaml:"-"`
	// RootDir bounds the files image and CSV entries may read. Empty means
	// BaseDir.
	RootDir string `yaml:"-"`
}

// MailSpec holds default delivery settings for a report.
type MailSpec struct {
	Subject string   `yaml:"subject"`
	To      []string `yaml:"to"`
	From    []string `yaml:"from"`
}

// Node is one entry of a section's contents. Exactly one of the variant
// fields is set for content entries; the root node only uses the section
// fields (title, style, flow, contents).
type Node struct {
	Name string `yaml:"name,omitempty"`

	Title    string `yaml:"title,omitempty"`
	Style    string `yaml:"style,omitempty"`
	Flow     string `yaml:"flow,omitempty"`
	Contents []Node `yaml:"contents,omitempty"`

	Header  *HeaderNode `yaml:"header,omitempty"`
	Text    *string     `yaml:"text,omitempty"`
	URL     *URLNode    `yaml:"url,omitempty"`
	Image   *ImageNode  `yaml:"image,omitempty"`
	Data    *DataNode   `yaml:"data,omitempty"`
	Plot    *PlotNode   `yaml:"plot,omitempty"`
	Section *Node       `yaml:"section,omitempty"`
}

// HeaderNode describes a HEADER element.
type HeaderNode struct {
	Text  string `yaml:"text"`
	Level int    `yaml:"level,omitempty"`
}

// URLNode describes a URL element.
type URLNode struct {
	Label string `yaml:"label,omitempty"`
	Href  string `yaml:"href"`
}

// ImageNode describes an IMAGE element. Src is used as-is; Path is read from
// disk and embedded.
type ImageNode struct {
	Src  string `yaml:"src,omitempty"`
	Path string `yaml:"path,omitempty"`
	Alt  string `yaml:"alt,omitempty"`
	MIME string `yaml:"mime,omitempty"`
}

// DataNode describes a DATA element, either inline or from a CSV file whose
// first record is the header.
type DataNode struct {
	Columns []string   `yaml:"columns,omitempty"`
	Rows    [][]string `yaml:"rows,omitempty"`
	CSV     string     `yaml:"csv,omitempty"`
}

// PlotNode describes a PLOT element.
type PlotNode struct {
	Kind   string          `yaml:"kind,omitempty"`
	Title  string          `yaml:"title,omitempty"`
	Labels []string        `yaml:"labels,omitempty"`
	Series []report.Series `yaml:"series"`
}

// Parse decodes a YAML definition. Unknown fields are rejected. baseDir
// resolves relative file references.
func Parse(data []byte, baseDir string) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	def.BaseDir = baseDir
	return &def, nil
}

// Load reads and parses the definition file at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition %s: %w", path, err)
	}
	def, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def.Path = path
	return def, nil
}

// Name returns a short identifier for the definition: the file name without
// extension, or "report" when it was not loaded from disk.
func (d *Definition) Name() string {
	if d.Path == "" {
		return "report"
	}
	base := filepath.Base(d.Path)
	return base[:len(base)-len(filepath.Ext(base))]
}

package render

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
)

// DocumentOptions controls the page wrapped around a report fragment.
type DocumentOptions struct {
	Title string
	// ReloadPath is the websocket path the page connects to for live reload.
	// Empty disables live reload.
	ReloadPath string
}

// pageData holds the data passed to the page template.
type pageData struct {
	Title      string
	CSS        template.CSS
	Content    template.HTML
	ReloadPath string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{if .Title}}{{.Title}}{{else}}Report{{end}}</title>
  <style>{{.CSS}}</style>
</head>
<body>
  <main class="content">
{{.Content}}
  </main>
{{- if .ReloadPath}}
  <script>
  (function() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + {{.ReloadPath}});
    ws.onmessage = function(ev) {
      if (ev.data === "reload") { location.reload(); }
    };
  })();
  </script>
{{- end}}
</body>
</html>
`))

const cssContent = `body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; color: #1f2328; margin: 0; }
.content { max-width: 1100px; margin: 0 auto; padding: 24px; }
h1 { font-size: 28px; border-bottom: 1px solid #d0d7de; padding-bottom: 8px; }
h2 { font-size: 20px; margin: 16px 0 8px; }
table.report, table.report-section { border-collapse: collapse; width: 100%; }
table.report-section td { padding: 6px; }
table.report-data { border-collapse: collapse; border-color: #d0d7de; }
table.report-data th { background: #f6f8fa; text-align: left; }
pre { padding: 12px; overflow-x: auto; border-radius: 6px; }
a { color: #0969da; }`

// Document wraps a rendered fragment in a standalone HTML page.
func Document(fragment string, opts DocumentOptions) (string, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Title:      opts.Title,
		CSS:        template.CSS(cssContent),
		Content:    template.HTML(fragment),
		ReloadPath: opts.ReloadPath,
	})
	if err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return buf.String(), nil
}

// WriteDocument renders a page and writes it to path, creating parent
// directories as needed.
func WriteDocument(path, fragment string, opts DocumentOptions) error {
	page, err := Document(fragment, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

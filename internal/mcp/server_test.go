package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/auto-report/internal/render"
)

const weekly = `
title: Weekly
root:
  contents:
    - header: {text: Status}
    - name: details
      section:
        title: Details
        flow: horizontal
        contents:
          - text: All green.
          - url: {label: Dashboard, href: "https://example.com"}
`

func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "weekly.yml"), []byte(weekly), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "_draft.yml"), []byte(weekly), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(setupProject(t), []string{"reports/**/*.yml"}, []string{"**/_*.yml"}, render.NewHTMLRenderer())
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

// extractText gets the text content from a CallToolResult.
func extractText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"render_report", renderReportTool, "render_report"},
		{"outline_report", outlineReportTool, "outline_report"},
		{"list_reports", listReportsTool, "list_reports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer("/tmp/project", nil, nil, nil)
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.renderer == nil {
		t.Error("expected a default renderer")
	}
}

func TestHandleRenderReport(t *testing.T) {
	srv := newTestServer(t)

	t.Run("from path", func(t *testing.T) {
		result := call(t, srv.handleRenderReport, map[string]any{"path": "reports/weekly.yml"})
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := extractText(result)
		if !strings.Contains(text, "<!DOCTYPE html>") || !strings.Contains(text, `<a href="https://example.com">Dashboard</a>`) {
			t.Errorf("unexpected page:\n%s", text)
		}
	})

	t.Run("inline fragment", func(t *testing.T) {
		result := call(t, srv.handleRenderReport, map[string]any{"definition": weekly, "fragment": true})
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := extractText(result)
		if strings.Contains(text, "<!DOCTYPE html>") {
			t.Error("fragment should not be a full page")
		}
		if !strings.Contains(text, "flow-horizontal") {
			t.Errorf("fragment missing horizontal section:\n%s", text)
		}
	})

	t.Run("missing arguments", func(t *testing.T) {
		if result := call(t, srv.handleRenderReport, map[string]any{}); !result.IsError {
			t.Error("expected error for missing path and definition")
		}
	})

	t.Run("both arguments", func(t *testing.T) {
		result := call(t, srv.handleRenderReport, map[string]any{"path": "reports/weekly.yml", "definition": weekly})
		if !result.IsError {
			t.Error("expected error when both arguments are given")
		}
	})

	t.Run("path outside project", func(t *testing.T) {
		if result := call(t, srv.handleRenderReport, map[string]any{"path": "../secrets.yml"}); !result.IsError {
			t.Error("expected error for path escaping the project")
		}
	})

	t.Run("inline definition reading outside project", func(t *testing.T) {
		secret := filepath.Join(t.TempDir(), "secret.csv")
		if err := os.WriteFile(secret, []byte("token\ns3cr3t-value\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		for _, ref := range []string{filepath.ToSlash(secret), "../secret.csv"} {
			def := "root:\n  contents:\n    - data: {csv: \"" + ref + "\"}\n"
			result := call(t, srv.handleRenderReport, map[string]any{"definition": def, "fragment": true})
			if !result.IsError {
				t.Errorf("%s: expected tool error", ref)
			}
			if strings.Contains(extractText(result), "s3cr3t-value") {
				t.Errorf("%s: result contains the file contents", ref)
			}
		}
	})

	t.Run("absolute path", func(t *testing.T) {
		if result := call(t, srv.handleRenderReport, map[string]any{"path": filepath.Join(srv.root, "reports", "weekly.yml")}); !result.IsError {
			t.Error("expected error for absolute path")
		}
	})

	t.Run("invalid definition", func(t *testing.T) {
		if result := call(t, srv.handleRenderReport, map[string]any{"definition": "root: {flow: sideways}"}); !result.IsError {
			t.Error("expected error for invalid definition")
		}
	})
}

func TestHandleOutlineReport(t *testing.T) {
	srv := newTestServer(t)

	result := call(t, srv.handleOutlineReport, map[string]any{"path": "reports/weekly.yml"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := extractText(result)
	for _, want := range []string{"report Weekly", `section [details] "Details" (horizontal, 2 items)`, "text All green."} {
		if !strings.Contains(text, want) {
			t.Errorf("outline missing %q:\n%s", want, text)
		}
	}
}

func TestHandleListReports(t *testing.T) {
	srv := newTestServer(t)

	result := call(t, srv.handleListReports, map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	if got := extractText(result); got != "reports/weekly.yml\n" {
		t.Errorf("list = %q", got)
	}

	empty := NewServer(t.TempDir(), []string{"**/*.yml"}, nil, nil)
	result = call(t, empty.handleListReports, map[string]any{})
	if result.IsError || !strings.Contains(extractText(result), "No report definitions") {
		t.Errorf("unexpected empty listing: %v", result.Content)
	}
}

package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/auto-report/internal/definition"
	"github.com/ziadkadry99/auto-report/internal/render"
	"github.com/ziadkadry99/auto-report/internal/report"
)

// handleRenderReport builds a definition and returns its HTML.
func (s *Server) handleRenderReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, errResult := s.loadReport(request)
	if errResult != nil {
		return errResult, nil
	}

	fragment, err := rep.Generate()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	if request.GetBool("fragment", false) {
		return mcp.NewToolResultText(fragment), nil
	}

	page, err := render.Document(fragment, render.DocumentOptions{Title: rep.Title()})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	return mcp.NewToolResultText(page), nil
}

// handleOutlineReport returns the indented tree of a definition.
func (s *Server) handleOutlineReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, errResult := s.loadReport(request)
	if errResult != nil {
		return errResult, nil
	}
	return mcp.NewToolResultText(definition.Outline(rep)), nil
}

// handleListReports lists definition files under the project root.
func (s *Server) handleListReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := definition.Discover(s.root, s.include, s.exclude)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing reports failed: %v", err)), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("No report definitions found. Run `autoreport init` to configure definition patterns."), nil
	}

	var b strings.Builder
	for _, p := range paths {
		if rel, err := filepath.Rel(s.root, p); err == nil {
			p = rel
		}
		b.WriteString(filepath.ToSlash(p))
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

// loadReport builds the report named by the path or definition argument.
// Failures come back as tool error results.
func (s *Server) loadReport(request mcp.CallToolRequest) (*report.Report, *mcp.CallToolResult) {
	path := request.GetString("path", "")
	inline := request.GetString("definition", "")

	var (
		def *definition.Definition
		err error
	)
	switch {
	case path != "" && inline != "":
		return nil, mcp.NewToolResultError("pass either path or definition, not both")
	case path != "":
		full, ok := s.resolve(path)
		if !ok {
			return nil, mcp.NewToolResultError(fmt.Sprintf("path %q is outside the project", path))
		}
		def, err = definition.Load(full)
		if def != nil {
			def.RootDir = s.root
		}
	case inline != "":
		def, err = definition.Parse([]byte(inline), s.root)
	default:
		return nil, mcp.NewToolResultError("missing required parameter: path or definition")
	}
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("loading definition failed: %v", err))
	}

	rep, err := definition.Build(def, report.WithRenderer(s.renderer))
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("building report failed: %v", err))
	}
	return rep, nil
}

func (s *Server) resolve(path string) (string, bool) {
	if filepath.IsAbs(path) {
		return "", false
	}
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if !definition.Within(s.root, full) {
		return "", false
	}
	return full, true
}

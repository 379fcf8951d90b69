package mcp

import "github.com/mark3labs/mcp-go/mcp"

// renderReportTool defines the render_report MCP tool.
var renderReportTool = mcp.NewTool("render_report",
	mcp.WithDescription("Render a YAML report definition to HTML. Pass either a definition file path or the definition itself."),
	mcp.WithString("path",
		mcp.Description("Path to a definition file relative to the project root"),
	),
	mcp.WithString("definition",
		mcp.Description("Inline YAML report definition"),
	),
	mcp.WithBoolean("fragment",
		mcp.Description("Return only the report table instead of a full HTML page (default false)"),
	),
)

// outlineReportTool defines the outline_report MCP tool.
var outlineReportTool = mcp.NewTool("outline_report",
	mcp.WithDescription("Show the section and element tree of a report definition without rendering it."),
	mcp.WithString("path",
		mcp.Description("Path to a definition file relative to the project root"),
	),
	mcp.WithString("definition",
		mcp.Description("Inline YAML report definition"),
	),
)

// listReportsTool defines the list_reports MCP tool.
var listReportsTool = mcp.NewTool("list_reports",
	mcp.WithDescription("List the report definition files in the project."),
)

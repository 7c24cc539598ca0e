package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	srv "github.com/mark3labs/mcp-go/server"

	"github.com/klob0t/chloe/internal/image"
	"github.com/klob0t/chloe/internal/search"
)

// Registry owns the backends the MCP tools dispatch to.
type Registry struct {
	searcher *search.Aggregator
	images   *image.Client
}

func NewRegistry(searcher *search.Aggregator, images *image.Client) *Registry {
	return &Registry{searcher: searcher, images: images}
}

// NewServer assembles an MCP server exposing the chat assistant's tools
// over stdio or HTTP transports.
func (r *Registry) NewServer(name, version string) *srv.MCPServer {
	s := srv.NewMCPServer(
		name,
		version,
		srv.WithToolCapabilities(true),
		srv.WithRecovery(),
	)

	s.AddTool(mcp.NewTool(
		"search_web",
		mcp.WithDescription("Search the web via rotating SearXNG mirrors and return ranked results."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Plain text search query."),
		),
		mcp.WithString("category",
			mcp.Description("Search category, defaults to general."),
		),
	), r.handleSearchWeb)

	s.AddTool(mcp.NewTool(
		"generate_image",
		mcp.WithDescription("Generate an image from a text prompt and return its URL."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Text description of the desired image."),
		),
		mcp.WithNumber("seed",
			mcp.Description("Deterministic seed."),
		),
		mcp.WithNumber("steps",
			mcp.Description("Inference steps."),
		),
		mcp.WithNumber("guidance",
			mcp.Description("Guidance scale."),
		),
		mcp.WithString("model",
			mcp.Description("Backend image model name."),
		),
	), r.handleGenerateImage)

	return s
}

package tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/klob0t/chloe/internal/config"
	"github.com/klob0t/chloe/internal/image"
	"github.com/klob0t/chloe/internal/search"
)

func testRegistry() *Registry {
	searcher := search.NewAggregator(config.SearchConfig{
		Instances:  []string{"http://127.0.0.1:1"},
		MaxResults: 8,
	})
	images := image.NewClient(config.ImageConfig{BaseURL: "http://127.0.0.1:1/prompt/"})
	return NewRegistry(searcher, images)
}

func TestSearchWebRequiresQuery(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := testRegistry().handleSearchWeb(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatalf("expected tool error for missing query")
	}
}

func TestGenerateImageRequiresPrompt(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"seed": float64(7),
	}

	result, err := testRegistry().handleGenerateImage(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatalf("expected tool error for missing prompt")
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := testRegistry().NewServer("chloe", "test")
	if s == nil {
		t.Fatalf("expected server instance")
	}
}

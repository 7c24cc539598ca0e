package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klob0t/chloe/internal/logger"
	openai "github.com/sashabaranov/go-openai"
)

// ToolName is the function name the completion model calls to search.
const ToolName = "search_web"

const toolResultLimit = 5

// ToolDefinition describes the search_web function for tool-calling models.
func ToolDefinition() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        ToolName,
			Description: "Search the web for current information using multiple search engines. Use this when the user asks for recent news, current events, weather, stock prices, or any information that might have changed recently.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query - what you want to find information about",
					},
					"category": map[string]any{
						"type":        "string",
						"enum":        []string{"general", "news", "images", "videos", "science", "it"},
						"description": "The category of search - defaults to 'general'",
						"default":     "general",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

type toolArguments struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

// HandleToolCall executes a search_web tool call and renders the outcome
// as plain text. This boundary never returns a Go error: malformed input
// and upstream failures all come back as descriptive strings.
func (a *Aggregator) HandleToolCall(ctx context.Context, call openai.ToolCall) string {
	if call.Function.Name != ToolName {
		logger.Warn("[Search] unknown tool requested: %s", call.Function.Name)
		return "Unknown tool"
	}

	var args toolArguments
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		logger.Error("[Search] failed to parse tool arguments: %v", err)
		return "Invalid tool arguments payload"
	}
	if args.Category == "" {
		args.Category = "general"
	}

	resp, err := a.Search(ctx, args.Query, args.Category)
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err)
	}
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No search results found for %q.", args.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search Results for %q:\n\n", args.Query)
	for i, result := range resp.Results {
		if i >= toolResultLimit {
			break
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%d. **%s**\n   %s...\n   %s", i+1, result.Title, truncateRunes(result.Content, 200), result.URL)
	}
	return sb.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

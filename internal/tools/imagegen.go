package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/klob0t/chloe/internal/image"
)

func (r *Registry) handleGenerateImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, ok := req.Params.Arguments["prompt"].(string)
	if !ok || prompt == "" {
		return mcp.NewToolResultError("prompt is required"), nil
	}

	genReq := image.Request{Prompt: prompt}
	if seed, ok := req.Params.Arguments["seed"].(float64); ok {
		v := int64(seed)
		genReq.Seed = &v
	}
	if steps, ok := req.Params.Arguments["steps"].(float64); ok {
		v := int(steps)
		genReq.InferenceSteps = &v
	}
	if guidance, ok := req.Params.Arguments["guidance"].(float64); ok {
		v := guidance
		genReq.GuidanceScale = &v
	}
	if model, ok := req.Params.Arguments["model"].(string); ok {
		genReq.Model = model
	}

	result, err := r.images.Generate(ctx, genReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("image generation failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode image result"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

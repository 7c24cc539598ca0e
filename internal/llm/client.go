package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/klob0t/chloe/internal/config"
	"github.com/klob0t/chloe/internal/logger"
	openai "github.com/sashabaranov/go-openai"
)

// maxToolRounds bounds the tool-call follow-up loop so a model that keeps
// requesting tools cannot spin forever.
const maxToolRounds = 5

// Turn is one role/content entry of a serialized transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolExecutor runs a single tool call and renders its outcome as text.
// Implementations must not return errors across this boundary.
type ToolExecutor interface {
	HandleToolCall(ctx context.Context, call openai.ToolCall) string
}

// Reply is a tagged union: either the model produced a final answer, or
// it requested tool calls and a follow-up completion is mandatory.
type Reply struct {
	FinalAnswer      string
	PendingToolCalls []openai.ToolCall

	message openai.ChatCompletionMessage
}

func (r Reply) Pending() bool {
	return len(r.PendingToolCalls) > 0
}

// Client talks to an OpenAI-wire completion endpoint (a local
// g4f-compatible server or Pollinations' /openai).
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	tools     []openai.Tool
	executor  ToolExecutor
}

func NewClient(cfg config.LLMConfig, tools []openai.Tool, executor ToolExecutor) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Client{
		api:       openai.NewClientWithConfig(apiCfg),
		model:     cfg.Model,
		maxTokens: maxTokens,
		tools:     tools,
		executor:  executor,
	}
}

// Complete performs a single completion step. The caller owns the
// follow-up when the reply carries pending tool calls.
func (c *Client) Complete(ctx context.Context, messages []openai.ChatCompletionMessage, model string) (Reply, error) {
	if model == "" {
		model = c.model
	}
	req := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	}
	if len(c.tools) > 0 && c.executor != nil {
		req.Tools = c.tools
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return Reply{}, fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, fmt.Errorf("completion returned no choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		return Reply{PendingToolCalls: msg.ToolCalls, message: msg}, nil
	}
	return Reply{FinalAnswer: msg.Content, message: msg}, nil
}

// Chat runs the full two-step protocol: complete, execute any requested
// tools, append their results as tool messages and resubmit until the
// model settles on a final answer.
func (c *Client) Chat(ctx context.Context, turns []Turn, model string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	reply, err := c.Complete(ctx, messages, model)
	if err != nil {
		return "", err
	}

	for round := 0; round < maxToolRounds && reply.Pending(); round++ {
		messages = append(messages, reply.message)
		for _, call := range reply.PendingToolCalls {
			logger.Debug("[LLM] executing tool %s (round %d/%d)", call.Function.Name, round+1, maxToolRounds)
			result := c.executor.HandleToolCall(ctx, call)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
		reply, err = c.Complete(ctx, messages, model)
		if err != nil {
			return "", err
		}
	}
	if reply.Pending() {
		logger.Warn("[LLM] tool loop hit max rounds (%d), forcing stop", maxToolRounds)
		return "", fmt.Errorf("model kept requesting tools after %d rounds", maxToolRounds)
	}

	answer := strings.TrimSpace(reply.FinalAnswer)
	if answer == "" {
		return "", fmt.Errorf("completion returned empty content")
	}
	return answer, nil
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klob0t/chloe/internal/config"
	openai "github.com/sashabaranov/go-openai"
)

type echoExecutor struct {
	calls []openai.ToolCall
}

func (e *echoExecutor) HandleToolCall(_ context.Context, call openai.ToolCall) string {
	e.calls = append(e.calls, call)
	return "tool says: 42"
}

type wireMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
}

func TestChatFinalAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`)
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{BaseURL: srv.URL + "/v1", Model: "openai"}, nil, nil)
	answer, err := client.Chat(context.Background(), []Turn{{Role: "user", Content: "hi"}}, "")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if answer != "hello there" {
		t.Fatalf("unexpected answer: %s", answer)
	}
}

func TestChatToolRoundTrip(t *testing.T) {
	var requests []wireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		requests = append(requests, req)

		if len(requests) == 1 {
			fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[{"id":"call-7","type":"function","function":{"name":"search_web","arguments":"{\"query\":\"news\"}"}}]},"finish_reason":"tool_calls"}]}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"final answer"}}]}`)
	}))
	defer srv.Close()

	executor := &echoExecutor{}
	client := NewClient(config.LLMConfig{BaseURL: srv.URL + "/v1", Model: "openai"},
		[]openai.Tool{{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{Name: "search_web"}}},
		executor)

	answer, err := client.Chat(context.Background(), []Turn{{Role: "user", Content: "any news?"}}, "")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if answer != "final answer" {
		t.Fatalf("unexpected answer: %s", answer)
	}
	if len(executor.calls) != 1 || executor.calls[0].Function.Name != "search_web" {
		t.Fatalf("expected one search_web tool execution, got %+v", executor.calls)
	}
	if len(requests) != 2 {
		t.Fatalf("expected a mandatory follow-up completion, got %d requests", len(requests))
	}

	followUp := requests[1]
	var toolMsg *wireMessage
	for i := range followUp.Messages {
		if followUp.Messages[i].Role == "tool" {
			toolMsg = &followUp.Messages[i]
		}
	}
	if toolMsg == nil {
		t.Fatalf("follow-up request carries no tool message: %+v", followUp.Messages)
	}
	if toolMsg.ToolCallID != "call-7" {
		t.Fatalf("tool result not matched to tool_call_id: %+v", toolMsg)
	}
	if toolMsg.Content != "tool says: 42" {
		t.Fatalf("unexpected tool content: %s", toolMsg.Content)
	}
}

func TestChatUpstreamErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{BaseURL: srv.URL + "/v1", Model: "openai"}, nil, nil)
	if _, err := client.Chat(context.Background(), []Turn{{Role: "user", Content: "hi"}}, ""); err == nil {
		t.Fatalf("expected error from upstream failure")
	}
}

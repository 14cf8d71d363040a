package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/models"
	"github.com/martynov-dm/crypto-agent/internal/tools"
)

func echoTool(name string) tools.Tool {
	return &tools.Func{
		ToolName:        name,
		ToolDescription: "echoes its arguments",
		ToolParameters:  `{"type":"object","properties":{}}`,
		Fn: func(ctx context.Context, args string) (string, error) {
			return "echo:" + args, nil
		},
	}
}

func failTool(name string) tools.Tool {
	return &tools.Func{
		ToolName:        name,
		ToolDescription: "always fails",
		ToolParameters:  `{"type":"object","properties":{}}`,
		Fn: func(ctx context.Context, args string) (string, error) {
			return "", errors.New("upstream unavailable")
		},
	}
}

func TestProcessDirectAnswer(t *testing.T) {
	mock := llm.NewMockService("the price is high")
	a := New("w1", models.RoleMarketAnalyst, "you analyze markets", mock, nil, Options{})

	out, err := a.Process(context.Background(), "how is BTC doing?")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out != "the price is high" {
		t.Fatalf("got %q", out)
	}

	msgs := a.Conversation().Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != models.RoleSystem || msgs[1].Role != models.RoleUser || msgs[2].Role != models.RoleAssistant {
		t.Fatalf("unexpected roles: %v %v %v", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
}

func TestProcessToolLoop(t *testing.T) {
	mock := &llm.MockService{Responses: []llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "get_price", Arguments: `{"symbol":"BTC"}`}}},
		{Content: "done"},
	}}
	a := New("w1", models.RoleMarketAnalyst, "", mock, []tools.Tool{echoTool("get_price")}, Options{})

	out, err := a.Process(context.Background(), "price of BTC")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out != "done" {
		t.Fatalf("got %q", out)
	}

	calls := a.Conversation().ToolCalls()
	if len(calls) != 1 || calls[0].Name != "get_price" {
		t.Fatalf("unexpected tool calls: %+v", calls)
	}
	results := a.Conversation().ToolResults()
	if len(results) != 1 || !results[0].Success || results[0].Result != `echo:{"symbol":"BTC"}` {
		t.Fatalf("unexpected tool results: %+v", results)
	}

	// Second LLM round must have seen the tool output.
	if len(mock.Calls) != 2 {
		t.Fatalf("expected 2 llm calls, got %d", len(mock.Calls))
	}
	last := mock.Calls[1][len(mock.Calls[1])-1]
	if !strings.Contains(last.Content, "[Result from get_price]") {
		t.Fatalf("tool result not forwarded: %q", last.Content)
	}
}

func TestProcessToolFailureFedBack(t *testing.T) {
	mock := &llm.MockService{Responses: []llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "broken", Arguments: `{}`}}},
		{Content: "could not fetch data"},
	}}
	a := New("w1", models.RoleNewsResearcher, "", mock, []tools.Tool{failTool("broken")}, Options{})

	out, err := a.Process(context.Background(), "news please")
	if err != nil {
		t.Fatalf("tool failure must not fail Process: %v", err)
	}
	if out != "could not fetch data" {
		t.Fatalf("got %q", out)
	}

	results := a.Conversation().ToolResults()
	if len(results) != 1 || results[0].Success || results[0].Error == "" {
		t.Fatalf("unexpected tool results: %+v", results)
	}
	last := mock.Calls[1][len(mock.Calls[1])-1]
	if !strings.Contains(last.Content, "Error executing broken") {
		t.Fatalf("error not forwarded: %q", last.Content)
	}
}

func TestProcessUnknownTool(t *testing.T) {
	mock := &llm.MockService{Responses: []llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "nope", Arguments: `{}`}}},
		{Content: "ok"},
	}}
	a := New("w1", models.RoleTrader, "", mock, nil, Options{})

	if _, err := a.Process(context.Background(), "do it"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	last := mock.Calls[1][len(mock.Calls[1])-1]
	if !strings.Contains(last.Content, "not available") {
		t.Fatalf("unknown tool not reported: %q", last.Content)
	}
}

func TestProcessLLMErrorPropagates(t *testing.T) {
	mock := &llm.MockService{Err: errors.New("rate limited")}
	a := New("w1", models.RoleMarketAnalyst, "", mock, nil, Options{})

	if _, err := a.Process(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
}

func TestProcessIterationBound(t *testing.T) {
	mock := &llm.MockService{Responses: []llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{{Name: "get_price", Arguments: `{}`}}},
	}}
	a := New("w1", models.RoleMarketAnalyst, "", mock, []tools.Tool{echoTool("get_price")}, Options{MaxIterations: 2})

	// The scripted response always requests a tool, so the bound terminates
	// the loop and the trailing summary round produces the final answer.
	out, err := a.Process(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out != "" {
		// ChatResponse with tool calls has empty content, which the final
		// Chat round echoes back through the repeating script.
		t.Fatalf("got %q", out)
	}
	if len(mock.Calls) != 3 {
		t.Fatalf("expected 2 tool rounds + 1 summary, got %d", len(mock.Calls))
	}
}

func TestHistoryTruncation(t *testing.T) {
	c := NewConversation()
	c.AddSystemMessage("system")
	for i := 0; i < 10; i++ {
		c.AddUserMessage("u")
		c.AddAssistantMessage("a")
	}

	h := c.History(4)
	if len(h) != 5 {
		t.Fatalf("expected system + 4 messages, got %d", len(h))
	}
	if h[0].Role != "system" {
		t.Fatalf("system message must survive truncation, got %q", h[0].Role)
	}
}

func TestClearConversationKeepsSystemPrompt(t *testing.T) {
	a := New("w1", models.RoleMarketAnalyst, "the prompt", llm.NewMockService("ok"), nil, Options{})
	if _, err := a.Process(context.Background(), "hello"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	a.ClearConversation()

	msgs := a.Conversation().Messages()
	if len(msgs) != 1 || msgs[0].Role != models.RoleSystem || msgs[0].Content != "the prompt" {
		t.Fatalf("unexpected messages after clear: %+v", msgs)
	}
	if len(a.Conversation().ToolCalls()) != 0 || len(a.Conversation().ToolResults()) != 0 {
		t.Fatal("tool records must be cleared")
	}
}

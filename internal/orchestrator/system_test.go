package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/martynov-dm/crypto-agent/internal/ledger"
	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/models"
	"github.com/martynov-dm/crypto-agent/internal/tools"
)

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	reg.MustRegister(&tools.Func{
		ToolName:        "get_token_price",
		ToolDescription: "test price tool",
		Fn: func(ctx context.Context, args string) (string, error) {
			return "price: 100", nil
		},
	})
	return reg
}

func newTestSystem(t *testing.T, mock *llm.MockService) *System {
	t.Helper()
	return New(mock, testRegistry(t), Options{})
}

func TestNewBuildsRoster(t *testing.T) {
	s := newTestSystem(t, llm.NewMockService("ok"))

	for _, id := range []string{"supervisor", "market_analyst", "technical_analyst", "news_researcher", "trader", "protocol_analyst"} {
		if !s.HasAgent(id) {
			t.Fatalf("missing agent %s", id)
		}
	}
	infos := s.Agents()
	if len(infos) != 6 {
		t.Fatalf("expected 6 agents, got %d", len(infos))
	}
}

func TestDelegateTaskTool(t *testing.T) {
	s := newTestSystem(t, llm.NewMockService("ok"))
	delegate := findTool(t, s, "delegate_task")

	out, err := delegate.Call(context.Background(),
		`{"agent_id":"Market_Analyst","task_title":"BTC check","task_description":"check the BTC price","priority":3}`)
	if err != nil {
		t.Fatalf("delegate_task: %v", err)
	}
	if !strings.Contains(out, "Task delegated to agent market_analyst") {
		t.Fatalf("unexpected output: %q", out)
	}

	pending := s.Ledger().Pending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(pending))
	}
	task := pending[0]
	if task.AssignedAgentID != "market_analyst" || task.Priority != 3 || task.Title != "BTC check" {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestDelegateTaskUnknownAgentSoftError(t *testing.T) {
	s := newTestSystem(t, llm.NewMockService("ok"))
	delegate := findTool(t, s, "delegate_task")

	out, err := delegate.Call(context.Background(),
		`{"agent_id":"nobody","task_title":"t","task_description":"d"}`)
	if err != nil {
		t.Fatalf("unknown agent must be a soft error, got: %v", err)
	}
	if !strings.Contains(out, "not found") {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(s.Ledger().List("")) != 0 {
		t.Fatal("no task may be created for an unknown agent")
	}
}

func TestCheckTaskStatusWithholdsUnfinishedResult(t *testing.T) {
	s := newTestSystem(t, llm.NewMockService("ok"))
	task := s.Ledger().Create("t", "d", "market_analyst", 1)
	check := findTool(t, s, "check_task_status")

	out, err := check.Call(context.Background(), fmt.Sprintf(`{"task_id":%q}`, task.ID))
	if err != nil {
		t.Fatalf("check_task_status: %v", err)
	}
	var view map[string]any
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("output not JSON: %v", err)
	}
	if view["status"] != "pending" || view["result"] != nil {
		t.Fatalf("unexpected view: %v", view)
	}
}

func TestCheckTaskStatusUnknown(t *testing.T) {
	s := newTestSystem(t, llm.NewMockService("ok"))
	check := findTool(t, s, "check_task_status")

	out, err := check.Call(context.Background(), `{"task_id":"missing"}`)
	if err != nil {
		t.Fatalf("unknown task must be a soft error, got: %v", err)
	}
	if !strings.Contains(out, "not found") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCreateCustomAgent(t *testing.T) {
	s := newTestSystem(t, llm.NewMockService("ok"))

	if err := s.CreateCustomAgent("meme_watcher", "watch memecoins", []string{"get_token_price"}); err != nil {
		t.Fatalf("CreateCustomAgent: %v", err)
	}
	if !s.HasAgent("meme_watcher") {
		t.Fatal("custom agent not registered")
	}

	err := s.CreateCustomAgent("meme_watcher", "again", nil)
	if !errors.Is(err, ErrAgentExists) {
		t.Fatalf("expected ErrAgentExists, got %v", err)
	}

	if err := s.CreateCustomAgent("other", "p", []string{"no_such_tool"}); err == nil {
		t.Fatal("unknown tool must be rejected")
	}
}

func TestReset(t *testing.T) {
	mock := llm.NewMockService("fine")
	s := newTestSystem(t, mock)
	s.Ledger().Create("t", "d", "market_analyst", 1)
	if _, err := s.ProcessUserInput(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}

	s.Reset()

	if len(s.Ledger().List("")) != 0 {
		t.Fatal("tasks must be cleared")
	}
	sup, _ := s.Agent("supervisor")
	msgs := sup.Conversation().Messages()
	if len(msgs) != 1 || msgs[0].Role != models.RoleSystem {
		t.Fatalf("supervisor conversation must keep only the system prompt: %+v", msgs)
	}
}

func TestHandleRequestFullPipeline(t *testing.T) {
	mock := &llm.MockService{Responses: []llm.ChatResponse{
		// Supervisor plans and delegates.
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "delegate_task",
			Arguments: `{"agent_id":"market_analyst","task_title":"BTC price","task_description":"get the BTC price"}`}}},
		{Content: "delegated the work"},
		// Worker answers its instruction.
		{Content: "BTC is at 100"},
		// Merger formats the report.
		{Content: "# Formatted Report"},
	}}
	s := newTestSystem(t, mock)

	result, err := s.HandleRequest(context.Background(), "what is the BTC price?")
	if err != nil {
		t.Fatalf("HandleRequest: %v", err)
	}
	if result.Response != "delegated the work" {
		t.Fatalf("unexpected response: %q", result.Response)
	}
	if len(result.Executed) != 1 {
		t.Fatalf("expected 1 executed task, got %d", len(result.Executed))
	}
	if result.Executed[0].Result != "BTC is at 100" {
		t.Fatalf("unexpected task result: %+v", result.Executed[0])
	}
	if result.Report == nil || result.Report.StructuredReport != "# Formatted Report" {
		t.Fatalf("unexpected report: %+v", result.Report)
	}

	tasks := s.Ledger().List("")
	if len(tasks) != 1 || tasks[0].Status != models.TaskStatusCompleted {
		t.Fatalf("unexpected ledger state: %+v", tasks)
	}
}

func TestHandleRequestNoTasks(t *testing.T) {
	s := newTestSystem(t, llm.NewMockService("just an answer"))

	result, err := s.HandleRequest(context.Background(), "hi")
	if err != nil {
		t.Fatalf("HandleRequest: %v", err)
	}
	if result.Response != "just an answer" || result.Report != nil {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestReportTitleTruncatesOnRuneBoundary(t *testing.T) {
	s := newTestSystem(t, llm.NewMockService("ok"))

	short := s.reportTitle("  BTC outlook  ")
	if short != "Analysis: BTC outlook" {
		t.Fatalf("unexpected title: %q", short)
	}

	long := strings.Repeat("п", 100)
	title := s.reportTitle(long)
	if !utf8.ValidString(title) {
		t.Fatalf("truncated title is not valid UTF-8: %q", title)
	}
	if want := "Analysis: " + strings.Repeat("п", 80); title != want {
		t.Fatalf("unexpected truncation: got %d runes", utf8.RuneCountInString(title))
	}
}

func findTool(t *testing.T, s *System, name string) tools.Tool {
	t.Helper()
	sup, ok := s.Agent("supervisor")
	if !ok {
		t.Fatal("no supervisor")
	}
	for _, tool := range sup.Tools() {
		if tool.Name() == name {
			return tool
		}
	}
	t.Fatalf("supervisor tool %s not found", name)
	return nil
}

// Scheduler behavior is tested through a system whose agents are driven by
// the shared scripted LLM.

func TestExecuteAllPendingOneResultPerTask(t *testing.T) {
	mock := llm.NewMockService("worker output")
	s := newTestSystem(t, mock)

	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		task := s.Ledger().Create(fmt.Sprintf("t%d", i), "do work", "market_analyst", 1)
		ids[task.ID] = true
	}

	results := s.Scheduler().ExecuteAllPending(context.Background())
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !ids[r.TaskID] {
			t.Fatalf("unexpected task id %s", r.TaskID)
		}
		if r.Result != "worker output" {
			t.Fatalf("unexpected result: %+v", r)
		}
	}
	if len(s.Ledger().Pending()) != 0 {
		t.Fatal("no task may remain pending")
	}
}

func TestExecuteAllPendingIsolatesFailures(t *testing.T) {
	mock := &llm.MockService{Err: errors.New("llm down")}
	s := newTestSystem(t, mock)
	task := s.Ledger().Create("t", "d", "market_analyst", 1)

	results := s.Scheduler().ExecuteAllPending(context.Background())
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !strings.Contains(results[0].Result, "llm down") {
		t.Fatalf("failure not surfaced: %+v", results[0])
	}

	got, err := s.Ledger().Get(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.TaskStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestExecuteAllPendingMixedOutcomes(t *testing.T) {
	mock := llm.NewMockService("worker output")
	s := newTestSystem(t, mock)

	a := s.Ledger().Create("A", "analyze BTC", "market_analyst", 1)
	b := s.Ledger().Create("B", "analyze ETH", "ghost", 1)
	c := s.Ledger().Create("C", "analyze SOL", "market_analyst", 1)

	results := s.Scheduler().ExecuteAllPending(context.Background())
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	byID := map[string]TaskResult{}
	for _, r := range results {
		byID[r.TaskID] = r
	}
	for _, id := range []string{a.ID, c.ID} {
		if byID[id].Result != "worker output" {
			t.Fatalf("unexpected result for %s: %+v", id, byID[id])
		}
		task, err := s.Ledger().Get(id)
		if err != nil {
			t.Fatal(err)
		}
		if task.Status != models.TaskStatusCompleted {
			t.Fatalf("sibling of a failed task must still complete, got %s", task.Status)
		}
	}

	if !strings.Contains(byID[b.ID].Result, "not found") {
		t.Fatalf("missing-agent failure not surfaced: %+v", byID[b.ID])
	}
	failed, err := s.Ledger().Get(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != models.TaskStatusFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}
	if len(s.Ledger().Pending()) != 0 {
		t.Fatal("no task may remain pending")
	}
}

func TestExecuteTaskUnknownAgent(t *testing.T) {
	s := newTestSystem(t, llm.NewMockService("ok"))
	task := s.Ledger().Create("t", "d", "ghost", 1)

	done, err := s.Scheduler().ExecuteTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("missing agent must fail the task, not the call: %v", err)
	}
	if done.Status != models.TaskStatusFailed || !strings.Contains(done.Result, "not found") {
		t.Fatalf("unexpected task: %+v", done)
	}
}

func TestExecuteTaskNotPending(t *testing.T) {
	s := newTestSystem(t, llm.NewMockService("ok"))
	task := s.Ledger().Create("t", "d", "market_analyst", 1)
	if _, err := s.Scheduler().ExecuteTask(context.Background(), task.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Scheduler().ExecuteTask(context.Background(), task.ID); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

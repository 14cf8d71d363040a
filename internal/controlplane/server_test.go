package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/models"
	"github.com/martynov-dm/crypto-agent/internal/orchestrator"
	"github.com/martynov-dm/crypto-agent/internal/research"
	"github.com/martynov-dm/crypto-agent/internal/store"
	"github.com/martynov-dm/crypto-agent/internal/tools"
)

func newTestServer(t *testing.T, mock llm.Service) (*Server, *orchestrator.System, *store.Store) {
	t.Helper()
	archive, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { archive.Close() })

	reg := tools.NewRegistry()
	reg.MustRegister(&tools.Func{
		ToolName:        "get_token_price",
		ToolDescription: "test tool",
		Fn: func(ctx context.Context, args string) (string, error) {
			return "price", nil
		},
	})

	system := orchestrator.New(mock, reg, orchestrator.Options{Archive: archive})
	rm := research.NewManager(mock, reg, nil, archive)
	return NewServer(NewService(system, rm, archive), "127.0.0.1:0"), system, archive
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, llm.NewMockService("ok"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, llm.NewMockService("hello there"))

	body := bytes.NewBufferString(`{"message":"hi"}`)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result orchestrator.ChatResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Response != "hello there" {
		t.Fatalf("unexpected response: %+v", result)
	}
}

func TestChatEmptyMessage(t *testing.T) {
	srv, _, _ := newTestServer(t, llm.NewMockService("ok"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":"  "}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTaskEndpoints(t *testing.T) {
	srv, system, _ := newTestServer(t, llm.NewMockService("done"))
	task := system.Ledger().Create("check", "check the price", "market_analyst", 1)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var tasks []models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/"+task.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks/"+task.ID+"/execute", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("execute: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var done models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &done); err != nil {
		t.Fatal(err)
	}
	if done.Status != models.TaskStatusCompleted || done.Result != "done" {
		t.Fatalf("unexpected task: %+v", done)
	}

	// Second execute conflicts: the task is no longer pending.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks/"+task.ID+"/execute", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("re-execute: expected 409, got %d", rec.Code)
	}
}

func TestTaskNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, llm.NewMockService("ok"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestExecuteAllEndpoint(t *testing.T) {
	srv, system, _ := newTestServer(t, llm.NewMockService("analysis done"))
	system.Ledger().Create("t1", "first", "market_analyst", 1)
	system.Ledger().Create("t2", "second", "news_researcher", 1)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks/execute-all", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var results []orchestrator.TaskResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// GET is rejected
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/execute-all", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestAgentEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, llm.NewMockService("ok"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var agents []models.AgentInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &agents); err != nil {
		t.Fatal(err)
	}
	if len(agents) != 6 {
		t.Fatalf("expected 6 agents, got %d", len(agents))
	}

	body := bytes.NewBufferString(`{"id":"watcher","system_prompt":"watch","tools":["get_token_price"]}`)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agents", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Duplicate id conflicts.
	body = bytes.NewBufferString(`{"id":"watcher","system_prompt":"again"}`)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agents", body))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rec.Code)
	}
}

func TestResearchEndpoints(t *testing.T) {
	mock := &llm.MockService{Responses: []llm.ChatResponse{
		{Content: "What is your horizon?\nWhat is your risk profile?"},
		{Content: `{"token_symbol":"ETH","days_lookback":7}`},
		{Content: "report with BUY inside"},
	}}
	srv, _, _ := newTestServer(t, mock)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/research/questions?symbol=ETH", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("questions: expected 200, got %d", rec.Code)
	}
	var questions []string
	if err := json.Unmarshal(rec.Body.Bytes(), &questions); err != nil {
		t.Fatal(err)
	}
	if len(questions) != 2 {
		t.Fatalf("unexpected questions: %v", questions)
	}

	body := bytes.NewBufferString(`{"token_symbol":"ETH","answers":["long term","moderate"]}`)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/research", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("research: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result models.ResearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.TokenSymbol != "ETH" || result.Recommendation != "BUY" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestReportEndpoints(t *testing.T) {
	srv, _, archive := newTestServer(t, llm.NewMockService("ok"))
	if err := archive.SaveReport(models.Report{ID: "r1", Kind: models.ReportKindMerge, Title: "t", Content: "c"}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var reports []models.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/r1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	srv, system, _ := newTestServer(t, llm.NewMockService("ok"))
	system.Ledger().Create("t", "d", "market_analyst", 1)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reset", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(system.Ledger().List("")) != 0 {
		t.Fatal("tasks must be cleared")
	}
}

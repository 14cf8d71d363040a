package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/martynov-dm/crypto-agent/internal/ledger"
	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/models"
)

func TestMergePartitionsTasks(t *testing.T) {
	led := ledger.New()
	done := led.Create("Market overview", "d", "market_analyst", 1)
	if _, err := led.SetStatus(done.ID, models.TaskStatusInProgress, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := led.SetStatus(done.ID, models.TaskStatusCompleted, "markets are up"); err != nil {
		t.Fatal(err)
	}
	stuck := led.Create("News digest", "d", "news_researcher", 1)

	mock := llm.NewMockService("formatted")
	m := NewMerger(led, mock, nil)

	report := m.Merge(context.Background(), []string{done.ID, stuck.ID, "ghost-id"}, "Daily report")

	if report.StructuredReport != "formatted" || report.Fallback {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.RawResults) != 1 || report.RawResults["Market overview"] != "markets are up" {
		t.Fatalf("unexpected raw results: %v", report.RawResults)
	}
	if len(report.IncompleteTasks) != 1 || report.IncompleteTasks[0] != stuck.ID {
		t.Fatalf("unexpected incomplete: %v", report.IncompleteTasks)
	}
	if len(report.MissingTasks) != 1 || report.MissingTasks[0] != "ghost-id" {
		t.Fatalf("unexpected missing: %v", report.MissingTasks)
	}
	if len(report.TasksInfo) != 2 {
		t.Fatalf("tasks info must cover known tasks only: %+v", report.TasksInfo)
	}

	// The formatting prompt must mention the gaps.
	prompt := mock.Calls[0][0].Content
	if !strings.Contains(prompt, stuck.ID) || !strings.Contains(prompt, "ghost-id") {
		t.Fatalf("prompt must list incomplete and missing tasks")
	}
}

func TestMergeFallbackOnLLMError(t *testing.T) {
	led := ledger.New()
	a := led.Create("Part A", "d", "x", 1)
	if _, err := led.SetStatus(a.ID, models.TaskStatusCompleted, "result A"); err != nil {
		t.Fatal(err)
	}
	b := led.Create("Part B", "d", "y", 1)
	if _, err := led.SetStatus(b.ID, models.TaskStatusCompleted, "result B"); err != nil {
		t.Fatal(err)
	}

	m := NewMerger(led, &llm.MockService{Err: errors.New("quota exceeded")}, nil)
	report := m.Merge(context.Background(), []string{a.ID, b.ID}, "Combined")

	if !report.Fallback {
		t.Fatal("report must be marked as fallback")
	}
	out := report.StructuredReport
	if !strings.Contains(out, "# Combined") ||
		!strings.Contains(out, "result A") ||
		!strings.Contains(out, "result B") {
		t.Fatalf("fallback must concatenate results: %q", out)
	}
	if strings.Index(out, "result A") > strings.Index(out, "result B") {
		t.Fatal("fallback must keep task order")
	}
	if !strings.Contains(out, "quota exceeded") {
		t.Fatal("fallback must note the formatting failure")
	}
}

func TestMergeAllMissing(t *testing.T) {
	m := NewMerger(ledger.New(), llm.NewMockService("report"), nil)
	report := m.Merge(context.Background(), []string{"a", "b"}, "Empty")

	if len(report.MissingTasks) != 2 || len(report.RawResults) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

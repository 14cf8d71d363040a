package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/martynov-dm/crypto-agent/internal/models"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestReportCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	report := models.Report{
		Kind:           models.ReportKindResearch,
		Title:          "Deep research: ETH",
		Content:        "# Report body",
		Summary:        "Solid fundamentals",
		Recommendation: "HOLD",
	}
	if err := s.SaveReport(report); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	reports, err := s.ListReports("", 0)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(reports))
	}
	if reports[0].ID == "" {
		t.Error("Report ID should have been generated")
	}
	if reports[0].Recommendation != "HOLD" {
		t.Errorf("Unexpected recommendation: %s", reports[0].Recommendation)
	}

	got, err := s.GetReport(reports[0].ID)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got == nil || got.Title != "Deep research: ETH" {
		t.Errorf("Unexpected report: %+v", got)
	}
}

func TestGetReportNotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	got, err := s.GetReport("missing")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing report, got %+v", got)
	}
}

func TestListReportsFilterAndLimit(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	for i := 0; i < 3; i++ {
		if err := s.SaveReport(models.Report{Kind: models.ReportKindMerge, Title: "merge", Content: "c"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SaveReport(models.Report{Kind: models.ReportKindResearch, Title: "research", Content: "c"}); err != nil {
		t.Fatal(err)
	}

	merges, err := s.ListReports(models.ReportKindMerge, 0)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(merges) != 3 {
		t.Errorf("Expected 3 merge reports, got %d", len(merges))
	}

	limited, err := s.ListReports("", 2)
	if err != nil {
		t.Fatalf("ListReports with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 reports, got %d", len(limited))
	}
}

func TestAudit(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	entry, err := s.WriteAudit("task.create", "abc123", "ok", "task-1", "agent=market_analyst")
	if err != nil {
		t.Fatalf("WriteAudit failed: %v", err)
	}
	if entry.ID == "" {
		t.Error("Audit entry ID should not be empty")
	}

	if _, err := s.WriteAudit("report.merge", "def456", "ok", "", ""); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListAudit("", 0)
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(all))
	}

	forTask, err := s.ListAudit("task-1", 0)
	if err != nil {
		t.Fatalf("ListAudit with task filter failed: %v", err)
	}
	if len(forTask) != 1 || forTask[0].Action != "task.create" {
		t.Errorf("Unexpected entries: %+v", forTask)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func newTestStore(t *testing.T) *Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

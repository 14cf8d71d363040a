package audit

import (
	"path/filepath"
	"testing"

	"github.com/martynov-dm/crypto-agent/internal/store"
)

func TestRecord(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer s.Close()

	w := NewWriter(s, nil)
	w.Record("task.create", "task-1", "ok", "agent=trader")

	entries, err := s.ListAudit("task-1", 0)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Action != "task.create" || e.Outcome != "ok" || len(e.InputsHash) != 64 {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestHashDeterministic(t *testing.T) {
	a := hashInputs(map[string]string{"k": "v"})
	b := hashInputs(map[string]string{"k": "v"})
	if a != b {
		t.Fatal("hash must be deterministic")
	}
	if a == hashInputs(map[string]string{"k": "w"}) {
		t.Fatal("different inputs must hash differently")
	}
}

// Package audit records state-mutating actions of the agent system.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/martynov-dm/crypto-agent/internal/store"
)

// Writer persists audit entries through the store. It satisfies the
// orchestrator's Auditor interface; write failures are logged, never
// propagated into the task flow.
type Writer struct {
	store  *store.Store
	logger *slog.Logger
}

// NewWriter creates an audit writer.
func NewWriter(s *store.Store, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: s, logger: logger}
}

// Record writes an audit entry for a state-mutating action.
func (w *Writer) Record(action, taskID, outcome, details string) {
	inputsHash := hashInputs(map[string]string{
		"action":  action,
		"task_id": taskID,
		"details": details,
	})
	if _, err := w.store.WriteAudit(action, inputsHash, outcome, taskID, details); err != nil {
		w.logger.Warn("audit write failed", "action", action, "error", err)
	}
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

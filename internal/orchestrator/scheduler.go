package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/martynov-dm/crypto-agent/internal/ledger"
	"github.com/martynov-dm/crypto-agent/internal/models"
)

// TaskResult pairs a task id with the outcome of its execution attempt.
type TaskResult struct {
	TaskID string `json:"task_id"`
	Result string `json:"result"`
}

// worker is the slice of an agent the scheduler needs.
type worker interface {
	Process(ctx context.Context, instruction string) (string, error)
}

// workerLookup resolves an agent id to its worker. The orchestrator System
// satisfies this.
type workerLookup interface {
	worker(id string) (worker, bool)
}

// Scheduler drives task execution against the ledger. Each task gets exactly
// one execution attempt; there is no retry.
type Scheduler struct {
	ledger  *ledger.Ledger
	workers workerLookup
	logger  *slog.Logger
	audit   Auditor
}

// NewScheduler creates a scheduler over the given ledger and worker lookup.
func NewScheduler(led *ledger.Ledger, workers workerLookup, logger *slog.Logger, audit Auditor) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = nopAuditor{}
	}
	return &Scheduler{ledger: led, workers: workers, logger: logger, audit: audit}
}

// ExecuteTask claims a pending task, runs it on its assigned agent, and
// records the terminal status. Worker failures complete the task as failed
// with the error text as its result; the returned error is reserved for
// ledger-level problems such as an unknown id or a non-pending task.
func (s *Scheduler) ExecuteTask(ctx context.Context, taskID string) (models.Task, error) {
	task, err := s.ledger.Claim(taskID)
	if err != nil {
		return models.Task{}, err
	}
	s.logger.Info("executing task", "task", task.ID, "title", task.Title, "agent", task.AssignedAgentID)
	s.audit.Record("task.dispatch", task.ID, "in_progress", task.AssignedAgentID)

	w, ok := s.workers.worker(task.AssignedAgentID)
	if !ok {
		msg := fmt.Sprintf("error: agent %s not found", task.AssignedAgentID)
		s.audit.Record("task.fail", task.ID, "failed", msg)
		return s.ledger.SetStatus(task.ID, models.TaskStatusFailed, msg)
	}

	result, err := w.Process(ctx, task.Description)
	if err != nil {
		s.logger.Warn("task failed", "task", task.ID, "error", err)
		s.audit.Record("task.fail", task.ID, "failed", err.Error())
		return s.ledger.SetStatus(task.ID, models.TaskStatusFailed, fmt.Sprintf("error: %v", err))
	}
	s.logger.Info("task completed", "task", task.ID, "title", task.Title)
	s.audit.Record("task.complete", task.ID, "completed", "")
	return s.ledger.SetStatus(task.ID, models.TaskStatusCompleted, result)
}

// ExecuteAllPending snapshots the pending set and runs every task in it
// concurrently, one goroutine per task. It always returns exactly one result
// per snapshotted task, in snapshot order; individual failures surface as
// error text in their slot and never abort the batch.
func (s *Scheduler) ExecuteAllPending(ctx context.Context) []TaskResult {
	pending := s.ledger.Pending()
	if len(pending) == 0 {
		return nil
	}

	results := make([]TaskResult, len(pending))
	var wg sync.WaitGroup
	for i, task := range pending {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			done, err := s.ExecuteTask(ctx, id)
			if err != nil {
				results[i] = TaskResult{TaskID: id, Result: fmt.Sprintf("error: %v", err)}
				return
			}
			results[i] = TaskResult{TaskID: id, Result: done.Result}
		}(i, task.ID)
	}
	wg.Wait()
	return results
}

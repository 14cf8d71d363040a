// Package ledger holds the in-memory task ledger shared by the supervisor
// and the scheduler. State does not survive a restart.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/martynov-dm/crypto-agent/internal/models"
)

var (
	// ErrNotFound is returned when a task id is unknown.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidTransition is returned when a status update would move a
	// task backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// rank orders statuses along the only legal path:
// pending -> in_progress -> {completed, failed}.
var rank = map[models.TaskStatus]int{
	models.TaskStatusPending:    0,
	models.TaskStatusInProgress: 1,
	models.TaskStatusCompleted:  2,
	models.TaskStatusFailed:     2,
}

// Ledger is a synchronized in-memory store of tasks.
type Ledger struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
	order []string // insertion order for stable listings
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{tasks: make(map[string]*models.Task)}
}

// Create records a new pending task and returns a copy of it.
func (l *Ledger) Create(title, description, agentID string, priority int) models.Task {
	now := time.Now().UTC()
	t := &models.Task{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     description,
		AssignedAgentID: agentID,
		Status:          models.TaskStatusPending,
		Priority:        priority,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	l.mu.Lock()
	l.tasks[t.ID] = t
	l.order = append(l.order, t.ID)
	l.mu.Unlock()
	return *t
}

// Get returns a copy of the task with the given id.
func (l *Ledger) Get(id string) (models.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *t, nil
}

// List returns copies of all tasks in creation order. If status is non-empty
// only tasks with that status are returned.
func (l *Ledger) List(status models.TaskStatus) []models.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Task, 0, len(l.order))
	for _, id := range l.order {
		t := l.tasks[id]
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, *t)
	}
	return out
}

// Pending returns copies of all pending tasks in creation order.
func (l *Ledger) Pending() []models.Task {
	return l.List(models.TaskStatusPending)
}

// SetStatus moves a task along the lifecycle and optionally records a result.
// Transitions only move forward, and terminal tasks reject any further change.
func (l *Ledger) SetStatus(id string, status models.TaskStatus, result string) (models.Task, error) {
	newRank, ok := rank[status]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if t.Status.Terminal() {
		return models.Task{}, fmt.Errorf("%w: task %s is already %s", ErrInvalidTransition, id, t.Status)
	}
	if newRank < rank[t.Status] {
		return models.Task{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, status)
	}

	t.Status = status
	if result != "" {
		t.Result = result
	}
	t.UpdatedAt = time.Now().UTC()
	return *t, nil
}

// Claim atomically moves a pending task to in_progress. It fails if the task
// is gone or no longer pending, so concurrent executors cannot double-run it.
func (l *Ledger) Claim(id string) (models.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if t.Status != models.TaskStatusPending {
		return models.Task{}, fmt.Errorf("%w: task %s is %s, not pending", ErrInvalidTransition, id, t.Status)
	}
	t.Status = models.TaskStatusInProgress
	t.UpdatedAt = time.Now().UTC()
	return *t, nil
}

// Count returns the number of tasks per status.
func (l *Ledger) Count() map[models.TaskStatus]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[models.TaskStatus]int, 4)
	for _, t := range l.tasks {
		out[t.Status]++
	}
	return out
}

// IDs returns all task ids sorted lexicographically.
func (l *Ledger) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := append([]string(nil), l.order...)
	sort.Strings(out)
	return out
}

// Reset drops every task.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.tasks = make(map[string]*models.Task)
	l.order = nil
	l.mu.Unlock()
}

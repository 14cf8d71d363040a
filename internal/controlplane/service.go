// Package controlplane provides the HTTP API and service layer for the
// crypto agent daemon.
package controlplane

import (
	"context"
	"fmt"
	"strings"

	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/models"
	"github.com/martynov-dm/crypto-agent/internal/orchestrator"
	"github.com/martynov-dm/crypto-agent/internal/research"
	"github.com/martynov-dm/crypto-agent/internal/store"
)

// Service provides the control plane business logic on top of the agent
// system, the research manager, and the archive.
type Service struct {
	system   *orchestrator.System
	research *research.Manager
	archive  *store.Store
}

// NewService creates a new control plane service. archive may be nil.
func NewService(system *orchestrator.System, rm *research.Manager, archive *store.Store) *Service {
	return &Service{system: system, research: rm, archive: archive}
}

// --- Chat ---

// Chat runs one user message through the full pipeline.
func (s *Service) Chat(ctx context.Context, message string) (*orchestrator.ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	return s.system.HandleRequest(ctx, message)
}

// --- Task Operations ---

// ListTasks returns tasks, optionally filtered by status.
func (s *Service) ListTasks(status string) []models.Task {
	return s.system.Ledger().List(models.TaskStatus(status))
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(id string) (models.Task, error) {
	return s.system.Ledger().Get(id)
}

// ExecuteTask runs a single pending task on its assigned agent.
func (s *Service) ExecuteTask(ctx context.Context, id string) (models.Task, error) {
	return s.system.Scheduler().ExecuteTask(ctx, id)
}

// ExecuteAllPending runs every pending task in parallel.
func (s *Service) ExecuteAllPending(ctx context.Context) []orchestrator.TaskResult {
	return s.system.Scheduler().ExecuteAllPending(ctx)
}

// --- Agent Operations ---

// Agents lists the registered agents.
func (s *Service) Agents() []models.AgentInfo {
	return s.system.Agents()
}

// CreateAgent registers a custom agent.
func (s *Service) CreateAgent(id, systemPrompt string, tools []string) error {
	return s.system.CreateCustomAgent(id, systemPrompt, tools)
}

// --- Research Operations ---

// ResearchQuestions returns the clarifying questions for a token.
func (s *Service) ResearchQuestions(ctx context.Context, tokenSymbol string) ([]string, error) {
	if strings.TrimSpace(tokenSymbol) == "" {
		return nil, fmt.Errorf("%w: token symbol", ErrEmptyMessage)
	}
	return s.research.ClarificationQuestions(ctx, tokenSymbol)
}

// RunResearch executes the deep-research pipeline. answers carries the
// user's replies to the clarifying questions, in order.
func (s *Service) RunResearch(ctx context.Context, tokenSymbol string, answers []string) (models.ResearchResult, error) {
	if strings.TrimSpace(tokenSymbol) == "" {
		return models.ResearchResult{}, fmt.Errorf("%w: token symbol", ErrEmptyMessage)
	}
	conversation := []llm.Message{llm.UserMessage("Research the token " + tokenSymbol)}
	for _, a := range answers {
		conversation = append(conversation, llm.UserMessage(a))
	}
	return s.research.Run(ctx, conversation, tokenSymbol)
}

// --- Archive Operations ---

// ListReports returns archived reports newest first.
func (s *Service) ListReports(kind string, limit int) ([]models.Report, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	return s.archive.ListReports(models.ReportKind(kind), limit)
}

// GetReport retrieves an archived report.
func (s *Service) GetReport(id string) (*models.Report, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	report, err := s.archive.GetReport(id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrNotFound
	}
	return report, nil
}

// ListAudit returns audit entries newest first.
func (s *Service) ListAudit(taskID string, limit int) ([]models.AuditEntry, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	return s.archive.ListAudit(taskID, limit)
}

// --- System Operations ---

// Reset clears all tasks and agent conversations.
func (s *Service) Reset() {
	s.system.Reset()
}

// Package orchestrator wires the supervisor, the worker roster, the task
// ledger, and the scheduler into one multi-agent system.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lithammer/shortuuid/v4"

	"github.com/martynov-dm/crypto-agent/internal/agent"
	"github.com/martynov-dm/crypto-agent/internal/ledger"
	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/models"
	"github.com/martynov-dm/crypto-agent/internal/tools"
)

var (
	// ErrAgentExists is returned when creating an agent with a taken id.
	ErrAgentExists = errors.New("agent already exists")
	// ErrAgentNotFound is returned when an agent id is unknown.
	ErrAgentNotFound = errors.New("agent not found")
)

// Auditor records state-mutating actions. The audit package provides the
// persistent implementation.
type Auditor interface {
	Record(action, taskID, outcome, details string)
}

// Archiver persists finished reports. The store package provides the
// persistent implementation.
type Archiver interface {
	SaveReport(report models.Report) error
}

type nopAuditor struct{}

func (nopAuditor) Record(string, string, string, string) {}

// Options configures a System.
type Options struct {
	// MaxHistory bounds each agent's LLM-visible history. Zero is unlimited.
	MaxHistory int
	// MaxIterations bounds each agent's tool-call loop.
	MaxIterations int
	Logger        *slog.Logger
	Audit         Auditor
	Archive       Archiver
}

// System owns the agents, the ledger, the scheduler, and the merger.
type System struct {
	mu     sync.RWMutex
	agents map[string]*agent.Agent
	order  []string

	ledger    *ledger.Ledger
	registry  *tools.Registry
	llm       llm.Service
	scheduler *Scheduler
	merger    *Merger
	logger    *slog.Logger
	audit     Auditor
	archive   Archiver
	agentOpts agent.Options
}

// ChatResult is the outcome of one user request: the supervisor's reply plus
// any report assembled from tasks it spawned during the turn.
type ChatResult struct {
	Response string       `json:"response"`
	Report   *MergeReport `json:"report,omitempty"`
	Executed []TaskResult `json:"executed,omitempty"`
}

// New builds the system: the default worker roster, the supervisor with its
// coordination tools, and the scheduler over a fresh ledger.
func New(svc llm.Service, registry *tools.Registry, opts Options) *System {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	audit := opts.Audit
	if audit == nil {
		audit = nopAuditor{}
	}

	s := &System{
		agents:   make(map[string]*agent.Agent),
		ledger:   ledger.New(),
		registry: registry,
		llm:      svc,
		logger:   logger,
		audit:    audit,
		archive:  opts.Archive,
		agentOpts: agent.Options{
			MaxHistory:    opts.MaxHistory,
			MaxIterations: opts.MaxIterations,
			Logger:        logger,
		},
	}
	s.scheduler = NewScheduler(s.ledger, s, logger, s.audit)
	s.merger = NewMerger(s.ledger, svc, logger)

	for _, spec := range workerRoster {
		s.addAgent(agent.New(spec.ID, spec.Role, spec.Prompt, svc, resolveTools(registry, spec.Tools), s.agentOpts))
	}
	s.addAgent(agent.New("supervisor", models.RoleSupervisor, supervisorPrompt, svc, s.supervisorTools(), s.agentOpts))
	return s
}

func (s *System) addAgent(a *agent.Agent) {
	s.mu.Lock()
	s.agents[a.ID()] = a
	s.order = append(s.order, a.ID())
	s.mu.Unlock()
}

// worker satisfies the scheduler's lookup.
func (s *System) worker(id string) (worker, bool) {
	a, ok := s.Agent(id)
	if !ok {
		return nil, false
	}
	return a, true
}

// Agent returns the agent with the given id.
func (s *System) Agent(id string) (*agent.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	return a, ok
}

// HasAgent reports whether an agent id is registered.
func (s *System) HasAgent(id string) bool {
	_, ok := s.Agent(id)
	return ok
}

// Agents lists agent summaries in registration order.
func (s *System) Agents() []models.AgentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AgentInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.agents[id].Info())
	}
	return out
}

// Ledger exposes the task ledger.
func (s *System) Ledger() *ledger.Ledger { return s.ledger }

// Scheduler exposes the task scheduler.
func (s *System) Scheduler() *Scheduler { return s.scheduler }

// Merger exposes the report merger.
func (s *System) Merger() *Merger { return s.merger }

// CreateCustomAgent registers a new agent with the given prompt and tool
// subset. Tool names must exist in the registry; the id must be free.
func (s *System) CreateCustomAgent(id, systemPrompt string, toolNames []string) error {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return errors.New("agent id must not be empty")
	}
	toolSet, err := s.registry.Select(toolNames)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; ok {
		return fmt.Errorf("%w: %s", ErrAgentExists, id)
	}
	a := agent.New(id, models.RoleCustom, systemPrompt, s.llm, toolSet, s.agentOpts)
	s.agents[id] = a
	s.order = append(s.order, id)
	s.logger.Info("custom agent created", "agent", id, "tools", toolNames)
	return nil
}

// ProcessUserInput routes one instruction to the supervisor without running
// any spawned tasks.
func (s *System) ProcessUserInput(ctx context.Context, input string) (string, error) {
	sup, ok := s.Agent("supervisor")
	if !ok {
		return "", fmt.Errorf("%w: supervisor", ErrAgentNotFound)
	}
	return sup.Process(ctx, input)
}

// HandleRequest runs the full pipeline for one user request: the supervisor
// plans (usually delegating tasks), every pending task is executed in
// parallel, and if this turn produced completed tasks their results are
// merged into a report. When no tasks were spawned the supervisor's direct
// answer is the whole result.
func (s *System) HandleRequest(ctx context.Context, input string) (*ChatResult, error) {
	before := make(map[string]bool)
	for _, task := range s.ledger.Pending() {
		before[task.ID] = true
	}

	response, err := s.ProcessUserInput(ctx, input)
	if err != nil {
		return nil, err
	}

	// Tasks created during this turn.
	var turnTaskIDs []string
	for _, task := range s.ledger.Pending() {
		if !before[task.ID] {
			turnTaskIDs = append(turnTaskIDs, task.ID)
		}
	}

	executed := s.scheduler.ExecuteAllPending(ctx)
	result := &ChatResult{Response: response, Executed: executed}
	if len(turnTaskIDs) == 0 {
		return result, nil
	}

	var completed []string
	for _, id := range turnTaskIDs {
		if task, err := s.ledger.Get(id); err == nil && task.Status == models.TaskStatusCompleted {
			completed = append(completed, id)
		}
	}
	if len(completed) == 0 {
		return result, nil
	}

	report := s.merger.Merge(ctx, turnTaskIDs, s.reportTitle(input))
	s.archiveMergeReport(report)
	result.Report = report
	return result, nil
}

func (s *System) reportTitle(input string) string {
	title := strings.TrimSpace(input)
	if r := []rune(title); len(r) > 80 {
		title = string(r[:80])
	}
	return "Analysis: " + title
}

func (s *System) archiveMergeReport(report *MergeReport) {
	s.audit.Record("report.merge", "", "ok",
		fmt.Sprintf("tasks=%d incomplete=%d missing=%d fallback=%v",
			len(report.TasksInfo), len(report.IncompleteTasks), len(report.MissingTasks), report.Fallback))
	if s.archive == nil {
		return
	}
	err := s.archive.SaveReport(models.Report{
		ID:        "rep_" + shortuuid.New(),
		Kind:      models.ReportKindMerge,
		Title:     report.Title,
		Content:   report.StructuredReport,
		CreatedAt: report.Timestamp,
	})
	if err != nil {
		s.logger.Warn("report archive failed", "error", err)
	}
}

// Reset clears all tasks and every agent's conversation. Agents themselves,
// including custom ones, are kept.
func (s *System) Reset() {
	s.ledger.Reset()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		a.ClearConversation()
	}
	s.logger.Info("system reset")
}

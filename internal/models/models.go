// Package models defines the core domain types for the crypto agent system.
package models

import "time"

// TaskStatus represents the current state of a delegated task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// AgentRole identifies the specialization of a worker agent.
type AgentRole string

const (
	RoleSupervisor       AgentRole = "supervisor"
	RoleMarketAnalyst    AgentRole = "market_analyst"
	RoleTechnicalAnalyst AgentRole = "technical_analyst"
	RoleNewsResearcher   AgentRole = "news_researcher"
	RoleTrader           AgentRole = "trader"
	RoleProtocolAnalyst  AgentRole = "protocol_analyst"
	RoleCustom           AgentRole = "custom"
)

// Task represents a unit of work delegated by the supervisor.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	AssignedAgentID string     `json:"assigned_agent_id,omitempty"`
	Status          TaskStatus `json:"status"`
	// Priority is advisory only; the scheduler does not order by it.
	Priority     int       `json:"priority"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Result       string    `json:"result,omitempty"`
	ParentTaskID string    `json:"parent_task_id,omitempty"`
	SubTaskIDs   []string  `json:"sub_task_ids,omitempty"`
}

// MessageRole tags a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// Message is one entry in an agent's conversation history.
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ToolCall records a tool invocation requested by the LLM.
type ToolCall struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Arguments string    `json:"arguments"` // raw JSON
	Timestamp time.Time `json:"timestamp"`
}

// ToolResult records the outcome of a tool invocation.
type ToolResult struct {
	CallID   string        `json:"call_id"`
	Name     string        `json:"name"`
	Result   string        `json:"result"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ResearchParams holds the parameters for one deep-research run.
type ResearchParams struct {
	TokenSymbol  string `json:"token_symbol"`
	TokenName    string `json:"token_name,omitempty"`
	TokenID      string `json:"token_id,omitempty"`
	TokenAddress string `json:"token_address,omitempty"`
	Chain        string `json:"chain"`
	DaysLookback int    `json:"days_lookback"`
	RiskProfile  string `json:"risk_profile"` // low, moderate, high
	// Degraded marks params recovered by the heuristic fallback rather than
	// the structured LLM response.
	Degraded bool `json:"degraded,omitempty"`
}

// ResearchResult is the outcome of a deep-research run.
type ResearchResult struct {
	TokenSymbol    string    `json:"token_symbol"`
	TokenName      string    `json:"token_name"`
	Summary        string    `json:"summary"`
	Recommendation string    `json:"recommendation"` // BUY, HOLD, SELL
	FullReport     string    `json:"full_report"`
	Timestamp      time.Time `json:"timestamp"`
}

// ReportKind distinguishes archived report types.
type ReportKind string

const (
	ReportKindMerge    ReportKind = "merge"
	ReportKindResearch ReportKind = "research"
)

// Report is an archived report document.
type Report struct {
	ID             string     `json:"id"`
	Kind           ReportKind `json:"kind"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Summary        string     `json:"summary,omitempty"`
	Recommendation string     `json:"recommendation,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AuditEntry records a state-mutating action for the audit trail.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	TaskID     string    `json:"task_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AgentInfo is the external view of a registered worker agent.
type AgentInfo struct {
	ID       string    `json:"id"`
	Role     AgentRole `json:"role"`
	Tools    []string  `json:"tools"`
	Messages int       `json:"messages"`
}

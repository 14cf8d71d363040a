package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/models"
	"github.com/martynov-dm/crypto-agent/internal/tools"
)

// DefaultMaxIterations bounds the tool-call loop for a single instruction.
const DefaultMaxIterations = 10

// Options configures an Agent beyond its identity.
type Options struct {
	// MaxHistory is the number of non-system messages presented to the LLM.
	// Zero means unlimited.
	MaxHistory int
	// MaxIterations bounds tool-call rounds per Process call. Zero means
	// DefaultMaxIterations.
	MaxIterations int
	Logger        *slog.Logger
}

// Agent is a single LLM-backed worker: a role prompt, a tool subset, and a
// conversation it accumulates across instructions.
type Agent struct {
	id            string
	role          models.AgentRole
	systemPrompt  string
	llm           llm.Service
	tools         []tools.Tool
	byName        map[string]tools.Tool
	conv          *Conversation
	maxHistory    int
	maxIterations int
	logger        *slog.Logger

	// procMu serializes Process calls so interleaved instructions cannot
	// corrupt the transcript ordering.
	procMu sync.Mutex
}

// New creates an agent with the given identity, LLM service, and tool subset.
func New(id string, role models.AgentRole, systemPrompt string, svc llm.Service, toolSet []tools.Tool, opts Options) *Agent {
	byName := make(map[string]tools.Tool, len(toolSet))
	for _, t := range toolSet {
		byName[t.Name()] = t
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		id:            id,
		role:          role,
		systemPrompt:  systemPrompt,
		llm:           svc,
		tools:         toolSet,
		byName:        byName,
		conv:          NewConversation(),
		maxHistory:    opts.MaxHistory,
		maxIterations: maxIter,
		logger:        logger,
	}
	if systemPrompt != "" {
		a.conv.AddSystemMessage(systemPrompt)
	}
	return a
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

// Role returns the agent role.
func (a *Agent) Role() models.AgentRole { return a.role }

// Tools returns the agent's tool subset.
func (a *Agent) Tools() []tools.Tool { return a.tools }

// ToolNames returns the names of the agent's tools.
func (a *Agent) ToolNames() []string { return tools.Names(a.tools) }

// Conversation exposes the agent's transcript.
func (a *Agent) Conversation() *Conversation { return a.conv }

// Info summarizes the agent for listings.
func (a *Agent) Info() models.AgentInfo {
	return models.AgentInfo{
		ID:       a.id,
		Role:     a.role,
		Tools:    a.ToolNames(),
		Messages: a.conv.Len(),
	}
}

// ClearConversation resets the transcript, keeping the system prompt.
func (a *Agent) ClearConversation() {
	a.conv.Clear()
	if a.systemPrompt != "" {
		a.conv.AddSystemMessage(a.systemPrompt)
	}
}

// Process runs one instruction through the tool-call loop: the LLM is invoked
// with the conversation and tool descriptors, requested tools are executed,
// their outputs are appended as tool messages, and the loop repeats until the
// LLM answers without tool calls or the iteration bound is hit. Tool failures
// are fed back to the LLM as error text; LLM failures abort the call.
func (a *Agent) Process(ctx context.Context, instruction string) (string, error) {
	a.procMu.Lock()
	defer a.procMu.Unlock()

	a.conv.AddUserMessage(instruction)
	descriptors := tools.Descriptors(a.tools)

	for i := 0; i < a.maxIterations; i++ {
		resp, _, err := a.llm.ChatWithTools(ctx, a.conv.History(a.maxHistory), descriptors)
		if err != nil {
			return "", fmt.Errorf("agent %s: llm call: %w", a.id, err)
		}

		if len(resp.ToolCalls) == 0 {
			a.conv.AddAssistantMessage(resp.Content)
			return resp.Content, nil
		}

		if resp.Content != "" {
			a.conv.AddAssistantMessage(resp.Content)
		}
		for _, tc := range resp.ToolCalls {
			call := a.conv.AddToolCall(tc.ID, tc.Name, tc.Arguments)
			output := a.executeTool(ctx, call)
			a.conv.AddToolMessage(fmt.Sprintf("[Result from %s]: %s", tc.Name, output))
		}
	}

	// Iteration bound hit. Ask once more without tools for a final answer.
	a.conv.AddUserMessage("Summarize your findings so far as a final answer.")
	content, _, err := a.llm.Chat(ctx, a.conv.History(a.maxHistory))
	if err != nil {
		return "", fmt.Errorf("agent %s: final answer: %w", a.id, err)
	}
	a.conv.AddAssistantMessage(content)
	return content, nil
}

func (a *Agent) executeTool(ctx context.Context, call models.ToolCall) string {
	tool, ok := a.byName[call.Name]
	if !ok {
		a.conv.AddToolResult(call.ID, call.Name, "", false, "unknown tool", 0)
		return fmt.Sprintf("Error: tool %q is not available to this agent", call.Name)
	}

	start := time.Now()
	out, err := tool.Call(ctx, call.Arguments)
	elapsed := time.Since(start)
	if err != nil {
		a.logger.Warn("tool call failed", "agent", a.id, "tool", call.Name, "error", err)
		a.conv.AddToolResult(call.ID, call.Name, "", false, err.Error(), elapsed)
		return fmt.Sprintf("Error executing %s: %v", call.Name, err)
	}
	a.conv.AddToolResult(call.ID, call.Name, out, true, "", elapsed)
	return out
}

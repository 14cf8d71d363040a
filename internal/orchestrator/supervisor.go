package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/martynov-dm/crypto-agent/internal/models"
	"github.com/martynov-dm/crypto-agent/internal/tools"
)

// Supervisor tool argument shapes. The LLM fills these from the schemas
// declared below.
type delegateArgs struct {
	AgentID         string `json:"agent_id"`
	TaskTitle       string `json:"task_title"`
	TaskDescription string `json:"task_description"`
	Priority        int    `json:"priority"`
}

type checkStatusArgs struct {
	TaskID string `json:"task_id"`
}

type mergeArgs struct {
	TaskIDs      []string `json:"task_ids"`
	SummaryTitle string   `json:"summary_title"`
}

// supervisorTools builds the coordination tool set bound to this system.
// These tools return soft error strings rather than Go errors: a bad agent id
// or unknown task is something the LLM should see and correct, not a failure
// of the tool call itself.
func (s *System) supervisorTools() []tools.Tool {
	delegate := &tools.Func{
		ToolName: "delegate_task",
		ToolDescription: "Delegate a task to the specified agent. Returns the id of " +
			"the created task.",
		ToolParameters: `{
  "type": "object",
  "properties": {
    "agent_id": {"type": "string", "description": "ID of the agent to delegate to"},
    "task_title": {"type": "string", "description": "Task title"},
    "task_description": {"type": "string", "description": "Task description"},
    "priority": {"type": "integer", "description": "Task priority, 1-5 where 5 is highest", "default": 1}
  },
  "required": ["agent_id", "task_title", "task_description"]
}`,
		Fn: func(ctx context.Context, raw string) (string, error) {
			var args delegateArgs
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", fmt.Errorf("parse delegate_task arguments: %w", err)
			}
			agentID := strings.ToLower(strings.TrimSpace(args.AgentID))
			if !s.HasAgent(agentID) {
				return fmt.Sprintf("Error: agent with ID %s not found", agentID), nil
			}
			if args.Priority == 0 {
				args.Priority = 1
			}
			task := s.ledger.Create(args.TaskTitle, args.TaskDescription, agentID, args.Priority)
			s.audit.Record("task.create", task.ID, "ok", fmt.Sprintf("agent=%s title=%q", agentID, task.Title))
			return fmt.Sprintf("Task delegated to agent %s. Task ID: %s", agentID, task.ID), nil
		},
	}

	checkStatus := &tools.Func{
		ToolName:        "check_task_status",
		ToolDescription: "Check the status of a task by id.",
		ToolParameters: `{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "Task ID"}
  },
  "required": ["task_id"]
}`,
		Fn: func(ctx context.Context, raw string) (string, error) {
			var args checkStatusArgs
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", fmt.Errorf("parse check_task_status arguments: %w", err)
			}
			task, err := s.ledger.Get(args.TaskID)
			if err != nil {
				return fmt.Sprintf(`{"error": "task with ID %s not found"}`, args.TaskID), nil
			}
			view := map[string]any{
				"task_id":           task.ID,
				"title":             task.Title,
				"status":            task.Status,
				"assigned_agent_id": task.AssignedAgentID,
			}
			// Results of unfinished tasks are withheld from the LLM.
			if task.Status == models.TaskStatusCompleted {
				view["result"] = task.Result
			} else {
				view["result"] = nil
			}
			out, err := json.Marshal(view)
			if err != nil {
				return "", fmt.Errorf("marshal task status: %w", err)
			}
			return string(out), nil
		},
	}

	merge := &tools.Func{
		ToolName: "merge_results",
		ToolDescription: "Merge the results of the given tasks into a structured " +
			"analytical report.",
		ToolParameters: `{
  "type": "object",
  "properties": {
    "task_ids": {"type": "array", "items": {"type": "string"}, "description": "IDs of the tasks to merge"},
    "summary_title": {"type": "string", "description": "Title of the final report"}
  },
  "required": ["task_ids", "summary_title"]
}`,
		Fn: func(ctx context.Context, raw string) (string, error) {
			var args mergeArgs
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", fmt.Errorf("parse merge_results arguments: %w", err)
			}
			report := s.merger.Merge(ctx, args.TaskIDs, args.SummaryTitle)
			s.archiveMergeReport(report)
			out, err := json.Marshal(report)
			if err != nil {
				return "", fmt.Errorf("marshal merge report: %w", err)
			}
			return string(out), nil
		},
	}

	return []tools.Tool{delegate, checkStatus, merge}
}

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/martynov-dm/crypto-agent/internal/ledger"
	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/models"
)

// MergeReport is the output of combining several task results.
type MergeReport struct {
	Title            string            `json:"summary_title"`
	StructuredReport string            `json:"structured_report"`
	RawResults       map[string]string `json:"raw_results"`
	TasksInfo        []MergeTaskInfo   `json:"tasks_info"`
	MissingTasks     []string          `json:"missing_tasks"`
	IncompleteTasks  []string          `json:"incomplete_tasks"`
	// Fallback marks a report produced by plain concatenation because the
	// LLM formatting call failed.
	Fallback  bool      `json:"fallback,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MergeTaskInfo is the per-task metadata attached to a merge report.
type MergeTaskInfo struct {
	TaskID  string `json:"task_id"`
	Title   string `json:"title"`
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
}

// Merger combines completed task results into one structured report.
type Merger struct {
	ledger *ledger.Ledger
	llm    llm.Service
	logger *slog.Logger
}

// NewMerger creates a merger over the given ledger and LLM.
func NewMerger(led *ledger.Ledger, svc llm.Service, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{ledger: led, llm: svc, logger: logger}
}

// Merge partitions the requested tasks into completed, incomplete, and
// missing, then asks the LLM to format the completed results into a report.
// If the formatting call fails the completed results are concatenated instead
// and the report is marked as a fallback. Merge itself never fails on task
// state: incomplete and missing tasks are reported, not errors.
func (m *Merger) Merge(ctx context.Context, taskIDs []string, title string) *MergeReport {
	report := &MergeReport{
		Title:      title,
		RawResults: make(map[string]string),
		Timestamp:  time.Now().UTC(),
	}

	// Titles feed RawResults keys; keep insertion order alongside for
	// deterministic fallback output.
	var orderedTitles []string
	for _, id := range taskIDs {
		task, err := m.ledger.Get(id)
		if err != nil {
			report.MissingTasks = append(report.MissingTasks, id)
			continue
		}
		report.TasksInfo = append(report.TasksInfo, MergeTaskInfo{
			TaskID:  task.ID,
			Title:   task.Title,
			AgentID: task.AssignedAgentID,
			Status:  string(task.Status),
		})
		if task.Status != models.TaskStatusCompleted {
			report.IncompleteTasks = append(report.IncompleteTasks, id)
			continue
		}
		if _, seen := report.RawResults[task.Title]; !seen {
			orderedTitles = append(orderedTitles, task.Title)
		}
		report.RawResults[task.Title] = task.Result
	}

	formatted, err := m.format(ctx, report)
	if err != nil {
		m.logger.Warn("report formatting failed, falling back to concatenation", "error", err)
		report.StructuredReport = m.concatenate(report, orderedTitles, err)
		report.Fallback = true
		return report
	}
	report.StructuredReport = formatted
	return report
}

func (m *Merger) format(ctx context.Context, report *MergeReport) (string, error) {
	results, err := json.MarshalIndent(report.RawResults, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}

	prompt := fmt.Sprintf(`# Instructions for formatting a comprehensive crypto analysis report

Your job is to produce a well-structured, comprehensive analytical report from
the results of several research tasks.

## Required report structure:

1. **EXECUTIVE SUMMARY** - 3-5 sentences with the key takeaways
2. **MARKET ANALYSIS** - prices, volumes, market cap, trends
3. **TECHNICAL ANALYSIS** - patterns, indicators, support/resistance levels
4. **NEWS AND SENTIMENT** - key news, social signals
5. **FUNDAMENTAL ANALYSIS** - technology, team, project development
6. **RISKS AND OPPORTUNITIES** - overview of potential risks and opportunities
7. **OUTLOOK AND RECOMMENDATIONS** - a reasoned view of the prospects
8. **DATA SOURCES** - the sources that were used

## Formatting principles:

- Use **bold** for important points
- Structure with ## headings and ### subheadings
- Use bullet lists for enumerations
- Include tables for comparisons where appropriate
- Back every conclusion with data; give units and timestamps for all numbers
- When sources disagree, point out the discrepancy and present both versions

## Research task results:

%s

## Tasks that did not complete (account for this in the report):

Incomplete tasks: %v
Missing tasks: %v

## Report title:

%s

Produce the FULL report, integrating and structuring all of the provided
information according to the principles above.`,
		results, report.IncompleteTasks, report.MissingTasks, report.Title)

	content, _, err := m.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		return "", err
	}
	return content, nil
}

// concatenate builds the deterministic fallback report.
func (m *Merger) concatenate(report *MergeReport, orderedTitles []string, cause error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", report.Title)
	b.WriteString("## Completed task results\n\n")
	for _, title := range orderedTitles {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n---\n\n", title, report.RawResults[title])
	}
	if len(report.IncompleteTasks) > 0 {
		fmt.Fprintf(&b, "Incomplete tasks: %s\n", strings.Join(report.IncompleteTasks, ", "))
	}
	if len(report.MissingTasks) > 0 {
		fmt.Fprintf(&b, "Missing tasks: %s\n", strings.Join(report.MissingTasks, ", "))
	}
	fmt.Fprintf(&b, "\nNote: report formatting failed (%v); results are shown unformatted.\n", cause)
	return b.String()
}

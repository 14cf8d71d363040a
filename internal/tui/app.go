// Package tui provides the interactive terminal UI for the crypto agent.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	listItemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(cyanColor).
			Bold(true)

	agentStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	daemonOnlineStyle = lipgloss.NewStyle().
				Foreground(successColor).
				Bold(true)

	daemonOfflineStyle = lipgloss.NewStyle().
				Foreground(errorColor)
)

// App is the main TUI application model.
type App struct {
	client        *Client
	mode          string // "chat", "tasks", "detail", "agents", "reports"
	input         textinput.Model
	viewport      viewport.Model
	width         int
	height        int
	transcript    []string
	tasks         []TaskItem
	selectedIdx   int
	currentTask   *TaskDetail
	agents        []AgentItem
	agentIdx      int
	reports       []ReportItem
	reportIdx     int
	message       string
	filter        string
	filterIdx     int
	loading       bool
	waitingOnChat bool
	daemonOnline  bool
	suggestions   *Suggestions
}

var filters = []string{"", "pending", "in_progress", "completed", "failed"}
var filterNames = []string{"ALL", "PENDING", "IN PROGRESS", "DONE", "FAILED"}

// New creates a new TUI application.
func New(apiAddr string) *App {
	ti := textinput.New()
	ti.Placeholder = "Ask about a token, or type / for commands"
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 80

	vp := viewport.New(80, 20)

	return &App{
		client:      NewClient(apiAddr),
		input:       ti,
		viewport:    vp,
		mode:        "chat",
		suggestions: NewSuggestions(),
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.fetchAgents(),
		a.checkDaemon(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "esc":
			if a.mode != "chat" {
				if a.mode == "detail" {
					a.mode = "tasks"
					a.currentTask = nil
				} else {
					a.mode = "chat"
				}
				return a, nil
			}

		case "up", "k":
			if a.suggestions.IsVisible() {
				a.suggestions.Prev()
			} else if a.mode == "tasks" && a.selectedIdx > 0 {
				a.selectedIdx--
			} else if a.mode == "agents" && a.agentIdx > 0 {
				a.agentIdx--
			} else if a.reportIdx > 0 && a.mode == "reports" {
				a.reportIdx--
			} else if msg.String() == "up" && (a.mode == "chat" || a.mode == "detail") {
				a.viewport.LineUp(1)
			}

		case "down", "j":
			if a.suggestions.IsVisible() {
				a.suggestions.Next()
			} else if a.mode == "tasks" && a.selectedIdx < len(a.tasks)-1 {
				a.selectedIdx++
			} else if a.mode == "agents" && a.agentIdx < len(a.agents)-1 {
				a.agentIdx++
			} else if a.mode == "reports" && a.reportIdx < len(a.reports)-1 {
				a.reportIdx++
			} else if msg.String() == "down" && (a.mode == "chat" || a.mode == "detail") {
				a.viewport.LineDown(1)
			}

		case "tab":
			// If suggestions visible, accept selection
			if a.suggestions.IsVisible() {
				if selected := a.suggestions.Selected(); selected != nil {
					a.input.SetValue(selected.Text + " ")
					a.input.CursorEnd()
					a.suggestions.Update("")
				}
				return a, nil
			}
			// Cycle status filters in the task list
			if a.mode == "tasks" {
				a.filterIdx = (a.filterIdx + 1) % len(filters)
				a.filter = filters[a.filterIdx]
				return a, a.fetchTasks()
			}

		case "enter":
			if a.suggestions.IsVisible() {
				if selected := a.suggestions.Selected(); selected != nil {
					a.input.SetValue(selected.Text + " ")
					a.input.CursorEnd()
					a.suggestions.Update("")
				}
				return a, nil
			}
			cmd := strings.TrimSpace(a.input.Value())
			if cmd != "" {
				a.input.SetValue("")
				return a, a.executeInput(cmd)
			}
			switch a.mode {
			case "tasks":
				if len(a.tasks) > 0 {
					task := a.tasks[a.selectedIdx]
					a.mode = "detail"
					return a, a.fetchTaskDetail(task.ID)
				}
			case "reports":
				if len(a.reports) > 0 {
					return a, a.fetchReport(a.reports[a.reportIdx].ID)
				}
			}

		case "r":
			if a.input.Value() == "" {
				switch a.mode {
				case "tasks":
					return a, a.fetchTasks()
				case "agents":
					return a, a.fetchAgents()
				case "reports":
					return a, a.fetchReports()
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 4
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 10
		a.refreshTranscript()

	case chatRepliedMsg:
		a.waitingOnChat = false
		a.appendChat(agentStyle.Render("supervisor:"), msg.reply.Response)
		if msg.reply.ExecutedTasks > 0 {
			a.appendChat("", helpStyle.Render(fmt.Sprintf("(%d task(s) executed)", msg.reply.ExecutedTasks)))
		}
		if msg.reply.Report != "" {
			a.appendChat(agentStyle.Render("report: "+msg.reply.ReportTitle), msg.reply.Report)
			if msg.reply.Fallback {
				a.appendChat("", helpStyle.Render("(report formatting degraded; raw results concatenated)"))
			}
		}

	case tasksLoadedMsg:
		a.loading = false
		a.tasks = msg.tasks
		if a.selectedIdx >= len(a.tasks) {
			a.selectedIdx = max(0, len(a.tasks)-1)
		}

	case taskDetailLoadedMsg:
		a.currentTask = msg.task

	case agentsLoadedMsg:
		a.agents = msg.agents
		if a.agentIdx >= len(a.agents) {
			a.agentIdx = max(0, len(a.agents)-1)
		}

	case reportsLoadedMsg:
		a.loading = false
		a.reports = msg.reports
		if a.reportIdx >= len(a.reports) {
			a.reportIdx = max(0, len(a.reports)-1)
		}

	case reportContentMsg:
		a.mode = "chat"
		a.appendChat(agentStyle.Render("archive:"), msg.content)

	case daemonStatusMsg:
		a.daemonOnline = msg.online

	case commandResultMsg:
		a.message = msg.message
		if a.mode == "tasks" {
			cmds = append(cmds, a.fetchTasks())
		}

	case errMsg:
		a.waitingOnChat = false
		a.message = "Error: " + msg.err.Error()
	}

	// Update input
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	// Update suggestions based on input
	a.suggestions.Update(a.input.Value())

	// Populate dynamic suggestions for @
	if strings.HasPrefix(a.input.Value(), "@") {
		var agentNames []string
		for _, ag := range a.agents {
			agentNames = append(agentNames, ag.ID)
		}
		a.suggestions.SetAgents(agentNames)

		var taskIDs []string
		for _, t := range a.tasks {
			taskIDs = append(taskIDs, t.ID)
		}
		a.suggestions.SetTasks(taskIDs)
	}

	return a, tea.Batch(cmds...)
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	// Header with daemon status
	daemonStatus := daemonOnlineStyle.Render("DAEMON UP")
	if !a.daemonOnline {
		daemonStatus = daemonOfflineStyle.Render("DAEMON DOWN")
	}

	header := titleStyle.Render("CRYPTO AGENT")
	header += "  " + daemonStatus
	header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render(fmt.Sprintf("[%d agents]", len(a.agents)))

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", max(a.width, 1)) + "\n")

	// Main content area
	contentHeight := a.height - 8
	if contentHeight < 5 {
		contentHeight = 5
	}

	switch a.mode {
	case "chat":
		b.WriteString(a.viewport.View())
	case "tasks":
		filterLabel := fmt.Sprintf(" Filter: [%s]", filterNames[a.filterIdx])
		b.WriteString(lipgloss.NewStyle().Foreground(mutedColor).Render(filterLabel) + "\n")
		b.WriteString(a.renderTaskList(contentHeight - 1))
	case "detail":
		b.WriteString(a.renderTaskDetail())
	case "agents":
		b.WriteString(a.renderAgentsPanel())
	case "reports":
		b.WriteString(a.renderReportsPanel(contentHeight))
	}

	// Message bar
	if a.waitingOnChat {
		b.WriteString("\n" + helpStyle.Render("Thinking..."))
	} else if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	// Input box
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()))

	// Suggestions dropdown (if visible) - renders BELOW input
	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	// Status bar
	var status string
	switch a.mode {
	case "chat":
		status = " Chat | /tasks /agents /reports /execute /reset | Ctrl+C:quit"
	case "tasks":
		status = fmt.Sprintf(" Tasks: %d | up/down:nav | Enter:detail | Tab:filter | r:refresh | Esc:chat", len(a.tasks))
	case "agents":
		status = fmt.Sprintf(" Agents: %d | up/down:nav | r:refresh | Esc:chat", len(a.agents))
	case "reports":
		status = fmt.Sprintf(" Reports: %d | up/down:nav | Enter:open | r:refresh | Esc:chat", len(a.reports))
	default:
		status = " Esc:back | Ctrl+C:quit"
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

func (a *App) appendChat(prefix, text string) {
	if prefix != "" {
		a.transcript = append(a.transcript, prefix)
	}
	a.transcript = append(a.transcript, text, "")
	a.refreshTranscript()
}

func (a *App) refreshTranscript() {
	a.viewport.SetContent(strings.Join(a.transcript, "\n"))
	a.viewport.GotoBottom()
}

func (a *App) renderTaskList(height int) string {
	if a.loading {
		return "\n  Loading tasks...\n"
	}
	if len(a.tasks) == 0 {
		return "\n  No tasks yet. Ask the supervisor to analyze something.\n"
	}

	var lines []string
	for i, task := range a.tasks {
		label := fmt.Sprintf("%s  %-18s  %s", a.formatStatusPlain(task.Status), task.AgentID, task.TaskTitle)
		if i == a.selectedIdx {
			lines = append(lines, selectedStyle.Render("> "+label))
		} else {
			lines = append(lines, listItemStyle.Render("  "+label))
		}
	}

	// Limit visible lines
	if len(lines) > height {
		start := a.selectedIdx - height/2
		if start < 0 {
			start = 0
		}
		end := start + height
		if end > len(lines) {
			end = len(lines)
			start = max(0, end-height)
		}
		lines = lines[start:end]
	}

	return strings.Join(lines, "\n")
}

func (a *App) renderTaskDetail() string {
	if a.currentTask == nil {
		return "\n  Loading...\n"
	}

	var b strings.Builder
	t := a.currentTask

	b.WriteString(fmt.Sprintf("\n  %s\n", lipgloss.NewStyle().Bold(true).Render(t.Title)))
	b.WriteString(fmt.Sprintf("  ID: %s\n", shortID(t.ID)))
	b.WriteString(fmt.Sprintf("  Status: %s\n", a.formatStatus(t.Status)))
	if t.AgentID != "" {
		b.WriteString(fmt.Sprintf("  Agent: %s\n", t.AgentID))
	}
	if t.Description != "" {
		b.WriteString(fmt.Sprintf("  Description: %s\n", t.Description))
	}
	if t.Result != "" {
		b.WriteString("\n  Result:\n")
		for _, line := range strings.Split(t.Result, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}

	return b.String()
}

func (a *App) renderAgentsPanel() string {
	var b strings.Builder

	b.WriteString("\n  Registered Agents\n")
	b.WriteString("  " + strings.Repeat("-", 40) + "\n\n")

	if len(a.agents) == 0 {
		b.WriteString("  No agents registered.\n")
		return b.String()
	}

	for i, agent := range a.agents {
		toolsLabel := lipgloss.NewStyle().Foreground(mutedColor).Render(fmt.Sprintf("(%d tools, %d messages)", len(agent.Tools), agent.Messages))

		var line string
		if i == a.agentIdx {
			line = selectedStyle.Render(fmt.Sprintf("> %s %s", agent.ID, toolsLabel))
		} else {
			line = fmt.Sprintf("    %s %s", agent.ID, toolsLabel)
		}
		b.WriteString(line + "\n")

		// Show tools for selected agent
		if i == a.agentIdx && len(agent.Tools) > 0 {
			toolLine := lipgloss.NewStyle().Foreground(mutedColor).Render("      Tools: " + strings.Join(agent.Tools, ", "))
			b.WriteString(toolLine + "\n")
		}
	}

	return b.String()
}

func (a *App) renderReportsPanel(height int) string {
	if a.loading {
		return "\n  Loading reports...\n"
	}
	if len(a.reports) == 0 {
		return "\n  No archived reports yet.\n"
	}

	var lines []string
	for i, r := range a.reports {
		rec := r.Recommendation
		if rec == "" {
			rec = "-"
		}
		label := fmt.Sprintf("%-9s %-5s %s", r.Kind, rec, r.Title)
		if i == a.reportIdx {
			lines = append(lines, selectedStyle.Render("> "+label))
		} else {
			lines = append(lines, listItemStyle.Render("  "+label))
		}
	}

	if len(lines) > height {
		start := a.reportIdx - height/2
		if start < 0 {
			start = 0
		}
		end := start + height
		if end > len(lines) {
			end = len(lines)
			start = max(0, end-height)
		}
		lines = lines[start:end]
	}

	return strings.Join(lines, "\n")
}

func (a *App) formatStatus(status string) string {
	switch status {
	case "pending":
		return lipgloss.NewStyle().Foreground(warningColor).Render("PENDING")
	case "in_progress":
		return lipgloss.NewStyle().Foreground(primaryColor).Render("IN PROGRESS")
	case "completed":
		return lipgloss.NewStyle().Foreground(successColor).Render("DONE")
	case "failed":
		return lipgloss.NewStyle().Foreground(errorColor).Render("FAILED")
	default:
		return status
	}
}

func (a *App) formatStatusPlain(status string) string {
	switch status {
	case "pending":
		return "[ ]"
	case "in_progress":
		return "[~]"
	case "completed":
		return "[x]"
	case "failed":
		return "[!]"
	default:
		return "[?]"
	}
}

func (a *App) fetchTasks() tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		tasks, err := a.client.ListTasks(a.filter)
		if err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{tasks}
	}
}

func (a *App) fetchTaskDetail(taskID string) tea.Cmd {
	return func() tea.Msg {
		task, err := a.client.GetTask(taskID)
		if err != nil {
			return errMsg{err}
		}
		return taskDetailLoadedMsg{task}
	}
}

func (a *App) fetchAgents() tea.Cmd {
	return func() tea.Msg {
		agents, err := a.client.ListAgents()
		if err != nil {
			return errMsg{err}
		}
		return agentsLoadedMsg{agents}
	}
}

func (a *App) fetchReports() tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		reports, err := a.client.ListReports("")
		if err != nil {
			return errMsg{err}
		}
		return reportsLoadedMsg{reports}
	}
}

func (a *App) fetchReport(id string) tea.Cmd {
	return func() tea.Msg {
		content, err := a.client.GetReport(id)
		if err != nil {
			return errMsg{err}
		}
		return reportContentMsg{content}
	}
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		ok, err := a.client.CheckHealth()
		return daemonStatusMsg{online: err == nil && ok}
	}
}

func (a *App) executeInput(input string) tea.Cmd {
	if !strings.HasPrefix(input, "/") {
		// Plain text goes to the supervisor.
		a.appendChat(userStyle.Render("you:"), input)
		a.waitingOnChat = true
		a.mode = "chat"
		return func() tea.Msg {
			reply, err := a.client.Chat(input)
			if err != nil {
				return errMsg{err}
			}
			return chatRepliedMsg{reply}
		}
	}

	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/tasks":
		a.mode = "tasks"
		return a.fetchTasks()

	case "/agents":
		a.mode = "agents"
		return a.fetchAgents()

	case "/reports":
		a.mode = "reports"
		return a.fetchReports()

	case "/chat":
		a.mode = "chat"
		return nil

	case "/execute":
		return func() tea.Msg {
			n, err := a.client.ExecuteAllPending()
			if err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{fmt.Sprintf("Executed %d task(s)", n)}
		}

	case "/reset":
		return func() tea.Msg {
			if err := a.client.Reset(); err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{"Conversations and task ledger cleared"}
		}

	case "/quit":
		return tea.Quit

	default:
		return func() tea.Msg {
			return commandResultMsg{fmt.Sprintf("Unknown: %s (try /tasks, /agents, /reports, /execute, /reset)", cmd)}
		}
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type commandResultMsg struct {
	message string
}

type errMsg struct {
	err error
}

type chatRepliedMsg struct {
	reply *ChatReply
}

type tasksLoadedMsg struct {
	tasks []TaskItem
}

type taskDetailLoadedMsg struct {
	task *TaskDetail
}

type agentsLoadedMsg struct {
	agents []AgentItem
}

type reportsLoadedMsg struct {
	reports []ReportItem
}

type reportContentMsg struct {
	content string
}

type daemonStatusMsg struct {
	online bool
}

package tui

// TaskItem is a summary of a task for the list view
type TaskItem struct {
	ID        string
	TaskTitle string
	AgentID   string
	Status    string
}

// TaskDetail is the full task information
type TaskDetail struct {
	ID          string
	Title       string
	Description string
	AgentID     string
	Status      string
	Result      string
	CreatedAt   string
	UpdatedAt   string
}

// AgentItem is a summary of a registered agent
type AgentItem struct {
	ID       string
	Role     string
	Tools    []string
	Messages int
}

// ReportItem is a summary of an archived report
type ReportItem struct {
	ID             string
	Kind           string
	Title          string
	Recommendation string
	CreatedAt      string
}

// ChatReply is the supervisor's answer to one chat message
type ChatReply struct {
	Response      string
	ReportTitle   string
	Report        string
	Fallback      bool
	ExecutedTasks int
}

package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultClientTimeout is the default timeout for API requests. Chat calls
// wait on LLM providers, so it is generous.
const DefaultClientTimeout = 5 * time.Minute

// Client wraps HTTP calls to the crypto-agent API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// Chat sends one message to the supervisor and returns its reply
func (c *Client) Chat(message string) (*ChatReply, error) {
	resp, err := c.post("/chat", map[string]string{"message": message})
	if err != nil {
		return nil, err
	}

	var reply struct {
		Response string `json:"response"`
		Report   *struct {
			Title            string `json:"summary_title"`
			StructuredReport string `json:"structured_report"`
			Fallback         bool   `json:"fallback"`
		} `json:"report"`
		Executed []struct {
			TaskID string `json:"task_id"`
		} `json:"executed"`
	}
	if err := json.Unmarshal(resp, &reply); err != nil {
		return nil, err
	}

	out := &ChatReply{
		Response:      reply.Response,
		ExecutedTasks: len(reply.Executed),
	}
	if reply.Report != nil {
		out.ReportTitle = reply.Report.Title
		out.Report = reply.Report.StructuredReport
		out.Fallback = reply.Report.Fallback
	}
	return out, nil
}

// ListTasks fetches tasks from the API
func (c *Client) ListTasks(status string) ([]TaskItem, error) {
	url := c.baseURL + "/tasks"
	if status != "" {
		url += "?status=" + status
	}

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var tasks []struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		AgentID string `json:"assigned_agent_id"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return nil, err
	}

	items := make([]TaskItem, len(tasks))
	for i, t := range tasks {
		items[i] = TaskItem{
			ID:        t.ID,
			TaskTitle: t.Title,
			AgentID:   t.AgentID,
			Status:    t.Status,
		}
	}
	return items, nil
}

// GetTask fetches a single task
func (c *Client) GetTask(id string) (*TaskDetail, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/tasks/" + id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var task struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		AgentID     string `json:"assigned_agent_id"`
		Status      string `json:"status"`
		Result      string `json:"result"`
		CreatedAt   string `json:"created_at"`
		UpdatedAt   string `json:"updated_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, err
	}

	return &TaskDetail{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		AgentID:     task.AgentID,
		Status:      task.Status,
		Result:      task.Result,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}, nil
}

// ExecuteTask runs a pending task with its assigned agent
func (c *Client) ExecuteTask(id string) (*TaskDetail, error) {
	resp, err := c.post("/tasks/"+id+"/execute", nil)
	if err != nil {
		return nil, err
	}

	var task TaskDetail
	var raw struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, err
	}
	task.ID = raw.ID
	task.Status = raw.Status
	task.Result = raw.Result
	return &task, nil
}

// ExecuteAllPending runs every pending task and returns how many ran
func (c *Client) ExecuteAllPending() (int, error) {
	resp, err := c.post("/tasks/execute-all", nil)
	if err != nil {
		return 0, err
	}

	var results []struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(resp, &results); err != nil {
		return 0, err
	}
	return len(results), nil
}

// ListAgents fetches the registered agents
func (c *Client) ListAgents() ([]AgentItem, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/agents")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var agents []struct {
		ID       string   `json:"id"`
		Role     string   `json:"role"`
		Tools    []string `json:"tools"`
		Messages int      `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		return nil, err
	}

	items := make([]AgentItem, len(agents))
	for i, a := range agents {
		items[i] = AgentItem{
			ID:       a.ID,
			Role:     a.Role,
			Tools:    a.Tools,
			Messages: a.Messages,
		}
	}
	return items, nil
}

// ListReports fetches archived reports
func (c *Client) ListReports(kind string) ([]ReportItem, error) {
	url := c.baseURL + "/reports"
	if kind != "" {
		url += "?kind=" + kind
	}

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var reports []struct {
		ID             string `json:"id"`
		Kind           string `json:"kind"`
		Title          string `json:"title"`
		Recommendation string `json:"recommendation"`
		CreatedAt      string `json:"created_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reports); err != nil {
		return nil, err
	}

	items := make([]ReportItem, len(reports))
	for i, r := range reports {
		items[i] = ReportItem{
			ID:             r.ID,
			Kind:           r.Kind,
			Title:          r.Title,
			Recommendation: r.Recommendation,
			CreatedAt:      r.CreatedAt,
		}
	}
	return items, nil
}

// GetReport fetches a single archived report's content
func (c *Client) GetReport(id string) (string, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/reports/" + id)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error: %s", string(body))
	}

	var report struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return "", err
	}
	return report.Title + "\n\n" + report.Content, nil
}

// Reset clears all conversations and the task ledger
func (c *Client) Reset() error {
	_, err := c.post("/reset", nil)
	return err
}

func (c *Client) post(path string, data interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	return body, nil
}

// CheckHealth checks if the daemon is healthy
func (c *Client) CheckHealth() (bool, error) {
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(c.baseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Opens an interactive session with the supervisor agent. The supervisor
delegates work to specialist agents and merges their findings into a report.

Pseudo-commands inside the session:
  /tasks            list tasks from the current session
  /task <id>        show a single task
  /agents           list registered agents
  /research <SYM>   run the deep-research pipeline for a token
  /reset            clear all conversations and the task ledger
  exit, quit, q     leave the session`,
}

func init() {
	chatCmd.RunE = runChat
}

var (
	titleColor  = color.New(color.FgHiMagenta, color.Bold)
	agentColor  = color.New(color.FgCyan)
	errorColor  = color.New(color.FgRed)
	mutedColor  = color.New(color.FgHiBlack)
	reportColor = color.New(color.FgGreen)
)

func runChat(cmd *cobra.Command, args []string) error {
	if err := CheckHealth(); err != nil {
		return fmt.Errorf("daemon not reachable at %s (start it with 'cryptoagent daemon'): %w", apiAddr, err)
	}

	titleColor.Println("Crypto Agent")
	mutedColor.Println("Ask about tokens, markets, news, or protocols. Type /help for commands, exit to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch {
		case input == "exit" || input == "quit" || input == "q":
			mutedColor.Println("Bye.")
			return nil

		case input == "/help":
			fmt.Println(chatCmd.Long)

		case input == "/tasks":
			if err := printTasks(""); err != nil {
				errorColor.Println("Error:", err)
			}

		case strings.HasPrefix(input, "/task "):
			id := strings.TrimSpace(strings.TrimPrefix(input, "/task "))
			if err := printTask(id); err != nil {
				errorColor.Println("Error:", err)
			}

		case input == "/agents":
			if err := printAgents(); err != nil {
				errorColor.Println("Error:", err)
			}

		case strings.HasPrefix(input, "/research"):
			symbol := strings.TrimSpace(strings.TrimPrefix(input, "/research"))
			if err := runInteractiveResearch(scanner, symbol); err != nil {
				errorColor.Println("Error:", err)
			}

		case input == "/reset":
			if _, err := apiPost("/reset", nil); err != nil {
				errorColor.Println("Error:", err)
			} else {
				mutedColor.Println("Conversations and task ledger cleared.")
			}

		default:
			if err := sendChat(input); err != nil {
				errorColor.Println("Error:", err)
			}
		}
	}
	return scanner.Err()
}

type chatReply struct {
	Response string `json:"response"`
	Report   *struct {
		Title            string `json:"summary_title"`
		StructuredReport string `json:"structured_report"`
		Fallback         bool   `json:"fallback"`
	} `json:"report"`
	Executed []struct {
		TaskID string `json:"task_id"`
		Result string `json:"result"`
	} `json:"executed"`
}

func sendChat(message string) error {
	mutedColor.Println("Thinking...")

	resp, err := apiPost("/chat", map[string]string{"message": message})
	if err != nil {
		return err
	}

	var reply chatReply
	if err := json.Unmarshal(resp, &reply); err != nil {
		return err
	}

	agentColor.Print("supervisor: ")
	fmt.Println(reply.Response)

	if len(reply.Executed) > 0 {
		mutedColor.Printf("(%d task(s) executed)\n", len(reply.Executed))
	}
	if reply.Report != nil && reply.Report.StructuredReport != "" {
		fmt.Println()
		reportColor.Println("--- " + reply.Report.Title + " ---")
		fmt.Println(reply.Report.StructuredReport)
		if reply.Report.Fallback {
			mutedColor.Println("(report formatting degraded; raw results concatenated)")
		}
	}
	fmt.Println()
	return nil
}

func printTasks(status string) error {
	url := "/tasks"
	if status != "" {
		url += "?status=" + status
	}
	resp, err := apiGet(url)
	if err != nil {
		return err
	}

	var tasks []map[string]interface{}
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAGENT\tSTATUS")
	for _, t := range tasks {
		id := truncateID(asString(t["id"]))
		title := truncate(asString(t["title"]), 40)
		agent := asString(t["assigned_agent_id"])
		status := asString(t["status"])
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, title, agent, status)
	}
	return w.Flush()
}

func printTask(id string) error {
	resp, err := apiGet("/tasks/" + id)
	if err != nil {
		return err
	}

	var task map[string]interface{}
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", task["id"])
	fmt.Printf("Title:       %s\n", task["title"])
	fmt.Printf("Description: %s\n", task["description"])
	fmt.Printf("Agent:       %s\n", asString(task["assigned_agent_id"]))
	fmt.Printf("Status:      %s\n", task["status"])
	if p, ok := task["priority"].(float64); ok {
		fmt.Printf("Priority:    %.0f\n", p)
	}
	fmt.Printf("Created:     %s\n", task["created_at"])
	fmt.Printf("Updated:     %s\n", task["updated_at"])
	if result := asString(task["result"]); result != "" {
		fmt.Println("Result:")
		fmt.Println(result)
	}
	return nil
}

func printAgents() error {
	resp, err := apiGet("/agents")
	if err != nil {
		return err
	}

	var agents []struct {
		ID       string   `json:"id"`
		Role     string   `json:"role"`
		Tools    []string `json:"tools"`
		Messages int      `json:"messages"`
	}
	if err := json.Unmarshal(resp, &agents); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROLE\tTOOLS\tMESSAGES")
	for _, a := range agents {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", a.ID, truncate(a.Role, 40), len(a.Tools), a.Messages)
	}
	return w.Flush()
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

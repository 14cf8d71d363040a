package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage delegated tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskExecCmd = &cobra.Command{
	Use:   "execute [task-id]",
	Short: "Execute a pending task with its assigned agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskExec,
}

var taskExecAllCmd = &cobra.Command{
	Use:   "execute-all",
	Short: "Execute all pending tasks concurrently",
	RunE:  runTaskExecAll,
}

var taskStatus string

func init() {
	taskCmd.AddCommand(taskListCmd, taskShowCmd, taskExecCmd, taskExecAllCmd)

	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status (pending, in_progress, completed, failed)")
}

func runTaskList(cmd *cobra.Command, args []string) error {
	return printTasks(taskStatus)
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	return printTask(args[0])
}

func runTaskExec(cmd *cobra.Command, args []string) error {
	resp, err := apiPost("/tasks/"+args[0]+"/execute", nil)
	if err != nil {
		return err
	}

	var task map[string]interface{}
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("Task %s: %s\n", truncateID(asString(task["id"])), task["status"])
	if result := asString(task["result"]); result != "" {
		fmt.Println(result)
	}
	return nil
}

func runTaskExecAll(cmd *cobra.Command, args []string) error {
	resp, err := apiPost("/tasks/execute-all", nil)
	if err != nil {
		return err
	}

	var results []struct {
		TaskID string `json:"task_id"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal(resp, &results); err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No pending tasks")
		return nil
	}
	for _, r := range results {
		fmt.Printf("=== Task %s ===\n", truncateID(r.TaskID))
		fmt.Println(r.Result)
		fmt.Println()
	}
	return nil
}

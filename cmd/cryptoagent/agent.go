package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agents",
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printAgents()
	},
}

var agentAddCmd = &cobra.Command{
	Use:   "add [agent-id]",
	Short: "Register a custom agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentAdd,
}

var (
	agentPrompt string
	agentTools  string
)

func init() {
	agentCmd.AddCommand(agentListCmd, agentAddCmd)

	agentAddCmd.Flags().StringVar(&agentPrompt, "prompt", "", "System prompt for the agent (required)")
	agentAddCmd.Flags().StringVar(&agentTools, "tools", "", "Comma-separated tool names the agent may use")
	agentAddCmd.MarkFlagRequired("prompt")
}

func runAgentAdd(cmd *cobra.Command, args []string) error {
	var toolNames []string
	for _, name := range strings.Split(agentTools, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			toolNames = append(toolNames, name)
		}
	}

	body := map[string]interface{}{
		"id":            args[0],
		"system_prompt": agentPrompt,
		"tools":         toolNames,
	}
	if _, err := apiPost("/agents", body); err != nil {
		return err
	}

	fmt.Printf("Created agent: %s\n", strings.ToLower(args[0]))
	return nil
}

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var researchCmd = &cobra.Command{
	Use:   "research [symbol]",
	Short: "Run the deep-research pipeline for a token",
	Long: `Runs the multi-stage research pipeline: clarification questions, data
gathering across market, news, and on-chain sources, then an analysis report
with a BUY/HOLD/SELL recommendation. Reports are archived on the daemon.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := ""
		if len(args) > 0 {
			symbol = args[0]
		}
		scanner := bufio.NewScanner(os.Stdin)
		return runInteractiveResearch(scanner, symbol)
	},
}

type researchResult struct {
	TokenSymbol    string `json:"token_symbol"`
	TokenName      string `json:"token_name"`
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
	FullReport     string `json:"full_report"`
}

func runInteractiveResearch(scanner *bufio.Scanner, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	titleColor.Println("Deep Research")
	if symbol != "" {
		mutedColor.Printf("Token: %s\n", symbol)
	}

	resp, err := apiGet("/research/questions?symbol=" + url.QueryEscape(symbol))
	if err != nil {
		return err
	}
	var questions []string
	if err := json.Unmarshal(resp, &questions); err != nil {
		return err
	}

	// Collect answers; empty lines skip a question.
	answers := make([]string, 0, len(questions))
	for _, q := range questions {
		agentColor.Println(q)
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer != "" {
			answers = append(answers, answer)
		}
	}

	mutedColor.Println("Gathering data and analyzing, this can take a while...")

	body := map[string]interface{}{
		"token_symbol": symbol,
		"answers":      answers,
	}
	resp, err = apiPost("/research", body)
	if err != nil {
		return err
	}

	var result researchResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	fmt.Println()
	reportColor.Printf("--- Research Report: %s ---\n", result.TokenSymbol)
	fmt.Println(result.FullReport)
	fmt.Println()
	reportColor.Printf("Recommendation: %s\n", result.Recommendation)
	if result.Summary != "" {
		fmt.Println("Summary:", result.Summary)
	}
	return nil
}

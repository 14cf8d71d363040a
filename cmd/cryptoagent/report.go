package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Browse archived reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived reports",
	RunE:  runReportList,
}

var reportShowCmd = &cobra.Command{
	Use:   "show [report-id]",
	Short: "Show a single report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportShow,
}

var reportAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit trail",
	RunE:  runReportAudit,
}

var (
	reportKind  string
	reportLimit int
	auditTaskID string
)

func init() {
	reportCmd.AddCommand(reportListCmd, reportShowCmd, reportAuditCmd)

	reportListCmd.Flags().StringVar(&reportKind, "kind", "", "Filter by kind (merge, research)")
	reportListCmd.Flags().IntVar(&reportLimit, "limit", 20, "Maximum number of reports")

	reportAuditCmd.Flags().StringVar(&auditTaskID, "task", "", "Filter by task ID")
	reportAuditCmd.Flags().IntVar(&reportLimit, "limit", 50, "Maximum number of entries")
}

func runReportList(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if reportKind != "" {
		q.Set("kind", reportKind)
	}
	q.Set("limit", strconv.Itoa(reportLimit))

	resp, err := apiGet("/reports?" + q.Encode())
	if err != nil {
		return err
	}

	var reports []struct {
		ID             string `json:"id"`
		Kind           string `json:"kind"`
		Title          string `json:"title"`
		Recommendation string `json:"recommendation"`
		CreatedAt      string `json:"created_at"`
	}
	if err := json.Unmarshal(resp, &reports); err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Println("No reports found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTITLE\tREC\tCREATED")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Kind, truncate(r.Title, 40), r.Recommendation, r.CreatedAt)
	}
	return w.Flush()
}

func runReportShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/reports/" + args[0])
	if err != nil {
		return err
	}

	var report struct {
		ID             string `json:"id"`
		Kind           string `json:"kind"`
		Title          string `json:"title"`
		Content        string `json:"content"`
		Summary        string `json:"summary"`
		Recommendation string `json:"recommendation"`
		CreatedAt      string `json:"created_at"`
	}
	if err := json.Unmarshal(resp, &report); err != nil {
		return err
	}

	fmt.Printf("ID:      %s\n", report.ID)
	fmt.Printf("Kind:    %s\n", report.Kind)
	fmt.Printf("Title:   %s\n", report.Title)
	fmt.Printf("Created: %s\n", report.CreatedAt)
	if report.Recommendation != "" {
		fmt.Printf("Recommendation: %s\n", report.Recommendation)
	}
	if report.Summary != "" {
		fmt.Printf("Summary: %s\n", report.Summary)
	}
	fmt.Println()
	fmt.Println(report.Content)
	return nil
}

func runReportAudit(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if auditTaskID != "" {
		q.Set("task_id", auditTaskID)
	}
	q.Set("limit", strconv.Itoa(reportLimit))

	resp, err := apiGet("/audit?" + q.Encode())
	if err != nil {
		return err
	}

	var entries []struct {
		ID        string `json:"id"`
		Action    string `json:"action"`
		Outcome   string `json:"outcome"`
		TaskID    string `json:"task_id"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(resp, &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No audit entries found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tTASK")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp, e.Action, e.Outcome, truncateID(e.TaskID))
	}
	return w.Flush()
}

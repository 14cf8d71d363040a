package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestReportContentReturnsToChat(t *testing.T) {
	app := New("http://127.0.0.1:0")
	app.mode = "reports"
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	app.Update(reportContentMsg{content: "Analysis: BTC\n\nfull report body"})

	if app.mode != "chat" {
		t.Fatalf("mode = %q, want chat", app.mode)
	}
	if !strings.Contains(strings.Join(app.transcript, "\n"), "full report body") {
		t.Fatal("transcript should contain the report body")
	}
}

func TestChatReplyAppendsTranscript(t *testing.T) {
	app := New("http://127.0.0.1:0")
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	app.waitingOnChat = true

	app.Update(chatRepliedMsg{reply: &ChatReply{
		Response:      "BTC looks stable",
		Report:        "# Report",
		ReportTitle:   "Analysis: BTC",
		ExecutedTasks: 2,
	}})

	if app.waitingOnChat {
		t.Fatal("reply should clear the waiting flag")
	}
	joined := strings.Join(app.transcript, "\n")
	for _, want := range []string{"BTC looks stable", "# Report", "2 task(s) executed"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("transcript missing %q", want)
		}
	}
}

func TestTasksLoadedClampsSelection(t *testing.T) {
	app := New("http://127.0.0.1:0")
	app.selectedIdx = 5

	app.Update(tasksLoadedMsg{tasks: []TaskItem{
		{ID: "t1", TaskTitle: "check price", Status: "pending"},
	}})

	if app.selectedIdx != 0 {
		t.Fatalf("selectedIdx = %d, want 0", app.selectedIdx)
	}
	if len(app.tasks) != 1 {
		t.Fatalf("tasks len = %d, want 1", len(app.tasks))
	}
}

func TestSuggestionsForSlashCommands(t *testing.T) {
	s := NewSuggestions()

	s.Update("/rep")
	if !s.IsVisible() {
		t.Fatal("suggestions should be visible for a / prefix")
	}
	sel := s.Selected()
	if sel == nil || sel.Text != "/reports" {
		t.Fatalf("Selected = %+v, want /reports", sel)
	}

	s.Update("plain text")
	if s.IsVisible() {
		t.Fatal("suggestions should hide for plain text")
	}
}

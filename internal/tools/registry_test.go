package tools

import (
	"context"
	"testing"
)

func echoTool(name string) Tool {
	return &Func{
		ToolName:        name,
		ToolDescription: "echoes its args",
		Fn: func(ctx context.Context, args string) (string, error) {
			return args, nil
		},
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("get_price")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(echoTool("get_price")); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("")); err == nil {
		t.Fatal("expected empty name to be rejected")
	}
}

func TestListSortedByName(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("zeta"), echoTool("alpha"), echoTool("mid"))

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("List len = %d, want 3", len(list))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, tool := range list {
		if tool.Name() != want[i] {
			t.Errorf("List[%d] = %s, want %s", i, tool.Name(), want[i])
		}
	}
}

func TestSelectUnknownTool(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("get_news"))

	if _, err := r.Select([]string{"get_news", "ghost"}); err == nil {
		t.Fatal("expected Select with unknown name to fail")
	}

	selected, err := r.Select([]string{"get_news"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(selected) != 1 || selected[0].Name() != "get_news" {
		t.Fatalf("Select returned %v", selected)
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("get_trending_coins"))

	if _, ok := r.Get("get_trending_coins"); !ok {
		t.Fatal("Get should find registered tool")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("Get should not find unregistered tool")
	}
}

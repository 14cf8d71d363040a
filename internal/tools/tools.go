// Package tools defines the tool interface and registry consumed by agents.
package tools

import (
	"context"

	"github.com/martynov-dm/crypto-agent/internal/llm"
)

// Tool is a named, schema-described callable the LLM may request.
type Tool interface {
	// Name returns the tool identifier declared to the LLM.
	Name() string

	// Description is the natural-language summary shown to the LLM.
	Description() string

	// Parameters returns the JSON Schema for the tool's arguments.
	Parameters() string

	// Call invokes the tool with raw JSON arguments.
	Call(ctx context.Context, args string) (string, error)
}

// Func adapts a function to the Tool interface. Used for locally defined
// tools such as the supervisor's delegation tools.
type Func struct {
	ToolName        string
	ToolDescription string
	ToolParameters  string
	Fn              func(ctx context.Context, args string) (string, error)
}

func (f *Func) Name() string        { return f.ToolName }
func (f *Func) Description() string { return f.ToolDescription }
func (f *Func) Parameters() string {
	if f.ToolParameters == "" {
		return `{"type":"object","properties":{}}`
	}
	return f.ToolParameters
}
func (f *Func) Call(ctx context.Context, args string) (string, error) {
	return f.Fn(ctx, args)
}

// Descriptors converts tools to LLM tool declarations.
func Descriptors(ts []Tool) []llm.ToolDescriptor {
	out := make([]llm.ToolDescriptor, len(ts))
	for i, t := range ts {
		out[i] = llm.ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	return out
}

// Names returns the tool names in declaration order.
func Names(ts []Tool) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name()
	}
	return out
}

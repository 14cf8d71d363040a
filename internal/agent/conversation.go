package agent

import (
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/models"
)

// Conversation is the linear message history of one agent. Appending is the
// only mutation besides Clear. All methods are safe for concurrent use.
type Conversation struct {
	mu          sync.RWMutex
	messages    []models.Message
	toolCalls   []models.ToolCall
	toolResults []models.ToolResult
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) append(role models.MessageRole, content string) models.Message {
	msg := models.Message{
		ID:        "msg_" + shortuuid.New(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return msg
}

// AddUserMessage appends a user message.
func (c *Conversation) AddUserMessage(content string) models.Message {
	return c.append(models.RoleUser, content)
}

// AddAssistantMessage appends an assistant message.
func (c *Conversation) AddAssistantMessage(content string) models.Message {
	return c.append(models.RoleAssistant, content)
}

// AddSystemMessage appends a system message.
func (c *Conversation) AddSystemMessage(content string) models.Message {
	return c.append(models.RoleSystem, content)
}

// AddToolMessage appends a tool-result message to the transcript.
func (c *Conversation) AddToolMessage(content string) models.Message {
	return c.append(models.RoleTool, content)
}

// AddToolCall records a tool invocation requested by the LLM.
func (c *Conversation) AddToolCall(id, name, arguments string) models.ToolCall {
	if id == "" {
		id = "call_" + shortuuid.New()
	}
	call := models.ToolCall{
		ID:        id,
		Name:      name,
		Arguments: arguments,
		Timestamp: time.Now().UTC(),
	}
	c.mu.Lock()
	c.toolCalls = append(c.toolCalls, call)
	c.mu.Unlock()
	return call
}

// AddToolResult records the outcome of a tool invocation.
func (c *Conversation) AddToolResult(callID, name, result string, success bool, errText string, duration time.Duration) models.ToolResult {
	res := models.ToolResult{
		CallID:   callID,
		Name:     name,
		Result:   result,
		Success:  success,
		Error:    errText,
		Duration: duration,
	}
	c.mu.Lock()
	c.toolResults = append(c.toolResults, res)
	c.mu.Unlock()
	return res
}

// Messages returns a copy of the message history in chronological order.
func (c *Conversation) Messages() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Message(nil), c.messages...)
}

// ToolCalls returns a copy of the recorded tool calls.
func (c *Conversation) ToolCalls() []models.ToolCall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.ToolCall(nil), c.toolCalls...)
}

// ToolResults returns a copy of the recorded tool results.
func (c *Conversation) ToolResults() []models.ToolResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.ToolResult(nil), c.toolResults...)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Clear wipes all messages, tool calls, and tool results.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.toolCalls = nil
	c.toolResults = nil
	c.mu.Unlock()
}

// History converts the transcript into LLM messages. System messages always
// survive truncation; of the rest, only the last maxHistory are kept
// (maxHistory <= 0 keeps everything). Tool-role messages are folded into
// user-role result messages, which every OpenAI-compatible provider accepts
// regardless of tool-call linkage.
func (c *Conversation) History(maxHistory int) []llm.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var system, rest []llm.Message
	for _, m := range c.messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, llm.SystemPrompt(m.Content))
		case models.RoleTool:
			rest = append(rest, llm.UserMessage(m.Content))
		default:
			rest = append(rest, llm.Message{Role: string(m.Role), Content: m.Content})
		}
	}
	if maxHistory > 0 && len(rest) > maxHistory {
		rest = rest[len(rest)-maxHistory:]
	}
	return append(system, rest...)
}

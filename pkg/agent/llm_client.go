package agent

import (
	"context"

	"github.com/sre-incident/orchestrator/pkg/config"
)

// LLMClient is the interface for calling the chat-completion backend.
// A single Generate call is one turn of the conversation: the client sends
// the full message history plus the available tools and gets back either a
// text answer or a set of tool calls the graph should execute.
type LLMClient interface {
	Generate(ctx context.Context, input *GenerateInput) (*GenerateOutput, error)
}

// GenerateInput is one turn of a conversation sent to the LLM.
type GenerateInput struct {
	CorrelationID string
	Messages      []ConversationMessage
	Tools         []ToolDefinition // nil = no tools offered this turn
	Config        *config.LLMConfig
}

// GenerateOutput is the LLM's response for one turn.
type GenerateOutput struct {
	Content   string // empty when the turn is pure tool calls
	ToolCalls []ToolCall
	Usage     Usage
}

// Usage reports token consumption for a single Generate call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Conversation message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ConversationMessage is a single turn in the investigation transcript.
type ConversationMessage struct {
	Role       string // RoleSystem, RoleUser, RoleAssistant, RoleTool
	Content    string
	ToolCalls  []ToolCall // set on assistant messages that request tool calls
	ToolCallID string     // set on tool result messages
	ToolName   string     // set on tool result messages
}

// ToolDefinition describes a tool available to the LLM, surfaced via the
// provider's native function-calling API.
type ToolDefinition struct {
	Name             string
	Description      string
	ParametersSchema string // JSON Schema, as returned by the MCP server
}

// ToolCall represents the LLM's request to invoke one tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON-encoded arguments
}

// ToolResult is the outcome of executing a ToolCall, fed back into the
// conversation as a tool-role message.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// ToolExecutor runs tool calls the LLM emits and discovers what tools are
// available. Implemented by pkg/mcp.ToolExecutor against real MCP servers,
// and by fakes in tests. correlationID threads through to the executor's
// own start/finish logging, per spec.md §4.2's
// execute_tool_with_logging(name, args, correlation_id) contract.
type ToolExecutor interface {
	Execute(ctx context.Context, correlationID string, call ToolCall) (*ToolResult, error)
	ListTools(ctx context.Context) ([]ToolDefinition, error)
}

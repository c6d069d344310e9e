package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sre-incident/orchestrator/pkg/agent"
	"github.com/sre-incident/orchestrator/pkg/config"
)

// Compile-time check that ToolExecutor implements agent.ToolExecutor.
var _ agent.ToolExecutor = (*ToolExecutor)(nil)

// ToolExecutor implements agent.ToolExecutor backed by real MCP servers.
// This is the runtime tool registry: it discovers tools across every
// configured server, flattens them into "server.tool" names, and executes
// calls the agent graph emits.
type ToolExecutor struct {
	client   *Client
	registry *config.MCPServerRegistry

	// Resolved list of server IDs this executor can access.
	serverIDs []string

	// Optional tool filter per server. nil means all tools are available.
	toolFilter map[string][]string
}

// NewToolExecutor creates a new executor for the given servers.
func NewToolExecutor(
	client *Client,
	registry *config.MCPServerRegistry,
	serverIDs []string,
	toolFilter map[string][]string,
) *ToolExecutor {
	return &ToolExecutor{
		client:     client,
		registry:   registry,
		serverIDs:  serverIDs,
		toolFilter: toolFilter,
	}
}

// Execute runs a tool call via MCP, logging its start and finish per
// spec.md §4.2 item 6 (execute_tool_with_logging): a start line carrying
// correlation_id, tool and args, and a finish line carrying duration and
// result length (or the error).
//
// Flow:
//  1. Normalize tool name (server__tool → server.tool)
//  2. Split and validate server.tool name
//  3. Check server is in the allowed serverIDs
//  4. Check tool is in the allowed tools (if filter set)
//  5. Parse Arguments string into map[string]any
//  6. Call Client.CallTool
//  7. Convert MCP result to ToolResult
//
// Errors at any of these steps become ToolResult{IsError:true}, not a Go
// error — the agent graph treats tool failures as conversation content, so
// the LLM can see and react to them instead of the run aborting.
func (e *ToolExecutor) Execute(ctx context.Context, correlationID string, call agent.ToolCall) (*agent.ToolResult, error) {
	logger := slog.Default().With("correlation_id", correlationID, "tool", call.Name)
	start := time.Now()
	logger.Info("executing tool", "args", call.Arguments)

	name := NormalizeToolName(call.Name)

	serverID, toolName, err := e.resolveToolCall(name)
	if err != nil {
		logger.Warn("tool execution failed", "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return &agent.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("Error executing tool: %s", err),
			IsError: true,
		}, nil
	}

	params, err := ParseActionInput(call.Arguments)
	if err != nil {
		logger.Warn("tool execution failed", "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return &agent.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("Error executing tool: %s", err),
			IsError: true,
		}, nil
	}

	result, err := e.client.CallTool(ctx, correlationID, serverID, toolName, params)
	if err != nil {
		logger.Warn("tool execution failed", "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return &agent.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("Error executing tool: %s", err),
			IsError: true,
		}, nil
	}

	content := extractTextContent(result)
	logger.Info("tool execution finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"result_length", len(content), "is_error", result.IsError)

	return &agent.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: content,
		IsError: result.IsError,
	}, nil
}

// ListTools returns all available tools from configured MCP servers, with
// server-prefixed names (e.g. "kubernetes-server.get_pods").
func (e *ToolExecutor) ListTools(ctx context.Context) ([]agent.ToolDefinition, error) {
	var allTools []agent.ToolDefinition

	for _, serverID := range e.serverIDs {
		tools, err := e.client.ListTools(ctx, serverID)
		if err != nil {
			slog.Warn("failed to list tools from MCP server",
				"server", serverID, "error", err)
			continue
		}

		for _, tool := range tools {
			if filter, ok := e.toolFilter[serverID]; ok && len(filter) > 0 {
				if !slices.Contains(filter, tool.Name) {
					continue
				}
			}

			allTools = append(allTools, agent.ToolDefinition{
				Name:             fmt.Sprintf("%s.%s", serverID, tool.Name),
				Description:      tool.Description,
				ParametersSchema: marshalSchema(tool.InputSchema),
			})
		}
	}

	if len(allTools) == 0 {
		return nil, nil
	}
	return allTools, nil
}

// ValidateUniqueToolNames discovers tools across every configured server and
// fails if two servers expose the same normalized "server.tool" name. Since
// names are already namespaced by server, a collision can only mean two
// servers were configured under the same ID — this is primarily a defense
// against misconfiguration.
func (e *ToolExecutor) ValidateUniqueToolNames(ctx context.Context) error {
	tools, err := e.ListTools(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if _, exists := seen[t.Name]; exists {
			return fmt.Errorf("%w: %s", config.ErrDuplicateToolName, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// Close releases resources (MCP transports, subprocesses).
func (e *ToolExecutor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// resolveToolCall validates a tool call against the executor's configuration.
func (e *ToolExecutor) resolveToolCall(name string) (serverID, toolName string, err error) {
	serverID, toolName, err = SplitToolName(name)
	if err != nil {
		return "", "", err
	}

	if !slices.Contains(e.serverIDs, serverID) {
		return "", "", fmt.Errorf(
			"MCP server %q is not available for this execution. available servers: %s",
			serverID, strings.Join(e.serverIDs, ", "))
	}

	if filter, ok := e.toolFilter[serverID]; ok && len(filter) > 0 {
		if !slices.Contains(filter, toolName) {
			return "", "", fmt.Errorf(
				"tool %q is not available on server %q. available tools: %s",
				toolName, serverID, strings.Join(filter, ", "))
		}
	}

	return serverID, toolName, nil
}

// extractTextContent extracts text from an MCP CallToolResult, concatenating
// every TextContent part. Non-text content (images, embedded resources) is
// logged at debug level and skipped.
func extractTextContent(result *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		} else {
			slog.Debug("MCP tool returned non-text content, skipping",
				"content_type", fmt.Sprintf("%T", c))
		}
	}
	return strings.Join(parts, "\n")
}

// marshalSchema serializes a tool's InputSchema to a JSON string.
func marshalSchema(schema any) string {
	if schema == nil {
		return ""
	}
	data, err := json.Marshal(schema)
	if err != nil {
		slog.Debug("failed to marshal tool input schema", "error", err)
		return ""
	}
	return string(data)
}

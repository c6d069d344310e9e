package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sre-incident/orchestrator/pkg/apperrors"
	"github.com/sre-incident/orchestrator/pkg/config"
	"github.com/sre-incident/orchestrator/pkg/retry"
)

// Graph runs the agent ⇄ tools loop: send the conversation to the LLM, and
// if it comes back with tool calls, execute them and feed the results back
// in, until the LLM returns a final answer or the iteration cap is hit.
type Graph struct {
	LLM           LLMClient
	Tools         ToolExecutor
	LLMConfig     *config.LLMConfig
	MaxIterations int
}

// NewGraph creates a Graph. maxIterations must be >= 1; callers resolve it
// via config.Defaults.ResolveMaxIterations before constructing the graph.
func NewGraph(llm LLMClient, tools ToolExecutor, llmConfig *config.LLMConfig, maxIterations int) *Graph {
	return &Graph{
		LLM:           llm,
		Tools:         tools,
		LLMConfig:     llmConfig,
		MaxIterations: maxIterations,
	}
}

// State is the mutable conversation state threaded through each iteration.
type State struct {
	Messages []ConversationMessage
	Usage    Usage
}

// Run executes the agent loop starting from initial, returning the final
// state once the LLM responds with no tool calls. Returns
// apperrors.ErrMaxIterationsExceeded if the cap is reached first — the
// caller (the investigation runner) decides whether to preserve the partial
// transcript accumulated so far.
func (g *Graph) Run(ctx context.Context, correlationID string, initial State) (*State, error) {
	tools, err := g.Tools.ListTools(ctx)
	if err != nil {
		return &initial, fmt.Errorf("list tools: %w", err)
	}

	state := initial
	logger := slog.Default().With("correlation_id", correlationID)

	for iteration := 1; iteration <= g.MaxIterations; iteration++ {
		logger.Info("agent graph iteration", "iteration", iteration, "max_iterations", g.MaxIterations)

		// The LLM call for this single turn gets its own retry budget
		// (default policy) so a transient hiccup on one turn doesn't force
		// the caller to redrive the whole graph and re-issue every
		// already-successful tool call. Only once this budget is
		// exhausted does the node give up, per spec.md §4.3: the agent
		// node catches the exhausted-retry failure, appends no message,
		// and the loop ends with investigation_status effectively failed.
		genFn := func(ctx context.Context) (*GenerateOutput, error) {
			return g.LLM.Generate(ctx, &GenerateInput{
				CorrelationID: correlationID,
				Messages:      state.Messages,
				Tools:         tools,
				Config:        g.LLMConfig,
			})
		}
		output, err := retry.Run(ctx, retry.DefaultPolicy(), correlationID, "agent_llm_generate", genFn)
		if err != nil {
			logger.Error("agent node exhausted retry budget, failing investigation",
				"iteration", iteration, "error", err)
			return &state, fmt.Errorf("llm generate: %w", err)
		}

		state.Usage.PromptTokens += output.Usage.PromptTokens
		state.Usage.CompletionTokens += output.Usage.CompletionTokens
		state.Usage.TotalTokens += output.Usage.TotalTokens

		assistantMsg := ConversationMessage{
			Role:      RoleAssistant,
			Content:   output.Content,
			ToolCalls: output.ToolCalls,
		}
		state.Messages = append(state.Messages, assistantMsg)

		if !shouldContinue(output) {
			return &state, nil
		}

		results := g.dispatchToolCalls(ctx, correlationID, output.ToolCalls)
		for _, r := range results {
			state.Messages = append(state.Messages, ConversationMessage{
				Role:       RoleTool,
				Content:    r.Content,
				ToolCallID: r.CallID,
				ToolName:   r.Name,
			})
		}
	}

	logger.Warn("agent graph exceeded max iterations", "max_iterations", g.MaxIterations)
	return &state, fmt.Errorf("%w: after %d iterations", apperrors.ErrMaxIterationsExceeded, g.MaxIterations)
}

// shouldContinue decides whether the loop should execute tool calls and run
// another iteration, or stop because the LLM gave a final answer.
func shouldContinue(output *GenerateOutput) bool {
	return len(output.ToolCalls) > 0
}

// dispatchToolCalls executes every tool call concurrently and returns the
// results in the same order the calls were requested, so the resulting
// tool-role messages line up with the assistant's tool_call_id references
// regardless of which call finishes first.
func (g *Graph) dispatchToolCalls(ctx context.Context, correlationID string, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			result, err := g.Tools.Execute(ctx, correlationID, call)
			if err != nil {
				slog.Default().Error("tool execution failed",
					"correlation_id", correlationID, "tool", call.Name, "error", err)
				results[i] = ToolResult{
					CallID:  call.ID,
					Name:    call.Name,
					Content: fmt.Sprintf("Error executing tool: %s", err),
					IsError: true,
				}
				return
			}
			results[i] = *result
		}(i, call)
	}
	wg.Wait()

	return results
}

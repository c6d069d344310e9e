// Package investigation implements the Investigation Runner: drives one
// Agent Graph execution to completion, extracts the structured verdict from
// its final message, and reports the outcome via an update callback.
// Grounded directly in original_source's investigation_agent.py
// extract_root_cause/extract_confidence/extract_evidence/
// extract_recommendations.
package investigation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sre-incident/orchestrator/pkg/agent"
	"github.com/sre-incident/orchestrator/pkg/apperrors"
	"github.com/sre-incident/orchestrator/pkg/incident"
	"github.com/sre-incident/orchestrator/pkg/retry"
)

// UpdateFunc is called as the investigation progresses: Investigate calls it
// once, with status "investigating", before the graph runs. It has no error
// return.
type UpdateFunc func(incidentID string, status string, details map[string]any)

// Result is the outcome of one investigation run.
type Result struct {
	Status          incident.Status
	RootCause       string
	Confidence      incident.ConfidenceLevel
	Evidence        incident.Evidence
	ToolCalls       []incident.ToolCallRecord
	CorrelationID   string
	DurationSeconds float64
	ErrorMessage    string
}

const systemPrompt = `You are an SRE investigator. Use the available tools to gather evidence ` +
	`about the reported incident, cite the evidence you collect, and finish with a final ` +
	`report containing exactly these four labeled sections:

ROOT CAUSE: <your determined root cause>
CONFIDENCE: <high|medium|low>
EVIDENCE: <evidence supporting your conclusion>
RECOMMENDATIONS: <actionable next steps, one per line>`

// Investigate runs one investigation to completion.
func Investigate(
	ctx context.Context,
	graph *agent.Graph,
	incidentID, description string,
	onUpdate UpdateFunc,
	correlationID string,
) (*Result, error) {
	start := time.Now()
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	if onUpdate != nil {
		onUpdate(incidentID, "investigating", map[string]any{"correlation_id": correlationID})
	}

	initial := agent.State{
		Messages: []agent.ConversationMessage{
			{Role: agent.RoleSystem, Content: systemPrompt},
			{Role: agent.RoleUser, Content: description},
		},
	}

	// retry.Run discards the value on a failed attempt, but the graph
	// always returns its accumulated state alongside an error (e.g. on
	// hitting ErrMaxIterationsExceeded) — capture it here so partial
	// results survive even when the retry budget is exhausted.
	//
	// This outer retry exists only to cover transport-level hiccups outside
	// the node retries (e.g. Graph.Run failing before any iteration runs,
	// such as a ListTools error). The agent node (graph.go) already retries
	// its own LLM call with its own budget, so a retry attempt here resumes
	// from wherever the previous attempt left off instead of restarting
	// from the original initial state — otherwise every already-succeeded
	// tool call in the transcript would be re-issued against the live MCP
	// servers on every outer retry.
	var lastState *agent.State
	attempt := initial
	runFn := func(ctx context.Context) (*agent.State, error) {
		state, err := graph.Run(ctx, correlationID, attempt)
		lastState = state
		if state != nil {
			attempt = *state
		}
		return state, err
	}

	finalState, err := retry.Run(ctx, retry.DefaultPolicy(), correlationID, "agent_graph_run", runFn)
	duration := time.Since(start).Seconds()

	if err != nil {
		return partialResult(lastState, correlationID, duration, err.Error()), nil
	}

	finalMsg, ok := lastNonEmptyMessage(finalState.Messages)
	if !ok {
		return partialResult(finalState, correlationID, duration,
			apperrors.ErrAgentEmpty.Error()), nil
	}

	toolCalls, evidence := walkMessages(finalState.Messages)
	evidence.Reasoning = finalMsg
	evidence.Recommendations = extractRecommendations(finalMsg)

	return &Result{
		Status:          incident.StatusCompleted,
		RootCause:       extractRootCause(finalMsg),
		Confidence:      extractConfidence(finalMsg),
		Evidence:        evidence,
		ToolCalls:       toolCalls,
		CorrelationID:   correlationID,
		DurationSeconds: duration,
	}, nil
}

// partialResult builds a failed Result preserving whatever evidence and
// root cause could be salvaged from the (possibly nil) state accumulated
// before the failure, per spec.md §4.4 step 8 and §8 testable property 3.
func partialResult(state *agent.State, correlationID string, duration float64, errMsg string) *Result {
	result := &Result{
		Status:          incident.StatusFailed,
		CorrelationID:   correlationID,
		DurationSeconds: duration,
		ErrorMessage:    errMsg,
	}
	if state == nil {
		return result
	}

	toolCalls, evidence := walkMessages(state.Messages)
	result.ToolCalls = toolCalls
	result.Evidence = evidence

	if partial, ok := lastNonEmptyMessage(state.Messages); ok {
		result.Evidence.PartialReasoning = partial
		result.Evidence.PartialRootCause = extractRootCause(partial)
	}
	return result
}

// lastNonEmptyMessage returns the content of the last assistant message with
// non-empty content. System and user messages are never taken as the
// agent's answer, so a run whose assistant turns carry no text reports
// ErrAgentEmpty.
func lastNonEmptyMessage(messages []agent.ConversationMessage) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == agent.RoleAssistant && messages[i].Content != "" {
			return messages[i].Content, true
		}
	}
	return "", false
}

// walkMessages reproduces extract_evidence: for every assistant tool call,
// record a ToolCallRecord and pair it with its own tool-result message (by
// ToolCallID) as evidence; additionally scan every assistant message for an
// explicit EVIDENCE: section.
func walkMessages(messages []agent.ConversationMessage) ([]incident.ToolCallRecord, incident.Evidence) {
	var toolCalls []incident.ToolCallRecord
	var collected []incident.EvidenceRecord

	now := time.Now()

	for i, msg := range messages {
		if msg.Role != agent.RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}
		for _, tc := range msg.ToolCalls {
			args := decodeArgs(tc.Arguments)
			toolCalls = append(toolCalls, incident.ToolCallRecord{
				Tool:      tc.Name,
				Args:      args,
				Timestamp: now,
			})

			// Match by ToolCallID, not position: a single assistant turn may
			// request several tool calls, each answered by its own following
			// Tool message, so the first non-empty message after i is not
			// necessarily this tool call's result.
			content := "No response"
			for _, next := range messages[i+1:] {
				if next.Role == agent.RoleTool && next.ToolCallID == tc.ID && next.Content != "" {
					content = next.Content
					break
				}
			}
			collected = append(collected, incident.EvidenceRecord{
				Source:    tc.Name,
				Args:      args,
				Content:   content,
				Timestamp: now,
			})
		}
	}

	for _, msg := range messages {
		if msg.Role != agent.RoleAssistant || msg.Content == "" {
			continue
		}
		if text, ok := extractEvidenceFromContent(msg.Content); ok {
			collected = append(collected, incident.EvidenceRecord{
				Source:    "agent_analysis",
				Content:   text,
				Timestamp: now,
			})
		}
	}

	return toolCalls, incident.Evidence{ToolCalls: toolCalls, CollectedEvidence: collected}
}

func decodeArgs(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"raw": raw}
	}
	return args
}

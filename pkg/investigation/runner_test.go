package investigation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sre-incident/orchestrator/pkg/agent"
	"github.com/sre-incident/orchestrator/pkg/apperrors"
	"github.com/sre-incident/orchestrator/pkg/config"
	"github.com/sre-incident/orchestrator/pkg/incident"
)

// scriptedLLM replays a fixed sequence of GenerateOutputs, one per call,
// so tests can drive the agent graph through a known number of iterations
// without a real model.
type scriptedLLM struct {
	outputs []*agent.GenerateOutput
	calls   int
}

func (s *scriptedLLM) Generate(ctx context.Context, input *agent.GenerateInput) (*agent.GenerateOutput, error) {
	out := s.outputs[s.calls]
	s.calls++
	return out, nil
}

// fakeTools answers ListTools with a fixed set and Execute with a canned
// response regardless of which tool was requested.
type fakeTools struct {
	defs []agent.ToolDefinition
}

func (f *fakeTools) ListTools(ctx context.Context) ([]agent.ToolDefinition, error) {
	return f.defs, nil
}

func (f *fakeTools) Execute(ctx context.Context, correlationID string, call agent.ToolCall) (*agent.ToolResult, error) {
	return &agent.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: `{"pods": ["api-7f9", "api-2c1"], "status": "CrashLoopBackOff"}`,
	}, nil
}

func newTestGraph(llm agent.LLMClient, tools agent.ToolExecutor, maxIterations int) *agent.Graph {
	return agent.NewGraph(llm, tools, &config.LLMConfig{Model: "gpt-4", MaxTokens: 500}, maxIterations)
}

func TestInvestigateHappyPath(t *testing.T) {
	llm := &scriptedLLM{
		outputs: []*agent.GenerateOutput{
			{
				ToolCalls: []agent.ToolCall{{ID: "call-1", Name: "k8s.get_pods", Arguments: `{"namespace":"prod"}`}},
			},
			{
				Content: "ROOT CAUSE: crash looping pods due to failed readiness probe\n" +
					"CONFIDENCE: high\n" +
					"EVIDENCE: pods api-7f9 and api-2c1 are CrashLoopBackOff\n" +
					"RECOMMENDATIONS:\n- Fix the readiness probe endpoint\n- Roll back the last deploy\n",
			},
		},
	}
	tools := &fakeTools{defs: []agent.ToolDefinition{{Name: "k8s.get_pods"}}}
	graph := newTestGraph(llm, tools, 5)

	result, err := Investigate(context.Background(), graph, "inc-1", "pods are crashing", nil, "corr-1")

	require.NoError(t, err)
	assert.Equal(t, incident.StatusCompleted, result.Status)
	assert.Equal(t, incident.ConfidenceHigh, result.Confidence)
	assert.Contains(t, result.RootCause, "readiness probe")
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "k8s.get_pods", result.ToolCalls[0].Tool)
	assert.Contains(t, result.Evidence.Recommendations, "- Fix the readiness probe endpoint")
	assert.Equal(t, "corr-1", result.CorrelationID)
}

func TestInvestigatePreservesPartialResultOnMaxIterations(t *testing.T) {
	// Every call requests another tool call, so the graph always exceeds
	// its iteration cap; ErrMaxIterationsExceeded is not retryable under
	// retry.DefaultPolicy, so the outer retry gives up after one attempt.
	outputs := make([]*agent.GenerateOutput, 0, 30)
	for i := 0; i < 30; i++ {
		outputs = append(outputs, &agent.GenerateOutput{
			Content:   "partial analysis: checking node pressure",
			ToolCalls: []agent.ToolCall{{ID: "call-x", Name: "k8s.get_pods"}},
		})
	}
	llm := &scriptedLLM{outputs: outputs}
	tools := &fakeTools{defs: []agent.ToolDefinition{{Name: "k8s.get_pods"}}}
	graph := newTestGraph(llm, tools, 2)

	result, err := Investigate(context.Background(), graph, "inc-2", "node pressure alert", nil, "")

	require.NoError(t, err, "Investigate itself must not return an error on exhausted retries")
	assert.Equal(t, incident.StatusFailed, result.Status)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.NotEmpty(t, result.ToolCalls, "partial tool-call history must survive a failed run")
}

// onceThenFailLLM succeeds on its very first call (emitting a tool call)
// and fails every call after that, simulating a persistent LLM outage that
// strikes mid-investigation, after some evidence has already been gathered.
type onceThenFailLLM struct {
	calls int
}

func (o *onceThenFailLLM) Generate(ctx context.Context, input *agent.GenerateInput) (*agent.GenerateOutput, error) {
	o.calls++
	if o.calls == 1 {
		return &agent.GenerateOutput{
			ToolCalls: []agent.ToolCall{{ID: "call-1", Name: "k8s.get_pods"}},
		}, nil
	}
	return nil, apperrors.New(apperrors.KindTransient, "llm unreachable", nil)
}

// countingTools records how many times Execute actually ran a tool call.
type countingTools struct {
	defs      []agent.ToolDefinition
	execCount int
}

func (c *countingTools) ListTools(ctx context.Context) ([]agent.ToolDefinition, error) {
	return c.defs, nil
}

func (c *countingTools) Execute(ctx context.Context, correlationID string, call agent.ToolCall) (*agent.ToolResult, error) {
	c.execCount++
	return &agent.ToolResult{CallID: call.ID, Name: call.Name, Content: "ok"}, nil
}

func TestInvestigateOuterRetryResumesInsteadOfRedrivingSuccessfulToolCalls(t *testing.T) {
	llm := &onceThenFailLLM{}
	tools := &countingTools{defs: []agent.ToolDefinition{{Name: "k8s.get_pods"}}}
	graph := newTestGraph(llm, tools, 5)

	result, err := Investigate(context.Background(), graph, "inc-5", "pods are crashing", nil, "corr-5")

	require.NoError(t, err, "Investigate itself must not return an error on exhausted retries")
	assert.Equal(t, incident.StatusFailed, result.Status)
	assert.Equal(t, 1, tools.execCount,
		"the tool call that already succeeded before the LLM outage must not be re-executed when the outer retry resumes")
}

func TestWalkMessagesPairsEachToolCallWithItsOwnResult(t *testing.T) {
	messages := []agent.ConversationMessage{
		{Role: agent.RoleUser, Content: "investigate"},
		{
			Role: agent.RoleAssistant,
			ToolCalls: []agent.ToolCall{
				{ID: "call-1", Name: "k8s.get_pods"},
				{ID: "call-2", Name: "k8s.get_events"},
			},
		},
		{Role: agent.RoleTool, ToolCallID: "call-1", Content: "pods: api-7f9 CrashLoopBackOff"},
		{Role: agent.RoleTool, ToolCallID: "call-2", Content: "events: readiness probe failed"},
	}

	_, evidence := walkMessages(messages)

	require.Len(t, evidence.CollectedEvidence, 2)
	byTool := map[string]string{}
	for _, e := range evidence.CollectedEvidence {
		byTool[e.Source] = e.Content
	}
	assert.Equal(t, "pods: api-7f9 CrashLoopBackOff", byTool["k8s.get_pods"])
	assert.Equal(t, "events: readiness probe failed", byTool["k8s.get_events"])
}

func TestInvestigateEmptyFinalMessage(t *testing.T) {
	llm := &scriptedLLM{
		outputs: []*agent.GenerateOutput{{}},
	}
	tools := &fakeTools{}
	graph := newTestGraph(llm, tools, 5)

	result, err := Investigate(context.Background(), graph, "inc-3", "silent failure", nil, "")

	require.NoError(t, err)
	assert.Equal(t, incident.StatusFailed, result.Status)
}

func TestInvestigateGeneratesCorrelationIDWhenEmpty(t *testing.T) {
	llm := &scriptedLLM{outputs: []*agent.GenerateOutput{{Content: "ROOT CAUSE: x\nCONFIDENCE: low"}}}
	tools := &fakeTools{}
	graph := newTestGraph(llm, tools, 5)

	result, err := Investigate(context.Background(), graph, "inc-4", "desc", nil, "")

	require.NoError(t, err)
	assert.NotEmpty(t, result.CorrelationID)
}

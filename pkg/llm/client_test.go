package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sre-incident/orchestrator/pkg/agent"
	"github.com/sre-incident/orchestrator/pkg/apperrors"
	"github.com/sre-incident/orchestrator/pkg/config"
)

type fakeChatClient struct {
	resp openai.ChatCompletionResponse
	err  error
	req  openai.ChatCompletionRequest
}

func (f *fakeChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestGenerateTranslatesResponse(t *testing.T) {
	fake := &fakeChatClient{
		resp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Content: "ROOT CAUSE: disk pressure",
					ToolCalls: []openai.ToolCall{{
						ID:       "call-1",
						Function: openai.FunctionCall{Name: "k8s__get_pods", Arguments: `{"ns":"prod"}`},
					}},
				},
			}},
			Usage: openai.Usage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16},
		},
	}
	client := &Client{chat: fake}

	out, err := client.Generate(context.Background(), &agent.GenerateInput{
		Messages: []agent.ConversationMessage{{Role: agent.RoleUser, Content: "investigate"}},
		Config:   &config.LLMConfig{Model: "gpt-4", MaxTokens: 500, Temperature: 0.2},
	})

	require.NoError(t, err)
	assert.Equal(t, "ROOT CAUSE: disk pressure", out.Content)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "k8s__get_pods", out.ToolCalls[0].Name)
	assert.Equal(t, 16, out.Usage.TotalTokens)
	assert.Equal(t, "gpt-4", fake.req.Model)
}

func TestGenerateRejectsEmptyMessages(t *testing.T) {
	client := &Client{chat: &fakeChatClient{}}

	_, err := client.Generate(context.Background(), &agent.GenerateInput{
		Messages: nil,
		Config:   &config.LLMConfig{Model: "gpt-4"},
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidationError, apperrors.ClassifyKind(err))
}

func TestGenerateWrapsTransportErrorsAsTransient(t *testing.T) {
	fake := &fakeChatClient{err: errors.New("connection reset")}
	client := &Client{chat: fake}

	_, err := client.Generate(context.Background(), &agent.GenerateInput{
		Messages: []agent.ConversationMessage{{Role: agent.RoleUser, Content: "hi"}},
		Config:   &config.LLMConfig{Model: "gpt-4"},
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransient, apperrors.ClassifyKind(err))
}

func TestSanitizeToolNameReplacesFirstDotWithDoubleUnderscore(t *testing.T) {
	assert.Equal(t, "kubernetes__get_pods", sanitizeToolName("kubernetes.get_pods"))
	assert.Equal(t, "no_dot_here", sanitizeToolName("no_dot_here"))
}

func TestEncodeToolsDefaultsEmptySchema(t *testing.T) {
	tools, err := encodeTools([]agent.ToolDefinition{{Name: "a.tool", Description: "does a thing"}})

	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "a__tool", tools[0].Function.Name)

	raw, ok := tools[0].Function.Parameters.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(raw))
}

func TestEncodeToolsNilWhenNoDefinitions(t *testing.T) {
	tools, err := encodeTools(nil)
	require.NoError(t, err)
	assert.Nil(t, tools)
}

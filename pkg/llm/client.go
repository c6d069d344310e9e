// Package llm implements agent.LLMClient against the OpenAI-compatible Chat
// Completions API, so the investigation agent can run against any backend
// that speaks the OpenAI wire format (OpenAI itself, or a local/self-hosted
// gateway reachable via LLMConfig.BaseURL).
package llm

import (
	"context"
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sre-incident/orchestrator/pkg/agent"
	"github.com/sre-incident/orchestrator/pkg/apperrors"
	"github.com/sre-incident/orchestrator/pkg/config"
)

// chatClient captures the subset of the go-openai client this adapter uses,
// so tests can substitute a fake without hitting the network.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client implements agent.LLMClient via the OpenAI Chat Completions API.
type Client struct {
	chat chatClient
}

// New builds a Client from an LLMConfig, pointing the underlying go-openai
// client at BaseURL so it can be repointed at a compatible gateway.
func New(cfg *config.LLMConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{chat: openai.NewClientWithConfig(clientCfg)}
}

// Generate sends one conversation turn to the chat completion endpoint and
// translates the response into agent.GenerateOutput.
func (c *Client) Generate(ctx context.Context, input *agent.GenerateInput) (*agent.GenerateOutput, error) {
	if len(input.Messages) == 0 {
		return nil, apperrors.ValidationError("generate requires at least one message", nil)
	}

	messages := make([]openai.ChatCompletionMessage, len(input.Messages))
	for i, m := range input.Messages {
		messages[i] = toOpenAIMessage(m)
	}

	tools, err := encodeTools(input.Tools)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:       input.Config.Model,
		Messages:    messages,
		Temperature: input.Config.Temperature,
		MaxTokens:   input.Config.MaxTokens,
		Tools:       tools,
	}

	resp, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, apperrors.New(apperrors.KindTransient, "openai chat completion", err)
	}

	return translateResponse(resp), nil
}

func toOpenAIMessage(m agent.ConversationMessage) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:       m.Role,
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.ToolName,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   tc.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return msg
}

func encodeTools(defs []agent.ToolDefinition) ([]openai.Tool, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	tools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		params := json.RawMessage(def.ParametersSchema)
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        sanitizeToolName(def.Name),
				Description: def.Description,
				Parameters:  params,
			},
		})
	}
	return tools, nil
}

// sanitizeToolName rewrites "server.tool" into "server__tool": OpenAI
// function names must match ^[a-zA-Z0-9_-]+$, so the dot-separated names
// pkg/mcp uses for display can't be sent as-is. pkg/mcp.NormalizeToolName
// reverses the double underscore back to a dot on the way in.
func sanitizeToolName(name string) string {
	return strings.Replace(name, ".", "__", 1)
}

func translateResponse(resp openai.ChatCompletionResponse) *agent.GenerateOutput {
	out := &agent.GenerateOutput{
		Usage: agent.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0].Message
	out.Content = choice.Content
	for _, call := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out
}

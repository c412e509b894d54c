package model

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/opsdesk/fncall/internal/conversation"
	"github.com/opsdesk/fncall/internal/dispatch"
	"github.com/opsdesk/fncall/internal/tools"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to the OpenAI chat completions API or any endpoint
// compatible with it, DashScope included.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAIClient(cfg Config) *OpenAIClient {
	cfg = cfg.withDefaults()
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAIClient{
		client:    openai.NewClientWithConfig(oc),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Send implements dispatch.ModelClient.
func (c *OpenAIClient) Send(ctx context.Context, turns []conversation.Turn, specs []tools.Spec) (dispatch.Reply, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  openAIMessages(turns),
		MaxTokens: c.maxTokens,
	}
	if len(specs) > 0 {
		req.Tools = openAITools(specs)
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in completion response")
	}
	return openAIReply(resp.Choices[0].Message), nil
}

func openAITools(specs []tools.Spec) []openai.Tool {
	out := make([]openai.Tool, len(specs))
	for i, s := range specs {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.JSONSchema(),
			},
		}
	}
	return out
}

func openAIMessages(turns []conversation.Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		msg := openai.ChatCompletionMessage{Content: t.Content}
		switch t.Role {
		case conversation.RoleSystem:
			msg.Role = openai.ChatMessageRoleSystem
		case conversation.RoleUser:
			msg.Role = openai.ChatMessageRoleUser
		case conversation.RoleAssistant:
			msg.Role = openai.ChatMessageRoleAssistant
			for _, call := range t.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: call.RawArguments,
					},
				})
			}
		case conversation.RoleTool:
			msg.Role = openai.ChatMessageRoleTool
			msg.ToolCallID = t.ToolCallID
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func openAIReply(msg openai.ChatCompletionMessage) dispatch.Reply {
	var calls []conversation.ToolCallRequest
	for _, tc := range msg.ToolCalls {
		calls = append(calls, conversation.ToolCallRequest{
			ID:           callID(tc.ID),
			Name:         tc.Function.Name,
			RawArguments: tc.Function.Arguments,
		})
	}
	// Older compatible endpoints still answer with a single function_call.
	if len(calls) == 0 && msg.FunctionCall != nil && msg.FunctionCall.Name != "" {
		calls = append(calls, conversation.ToolCallRequest{
			ID:           callID(""),
			Name:         msg.FunctionCall.Name,
			RawArguments: msg.FunctionCall.Arguments,
		})
	}
	if len(calls) == 0 {
		return dispatch.FinalAnswer{Text: msg.Content}
	}
	return dispatch.ToolCallsRequested{Text: msg.Content, Calls: calls}
}

func callID(id string) string {
	if id != "" {
		return id
	}
	return "call_" + uuid.NewString()
}

package model

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/opsdesk/fncall/internal/conversation"
	"github.com/opsdesk/fncall/internal/dispatch"
	"github.com/opsdesk/fncall/internal/tools"
	"github.com/rs/zerolog/log"
)

// AnthropicClient talks to the Anthropic Messages API or a compatible
// provider.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

func NewAnthropicClient(cfg Config) *AnthropicClient {
	cfg = cfg.withDefaults()
	// Retries are handled by Retrying so the policy is the same for every
	// provider.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Send implements dispatch.ModelClient.
func (a *AnthropicClient) Send(ctx context.Context, turns []conversation.Turn, specs []tools.Spec) (dispatch.Reply, error) {
	system, messages := anthropicMessages(turns)
	params := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(a.model)),
		MaxTokens: anthropic.F(int64(a.maxTokens)),
		Messages:  anthropic.F(messages),
	}
	if len(specs) > 0 {
		params.Tools = anthropic.F(anthropicTools(specs))
	}
	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(system),
		})
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	var calls []conversation.ToolCallRequest
	for _, block := range resp.Content {
		switch b := block.AsUnion().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			calls = append(calls, conversation.ToolCallRequest{
				ID:           callID(b.ID),
				Name:         b.Name,
				RawArguments: string(b.Input),
			})
		}
	}

	log.Debug().
		Str("stop_reason", string(resp.StopReason)).
		Int("tool_calls", len(calls)).
		Msg("anthropic reply")

	// A tool_use block wins over whatever stop reason came with it.
	if len(calls) > 0 {
		return dispatch.ToolCallsRequested{Text: text.String(), Calls: calls}, nil
	}
	return dispatch.FinalAnswer{Text: text.String()}, nil
}

func anthropicTools(specs []tools.Spec) []anthropic.ToolUnionUnionParam {
	out := make([]anthropic.ToolUnionUnionParam, len(specs))
	for i, s := range specs {
		out[i] = anthropic.ToolParam{
			Name:        anthropic.String(s.Name),
			Description: anthropic.String(s.Description),
			InputSchema: anthropic.F[interface{}](s.JSONSchema()),
		}
	}
	return out
}

// anthropicMessages splits system turns out of the log and folds each run of
// tool turns into one user message of tool_result blocks.
func anthropicMessages(turns []conversation.Turn) (string, []anthropic.MessageParam) {
	var system []string
	var msgs []anthropic.MessageParam
	var results []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(results) > 0 {
			msgs = append(msgs, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, t := range turns {
		if t.Role != conversation.RoleTool {
			flush()
		}
		switch t.Role {
		case conversation.RoleSystem:
			system = append(system, t.Content)
		case conversation.RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		case conversation.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if t.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(t.Content))
			}
			for _, call := range t.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlockParam(call.ID, call.Name, toolInput(call.RawArguments)))
			}
			if len(blocks) > 0 {
				msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
			}
		case conversation.RoleTool:
			results = append(results, anthropic.NewToolResultBlock(t.ToolCallID, t.Content, t.IsError))
		}
	}
	flush()
	return strings.Join(system, "\n\n"), msgs
}

// toolInput echoes the model's arguments back. Tool use input must be a JSON
// object, so anything else is replaced by an empty one.
func toolInput(raw string) json.RawMessage {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return json.RawMessage(`{}`)
}

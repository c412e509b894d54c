package model_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opsdesk/fncall/internal/conversation"
	"github.com/opsdesk/fncall/internal/dispatch"
	"github.com/opsdesk/fncall/internal/model"
	"github.com/opsdesk/fncall/internal/tools"
	"github.com/sashabaranov/go-openai"
)

func transcript() []conversation.Turn {
	return []conversation.Turn{
		conversation.System("You are a weather assistant."),
		conversation.User("What's the weather like in Dalian?"),
		conversation.Assistant("", conversation.ToolCallRequest{
			ID: "call_1", Name: "get_current_weather", RawArguments: `{"location":"Dalian"}`,
		}),
		conversation.ToolResponse("call_1", "get_current_weather", `{"temperature":10}`, false),
	}
}

func completionServer(t *testing.T, status int, body string, got *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClientToolCalls(t *testing.T) {
	var req openai.ChatCompletionRequest
	srv := completionServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "qwen-plus",
		"choices": [{
			"index": 0,
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{
					"id": "",
					"type": "function",
					"function": {"name": "get_current_weather", "arguments": "{\"location\":\"Shanghai\"}"}
				}]
			}
		}]
	}`, &req)

	client := model.NewOpenAIClient(model.Config{
		Provider: model.ProviderDashScope,
		APIKey:   "test-key",
		BaseURL:  srv.URL + "/v1",
	})
	reply, err := client.Send(context.Background(), transcript(), []tools.Spec{tools.WeatherSpec})
	if err != nil {
		t.Fatal(err)
	}

	tc, ok := reply.(dispatch.ToolCallsRequested)
	if !ok {
		t.Fatalf("reply = %T", reply)
	}
	if len(tc.Calls) != 1 || tc.Calls[0].Name != "get_current_weather" {
		t.Fatalf("calls = %+v", tc.Calls)
	}
	if !strings.HasPrefix(tc.Calls[0].ID, "call_") || len(tc.Calls[0].ID) <= len("call_") {
		t.Errorf("missing id should be generated, got %q", tc.Calls[0].ID)
	}
	if tc.Calls[0].RawArguments != `{"location":"Shanghai"}` {
		t.Errorf("arguments = %s", tc.Calls[0].RawArguments)
	}

	if req.Model != "qwen-plus" {
		t.Errorf("model = %q", req.Model)
	}
	if len(req.Tools) != 1 || req.Tools[0].Function.Name != "get_current_weather" {
		t.Errorf("tools = %+v", req.Tools)
	}
	wantRoles := []string{"system", "user", "assistant", "tool"}
	if len(req.Messages) != len(wantRoles) {
		t.Fatalf("sent %d messages", len(req.Messages))
	}
	for i, role := range wantRoles {
		if req.Messages[i].Role != role {
			t.Errorf("message %d role = %s, want %s", i, req.Messages[i].Role, role)
		}
	}
	if req.Messages[2].ToolCalls[0].ID != "call_1" || req.Messages[3].ToolCallID != "call_1" {
		t.Errorf("tool call pairing lost: %+v / %+v", req.Messages[2], req.Messages[3])
	}
}

func TestOpenAIClientToolCallsWinOverStop(t *testing.T) {
	// DashScope reports finish_reason "stop" on some tool call replies.
	srv := completionServer(t, http.StatusOK, `{
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "c1", "type": "function",
					"function": {"name": "get_current_status", "arguments": "{}"}}]}}]
	}`, nil)

	client := model.NewOpenAIClient(model.Config{Provider: model.ProviderDashScope, APIKey: "k", BaseURL: srv.URL + "/v1"})
	reply, err := client.Send(context.Background(), transcript()[:2], []tools.Spec{tools.StatusSpec})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := reply.(dispatch.ToolCallsRequested)
	if !ok {
		t.Fatalf("reply = %#v, want tool calls", reply)
	}
	if len(tc.Calls) != 1 || tc.Calls[0].ID != "c1" || tc.Calls[0].Name != "get_current_status" {
		t.Errorf("calls = %+v", tc.Calls)
	}
}

func TestOpenAIClientFinalAnswer(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `{
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "Dalian is 10 degrees and sunny."}}]
	}`, nil)

	client := model.NewOpenAIClient(model.Config{Provider: model.ProviderOpenAI, APIKey: "k", BaseURL: srv.URL + "/v1"})
	reply, err := client.Send(context.Background(), transcript()[:2], nil)
	if err != nil {
		t.Fatal(err)
	}
	fa, ok := reply.(dispatch.FinalAnswer)
	if !ok || fa.Text != "Dalian is 10 degrees and sunny." {
		t.Fatalf("reply = %#v", reply)
	}
}

func TestOpenAIClientErrors(t *testing.T) {
	srv := completionServer(t, http.StatusBadRequest,
		`{"error": {"message": "invalid model", "type": "invalid_request_error"}}`, nil)
	client := model.NewOpenAIClient(model.Config{Provider: model.ProviderOpenAI, APIKey: "k", BaseURL: srv.URL + "/v1"})

	_, err := client.Send(context.Background(), transcript()[:2], nil)
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != http.StatusBadRequest {
		t.Fatalf("err = %v", err)
	}
	if model.IsRetryable(err) {
		t.Error("400 should not be retried")
	}

	empty := completionServer(t, http.StatusOK, `{"choices": []}`, nil)
	client = model.NewOpenAIClient(model.Config{Provider: model.ProviderOpenAI, APIKey: "k", BaseURL: empty.URL + "/v1"})
	if _, err := client.Send(context.Background(), transcript()[:2], nil); err == nil {
		t.Error("empty choices should be an error")
	}
}

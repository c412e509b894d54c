package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/fncall/internal/conversation"
	"github.com/opsdesk/fncall/internal/dispatch"
	"github.com/opsdesk/fncall/internal/store"
	"github.com/opsdesk/fncall/internal/tools"
)

func TestPrintTranscript(t *testing.T) {
	tr := &store.Transcript{
		ID:              uuid.New(),
		Scenario:        "weather",
		Outcome:         "completed",
		Iterations:      2,
		ToolInvocations: 1,
		Turns: []conversation.Turn{
			conversation.System("You are a helpful assistant."),
			conversation.User("What's the weather like in Dalian?"),
			conversation.Assistant("", conversation.ToolCallRequest{
				ID: "call_1", Name: "get_current_weather", RawArguments: `{"location":"Dalian"}`,
			}),
			conversation.ToolResponse("call_1", "get_current_weather", `{"temperature":10}`, false),
			conversation.Assistant("It is 10 degrees in Dalian."),
		},
	}

	var buf bytes.Buffer
	printTranscript(&buf, tr)
	out := buf.String()

	for _, want := range []string{
		"[3] assistant (tool calls)",
		`-> get_current_weather({"location":"Dalian"}) id=call_1`,
		"[4] tool get_current_weather (call_1)",
		"    It is 10 degrees in Dalian.",
		"outcome: completed  iterations: 2  tool invocations: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "error:") {
		t.Error("no error line expected")
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &progressPrinter{w: &buf}
	p.ModelReplied(1, dispatch.ToolCallsRequested{Calls: []conversation.ToolCallRequest{
		{Name: "get_current_status"}, {Name: "search_logs"},
	}})
	p.ToolFinished(tools.Result{ToolName: "search_logs", Err: errors.New("down")}, 1500*time.Microsecond)
	p.ModelReplied(2, dispatch.FinalAnswer{Text: "done"})

	want := "round 1: calling get_current_status, search_logs\n" +
		"  search_logs failed in 2ms\n" +
		"round 2: final answer\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestAskRequiresPrompt(t *testing.T) {
	if err := ask(nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error without a prompt")
	}
	if err := ask([]string{"-demo", "nope"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for an unknown demo")
	}
}

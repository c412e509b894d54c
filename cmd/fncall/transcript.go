package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opsdesk/fncall/internal/conversation"
	"github.com/opsdesk/fncall/internal/dispatch"
	"github.com/opsdesk/fncall/internal/store"
	"github.com/opsdesk/fncall/internal/tools"
)

func printTranscript(w io.Writer, t *store.Transcript) {
	fmt.Fprintf(w, "conversation %s (%s)\n", t.ID, t.Scenario)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	for i, turn := range t.Turns {
		fmt.Fprintf(w, "[%d] %s\n", i+1, turnLabel(turn))
		if turn.Content != "" {
			fmt.Fprintln(w, indent(turn.Content))
		}
		for _, c := range turn.ToolCalls {
			fmt.Fprintf(w, "    -> %s(%s) id=%s\n", c.Name, c.RawArguments, c.ID)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "outcome: %s  iterations: %d  tool invocations: %d\n",
		t.Outcome, t.Iterations, t.ToolInvocations)
	if t.Error != "" {
		fmt.Fprintf(w, "error: %s\n", t.Error)
	}
}

func turnLabel(t conversation.Turn) string {
	switch {
	case t.Role == conversation.RoleTool && t.IsError:
		return fmt.Sprintf("tool %s (%s) FAILED", t.ToolName, t.ToolCallID)
	case t.Role == conversation.RoleTool:
		return fmt.Sprintf("tool %s (%s)", t.ToolName, t.ToolCallID)
	case t.RequestsTools():
		return "assistant (tool calls)"
	}
	return string(t.Role)
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n    ")
}

// progressPrinter reports each model reply and tool result as they happen.
type progressPrinter struct {
	w io.Writer
}

func (p *progressPrinter) ModelReplied(iteration int, reply dispatch.Reply) {
	switch r := reply.(type) {
	case dispatch.FinalAnswer:
		fmt.Fprintf(p.w, "round %d: final answer\n", iteration)
	case dispatch.ToolCallsRequested:
		names := make([]string, len(r.Calls))
		for i, c := range r.Calls {
			names[i] = c.Name
		}
		fmt.Fprintf(p.w, "round %d: calling %s\n", iteration, strings.Join(names, ", "))
	}
}

func (p *progressPrinter) ToolFinished(res tools.Result, elapsed time.Duration) {
	status := "ok"
	if res.Failed() {
		status = "failed"
	}
	fmt.Fprintf(p.w, "  %s %s in %s\n", res.ToolName, status, elapsed.Round(time.Millisecond))
}

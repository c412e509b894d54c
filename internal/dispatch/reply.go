// Package dispatch runs the exchange between a tool-augmented model and the
// local tool set: ask the model, run what it requests, feed the results back,
// repeat until it answers or the iteration budget runs out.
package dispatch

import (
	"context"

	"github.com/opsdesk/fncall/internal/conversation"
	"github.com/opsdesk/fncall/internal/tools"
)

// Reply is what a model returned for one request. It is either a FinalAnswer
// or a ToolCallsRequested; adapters decide which once, at the boundary.
type Reply interface {
	isReply()
}

// FinalAnswer ends the conversation.
type FinalAnswer struct {
	Text string
}

// ToolCallsRequested asks for tools to run. Text carries any content the
// model produced alongside the calls.
type ToolCallsRequested struct {
	Text  string
	Calls []conversation.ToolCallRequest
}

func (FinalAnswer) isReply()        {}
func (ToolCallsRequested) isReply() {}

// ModelClient sends the conversation so far to a model. Transport or API
// failures must be returned as an error, never folded into a Reply.
type ModelClient interface {
	Send(ctx context.Context, turns []conversation.Turn, specs []tools.Spec) (Reply, error)
}

// ToolRunner executes tool calls. *tools.Invoker satisfies it.
type ToolRunner interface {
	Specs() []tools.Spec
	Invoke(ctx context.Context, call conversation.ToolCallRequest) tools.Result
}

func replyKind(r Reply) string {
	switch r.(type) {
	case FinalAnswer:
		return "final_answer"
	case ToolCallsRequested:
		return "tool_calls"
	}
	return "unknown"
}

package dispatch

import (
	"errors"
	"fmt"

	"github.com/opsdesk/fncall/internal/conversation"
)

// OutcomeKind says how a run ended.
type OutcomeKind string

const (
	// OutcomeCompleted: the model produced a final answer.
	OutcomeCompleted OutcomeKind = "completed"
	// OutcomeBudgetExceeded: the iteration cap was reached without a final
	// answer. This is not an error.
	OutcomeBudgetExceeded OutcomeKind = "budget_exceeded"
	// OutcomeModelError: the model client failed and the run stopped.
	OutcomeModelError OutcomeKind = "model_error"
)

// Outcome summarizes a finished run.
type Outcome struct {
	Kind            OutcomeKind
	Answer          conversation.Turn // set when Kind is OutcomeCompleted
	Iterations      int               // model calls made
	ToolInvocations int
	ToolsUsed       []string
	Err             error // set when Kind is OutcomeModelError
	Transcript      []conversation.Turn
}

// Completed reports whether the model finished with an answer.
func (o *Outcome) Completed() bool { return o.Kind == OutcomeCompleted }

// ModelCallError is returned when the model client fails. The loop does not
// retry; retry policy belongs to the client.
type ModelCallError struct {
	Iteration int
	Err       error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call %d failed: %v", e.Iteration, e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }

var (
	// ErrEmptyReply is wrapped in a ModelCallError when a client returns
	// neither a reply nor an error.
	ErrEmptyReply = errors.New("model returned no reply")

	// ErrInvalidState is returned when Run is handed an empty conversation or
	// one with unanswered tool calls.
	ErrInvalidState = errors.New("dispatch: conversation cannot be dispatched")
)

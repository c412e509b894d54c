package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdesk/fncall/internal/conversation"
	"github.com/opsdesk/fncall/internal/tools"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultMaxIterations bounds the number of model calls per run.
const DefaultMaxIterations = 5

// Observer receives progress notifications during a run.
type Observer interface {
	ModelReplied(iteration int, reply Reply)
	ToolFinished(result tools.Result, elapsed time.Duration)
}

// Loop drives one conversation at a time. A Loop holds no per-run state and
// may be reused, but a given conversation.State must only be passed to one
// Run at a time.
type Loop struct {
	client        ModelClient
	tools         ToolRunner
	maxIterations int
	logger        zerolog.Logger
	observer      Observer
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxIterations sets the model call budget. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithLogger replaces the global logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(l *Loop) { l.observer = o }
}

// New returns a Loop with DefaultMaxIterations and the global logger unless
// options say otherwise.
func New(client ModelClient, runner ToolRunner, opts ...Option) *Loop {
	l := &Loop{
		client:        client,
		tools:         runner,
		maxIterations: DefaultMaxIterations,
		logger:        log.Logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxIterations returns the configured budget.
func (l *Loop) MaxIterations() int { return l.maxIterations }

// Run dispatches state until the model answers, the budget is spent, or the
// model client fails. Tool failures never end a run; they are recorded as
// error tool turns for the model to react to.
//
// When the last allowed model call requests tools, those tools still run and
// their results are recorded before the run ends with OutcomeBudgetExceeded.
//
// The returned error is non-nil only for OutcomeModelError (a
// *ModelCallError) or when state cannot be dispatched.
func (l *Loop) Run(ctx context.Context, state *conversation.State) (*Outcome, error) {
	if state.Len() == 0 || state.Pending() > 0 {
		return nil, ErrInvalidState
	}
	if f, ok := l.tools.(interface{ Freeze() }); ok {
		f.Freeze()
	}
	specs := l.tools.Specs()

	out := &Outcome{}
	for out.Iterations < l.maxIterations {
		out.Iterations++
		iter := out.Iterations

		reply, err := l.client.Send(ctx, state.Snapshot(), specs)
		if err == nil && reply == nil {
			err = ErrEmptyReply
		}
		if err != nil {
			return l.fail(out, state, &ModelCallError{Iteration: iter, Err: err})
		}
		reply = normalize(reply, iter)

		l.logger.Debug().
			Int("iter", iter).
			Str("reply", replyKind(reply)).
			Int("tool_calls", callCount(reply)).
			Msg("dispatch iteration")
		if l.observer != nil {
			l.observer.ModelReplied(iter, reply)
		}

		switch r := reply.(type) {
		case FinalAnswer:
			answer := conversation.Assistant(r.Text)
			if err := state.Append(answer); err != nil {
				return nil, fmt.Errorf("append answer: %w", err)
			}
			out.Kind = OutcomeCompleted
			out.Answer = answer
			out.Transcript = state.Snapshot()
			return out, nil

		case ToolCallsRequested:
			if err := state.Append(conversation.Assistant(r.Text, r.Calls...)); err != nil {
				return nil, fmt.Errorf("append tool request: %w", err)
			}
			for _, call := range r.Calls {
				res := l.invoke(ctx, call)
				out.ToolInvocations++
				out.ToolsUsed = append(out.ToolsUsed, call.Name)
				turn := conversation.ToolResponse(call.ID, call.Name, res.Content(), res.Failed())
				if err := state.Append(turn); err != nil {
					return nil, fmt.Errorf("append tool result: %w", err)
				}
			}

		default:
			return l.fail(out, state, &ModelCallError{
				Iteration: iter,
				Err:       fmt.Errorf("unsupported reply type %T", reply),
			})
		}
	}

	l.logger.Warn().
		Int("max_iterations", l.maxIterations).
		Int("tool_invocations", out.ToolInvocations).
		Msg("dispatch budget exceeded")
	out.Kind = OutcomeBudgetExceeded
	out.Transcript = state.Snapshot()
	return out, nil
}

func (l *Loop) invoke(ctx context.Context, call conversation.ToolCallRequest) tools.Result {
	start := time.Now()
	res := l.tools.Invoke(ctx, call)
	elapsed := time.Since(start)

	evt := l.logger.Debug()
	if res.Failed() {
		evt = l.logger.Warn().Err(res.Err)
	}
	evt.Str("tool", call.Name).
		Str("call_id", call.ID).
		Dur("elapsed", elapsed).
		Msg("tool invoked")

	if l.observer != nil {
		l.observer.ToolFinished(res, elapsed)
	}
	return res
}

func (l *Loop) fail(out *Outcome, state *conversation.State, err *ModelCallError) (*Outcome, error) {
	l.logger.Error().Err(err.Err).Int("iter", err.Iteration).Msg("model call failed")
	out.Kind = OutcomeModelError
	out.Err = err
	out.Transcript = state.Snapshot()
	return out, err
}

// normalize turns an empty tool request into a final answer and fills in
// missing call ids so tool turns can always be paired with their request.
func normalize(reply Reply, iter int) Reply {
	r, ok := reply.(ToolCallsRequested)
	if !ok {
		return reply
	}
	if len(r.Calls) == 0 {
		return FinalAnswer{Text: r.Text}
	}
	calls := make([]conversation.ToolCallRequest, len(r.Calls))
	copy(calls, r.Calls)
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = fmt.Sprintf("call_%d_%d", iter, i+1)
		}
	}
	r.Calls = calls
	return r
}

func callCount(r Reply) int {
	if tc, ok := r.(ToolCallsRequested); ok {
		return len(tc.Calls)
	}
	return 0
}

// Package agent runs one user request end to end: prompt screening, scenario
// selection, the dispatch loop, transcript persistence and auditing.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opsdesk/fncall/internal/conversation"
	"github.com/opsdesk/fncall/internal/dispatch"
	"github.com/opsdesk/fncall/internal/security"
	"github.com/opsdesk/fncall/internal/service"
	"github.com/opsdesk/fncall/internal/store"
	"github.com/rs/zerolog/log"
)

// MaxIterationsCap bounds a per-request max_iterations override.
const MaxIterationsCap = 20

// ErrUnknownScenario is returned for a scenario name that does not exist.
var ErrUnknownScenario = errors.New("unknown scenario")

// PromptRejectedError is returned when the prompt fails validation.
type PromptRejectedError struct {
	Reason string
}

func (e *PromptRejectedError) Error() string {
	return "prompt rejected: " + e.Reason
}

// Request is one conversation to run.
type Request struct {
	Prompt        string
	SystemPrompt  string // overrides the scenario prompt when set
	Scenario      string // empty means route by keywords
	MaxIterations int    // zero means the agent default
	APIKey        string // only used for auditing
}

// Result is a finished conversation.
type Result struct {
	Transcript *store.Transcript
	Outcome    *dispatch.Outcome
	Routing    service.RoutingResult
	ToolsUsed  []string
}

// Options configures an Agent. Zero fields take defaults; a nil Store means
// transcripts are not kept.
type Options struct {
	Store         store.Store
	Validator     *security.PromptValidator
	Router        *service.IntentRouter
	Audit         *security.AuditLogger
	MaxIterations int
	Timeout       time.Duration
	Observer      dispatch.Observer
}

// Agent is safe for concurrent use; each Run owns its own conversation.
type Agent struct {
	client        dispatch.ModelClient
	tools         dispatch.ToolRunner
	store         store.Store
	validator     *security.PromptValidator
	router        *service.IntentRouter
	audit         *security.AuditLogger
	maxIterations int
	timeout       time.Duration
	observer      dispatch.Observer
}

// New builds an Agent around a model client and a tool runner. Nil options
// fall back to a default validator, router and a disabled audit logger.
func New(client dispatch.ModelClient, runner dispatch.ToolRunner, opts Options) *Agent {
	a := &Agent{
		client:        client,
		tools:         runner,
		store:         opts.Store,
		validator:     opts.Validator,
		router:        opts.Router,
		audit:         opts.Audit,
		maxIterations: opts.MaxIterations,
		timeout:       opts.Timeout,
		observer:      opts.Observer,
	}
	if a.validator == nil {
		a.validator = security.NewPromptValidator(0, nil)
	}
	if a.router == nil {
		a.router = service.NewIntentRouter()
	}
	if a.audit == nil {
		a.audit = security.NewAuditLogger(false)
	}
	if a.maxIterations <= 0 {
		a.maxIterations = dispatch.DefaultMaxIterations
	}
	return a
}

// Run executes req. When the model fails, Run returns the result recorded so
// far together with a *dispatch.ModelCallError.
func (a *Agent) Run(ctx context.Context, req Request) (*Result, error) {
	if v := a.validator.Validate(req.Prompt); !v.Valid {
		a.audit.LogRejectedPrompt(req.Prompt, req.APIKey, v.Message)
		return nil, &PromptRejectedError{Reason: v.Message}
	}

	routing, err := a.route(req)
	if err != nil {
		return nil, err
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = routing.Scenario.SystemPrompt()
	}
	state, err := conversation.NewState(
		conversation.System(systemPrompt),
		conversation.User(req.Prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("seed conversation: %w", err)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	opts := []dispatch.Option{dispatch.WithMaxIterations(a.iterations(req.MaxIterations))}
	if a.observer != nil {
		opts = append(opts, dispatch.WithObserver(a.observer))
	}

	start := time.Now()
	out, runErr := dispatch.New(a.client, a.tools, opts...).Run(ctx, state)
	if out == nil {
		return nil, runErr
	}
	elapsed := time.Since(start)

	transcript := store.FromOutcome(string(routing.Scenario), out)
	if a.store != nil {
		// Persist with a fresh context so a timed-out run is still recorded.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := a.store.Save(saveCtx, transcript); err != nil {
			log.Warn().Err(err).Str("conversation_id", transcript.ID.String()).Msg("failed to save transcript")
		}
		cancel()
	}

	a.audit.LogConversation(security.ConversationEvent{
		ConversationID:  transcript.ID.String(),
		Prompt:          req.Prompt,
		APIKey:          req.APIKey,
		Scenario:        string(routing.Scenario),
		Outcome:         string(out.Kind),
		Iterations:      out.Iterations,
		ToolInvocations: out.ToolInvocations,
		ToolsUsed:       out.ToolsUsed,
		Elapsed:         elapsed,
		Err:             transcript.Error,
	})

	log.Info().
		Str("conversation_id", transcript.ID.String()).
		Str("scenario", string(routing.Scenario)).
		Str("outcome", string(out.Kind)).
		Int("iterations", out.Iterations).
		Int("tool_invocations", out.ToolInvocations).
		Dur("elapsed", elapsed).
		Msg("conversation finished")

	return &Result{
		Transcript: transcript,
		Outcome:    out,
		Routing:    routing,
		ToolsUsed:  out.ToolsUsed,
	}, runErr
}

func (a *Agent) route(req Request) (service.RoutingResult, error) {
	if req.Scenario == "" {
		return a.router.Route(req.Prompt), nil
	}
	sc, ok := service.ParseScenario(req.Scenario)
	if !ok {
		return service.RoutingResult{}, fmt.Errorf("%w %q", ErrUnknownScenario, req.Scenario)
	}
	return service.RoutingResult{
		Scenario:   sc,
		Confidence: 1.0,
		Reasoning:  "explicitly specified by user",
	}, nil
}

func (a *Agent) iterations(requested int) int {
	switch {
	case requested <= 0:
		return a.maxIterations
	case requested > MaxIterationsCap:
		return MaxIterationsCap
	}
	return requested
}

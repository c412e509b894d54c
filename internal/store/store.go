// Package store persists finished conversations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/fncall/internal/conversation"
	"github.com/opsdesk/fncall/internal/dispatch"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("transcript not found")

// Transcript is a stored conversation and how it ended.
type Transcript struct {
	ID              uuid.UUID           `json:"id"`
	Scenario        string              `json:"scenario"`
	Outcome         string              `json:"outcome"`
	Answer          string              `json:"answer,omitempty"`
	Iterations      int                 `json:"iterations"`
	ToolInvocations int                 `json:"tool_invocations"`
	Error           string              `json:"error,omitempty"`
	Turns           []conversation.Turn `json:"turns"`
	CreatedAt       time.Time           `json:"created_at"`
}

// FromOutcome builds a transcript with a fresh id.
func FromOutcome(scenario string, out *dispatch.Outcome) *Transcript {
	t := &Transcript{
		ID:              uuid.New(),
		Scenario:        scenario,
		Outcome:         string(out.Kind),
		Iterations:      out.Iterations,
		ToolInvocations: out.ToolInvocations,
		Turns:           out.Transcript,
		CreatedAt:       time.Now().UTC(),
	}
	if out.Completed() {
		t.Answer = out.Answer.Content
	}
	if out.Err != nil {
		t.Error = out.Err.Error()
	}
	return t
}

// Store saves and loads transcripts.
type Store interface {
	Save(ctx context.Context, t *Transcript) error
	Get(ctx context.Context, id uuid.UUID) (*Transcript, error)
	Ping(ctx context.Context) error
	Close()
}

package conversation

import (
	"errors"
	"fmt"
)

// ErrOutOfOrder is returned when an append would break the pairing between an
// assistant turn's tool calls and the tool turns answering them.
var ErrOutOfOrder = errors.New("conversation: turn out of order")

// State is an append-only, ordered log of turns. It is owned by a single
// dispatch run and is not safe for concurrent use.
type State struct {
	turns   []Turn
	pending []ToolCallRequest // calls of the last assistant turn not yet answered
}

// NewState seeds a conversation. Seed turns must be system or user turns.
func NewState(seed ...Turn) (*State, error) {
	s := &State{turns: make([]Turn, 0, len(seed)+4)}
	for i, t := range seed {
		if t.Role != RoleSystem && t.Role != RoleUser {
			return nil, fmt.Errorf("seed turn %d: role %q not allowed", i, t.Role)
		}
		if err := s.Append(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append adds a turn to the end of the log.
func (s *State) Append(t Turn) error {
	if !t.Role.Valid() {
		return fmt.Errorf("conversation: unknown role %q", t.Role)
	}

	if t.Role == RoleTool {
		if len(s.pending) == 0 {
			return fmt.Errorf("%w: tool turn %q without a pending call", ErrOutOfOrder, t.ToolCallID)
		}
		next := s.pending[0]
		if t.ToolCallID != next.ID {
			return fmt.Errorf("%w: tool turn answers %q, expected %q", ErrOutOfOrder, t.ToolCallID, next.ID)
		}
		s.pending = s.pending[1:]
	} else if len(s.pending) > 0 {
		return fmt.Errorf("%w: %d tool call(s) still unanswered", ErrOutOfOrder, len(s.pending))
	}

	if t.Role != RoleAssistant && len(t.ToolCalls) > 0 {
		return fmt.Errorf("conversation: %s turn cannot carry tool calls", t.Role)
	}

	t = t.clone()
	s.turns = append(s.turns, t)
	if t.RequestsTools() {
		s.pending = append([]ToolCallRequest(nil), t.ToolCalls...)
	}
	return nil
}

// Snapshot returns a copy of the log. Mutating it does not affect the state.
func (s *State) Snapshot() []Turn {
	out := make([]Turn, len(s.turns))
	for i, t := range s.turns {
		out[i] = t.clone()
	}
	return out
}

// Len returns the number of turns.
func (s *State) Len() int { return len(s.turns) }

// Last returns the most recent turn.
func (s *State) Last() (Turn, bool) {
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1].clone(), true
}

// Pending returns the number of requested tool calls not yet answered.
func (s *State) Pending() int { return len(s.pending) }

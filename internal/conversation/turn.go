// Package conversation holds the ordered turn log a dispatch loop exchanges
// with a model.
package conversation

// Role identifies who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// ToolCallRequest is a single tool invocation requested by the model.
// RawArguments is the argument payload exactly as the model produced it.
type ToolCallRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RawArguments string `json:"arguments"`
}

// Turn is one message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`

	// Set on assistant turns that requested tools.
	ToolCalls []ToolCallRequest `json:"tool_calls,omitempty"`

	// Set on tool turns.
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// System builds a system turn.
func System(content string) Turn { return Turn{Role: RoleSystem, Content: content} }

// User builds a user turn.
func User(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// Assistant builds an assistant turn, optionally carrying tool calls.
func Assistant(content string, calls ...ToolCallRequest) Turn {
	return Turn{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResponse builds a tool turn answering the call with the given id.
func ToolResponse(callID, toolName, content string, isError bool) Turn {
	return Turn{
		Role:       RoleTool,
		Content:    content,
		ToolName:   toolName,
		ToolCallID: callID,
		IsError:    isError,
	}
}

// RequestsTools reports whether an assistant turn asked for tool execution.
func (t Turn) RequestsTools() bool {
	return t.Role == RoleAssistant && len(t.ToolCalls) > 0
}

func (t Turn) clone() Turn {
	if t.ToolCalls != nil {
		calls := make([]ToolCallRequest, len(t.ToolCalls))
		copy(calls, t.ToolCalls)
		t.ToolCalls = calls
	}
	return t
}

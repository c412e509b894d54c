package security

import (
	"time"

	"github.com/rs/zerolog/log"
)

// AuditLogger logs security-relevant events with hashed identifiers
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

// ConversationEvent describes one finished conversation.
type ConversationEvent struct {
	ConversationID  string
	Prompt          string
	APIKey          string
	Scenario        string
	Outcome         string
	Iterations      int
	ToolInvocations int
	ToolsUsed       []string
	Elapsed         time.Duration
	Err             string
}

// LogConversation records a conversation without its content.
func (a *AuditLogger) LogConversation(e ConversationEvent) {
	if !a.enabled {
		return
	}
	evt := log.Info().
		Str("event", "conversation_audit").
		Str("conversation_id", e.ConversationID).
		Str("prompt_hash", hashStr(e.Prompt)[:16]).
		Str("api_key_hash", hashStr(e.APIKey)[:16]).
		Str("scenario", e.Scenario).
		Str("outcome", e.Outcome).
		Int("iterations", e.Iterations).
		Int("tool_invocations", e.ToolInvocations).
		Strs("tools_used", e.ToolsUsed).
		Int64("execution_time_ms", e.Elapsed.Milliseconds())

	if e.Err != "" {
		evt = evt.Str("error", e.Err)
	}
	evt.Msg("audit")
}

// LogRejectedPrompt records a prompt the validator refused.
func (a *AuditLogger) LogRejectedPrompt(prompt, apiKey, reason string) {
	if !a.enabled {
		return
	}
	log.Warn().
		Str("event", "prompt_rejected").
		Str("prompt_hash", hashStr(prompt)[:16]).
		Str("api_key_hash", hashStr(apiKey)[:16]).
		Str("reason", reason).
		Msg("audit")
}

package models

import "strings"

// ConversationRequest for POST /api/v1/conversations
type ConversationRequest struct {
	Prompt        string `json:"prompt"`
	SystemPrompt  string `json:"system_prompt,omitempty"`
	Scenario      string `json:"scenario,omitempty"` // "weather" | "operations"
	MaxIterations int    `json:"max_iterations,omitempty"`
}

func (r *ConversationRequest) SetDefaults() {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.Scenario = strings.TrimSpace(r.Scenario)
	if r.MaxIterations < 0 {
		r.MaxIterations = 0
	}
}

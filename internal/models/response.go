package models

import (
	"time"

	"github.com/opsdesk/fncall/internal/conversation"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ConversationResponse is returned by POST /api/v1/conversations and
// GET /api/v1/conversations/{id}
type ConversationResponse struct {
	ID              string              `json:"id"`
	Status          string              `json:"status"` // completed | budget_exceeded | model_error
	Scenario        string              `json:"scenario"`
	Answer          string              `json:"answer,omitempty"`
	Iterations      int                 `json:"iterations"`
	ToolInvocations int                 `json:"tool_invocations"`
	ToolsUsed       []string            `json:"tools_used,omitempty"`
	Error           string              `json:"error,omitempty"`
	Routing         *RoutingInfo        `json:"routing,omitempty"`
	Turns           []conversation.Turn `json:"turns"`
	CreatedAt       time.Time           `json:"created_at"`
}

// RoutingInfo explains how the scenario was chosen.
type RoutingInfo struct {
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ToolInfo describes one registered tool.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolsResponse is returned by GET /api/v1/tools
type ToolsResponse struct {
	Status string     `json:"status"`
	Count  int        `json:"count"`
	Tools  []ToolInfo `json:"tools"`
}

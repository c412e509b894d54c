package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opsdesk/fncall/internal/agent"
	"github.com/opsdesk/fncall/internal/dispatch"
	"github.com/opsdesk/fncall/internal/models"
	"github.com/opsdesk/fncall/internal/store"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps the request body of POST /conversations.
const maxBodyBytes = 64 << 10

// ConversationRunner is satisfied by *agent.Agent.
type ConversationRunner interface {
	Run(ctx context.Context, req agent.Request) (*agent.Result, error)
}

// ConversationHandler handles /api/v1/conversations
type ConversationHandler struct {
	runner       ConversationRunner
	store        store.Store
	apiKeyHeader string
}

func NewConversationHandler(runner ConversationRunner, st store.Store, apiKeyHeader string) *ConversationHandler {
	return &ConversationHandler{runner: runner, store: st, apiKeyHeader: apiKeyHeader}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ConversationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.SetDefaults()

	if req.Prompt == "" {
		models.WriteError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	res, err := h.runner.Run(r.Context(), agent.Request{
		Prompt:        req.Prompt,
		SystemPrompt:  req.SystemPrompt,
		Scenario:      req.Scenario,
		MaxIterations: req.MaxIterations,
		APIKey:        r.Header.Get(h.apiKeyHeader),
	})

	var rejected *agent.PromptRejectedError
	var modelErr *dispatch.ModelCallError
	switch {
	case err == nil:
		models.WriteJSON(w, http.StatusOK, resultResponse(res))
	case errors.As(err, &rejected):
		models.WriteError(w, http.StatusBadRequest, rejected.Error())
	case errors.Is(err, agent.ErrUnknownScenario):
		models.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &modelErr) && res != nil:
		models.WriteJSON(w, http.StatusBadGateway, resultResponse(res))
	default:
		log.Error().Err(err).Msg("conversation failed")
		models.WriteError(w, http.StatusInternalServerError, "conversation failed")
	}
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		models.WriteError(w, http.StatusServiceUnavailable, "transcript store is not configured")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	t, err := h.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		models.WriteError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("conversation_id", id.String()).Msg("load transcript")
		models.WriteError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	models.WriteJSON(w, http.StatusOK, transcriptResponse(t))
}

func resultResponse(res *agent.Result) models.ConversationResponse {
	resp := transcriptResponse(res.Transcript)
	resp.ToolsUsed = res.ToolsUsed
	resp.Routing = &models.RoutingInfo{
		Confidence: res.Routing.Confidence,
		Reasoning:  res.Routing.Reasoning,
	}
	return resp
}

func transcriptResponse(t *store.Transcript) models.ConversationResponse {
	return models.ConversationResponse{
		ID:              t.ID.String(),
		Status:          t.Outcome,
		Scenario:        t.Scenario,
		Answer:          t.Answer,
		Iterations:      t.Iterations,
		ToolInvocations: t.ToolInvocations,
		Error:           t.Error,
		Turns:           t.Turns,
		CreatedAt:       t.CreatedAt,
	}
}

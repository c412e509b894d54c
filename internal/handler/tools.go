package handler

import (
	"net/http"

	"github.com/opsdesk/fncall/internal/models"
	"github.com/opsdesk/fncall/internal/tools"
)

// SpecSource is satisfied by *tools.Invoker and *tools.Registry.
type SpecSource interface {
	Specs() []tools.Spec
}

// ToolsHandler handles GET /api/v1/tools
type ToolsHandler struct {
	source SpecSource
}

func NewToolsHandler(source SpecSource) *ToolsHandler {
	return &ToolsHandler{source: source}
}

// List handles GET /api/v1/tools
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	specs := h.source.Specs()
	out := make([]models.ToolInfo, len(specs))
	for i, s := range specs {
		out[i] = models.ToolInfo{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.JSONSchema(),
		}
	}
	models.WriteJSON(w, http.StatusOK, models.ToolsResponse{
		Status: "success",
		Count:  len(out),
		Tools:  out,
	})
}

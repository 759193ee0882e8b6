package handler

import (
	"net/http"

	"github.com/cpixkit/cpix/internal/api/dto"
	"github.com/cpixkit/cpix/internal/api/service"
)

// PlayReadyHandler handles PlayReady key derivation requests.
type PlayReadyHandler struct {
	service *service.PlayReadyService
}

// NewPlayReadyHandler creates a new PlayReadyHandler.
func NewPlayReadyHandler(prService *service.PlayReadyService) *PlayReadyHandler {
	return &PlayReadyHandler{service: prService}
}

// Key handles POST /api/v1/playready/key
func (h *PlayReadyHandler) Key(w http.ResponseWriter, r *http.Request) {
	var req dto.PlayReadyKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.DeriveKeys(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

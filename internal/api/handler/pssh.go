package handler

import (
	"net/http"

	"github.com/cpixkit/cpix/internal/api/dto"
	"github.com/cpixkit/cpix/internal/api/service"
)

// PSSHHandler handles PSSH-related HTTP requests.
type PSSHHandler struct {
	service *service.PSSHService
}

// NewPSSHHandler creates a new PSSHHandler.
func NewPSSHHandler(psshService *service.PSSHService) *PSSHHandler {
	return &PSSHHandler{service: psshService}
}

// Widevine handles POST /api/v1/pssh/widevine
func (h *PSSHHandler) Widevine(w http.ResponseWriter, r *http.Request) {
	var req dto.WidevinePSSHRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Widevine(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// PlayReady handles POST /api/v1/pssh/playready
func (h *PSSHHandler) PlayReady(w http.ResponseWriter, r *http.Request) {
	var req dto.PlayReadyPSSHRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.PlayReady(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Decode handles POST /api/v1/pssh/decode
func (h *PSSHHandler) Decode(w http.ResponseWriter, r *http.Request) {
	var req dto.PSSHDecodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Decode(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

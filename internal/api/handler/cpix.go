package handler

import (
	"net/http"

	"github.com/cpixkit/cpix/internal/api/dto"
	"github.com/cpixkit/cpix/internal/api/service"
)

// CPIXHandler handles CPIX document requests.
type CPIXHandler struct {
	service *service.CPIXService
}

// NewCPIXHandler creates a new CPIXHandler.
func NewCPIXHandler(cpixService *service.CPIXService) *CPIXHandler {
	return &CPIXHandler{service: cpixService}
}

// Validate handles POST /api/v1/cpix/validate
func (h *CPIXHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.CPIXValidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Validate(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

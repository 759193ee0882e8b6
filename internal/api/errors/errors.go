// Package errors provides error handling and HTTP status code mapping.
package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cpixkit/cpix/internal/api/dto"
	"github.com/cpixkit/cpix/pkg/cpix"
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
	"github.com/cpixkit/cpix/pkg/pssh"
	"github.com/cpixkit/cpix/pkg/widevine"
)

// Error codes for API responses.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
	CodeInvalidKeyID    = "INVALID_KEY_ID"
	CodeInvalidPSSH     = "INVALID_PSSH"
	CodeInvalidDocument = "INVALID_DOCUMENT"
	CodeSeedTooShort    = "KEY_SEED_TOO_SHORT"
	CodeUnknownAlgo     = "UNKNOWN_ALGORITHM"
	CodeMissingKeyIDs   = "MISSING_KEY_IDS"
	CodeAuditFailed     = "AUDIT_FAILED"
)

// ErrInvalidRequest marks errors caused by the request content rather than
// by the server.
var ErrInvalidRequest = errors.New("invalid request")

// ErrAudit marks audit log write failures.
var ErrAudit = errors.New("audit log failed")

// MapError maps an internal error to an HTTP status code and APIError.
func MapError(err error) (int, *dto.APIError) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case errors.Is(err, ErrAudit):
		return http.StatusInternalServerError, &dto.APIError{
			Code:    CodeAuditFailed,
			Message: "The operation could not be audited",
		}
	case errors.Is(err, keyid.ErrInvalidKeyID):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeInvalidKeyID,
			Message: err.Error(),
		}
	case errors.Is(err, playready.ErrSeedTooShort):
		return http.StatusInternalServerError, &dto.APIError{
			Code:    CodeSeedTooShort,
			Message: "The configured key seed is too short",
		}
	case errors.Is(err, playready.ErrUnknownAlgorithm):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeUnknownAlgo,
			Message: err.Error(),
		}
	case errors.Is(err, widevine.ErrMissingKeyIDsAndContentID), errors.Is(err, playready.ErrNoKeys):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeMissingKeyIDs,
			Message: err.Error(),
		}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, NewBadRequest(err.Error())
	}

	// Typed errors carry the failing operation
	var psshErr *pssh.PSSHError
	if errors.As(err, &psshErr) {
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    CodeInvalidPSSH,
			Message: psshErr.Error(),
			Details: map[string]string{"operation": psshErr.Op},
		}
	}
	var prErr *playready.PlayReadyError
	if errors.As(err, &prErr) {
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    "PLAYREADY_" + strings.ToUpper(prErr.Op) + "_ERROR",
			Message: prErr.Error(),
			Details: map[string]string{"operation": prErr.Op},
		}
	}
	var wvErr *widevine.WidevineError
	if errors.As(err, &wvErr) {
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    "WIDEVINE_" + strings.ToUpper(wvErr.Op) + "_ERROR",
			Message: wvErr.Error(),
			Details: map[string]string{"operation": wvErr.Op},
		}
	}
	var cpixErr *cpix.CPIXError
	if errors.As(err, &cpixErr) {
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    CodeInvalidDocument,
			Message: cpixErr.Error(),
		}
	}

	// Default internal error
	return http.StatusInternalServerError, &dto.APIError{
		Code:    CodeInternal,
		Message: "An internal error occurred",
	}
}

// NewBadRequest creates a bad request error.
func NewBadRequest(message string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeInvalidRequest,
		Message: message,
	}
}

// NewNotFound creates a not found error.
func NewNotFound(resource, id string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeNotFound,
		Message: resource + " not found",
		Details: map[string]string{"id": id},
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string, details map[string]string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

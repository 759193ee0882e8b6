// Package widevine builds and parses Widevine PSSH payloads, signs key server
// requests and talks to the Widevine common encryption key server.
package widevine

import (
	"errors"
	"fmt"
)

// WidevineError represents a Widevine operation error with structured context.
type WidevineError struct {
	Op  string // Operation: "header", "pssh", "parse", "sign", "keyserver"
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *WidevineError) Error() string {
	return fmt.Sprintf("widevine %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *WidevineError) Unwrap() error { return e.Err }

func newError(op string, err error) *WidevineError {
	return &WidevineError{Op: op, Err: err}
}

// Sentinel errors for Widevine operations.
var (
	// ErrMissingKeyIDsAndContentID indicates header parameters with neither key IDs nor a content ID.
	ErrMissingKeyIDsAndContentID = errors.New("at least one of key IDs or content ID is required")

	// ErrInvalidSignerKey indicates a signing key that is not a valid AES key.
	ErrInvalidSignerKey = errors.New("invalid signer key")

	// ErrInvalidIV indicates a signing IV that is not 16 bytes.
	ErrInvalidIV = errors.New("invalid signer IV")

	// ErrInvalidPsshData indicates a payload that is not a valid protobuf message.
	ErrInvalidPsshData = errors.New("invalid Widevine PSSH data")

	// ErrNotWidevine indicates a PSSH box for another protection system.
	ErrNotWidevine = errors.New("not a Widevine PSSH box")

	// ErrKeyServerHTTP indicates a non-200 response or transport failure.
	ErrKeyServerHTTP = errors.New("key server request failed")

	// ErrKeyServerStatus indicates a key server response with a status other than OK.
	ErrKeyServerStatus = errors.New("key server returned an error status")
)

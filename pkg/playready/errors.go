// Package playready builds PlayReady license headers (WRM headers),
// PlayReady objects and PSSH boxes, and implements the PlayReady key seed
// derivation and key checksum algorithms.
package playready

import (
	"errors"
	"fmt"
)

// PlayReadyError represents a PlayReady operation error with structured context.
type PlayReadyError struct {
	Op  string // Operation: "header", "object", "pssh", "derive", "checksum", "parse"
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *PlayReadyError) Error() string {
	return fmt.Sprintf("playready %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *PlayReadyError) Unwrap() error { return e.Err }

func newError(op string, err error) *PlayReadyError {
	return &PlayReadyError{Op: op, Err: err}
}

// Sentinel errors for PlayReady operations.
var (
	// ErrSeedTooShort indicates a key seed shorter than MinSeedSize bytes.
	ErrSeedTooShort = errors.New("key seed too short")

	// ErrInvalidContentKey indicates a content key that is missing or not 16 bytes.
	ErrInvalidContentKey = errors.New("invalid content key")

	// ErrUnknownAlgorithm indicates an ALGID other than AESCTR or AESCBC.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrNoKeys indicates a header without key IDs.
	ErrNoKeys = errors.New("no keys")

	// ErrHeaderTooLarge indicates a header that does not fit a record.
	ErrHeaderTooLarge = errors.New("header too large")

	// ErrInvalidObject indicates a malformed PlayReady object.
	ErrInvalidObject = errors.New("invalid PlayReady object")

	// ErrNoHeaderRecord indicates a PlayReady object without a WRM header record.
	ErrNoHeaderRecord = errors.New("no WRM header record")

	// ErrInvalidHeader indicates a WRM header that cannot be parsed.
	ErrInvalidHeader = errors.New("invalid WRM header")
)

// Package cpix models DASH-IF Content Protection Information Exchange (CPIX)
// documents: content keys, DRM system signaling, key periods and usage
// rules. Documents are serialized to and parsed from XML.
package cpix

import (
	"errors"
	"fmt"
)

// CPIXError represents a CPIX operation error with structured context.
type CPIXError struct {
	Op  string // Operation: "marshal", "parse", "validate"
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *CPIXError) Error() string {
	return fmt.Sprintf("cpix %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CPIXError) Unwrap() error { return e.Err }

func newError(op string, err error) *CPIXError {
	return &CPIXError{Op: op, Err: err}
}

// Sentinel errors for CPIX operations.
var (
	// ErrInvalidDocument indicates malformed CPIX XML or inconsistent content.
	ErrInvalidDocument = errors.New("invalid CPIX document")

	// ErrUnknownSystemID indicates a DRM system entry for an unsupported protection system.
	ErrUnknownSystemID = errors.New("unknown DRM system ID")

	// ErrMissingContentKey indicates a reference to a key ID without a content key.
	ErrMissingContentKey = errors.New("references missing content key")

	// ErrMissingPeriod indicates a key period filter for an undeclared period.
	ErrMissingPeriod = errors.New("references missing key period")
)

// Package pssh implements the ISO/IEC 23001-7 Protection System Specific
// Header ("pssh") box used by Common Encryption and CPIX documents.
package pssh

import (
	"errors"
	"fmt"
)

// PSSHError represents a box codec error with structured context.
// It supports errors.Is() and errors.As() for improved error handling.
type PSSHError struct {
	Op  string // Operation: "encode", "decode", "extract"
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *PSSHError) Error() string {
	return fmt.Sprintf("pssh %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *PSSHError) Unwrap() error { return e.Err }

func newError(op string, err error) *PSSHError {
	return &PSSHError{Op: op, Err: err}
}

func errorf(op string, sentinel error, format string, args ...any) *PSSHError {
	return newError(op, fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

// Sentinel errors for box operations.
// Use errors.Is() to check for these errors through the error chain.
var (
	// ErrInvalidSize indicates the declared size does not match the data.
	ErrInvalidSize = errors.New("invalid box size")

	// ErrTruncated indicates the buffer ends before a required field.
	ErrTruncated = errors.New("truncated box")

	// ErrInvalidBoxType indicates a type tag other than "pssh".
	ErrInvalidBoxType = errors.New("invalid box type")

	// ErrInvalidFlags indicates non-zero flags.
	ErrInvalidFlags = errors.New("invalid box flags")

	// ErrUnsupportedVersion indicates a version other than 0 or 1.
	ErrUnsupportedVersion = errors.New("unsupported box version")

	// ErrInvalidSystemID indicates a system ID that is not 16 bytes.
	ErrInvalidSystemID = errors.New("invalid system ID")

	// ErrInvalidKeyID indicates a key ID that is not 16 bytes.
	ErrInvalidKeyID = errors.New("invalid key ID")

	// ErrKeyIDsWithVersion0 indicates key IDs were supplied for a version 0 box.
	ErrKeyIDsWithVersion0 = errors.New("key IDs require box version 1")

	// ErrNoBoxes indicates a media file carries no pssh box.
	ErrNoBoxes = errors.New("no pssh boxes found")
)

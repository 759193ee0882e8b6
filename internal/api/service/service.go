// Package service provides business logic for the REST API.
package service

import (
	"fmt"

	apierrors "github.com/cpixkit/cpix/internal/api/errors"
	"github.com/cpixkit/cpix/pkg/keyid"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apierrors.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// audited wraps an audit write failure so it maps to an audit error.
func audited(err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrAudit, err)
	}
	return nil
}

// boxVersion resolves an optional box version, defaulting to 1.
func boxVersion(v *int) (uint8, error) {
	if v == nil {
		return 1, nil
	}
	if *v != 0 && *v != 1 {
		return 0, invalid("version must be 0 or 1, got %d", *v)
	}
	return uint8(*v), nil
}

func keyIDStrings(kids []keyid.KeyID) []string {
	out := make([]string, len(kids))
	for i, k := range kids {
		out[i] = k.String()
	}
	return out
}

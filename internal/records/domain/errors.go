package domain

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/dnsm/internal/domain"
)

// Re-export shared sentinel errors so record callers do not need to import
// the cross-domain package directly.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = domain.ErrNotFound

	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = domain.ErrUnauthorized

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = domain.ErrRateLimited

	// ErrConflict indicates the (name, type, value) triple is already taken.
	ErrConflict = domain.ErrConflict

	// ErrValidation indicates malformed input.
	ErrValidation = domain.ErrValidation

	// ErrPersistence indicates the store returned no row for a write.
	ErrPersistence = domain.ErrPersistence
)

// Side identifies which half of a dual write failed.
type Side string

const (
	SideProvider Side = "provider"
	SideStore    Side = "store"
	SideBoth     Side = "both"
)

// PartialFailureError reports that one or both of the concurrent
// provider and store calls of a reconciler operation failed. The other
// side, if it succeeded, is not rolled back.
type PartialFailureError struct {
	// Op is the reconciler operation, e.g. "create" or "expire".
	Op string

	// Side names the failed half.
	Side Side

	// Cause is the failing side's error. When both sides failed it is
	// errors.Join(providerErr, storeErr).
	Cause error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %s side failed: %v", e.Op, e.Side, e.Cause)
}

func (e *PartialFailureError) Unwrap() error { return e.Cause }

// NewPartialFailure builds a PartialFailureError from the two side results.
// It returns nil when both errors are nil.
func NewPartialFailure(op string, providerErr, storeErr error) error {
	switch {
	case providerErr != nil && storeErr != nil:
		return &PartialFailureError{Op: op, Side: SideBoth, Cause: errors.Join(providerErr, storeErr)}
	case providerErr != nil:
		return &PartialFailureError{Op: op, Side: SideProvider, Cause: providerErr}
	case storeErr != nil:
		return &PartialFailureError{Op: op, Side: SideStore, Cause: storeErr}
	}
	return nil
}

// FailedSide returns the failed side if err is, or wraps, a
// PartialFailureError.
func FailedSide(err error) (Side, bool) {
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return pf.Side, true
	}
	return "", false
}

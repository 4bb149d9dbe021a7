package domain

import "errors"

// Sentinel errors for cross-provider error classification.
// Providers and stores wrap these so the CLI can handle error categories
// uniformly without importing provider-specific SDKs.
//
//	return fmt.Errorf("failed to delete record: %w", domain.ErrNotFound)
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates the request was rejected due to
	// invalid, expired, or missing credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrConflict indicates a state or uniqueness conflict, such as
	// a record whose (name, type, value) triple is already taken.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates the caller supplied input that can never
	// succeed, such as a missing owner or a malformed record value.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence indicates the store accepted a write but did not
	// return the resulting row.
	ErrPersistence = errors.New("persistence failed")
)

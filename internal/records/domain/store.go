package domain

import (
	"context"
	"time"
)

// Filter selects records by their uniqueness triple.
type Filter struct {
	Name  string
	Type  RecordType
	Value string
}

// Fields is the full column set written by Insert and Update. Nil metadata
// pointers on Update keep the stored value.
type Fields struct {
	Owner       string
	Type        RecordType
	Name        string
	Value       string
	Description *string
	Course      *string
	Ports       *string
	Status      Status
	ExpiresAt   time.Time
}

// Store persists record metadata. Implementations map a violated
// (name, type, value) unique index to ErrConflict and a missing id on
// Update or Delete to ErrNotFound.
type Store interface {
	// Count returns how many persisted records match f.
	Count(ctx context.Context, f Filter) (int, error)

	// Insert writes a new record and returns the stored row.
	Insert(ctx context.Context, f Fields) (*PersistedRecord, error)

	// Update rewrites the record with the given id and returns the stored row.
	Update(ctx context.Context, id int64, f Fields) (*PersistedRecord, error)

	// Delete removes the record with the given id and returns its last state.
	Delete(ctx context.Context, id int64) (*PersistedRecord, error)

	// FindByID returns the record with the given id, or nil when absent.
	FindByID(ctx context.Context, id int64) (*PersistedRecord, error)
}

// ListOptions narrows a List query. Zero values do not filter.
type ListOptions struct {
	Owner         string
	Status        Status
	ExpiresBefore time.Time
	Limit         int
}

// Lister is implemented by stores that support browsing and propagation
// status updates outside the reconciler.
type Lister interface {
	// List returns records ordered by expiry, soonest first.
	List(ctx context.Context, opts ListOptions) ([]PersistedRecord, error)

	// SetStatus records the propagation state of a record.
	SetStatus(ctx context.Context, id int64, status Status) error
}

// RecordStore is a Store that also supports listing, and owns resources.
type RecordStore interface {
	Store
	Lister
	Close() error
}

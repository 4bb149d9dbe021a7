package domain

import "context"

// Provider is the interface that authoritative DNS providers implement.
// Each call touches exactly one resource record identified by
// (type, name, value). Owner is passed for providers that can tag records
// (e.g. a comment field) and is otherwise ignored.
type Provider interface {
	// GetDisplayName returns the human-readable provider name (e.g. "Cloudflare").
	GetDisplayName() string

	// CreateRecord adds the record to the zone.
	CreateRecord(ctx context.Context, owner string, t RecordType, name, value string) error

	// UpsertRecord creates the record or replaces the value of an existing
	// record with the same name and type.
	UpsertRecord(ctx context.Context, owner string, t RecordType, name, value string) error

	// DeleteRecord removes the record from the zone.
	DeleteRecord(ctx context.Context, owner string, t RecordType, name, value string) error
}

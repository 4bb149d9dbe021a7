package domain

import (
	"strings"
	"time"
)

// RecordType represents a DNS record type.
type RecordType string

const (
	RecordTypeA     RecordType = "A"
	RecordTypeAAAA  RecordType = "AAAA"
	RecordTypeCNAME RecordType = "CNAME"
	RecordTypeTXT   RecordType = "TXT"
	RecordTypeMX    RecordType = "MX"
	RecordTypeNS    RecordType = "NS"
	RecordTypeSRV   RecordType = "SRV"
	RecordTypeCAA   RecordType = "CAA"
)

// SupportedTypes lists the record types accepted by Validate.
var SupportedTypes = []RecordType{
	RecordTypeA, RecordTypeAAAA, RecordTypeCNAME, RecordTypeTXT,
	RecordTypeMX, RecordTypeNS, RecordTypeSRV, RecordTypeCAA,
}

// Status is the propagation state of a persisted record.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusError   Status = "error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusError:
		return true
	}
	return false
}

// Record is the input to every reconciler operation.
type Record struct {
	// ID is the store-assigned identifier. Zero until persisted.
	ID int64 `json:"id,omitempty"`

	// Owner identifies the user that owns the record. Required and immutable.
	Owner string `json:"owner"`

	// Type is the DNS record type.
	Type RecordType `json:"type"`

	// Name is the fully-qualified record name. Compared case-insensitively.
	Name string `json:"name"`

	// Value is the record content (address, target host, text).
	Value string `json:"value"`

	// Description, Course and Ports are store-only metadata and are never
	// sent to the provider. On create nil means empty; on update nil means
	// keep the stored value.
	Description *string `json:"description,omitempty"`
	Course      *string `json:"course,omitempty"`
	Ports       *string `json:"ports,omitempty"`
}

// PersistedRecord is a record as held by the store.
type PersistedRecord struct {
	ID          int64      `json:"id"`
	Owner       string     `json:"owner"`
	Type        RecordType `json:"type"`
	Name        string     `json:"name"`
	Value       string     `json:"value"`
	Description string     `json:"description,omitempty"`
	Course      string     `json:"course,omitempty"`
	Ports       string     `json:"ports,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// Record returns the identity and metadata of p as reconciler input.
func (p *PersistedRecord) Record() Record {
	desc, course, ports := p.Description, p.Course, p.Ports
	return Record{
		ID:          p.ID,
		Owner:       p.Owner,
		Type:        p.Type,
		Name:        p.Name,
		Value:       p.Value,
		Description: &desc,
		Course:      &course,
		Ports:       &ports,
	}
}

// NormalizeName lower-cases a record name and strips surrounding
// whitespace and a trailing root dot.
func NormalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

// NormalizeType upper-cases a record type.
func NormalizeType(t string) RecordType {
	return RecordType(strings.ToUpper(strings.TrimSpace(t)))
}

package auditlog

import (
	"context"
	"strings"
	"time"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	// OutcomePartial marks an operation where the provider and the store
	// disagree afterwards: one side applied the change and the other did not.
	OutcomePartial = "partial"
)

// Annotation marks a cobra command (and its subcommands) as audited.
const Annotation = "dnsm.audit"

// AuditEntry represents a persisted audit event.
type AuditEntry struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Command    string    `json:"command"`
	Args       string    `json:"args,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Owner      string    `json:"owner,omitempty"`
	RecordType string    `json:"record_type,omitempty"`
	RecordID   string    `json:"record_id,omitempty"`
	RecordName string    `json:"record_name,omitempty"`
	Outcome    string    `json:"outcome"`
	FailedSide string    `json:"failed_side,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// NewEntry builds the entry for a finished command from its context
// metadata and result.
func NewEntry(ctx context.Context, command string, args []string, start time.Time, err error) *AuditEntry {
	meta := MetadataFromContext(ctx)
	entry := &AuditEntry{
		Timestamp:  start.UTC(),
		Command:    command,
		Args:       strings.Join(SanitizeArgs(args), " "),
		Provider:   meta.Provider,
		Owner:      meta.Owner,
		RecordType: meta.RecordType,
		RecordID:   meta.RecordID,
		RecordName: meta.RecordName,
		Outcome:    OutcomeSuccess,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err == nil {
		return entry
	}

	entry.Outcome = OutcomeError
	entry.Detail = err.Error()
	if side, ok := domain.FailedSide(err); ok {
		entry.FailedSide = string(side)
		if side != domain.SideBoth {
			entry.Outcome = OutcomePartial
		}
	}
	return entry
}

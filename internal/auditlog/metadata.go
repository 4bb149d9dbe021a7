package auditlog

import "context"

// Metadata describes the record a command acted on. Commands attach it to
// their context as they learn it; the audit writer reads it at the end.
type Metadata struct {
	Provider   string
	Owner      string
	RecordType string
	RecordID   string
	RecordName string
}

type metadataKey struct{}

// WithMetadata attaches audit metadata to a context. Empty fields keep any
// value already attached.
func WithMetadata(ctx context.Context, meta Metadata) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	existing, _ := ctx.Value(metadataKey{}).(Metadata)
	merged := Metadata{
		Provider:   pick(meta.Provider, existing.Provider),
		Owner:      pick(meta.Owner, existing.Owner),
		RecordType: pick(meta.RecordType, existing.RecordType),
		RecordID:   pick(meta.RecordID, existing.RecordID),
		RecordName: pick(meta.RecordName, existing.RecordName),
	}
	return context.WithValue(ctx, metadataKey{}, merged)
}

// MetadataFromContext returns audit metadata stored in the context.
func MetadataFromContext(ctx context.Context) Metadata {
	if ctx == nil {
		return Metadata{}
	}
	meta, _ := ctx.Value(metadataKey{}).(Metadata)
	return meta
}

func pick(next, fallback string) string {
	if next != "" {
		return next
	}
	return fallback
}

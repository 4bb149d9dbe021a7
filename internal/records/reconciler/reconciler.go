// Package reconciler keeps a DNS record consistent between the
// authoritative provider and the record store.
//
// Every operation issues its provider call and its store call
// concurrently and waits for both. There is no ordering between the two
// effects and no compensating rollback: when one side fails the operation
// returns a *domain.PartialFailureError naming it, and the other side's
// effect stays in place.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/records/expiry"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpExpire = "expire"
)

// Reconciler runs the record lifecycle across a provider and a store.
type Reconciler struct {
	provider      domain.Provider
	store         domain.Store
	policy        *expiry.Policy
	renewalMonths int
	log           log.FieldLogger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock sets the clock used for expiry decisions.
func WithClock(now expiry.Clock) Option {
	return func(r *Reconciler) { r.policy = expiry.New(now) }
}

// WithRenewalMonths sets how far in the future a created or updated record
// expires. Non-positive values keep expiry.RenewalMonths.
func WithRenewalMonths(months int) Option {
	return func(r *Reconciler) {
		if months > 0 {
			r.renewalMonths = months
		}
	}
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l log.FieldLogger) Option {
	return func(r *Reconciler) { r.log = l }
}

// New returns a Reconciler over provider and store.
func New(provider domain.Provider, store domain.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		provider:      provider,
		store:         store,
		policy:        expiry.New(nil),
		renewalMonths: expiry.RenewalMonths,
		log:           log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the expiry policy the reconciler decides with.
func (r *Reconciler) Policy() *expiry.Policy { return r.policy }

// Create adds rec to the provider and inserts it into the store as
// pending, expiring RenewalMonths from now.
func (r *Reconciler) Create(ctx context.Context, rec domain.Record) (*domain.PersistedRecord, error) {
	rec = normalize(rec)
	if err := domain.Validate(rec); err != nil {
		return nil, err
	}
	logger := r.entry(OpCreate, rec)

	n, err := r.store.Count(ctx, domain.Filter{Name: rec.Name, Type: rec.Type, Value: rec.Value})
	if err != nil {
		return nil, fmt.Errorf("%s: uniqueness check failed: %w", OpCreate, err)
	}
	if n > 0 {
		return nil, fmt.Errorf("%s: %s %s %s: %w", OpCreate, rec.Type, rec.Name, rec.Value, domain.ErrConflict)
	}

	fields := r.fields(rec)
	var stored *domain.PersistedRecord
	err = r.both(ctx, OpCreate, logger,
		func(ctx context.Context) error {
			return r.provider.CreateRecord(ctx, rec.Owner, rec.Type, rec.Name, rec.Value)
		},
		func(ctx context.Context) (err error) {
			stored, err = r.store.Insert(ctx, fields)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return r.result(OpCreate, logger, stored)
}

// Update upserts rec at the provider and rewrites the stored record with
// id rec.ID. Status returns to pending and the expiry is renewed even when
// nothing else changed.
//
// The owner is immutable: an empty rec.Owner takes the stored owner and a
// different one fails with ErrValidation. When the name or type changed,
// the provider record under the old name or type is left in place.
func (r *Reconciler) Update(ctx context.Context, rec domain.Record) (*domain.PersistedRecord, error) {
	rec = normalize(rec)
	current, err := r.store.FindByID(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: lookup of record %d failed: %w", OpUpdate, rec.ID, err)
	}
	if current != nil {
		switch {
		case rec.Owner == "":
			rec.Owner = current.Owner
		case rec.Owner != current.Owner:
			return nil, fmt.Errorf("%s: record %d belongs to %q, owner cannot change to %q: %w",
				OpUpdate, rec.ID, current.Owner, rec.Owner, domain.ErrValidation)
		}
	}
	if err := domain.Validate(rec); err != nil {
		return nil, err
	}
	logger := r.entry(OpUpdate, rec)

	fields := r.fields(rec)
	var stored *domain.PersistedRecord
	err = r.both(ctx, OpUpdate, logger,
		func(ctx context.Context) error {
			return r.provider.UpsertRecord(ctx, rec.Owner, rec.Type, rec.Name, rec.Value)
		},
		func(ctx context.Context) (err error) {
			stored, err = r.store.Update(ctx, rec.ID, fields)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return r.result(OpUpdate, logger, stored)
}

// Delete removes rec from the provider and the record with id rec.ID from
// the store, returning the store's last copy.
func (r *Reconciler) Delete(ctx context.Context, rec domain.Record) (*domain.PersistedRecord, error) {
	rec = normalize(rec)
	return r.delete(ctx, OpDelete, rec)
}

// RemoveIfExpired re-reads the record with id rec.ID and deletes it when
// it has expired, using the stored identity rather than rec's. It returns
// nil, nil when the record has not expired.
func (r *Reconciler) RemoveIfExpired(ctx context.Context, rec domain.Record) (*domain.PersistedRecord, error) {
	fresh, err := r.store.FindByID(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: lookup of record %d failed: %w", OpExpire, rec.ID, err)
	}
	if fresh == nil {
		return nil, fmt.Errorf("%s: record %d: %w", OpExpire, rec.ID, domain.ErrNotFound)
	}

	if !r.policy.IsExpired(fresh.ExpiresAt) {
		r.entry(OpExpire, fresh.Record()).WithField("expires_at", fresh.ExpiresAt).Debug("record not expired")
		return nil, nil
	}
	return r.delete(ctx, OpExpire, fresh.Record())
}

func (r *Reconciler) delete(ctx context.Context, op string, rec domain.Record) (*domain.PersistedRecord, error) {
	logger := r.entry(op, rec)

	var deleted *domain.PersistedRecord
	err := r.both(ctx, op, logger,
		func(ctx context.Context) error {
			return r.provider.DeleteRecord(ctx, rec.Owner, rec.Type, rec.Name, rec.Value)
		},
		func(ctx context.Context) (err error) {
			deleted, err = r.store.Delete(ctx, rec.ID)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return r.result(op, logger, deleted)
}

// both runs the provider and store calls concurrently and waits for both.
// A plain errgroup.Group is used so that one side failing never cancels
// the other.
func (r *Reconciler) both(ctx context.Context, op string, logger log.FieldLogger, providerCall, storeCall func(context.Context) error) error {
	var providerErr, storeErr error
	var g errgroup.Group

	g.Go(func() error {
		providerErr = providerCall(ctx)
		return nil
	})
	g.Go(func() error {
		storeErr = storeCall(ctx)
		return nil
	})
	_ = g.Wait()

	err := domain.NewPartialFailure(op, providerErr, storeErr)
	if side, ok := domain.FailedSide(err); ok {
		logger.WithField("side", side).WithError(err).Error("record reconciliation failed")
	}
	return err
}

func (r *Reconciler) result(op string, logger log.FieldLogger, rec *domain.PersistedRecord) (*domain.PersistedRecord, error) {
	if rec == nil {
		logger.Error("store returned no record")
		return nil, fmt.Errorf("%s: store returned no record: %w", op, domain.ErrPersistence)
	}
	logger.WithField("id", rec.ID).Info("record reconciled")
	return rec, nil
}

func (r *Reconciler) fields(rec domain.Record) domain.Fields {
	return domain.Fields{
		Owner:       rec.Owner,
		Type:        rec.Type,
		Name:        rec.Name,
		Value:       rec.Value,
		Description: rec.Description,
		Course:      rec.Course,
		Ports:       rec.Ports,
		Status:      domain.StatusPending,
		ExpiresAt:   r.expiresAt(),
	}
}

func (r *Reconciler) expiresAt() time.Time {
	return r.policy.MonthsFromNow(r.renewalMonths)
}

func (r *Reconciler) entry(op string, rec domain.Record) log.FieldLogger {
	return r.log.WithFields(log.Fields{
		"op":       op,
		"owner":    rec.Owner,
		"type":     rec.Type,
		"name":     rec.Name,
		"id":       rec.ID,
		"provider": r.provider.GetDisplayName(),
	})
}

func normalize(rec domain.Record) domain.Record {
	rec.Name = domain.NormalizeName(rec.Name)
	rec.Type = domain.NormalizeType(string(rec.Type))
	return rec
}

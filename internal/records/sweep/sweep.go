// Package sweep removes expired records and reports those about to lapse.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"nathanbeddoewebdev/dnsm/internal/metrics"
	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/records/expiry"
	"nathanbeddoewebdev/dnsm/internal/records/reconciler"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
)

// ErrLocked is returned when another sweep holds the lock.
var ErrLocked = errors.New("another sweep is running")

// Failure is an expired record whose removal failed.
type Failure struct {
	Record  domain.PersistedRecord `json:"record"`
	Side    domain.Side            `json:"side"`
	Err     error                  `json:"-"`
	Message string                 `json:"error"`
}

// Report summarises a single sweep.
type Report struct {
	At           time.Time                `json:"at"`
	Checked      int                      `json:"checked"`
	Removed      []domain.PersistedRecord `json:"removed"`
	Failed       []Failure                `json:"failed"`
	ExpiringSoon []domain.PersistedRecord `json:"expiring_soon"`
}

// Sweeper runs RemoveIfExpired over every expired record.
type Sweeper struct {
	rec           *reconciler.Reconciler
	lister        domain.Lister
	metrics       *metrics.Metrics
	warningMonths int
	log           log.FieldLogger
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithMetrics records sweep outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// WithWarningMonths sets the window for ExpiringSoon.
func WithWarningMonths(months int) Option {
	return func(s *Sweeper) { s.warningMonths = months }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Sweeper) { s.log = l }
}

// New returns a Sweeper that lists candidates from lister and removes
// them through rec.
func New(rec *reconciler.Reconciler, lister domain.Lister, opts ...Option) *Sweeper {
	s := &Sweeper{rec: rec, lister: lister, log: log.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep removes every record that has expired. Per-record failures are
// collected in the report; only a failed listing aborts the sweep.
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	policy := s.rec.Policy()
	now := policy.Now()
	report := &Report{At: now}

	expired, err := s.lister.List(ctx, domain.ListOptions{ExpiresBefore: now})
	if err != nil {
		return nil, fmt.Errorf("sweep: failed to list expired records: %w", err)
	}
	report.Checked = len(expired)

	for _, rec := range expired {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		removed, err := s.rec.RemoveIfExpired(ctx, rec.Record())
		if err != nil {
			if _, partial := domain.FailedSide(err); !partial && errors.Is(err, domain.ErrNotFound) {
				// Deleted since the listing.
				continue
			}
			s.fail(report, rec, err)
			continue
		}
		if removed != nil {
			report.Removed = append(report.Removed, *removed)
		}
	}

	window := s.warningMonths
	if window <= 0 {
		window = expiry.DefaultWarningMonths
	}
	upcoming, err := s.lister.List(ctx, domain.ListOptions{ExpiresBefore: policy.MonthsFromNow(window)})
	if err != nil {
		return report, fmt.Errorf("sweep: failed to list expiring records: %w", err)
	}
	for _, rec := range upcoming {
		if !policy.IsExpired(rec.ExpiresAt) && policy.WillExpireIn(rec.ExpiresAt, window) {
			report.ExpiringSoon = append(report.ExpiringSoon, rec)
		}
	}

	s.observe(report)
	s.log.WithFields(log.Fields{
		"checked":       report.Checked,
		"removed":       len(report.Removed),
		"failed":        len(report.Failed),
		"expiring_soon": len(report.ExpiringSoon),
	}).Info("sweep finished")
	return report, nil
}

// Run sweeps immediately and then every interval until ctx is done. A
// failed sweep is logged and does not stop the loop.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration, onReport func(*Report)) error {
	if interval <= 0 {
		return fmt.Errorf("sweep: interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := s.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			s.log.WithError(err).Error("sweep failed")
		}
		if report != nil && onReport != nil {
			onReport(report)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) fail(report *Report, rec domain.PersistedRecord, err error) {
	side, ok := domain.FailedSide(err)
	if !ok {
		side = domain.SideStore
	}
	report.Failed = append(report.Failed, Failure{Record: rec, Side: side, Err: err, Message: err.Error()})
	s.log.WithFields(log.Fields{"id": rec.ID, "name": rec.Name, "side": side}).WithError(err).Warn("failed to remove expired record")
}

func (s *Sweeper) observe(r *Report) {
	if s.metrics == nil {
		return
	}
	s.metrics.SweepRuns.Inc()
	s.metrics.RecordsExpired.Add(float64(len(r.Removed)))
	for _, f := range r.Failed {
		s.metrics.SweepFailures.WithLabelValues(string(f.Side)).Inc()
	}
	s.metrics.ExpiringSoon.Set(float64(len(r.ExpiringSoon)))
	s.metrics.LastSweepUnixTS.Set(float64(r.At.Unix()))
}

// Lock takes an exclusive, non-blocking file lock next to dbPath so that
// only one sweeper runs against a database. The caller must Unlock.
func Lock(dbPath string) (*flock.Flock, error) {
	lock := flock.New(filepath.Clean(dbPath) + ".sweep.lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("sweep: failed to take lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock, nil
}

// SharedLocker is implemented by stores that several hosts reach over
// the network. The lock it hands out excludes every client of the store,
// not just processes on this host.
type SharedLocker interface {
	TryLockSweep(ctx context.Context) (release func() error, ok bool, err error)
}

// LockStore takes st's shared lock when st is a SharedLocker and the file
// lock next to dbPath otherwise. The returned func releases the lock.
func LockStore(ctx context.Context, st any, dbPath string) (func() error, error) {
	if sl, ok := st.(SharedLocker); ok {
		release, held, err := sl.TryLockSweep(ctx)
		if err != nil {
			return nil, fmt.Errorf("sweep: failed to take lock: %w", err)
		}
		if !held {
			return nil, ErrLocked
		}
		return release, nil
	}

	lock, err := Lock(dbPath)
	if err != nil {
		return nil, err
	}
	return lock.Unlock, nil
}

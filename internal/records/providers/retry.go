package providers

import (
	"context"
	"time"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/retry"

	log "github.com/sirupsen/logrus"
)

// retryingProvider retries transient provider failures. It sits outside
// the reconciler, so a retried call is still a single provider side.
type retryingProvider struct {
	next domain.Provider
	cfg  retry.Config
	log  log.FieldLogger
}

// WithRetry wraps p so that throttled or timed-out calls are retried with
// backoff according to cfg.
func WithRetry(p domain.Provider, cfg retry.Config, logger log.FieldLogger) domain.Provider {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &retryingProvider{next: p, cfg: cfg, log: logger}
}

func (r *retryingProvider) GetDisplayName() string {
	return r.next.GetDisplayName()
}

func (r *retryingProvider) CreateRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	return r.do(ctx, "create", name, func() error {
		return r.next.CreateRecord(ctx, owner, t, name, value)
	})
}

func (r *retryingProvider) UpsertRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	return r.do(ctx, "upsert", name, func() error {
		return r.next.UpsertRecord(ctx, owner, t, name, value)
	})
}

func (r *retryingProvider) DeleteRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	return r.do(ctx, "delete", name, func() error {
		return r.next.DeleteRecord(ctx, owner, t, name, value)
	})
}

func (r *retryingProvider) do(ctx context.Context, op, name string, fn func() error) error {
	cfg := r.cfg
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		r.log.WithFields(log.Fields{
			"provider": r.next.GetDisplayName(),
			"call":     op,
			"name":     name,
			"attempt":  attempt,
			"delay":    delay,
		}).WithError(err).Warn("provider call failed, retrying")
	}
	return retry.Do(ctx, cfg, retry.IsRetryable, fn)
}

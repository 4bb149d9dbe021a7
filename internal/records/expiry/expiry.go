// Package expiry decides when a record lapses.
//
// Month arithmetic uses time.AddDate, which normalises overflowing days:
// Jan 31 minus one month is Dec 31, and Mar 31 minus one month is Mar 3 in
// a non-leap year. Every function here uses the same rule so that
// WillExpireIn and MonthsFromNow agree with each other.
package expiry

import (
	"fmt"
	"time"
)

const (
	// RenewalMonths is how long a created or updated record lives.
	RenewalMonths = 6

	// DefaultWarningMonths is the warning window callers fall back to
	// when none is configured.
	DefaultWarningMonths = 1
)

// Clock returns the current time.
type Clock func() time.Time

// Policy evaluates expiry against a clock.
type Policy struct {
	now Clock
}

// New returns a Policy reading time from now. A nil clock uses time.Now.
func New(now Clock) *Policy {
	if now == nil {
		now = time.Now
	}
	return &Policy{now: now}
}

// Now returns the policy clock's current time in UTC.
func (p *Policy) Now() time.Time {
	return p.now().UTC()
}

// IsExpired reports whether expiresAt is strictly before now.
func (p *Policy) IsExpired(expiresAt time.Time) bool {
	return IsExpiredAt(expiresAt, p.now())
}

// WillExpireIn reports whether expiresAt falls within the next months
// months. With months 0 it is the same as IsExpired.
func (p *Policy) WillExpireIn(expiresAt time.Time, months int) bool {
	return WillExpireInAt(expiresAt, months, p.now())
}

// MonthsFromNow returns now shifted forward by months months.
func (p *Policy) MonthsFromNow(months int) time.Time {
	return MonthsFrom(p.now().UTC(), months)
}

// IsExpiredAt reports whether expiresAt is strictly before now.
func IsExpiredAt(expiresAt, now time.Time) bool {
	return expiresAt.Before(now)
}

// WillExpireInAt reports whether expiresAt shifted back by months months
// is strictly before now.
func WillExpireInAt(expiresAt time.Time, months int, now time.Time) bool {
	return expiresAt.AddDate(0, -months, 0).Before(now)
}

// MonthsFrom returns t shifted forward by months months.
func MonthsFrom(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0)
}

// Hint is a short human label for expiresAt: "expired", "expires within N
// month(s)" inside the warning window, or "" otherwise.
func (p *Policy) Hint(expiresAt time.Time, months int) string {
	if months <= 0 {
		months = DefaultWarningMonths
	}
	switch {
	case p.IsExpired(expiresAt):
		return "expired"
	case p.WillExpireIn(expiresAt, months):
		if months == 1 {
			return "expires within 1 month"
		}
		return fmt.Sprintf("expires within %d months", months)
	}
	return ""
}

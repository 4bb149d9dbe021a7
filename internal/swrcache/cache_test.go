package swrcache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func newTestCache(t *testing.T, now time.Time) *Cache {
	t.Helper()
	c := WithTTLs(t.TempDir(), time.Hour, 24*time.Hour)
	c.now = func() time.Time { return now }
	return c
}

func seed(t *testing.T, c *Cache, key, data string, fetchedAt time.Time) {
	t.Helper()
	if err := writeEntry(c, key, Entry[string]{Data: data, FetchedAt: fetchedAt}); err != nil {
		t.Fatalf("writeEntry error: %v", err)
	}
}

func TestGetOrFetch(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	errUpstream := errors.New("upstream down")

	tests := []struct {
		name       string
		seededAge  time.Duration // zero means no entry
		fetchErr   error
		want       string
		wantErr    error
		wantCalled int
	}{
		{name: "miss fetches", want: "fresh", wantCalled: 1},
		{name: "fresh entry served", seededAge: 30 * time.Minute, want: "cached", wantCalled: 0},
		{name: "old entry refetched", seededAge: 2 * time.Hour, want: "fresh", wantCalled: 1},
		{name: "stale served on error", seededAge: 2 * time.Hour, fetchErr: errUpstream, want: "cached", wantCalled: 1},
		{name: "too stale fails", seededAge: 48 * time.Hour, fetchErr: errUpstream, wantErr: errUpstream, wantCalled: 1},
		{name: "miss with error fails", fetchErr: errUpstream, wantErr: errUpstream, wantCalled: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCache(t, now)
			if tt.seededAge > 0 {
				seed(t, c, "cloudflare-zone-example.com", "cached", now.Add(-tt.seededAge))
			}

			called := 0
			got, err := GetOrFetch(c, context.Background(), "cloudflare-zone-example.com", func(context.Context) (string, error) {
				called++
				if tt.fetchErr != nil {
					return "", tt.fetchErr
				}
				return "fresh", nil
			})

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if called != tt.wantCalled {
				t.Errorf("fetch called %d times, want %d", called, tt.wantCalled)
			}
		})
	}
}

func TestGetOrFetch_StoresFetchedValue(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCache(t, now)

	if _, err := GetOrFetch(c, context.Background(), "k", func(context.Context) (string, error) { return "v", nil }); err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	entry, ok := readEntry[string](c, "k")
	if !ok || entry.Data != "v" || !entry.FetchedAt.Equal(now) {
		t.Errorf("unexpected entry ok=%v %+v", ok, entry)
	}
}

func TestGetOrFetch_NilCache(t *testing.T) {
	got, err := GetOrFetch[string](nil, context.Background(), "k", func(context.Context) (string, error) { return "v", nil })
	if err != nil || got != "v" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestGetOrFetch_CorruptEntryRefetched(t *testing.T) {
	c := newTestCache(t, time.Now())
	if err := os.WriteFile(c.pathForKey("k"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := GetOrFetch(c, context.Background(), "k", func(context.Context) (string, error) { return "v", nil })
	if err != nil || got != "v" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestInvalidate(t *testing.T) {
	now := time.Now()
	c := newTestCache(t, now)
	seed(t, c, "cloudflare-zone-example.com", "a", now)
	seed(t, c, "cloudflare-zone-example.org", "b", now)
	seed(t, c, "route53-zone", "c", now)

	if err := c.Invalidate("route53-zone"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := c.Invalidate("never-written"); err != nil {
		t.Fatalf("Invalidate missing: %v", err)
	}
	if err := c.InvalidatePrefix("cloudflare-zone-"); err != nil {
		t.Fatalf("InvalidatePrefix: %v", err)
	}

	for _, key := range []string{"cloudflare-zone-example.com", "cloudflare-zone-example.org", "route53-zone"} {
		if _, ok := readEntry[string](c, key); ok {
			t.Errorf("expected %q to be removed", key)
		}
	}
}

// Package swrcache is a small file-backed JSON cache for provider lookups
// that rarely change, such as zone identifiers.
//
// Fresh entries are returned without a fetch. Older entries are refetched
// synchronously; when that fetch fails the stale entry is served instead,
// as long as it is younger than the stale limit.
package swrcache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultFreshTTL = 24 * time.Hour
	defaultMaxStale = 7 * 24 * time.Hour
)

// Entry is the on-disk form of a cached value.
type Entry[T any] struct {
	Data      T         `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cache stores entries as one JSON file per key under dir.
type Cache struct {
	dir      string
	freshTTL time.Duration
	maxStale time.Duration
	now      func() time.Time
}

// New returns a cache rooted at dir with default TTLs.
func New(dir string) *Cache {
	return WithTTLs(dir, defaultFreshTTL, defaultMaxStale)
}

// NewDefault returns a cache rooted at the OS user cache dir.
func NewDefault() *Cache {
	return New(defaultDir())
}

// WithTTLs returns a new cache rooted at dir with custom TTLs. A
// non-positive maxStale never serves stale entries.
func WithTTLs(dir string, freshTTL, maxStale time.Duration) *Cache {
	return &Cache{dir: dir, freshTTL: freshTTL, maxStale: maxStale, now: time.Now}
}

// GetOrFetch returns the cached value for key, calling fetch when the
// entry is missing or no longer fresh. A nil cache always fetches.
func GetOrFetch[T any](c *Cache, ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	if c == nil || c.dir == "" {
		return fetch(ctx)
	}

	entry, ok := readEntry[T](c, key)
	if !ok {
		return fetchAndStore(c, ctx, key, fetch)
	}

	age := c.now().Sub(entry.FetchedAt)
	if age >= 0 && age <= c.freshTTL {
		return entry.Data, nil
	}

	data, err := fetchAndStore(c, ctx, key, fetch)
	if err == nil {
		return data, nil
	}
	if age >= 0 && c.maxStale > 0 && age <= c.maxStale && ctx.Err() == nil {
		return entry.Data, nil
	}
	return data, err
}

// Invalidate removes a single cached entry.
func (c *Cache) Invalidate(key string) error {
	if c == nil || c.dir == "" {
		return nil
	}

	err := os.Remove(c.pathForKey(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// InvalidatePrefix removes cached entries with the given key prefix.
func (c *Cache) InvalidatePrefix(prefix string) error {
	if c == nil || c.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	sanitized := sanitizeKey(prefix)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, sanitized) {
			if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}

	return nil
}

func fetchAndStore[T any](c *Cache, ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	data, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	_ = writeEntry(c, key, Entry[T]{Data: data, FetchedAt: c.now()})
	return data, nil
}

// readEntry reports ok=false for missing or unreadable entries, which are
// then refetched.
func readEntry[T any](c *Cache, key string) (Entry[T], bool) {
	var entry Entry[T]
	data, err := os.ReadFile(c.pathForKey(key))
	if err != nil {
		return entry, false
	}
	if err := json.Unmarshal(data, &entry); err != nil || entry.FetchedAt.IsZero() {
		return Entry[T]{}, false
	}
	return entry, true
}

func writeEntry[T any](c *Cache, key string, entry Entry[T]) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, sanitizeKey(key)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}

	return os.Rename(name, c.pathForKey(key))
}

func (c *Cache) pathForKey(key string) string {
	return filepath.Join(c.dir, sanitizeKey(key)+".json")
}

func defaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "dnsm", "zones")
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "cache"
	}

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		ch := key[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

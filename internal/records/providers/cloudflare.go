package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/services/auth"
	"nathanbeddoewebdev/dnsm/internal/swrcache"
)

const (
	cloudflareBaseURL    = "https://api.cloudflare.com/client/v4"
	cloudflareTimeout    = 30 * time.Second
	cloudflareTokenStore = "cloudflare"

	// ZoneCachePrefix prefixes cached Cloudflare zone IDs.
	ZoneCachePrefix = "cloudflare-zone-"
)

var errZoneMissing = fmt.Errorf("no such zone: %w", domain.ErrNotFound)

// Compile-time check that CloudflareProvider satisfies domain.Provider.
var _ domain.Provider = (*CloudflareProvider)(nil)

// CloudflareProvider implements domain.Provider using the Cloudflare API v4.
// It authenticates via a scoped Account API Token (not a Global API Key).
// The token needs Zone:Read and DNS:Edit permissions.
// It uses a direct HTTP client rather than the official SDK to keep the
// dependency tree light.
type CloudflareProvider struct {
	token   string
	baseURL string
	client  *http.Client

	// zone, when set, skips zone discovery.
	zone  string
	cache *swrcache.Cache
}

// NewCloudflareProvider creates a CloudflareProvider with the given Account API Token.
func NewCloudflareProvider(token string, opts Options) *CloudflareProvider {
	return &CloudflareProvider{
		token:   token,
		baseURL: cloudflareBaseURL,
		client:  &http.Client{Timeout: cloudflareTimeout},
		zone:    domain.NormalizeName(opts.Zone),
		cache:   opts.Cache,
	}
}

// RegisterCloudflare registers the Cloudflare provider factory with the registry.
func RegisterCloudflare() {
	Register("cloudflare", func(store auth.Store, opts Options) (domain.Provider, error) {
		token, err := store.GetToken(cloudflareTokenStore)
		if err != nil {
			return nil, fmt.Errorf("cloudflare auth: token not found (run 'dnsm auth login cloudflare'): %w", err)
		}
		return NewCloudflareProvider(token, opts), nil
	})
}

// GetDisplayName returns the human-readable provider name.
func (c *CloudflareProvider) GetDisplayName() string {
	return "Cloudflare"
}

// --- API request/response types ---

// cfEnvelope is the standard Cloudflare API response wrapper.
type cfEnvelope[T any] struct {
	Success bool      `json:"success"`
	Errors  []cfError `json:"errors"`
	Result  T         `json:"result"`
}

// cfError represents a single Cloudflare API error.
type cfError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// cfListEnvelope is the envelope of list endpoints.
type cfListEnvelope[T any] struct {
	Success bool      `json:"success"`
	Errors  []cfError `json:"errors"`
	Result  []T       `json:"result"`
}

type cfZone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type cfDNSRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Comment string `json:"comment"`
}

// cfRecordBody is the request body for creating (POST) or updating
// (PATCH) a DNS record. TTL 1 means "automatic".
type cfRecordBody struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Comment string `json:"comment,omitempty"`
}

// --- HTTP helpers ---

// envelopeError extracts a single error from a Cloudflare response envelope.
// It maps known HTTP-level and API-level error codes to domain sentinels.
func envelopeError(success bool, errors []cfError, httpStatus int) error {
	if success {
		return nil
	}

	switch httpStatus {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, cfErrorString(errors))
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, cfErrorString(errors))
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, cfErrorString(errors))
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrConflict, cfErrorString(errors))
	}

	for _, e := range errors {
		msg := strings.ToLower(e.Message)
		switch {
		case e.Code == 9109 || e.Code == 10000 || strings.Contains(msg, "authentication"):
			return fmt.Errorf("%w: %s", domain.ErrUnauthorized, e.Message)
		case e.Code == 81044 || strings.Contains(msg, "not found"):
			return fmt.Errorf("%w: %s", domain.ErrNotFound, e.Message)
		case e.Code == 81057 || e.Code == 81058 || strings.Contains(msg, "already exists"):
			return fmt.Errorf("%w: %s", domain.ErrConflict, e.Message)
		}
	}

	return fmt.Errorf("cloudflare: %s", cfErrorString(errors))
}

// cfErrorString joins multiple Cloudflare errors into a single string.
func cfErrorString(errors []cfError) string {
	if len(errors) == 0 {
		return "unknown error"
	}
	msgs := make([]string, 0, len(errors))
	for _, e := range errors {
		msgs = append(msgs, fmt.Sprintf("[%d] %s", e.Code, e.Message))
	}
	return strings.Join(msgs, "; ")
}

// doJSON sends a request and decodes the envelope into out, returning the
// HTTP status for error mapping.
func (c *CloudflareProvider) doJSON(ctx context.Context, method, path string, body any, out any) (int, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("cloudflare: failed to encode request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("cloudflare: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("cloudflare: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("cloudflare: failed to decode response: %w", err)
	}

	return resp.StatusCode, nil
}

// --- Zone lookup ---

// zoneID resolves the zone that contains name. The configured zone is
// used when set; otherwise each parent domain is tried, longest first.
// Results are cached when the provider has a cache.
func (c *CloudflareProvider) zoneID(ctx context.Context, name string) (string, error) {
	for _, candidate := range c.candidates(name) {
		id, err := swrcache.GetOrFetch(c.cache, ctx, zoneCacheKey(candidate), func(ctx context.Context) (string, error) {
			return c.lookupZone(ctx, candidate)
		})
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, errZoneMissing) {
			return "", err
		}
	}
	return "", fmt.Errorf("zone for %q: %w", name, domain.ErrNotFound)
}

// withZone runs fn against the zone containing name. A cached zone that
// answers with not found is dropped and fn is retried once against a
// fresh lookup.
func (c *CloudflareProvider) withZone(ctx context.Context, name string, fn func(zoneID string) error) error {
	zoneID, err := c.zoneID(ctx, name)
	if err != nil {
		return err
	}
	err = fn(zoneID)
	if c.cache == nil || !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	for _, candidate := range c.candidates(name) {
		_ = c.cache.Invalidate(zoneCacheKey(candidate))
	}
	fresh, zerr := c.zoneID(ctx, name)
	if zerr != nil || fresh == zoneID {
		return err
	}
	return fn(fresh)
}

func (c *CloudflareProvider) candidates(name string) []string {
	if c.zone != "" {
		return []string{c.zone}
	}
	return zoneCandidates(name)
}

func zoneCacheKey(zone string) string {
	return ZoneCachePrefix + zone
}

// lookupZone returns the zone ID for an exact zone name. Missing zones
// return errZoneMissing so they are never cached.
func (c *CloudflareProvider) lookupZone(ctx context.Context, zoneName string) (string, error) {
	var out cfListEnvelope[cfZone]
	status, err := c.doJSON(ctx, http.MethodGet, "/zones?name="+url.QueryEscape(zoneName)+"&per_page=1", nil, &out)
	if err != nil {
		return "", fmt.Errorf("failed to look up zone %q: %w", zoneName, err)
	}
	if apiErr := envelopeError(out.Success, out.Errors, status); apiErr != nil {
		return "", fmt.Errorf("failed to look up zone %q: %w", zoneName, apiErr)
	}
	if len(out.Result) == 0 || out.Result[0].ID == "" {
		return "", fmt.Errorf("zone %q: %w", zoneName, errZoneMissing)
	}
	return out.Result[0].ID, nil
}

// findRecords lists the records of type t named name in the zone.
func (c *CloudflareProvider) findRecords(ctx context.Context, zoneID string, t domain.RecordType, name string) ([]cfDNSRecord, error) {
	q := url.Values{}
	q.Set("type", string(t))
	q.Set("name", name)
	q.Set("per_page", "100")

	var out cfListEnvelope[cfDNSRecord]
	status, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/zones/%s/dns_records?%s", zoneID, q.Encode()), nil, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records for %q: %w", t, name, err)
	}
	if apiErr := envelopeError(out.Success, out.Errors, status); apiErr != nil {
		return nil, fmt.Errorf("failed to list %s records for %q: %w", t, name, apiErr)
	}
	return out.Result, nil
}

// --- Provider implementation ---

// CreateRecord creates the record, tagging it with the owner in the
// record comment.
func (c *CloudflareProvider) CreateRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	return c.withZone(ctx, name, func(zoneID string) error {
		return c.post(ctx, zoneID, owner, t, name, value)
	})
}

// UpsertRecord replaces the content of the first record with the same
// name and type, or creates one when none exists.
func (c *CloudflareProvider) UpsertRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	return c.withZone(ctx, name, func(zoneID string) error {
		existing, err := c.findRecords(ctx, zoneID, t, name)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			return c.post(ctx, zoneID, owner, t, name, value)
		}

		body := cfRecordBody{Type: string(t), Name: name, Content: value, TTL: 1, Comment: ownerTag(owner)}
		path := fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, existing[0].ID)
		var out cfEnvelope[cfDNSRecord]
		status, err := c.doJSON(ctx, http.MethodPatch, path, body, &out)
		if err != nil {
			return fmt.Errorf("failed to update %s record %q: %w", t, name, err)
		}
		if apiErr := envelopeError(out.Success, out.Errors, status); apiErr != nil {
			return fmt.Errorf("failed to update %s record %q: %w", t, name, apiErr)
		}
		return nil
	})
}

// DeleteRecord deletes every record matching name, type and value.
func (c *CloudflareProvider) DeleteRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	return c.withZone(ctx, name, func(zoneID string) error {
		existing, err := c.findRecords(ctx, zoneID, t, name)
		if err != nil {
			return err
		}

		deleted := 0
		for _, rec := range existing {
			if !sameValue(t, rec.Content, value) {
				continue
			}
			path := fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, rec.ID)
			var out cfEnvelope[struct {
				ID string `json:"id"`
			}]
			status, err := c.doJSON(ctx, http.MethodDelete, path, nil, &out)
			if err != nil {
				return fmt.Errorf("failed to delete %s record %q: %w", t, name, err)
			}
			if apiErr := envelopeError(out.Success, out.Errors, status); apiErr != nil {
				return fmt.Errorf("failed to delete %s record %q: %w", t, name, apiErr)
			}
			deleted++
		}

		if deleted == 0 {
			return fmt.Errorf("%s record %q with value %q: %w", t, name, value, domain.ErrNotFound)
		}
		return nil
	})
}

func (c *CloudflareProvider) post(ctx context.Context, zoneID, owner string, t domain.RecordType, name, value string) error {
	body := cfRecordBody{Type: string(t), Name: name, Content: value, TTL: 1, Comment: ownerTag(owner)}
	path := fmt.Sprintf("/zones/%s/dns_records", zoneID)
	var out cfEnvelope[cfDNSRecord]
	status, err := c.doJSON(ctx, http.MethodPost, path, body, &out)
	if err != nil {
		return fmt.Errorf("failed to create %s record %q: %w", t, name, err)
	}
	if apiErr := envelopeError(out.Success, out.Errors, status); apiErr != nil {
		return fmt.Errorf("failed to create %s record %q: %w", t, name, apiErr)
	}
	return nil
}

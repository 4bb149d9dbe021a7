package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/services/auth"

	alidns "github.com/alibabacloud-go/alidns-20150109/v4/client"
	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	"github.com/alibabacloud-go/tea/tea"
)

const (
	aliyunEndpoint     = "dns.aliyuncs.com"
	aliyunTTL          = 600
	aliyunAccessKeyID  = "aliyun-accesskeyid"
	aliyunAccessSecret = "aliyun-accesskeysecret"
)

var _ domain.Provider = (*AliyunProvider)(nil)

// alidnsAPI is the subset of the Alibaba Cloud DNS client the provider uses.
type alidnsAPI interface {
	DescribeDomainRecords(req *alidns.DescribeDomainRecordsRequest) (*alidns.DescribeDomainRecordsResponse, error)
	AddDomainRecord(req *alidns.AddDomainRecordRequest) (*alidns.AddDomainRecordResponse, error)
	UpdateDomainRecord(req *alidns.UpdateDomainRecordRequest) (*alidns.UpdateDomainRecordResponse, error)
	DeleteDomainRecord(req *alidns.DeleteDomainRecordRequest) (*alidns.DeleteDomainRecordResponse, error)
}

// AliyunProvider implements domain.Provider on Alibaba Cloud DNS. Records
// are addressed by their RR (host part) under a configured zone.
//
// The SDK takes no context, so cancellation is only checked between calls.
type AliyunProvider struct {
	client alidnsAPI
	zone   string
}

// NewAliyunProvider returns a provider managing records under zone.
func NewAliyunProvider(client alidnsAPI, zone string) *AliyunProvider {
	return &AliyunProvider{client: client, zone: domain.NormalizeName(zone)}
}

// RegisterAliyun registers the Alibaba Cloud DNS provider factory.
func RegisterAliyun() {
	Register("aliyun", func(store auth.Store, opts Options) (domain.Provider, error) {
		if opts.Zone == "" {
			return nil, fmt.Errorf("aliyun: root domain is required (run 'dnsm config set root-domain <domain>')")
		}
		keyID, err := store.GetToken(aliyunAccessKeyID)
		if err != nil {
			return nil, fmt.Errorf("aliyun auth: access key id not found (run 'dnsm auth login aliyun'): %w", err)
		}
		secret, err := store.GetToken(aliyunAccessSecret)
		if err != nil {
			return nil, fmt.Errorf("aliyun auth: access key secret not found (run 'dnsm auth login aliyun'): %w", err)
		}

		cfg := &openapi.Config{
			AccessKeyId:     tea.String(keyID),
			AccessKeySecret: tea.String(secret),
			Endpoint:        tea.String(aliyunEndpoint),
		}
		client, err := alidns.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("aliyun: failed to create client: %w", err)
		}
		return NewAliyunProvider(client, opts.Zone), nil
	})
}

// GetDisplayName returns the human-readable provider name.
func (p *AliyunProvider) GetDisplayName() string {
	return "Alibaba Cloud DNS"
}

type aliyunRecord struct {
	id    string
	value string
}

func (p *AliyunProvider) CreateRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	rr, err := relativeName(name, p.zone)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = p.client.AddDomainRecord(&alidns.AddDomainRecordRequest{
		DomainName: tea.String(p.zone),
		RR:         tea.String(rr),
		Type:       tea.String(string(t)),
		Value:      tea.String(value),
		TTL:        tea.Int64(aliyunTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to create %s record %q: %w", t, name, mapAliyunError(err))
	}
	return nil
}

func (p *AliyunProvider) UpsertRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	rr, err := relativeName(name, p.zone)
	if err != nil {
		return err
	}
	existing, err := p.find(ctx, t, rr)
	if err != nil {
		return fmt.Errorf("failed to update %s record %q: %w", t, name, err)
	}
	if len(existing) == 0 {
		return p.CreateRecord(ctx, owner, t, name, value)
	}
	if sameValue(t, existing[0].value, value) {
		// Alibaba rejects updates that change nothing.
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = p.client.UpdateDomainRecord(&alidns.UpdateDomainRecordRequest{
		RecordId: tea.String(existing[0].id),
		RR:       tea.String(rr),
		Type:     tea.String(string(t)),
		Value:    tea.String(value),
		TTL:      tea.Int64(aliyunTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to update %s record %q: %w", t, name, mapAliyunError(err))
	}
	return nil
}

func (p *AliyunProvider) DeleteRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	rr, err := relativeName(name, p.zone)
	if err != nil {
		return err
	}
	existing, err := p.find(ctx, t, rr)
	if err != nil {
		return fmt.Errorf("failed to delete %s record %q: %w", t, name, err)
	}

	deleted := 0
	for _, rec := range existing {
		if !sameValue(t, rec.value, value) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.client.DeleteDomainRecord(&alidns.DeleteDomainRecordRequest{RecordId: tea.String(rec.id)}); err != nil {
			return fmt.Errorf("failed to delete %s record %q: %w", t, name, mapAliyunError(err))
		}
		deleted++
	}
	if deleted == 0 {
		return fmt.Errorf("%s record %q with value %q: %w", t, name, value, domain.ErrNotFound)
	}
	return nil
}

// find lists records whose RR is exactly rr and whose type is t.
func (p *AliyunProvider) find(ctx context.Context, t domain.RecordType, rr string) ([]aliyunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := p.client.DescribeDomainRecords(&alidns.DescribeDomainRecordsRequest{
		DomainName: tea.String(p.zone),
		RRKeyWord:  tea.String(rr),
		Type:       tea.String(string(t)),
		PageSize:   tea.Int64(100),
	})
	if err != nil {
		return nil, mapAliyunError(err)
	}

	var out []aliyunRecord
	if resp == nil || resp.Body == nil || resp.Body.DomainRecords == nil {
		return out, nil
	}
	for _, r := range resp.Body.DomainRecords.Record {
		if r == nil || !strings.EqualFold(tea.StringValue(r.RR), rr) || tea.StringValue(r.Type) != string(t) {
			continue
		}
		out = append(out, aliyunRecord{id: tea.StringValue(r.RecordId), value: tea.StringValue(r.Value)})
	}
	return out, nil
}

// mapAliyunError maps Alibaba Cloud error codes to domain sentinels.
func mapAliyunError(err error) error {
	var sdkErr *tea.SDKError
	if !errors.As(err, &sdkErr) {
		return err
	}
	code := tea.StringValue(sdkErr.Code)
	msg := tea.StringValue(sdkErr.Message)
	switch {
	case code == "DomainRecordDuplicate":
		return fmt.Errorf("%w: %s", domain.ErrConflict, msg)
	case code == "DomainRecordNotBelongToUser" || code == "InvalidDomainName.NoExist" || strings.HasSuffix(code, "NotExist"):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case strings.HasPrefix(code, "Throttling"):
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	case code == "InvalidAccessKeyId.NotFound" || code == "SignatureDoesNotMatch" || code == "Forbidden.RAM":
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	}
	return err
}

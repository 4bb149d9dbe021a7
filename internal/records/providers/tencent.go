package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/services/auth"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tcerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"
)

const (
	tencentEndpoint    = "dnspod.tencentcloudapi.com"
	tencentTTL         = 600
	tencentRecordLine  = "默认"
	tencentSecretID    = "tencent-secretid"
	tencentSecretKey   = "tencent-secretkey"
	tencentNoRecords   = "ResourceNotFound.NoDataOfRecord"
	tencentRecordExist = "InvalidParameter.DomainRecordExist"
)

var _ domain.Provider = (*TencentProvider)(nil)

// dnspodAPI is the subset of the DNSPod client the provider uses.
type dnspodAPI interface {
	DescribeRecordListWithContext(ctx context.Context, req *dnspod.DescribeRecordListRequest) (*dnspod.DescribeRecordListResponse, error)
	CreateRecordWithContext(ctx context.Context, req *dnspod.CreateRecordRequest) (*dnspod.CreateRecordResponse, error)
	ModifyRecordWithContext(ctx context.Context, req *dnspod.ModifyRecordRequest) (*dnspod.ModifyRecordResponse, error)
	DeleteRecordWithContext(ctx context.Context, req *dnspod.DeleteRecordRequest) (*dnspod.DeleteRecordResponse, error)
}

// TencentProvider implements domain.Provider on Tencent Cloud DNSPod.
type TencentProvider struct {
	client dnspodAPI
	zone   string
}

// NewTencentProvider returns a provider managing records under zone.
func NewTencentProvider(client dnspodAPI, zone string) *TencentProvider {
	return &TencentProvider{client: client, zone: domain.NormalizeName(zone)}
}

// RegisterTencent registers the DNSPod provider factory.
func RegisterTencent() {
	Register("tencent", func(store auth.Store, opts Options) (domain.Provider, error) {
		if opts.Zone == "" {
			return nil, fmt.Errorf("tencent: root domain is required (run 'dnsm config set root-domain <domain>')")
		}
		secretID, err := store.GetToken(tencentSecretID)
		if err != nil {
			return nil, fmt.Errorf("tencent auth: secret id not found (run 'dnsm auth login tencent'): %w", err)
		}
		secretKey, err := store.GetToken(tencentSecretKey)
		if err != nil {
			return nil, fmt.Errorf("tencent auth: secret key not found (run 'dnsm auth login tencent'): %w", err)
		}

		cpf := profile.NewClientProfile()
		cpf.HttpProfile.Endpoint = tencentEndpoint
		client, err := dnspod.NewClient(common.NewCredential(secretID, secretKey), opts.Region, cpf)
		if err != nil {
			return nil, fmt.Errorf("tencent: failed to create client: %w", err)
		}
		return NewTencentProvider(client, opts.Zone), nil
	})
}

// GetDisplayName returns the human-readable provider name.
func (p *TencentProvider) GetDisplayName() string {
	return "DNSPod"
}

func (p *TencentProvider) CreateRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	sub, err := relativeName(name, p.zone)
	if err != nil {
		return err
	}
	req := dnspod.NewCreateRecordRequest()
	req.Domain = common.StringPtr(p.zone)
	req.SubDomain = common.StringPtr(sub)
	req.RecordType = common.StringPtr(string(t))
	req.RecordLine = common.StringPtr(tencentRecordLine)
	req.Value = common.StringPtr(value)
	req.TTL = common.Uint64Ptr(tencentTTL)
	req.Remark = common.StringPtr(ownerTag(owner))

	if _, err := p.client.CreateRecordWithContext(ctx, req); err != nil {
		return fmt.Errorf("failed to create %s record %q: %w", t, name, mapTencentError(err))
	}
	return nil
}

func (p *TencentProvider) UpsertRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	sub, err := relativeName(name, p.zone)
	if err != nil {
		return err
	}
	existing, err := p.find(ctx, t, sub)
	if err != nil {
		return fmt.Errorf("failed to update %s record %q: %w", t, name, err)
	}
	if len(existing) == 0 {
		return p.CreateRecord(ctx, owner, t, name, value)
	}

	req := dnspod.NewModifyRecordRequest()
	req.Domain = common.StringPtr(p.zone)
	req.RecordId = existing[0].RecordId
	req.SubDomain = common.StringPtr(sub)
	req.RecordType = common.StringPtr(string(t))
	req.RecordLine = common.StringPtr(tencentRecordLine)
	req.Value = common.StringPtr(value)
	req.TTL = common.Uint64Ptr(tencentTTL)
	req.Remark = common.StringPtr(ownerTag(owner))

	if _, err := p.client.ModifyRecordWithContext(ctx, req); err != nil {
		return fmt.Errorf("failed to update %s record %q: %w", t, name, mapTencentError(err))
	}
	return nil
}

func (p *TencentProvider) DeleteRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	sub, err := relativeName(name, p.zone)
	if err != nil {
		return err
	}
	existing, err := p.find(ctx, t, sub)
	if err != nil {
		return fmt.Errorf("failed to delete %s record %q: %w", t, name, err)
	}

	deleted := 0
	for _, rec := range existing {
		if rec.Value == nil || !sameValue(t, *rec.Value, value) {
			continue
		}
		req := dnspod.NewDeleteRecordRequest()
		req.Domain = common.StringPtr(p.zone)
		req.RecordId = rec.RecordId
		if _, err := p.client.DeleteRecordWithContext(ctx, req); err != nil {
			return fmt.Errorf("failed to delete %s record %q: %w", t, name, mapTencentError(err))
		}
		deleted++
	}
	if deleted == 0 {
		return fmt.Errorf("%s record %q with value %q: %w", t, name, value, domain.ErrNotFound)
	}
	return nil
}

// find lists records of type t whose subdomain is exactly sub.
func (p *TencentProvider) find(ctx context.Context, t domain.RecordType, sub string) ([]*dnspod.RecordListItem, error) {
	req := dnspod.NewDescribeRecordListRequest()
	req.Domain = common.StringPtr(p.zone)
	req.Subdomain = common.StringPtr(sub)
	req.RecordType = common.StringPtr(string(t))

	resp, err := p.client.DescribeRecordListWithContext(ctx, req)
	if err != nil {
		var sdkErr *tcerrors.TencentCloudSDKError
		if errors.As(err, &sdkErr) && sdkErr.GetCode() == tencentNoRecords {
			return nil, nil
		}
		return nil, mapTencentError(err)
	}
	if resp == nil || resp.Response == nil {
		return nil, nil
	}

	var out []*dnspod.RecordListItem
	for _, r := range resp.Response.RecordList {
		if r == nil || r.RecordId == nil || r.Name == nil || !strings.EqualFold(*r.Name, sub) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// mapTencentError maps DNSPod error codes to domain sentinels.
func mapTencentError(err error) error {
	var sdkErr *tcerrors.TencentCloudSDKError
	if !errors.As(err, &sdkErr) {
		return err
	}
	code := sdkErr.GetCode()
	switch {
	case code == tencentRecordExist:
		return fmt.Errorf("%w: %s", domain.ErrConflict, sdkErr.GetMessage())
	case strings.HasPrefix(code, "ResourceNotFound"):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, sdkErr.GetMessage())
	case strings.HasPrefix(code, "AuthFailure"):
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, sdkErr.GetMessage())
	case strings.HasPrefix(code, "RequestLimitExceeded"):
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, sdkErr.GetMessage())
	}
	return err
}

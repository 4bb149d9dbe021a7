package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/services/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"
)

const (
	route53TTL           = 300
	route53AccessKeyID   = "route53-accesskeyid"
	route53SecretKey     = "route53-secretaccesskey"
	route53DefaultRegion = "us-east-1"
)

var _ domain.Provider = (*Route53Provider)(nil)

// route53API is the subset of the Route 53 client the provider uses.
type route53API interface {
	ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
	ListResourceRecordSets(ctx context.Context, in *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
}

// Route53Provider implements domain.Provider on an AWS Route 53 hosted zone.
// Record sets are keyed by name and type, so every value of a set is
// treated as one record in dnsm.
type Route53Provider struct {
	client       route53API
	hostedZoneID string
}

// NewRoute53Provider returns a provider for the given hosted zone.
func NewRoute53Provider(client route53API, hostedZoneID string) *Route53Provider {
	return &Route53Provider{client: client, hostedZoneID: hostedZoneID}
}

// RegisterRoute53 registers the Route 53 provider factory. Static keys
// from the auth store take precedence; without them the default AWS
// credential chain is used.
func RegisterRoute53() {
	Register("route53", func(store auth.Store, opts Options) (domain.Provider, error) {
		if opts.HostedZoneID == "" {
			return nil, fmt.Errorf("route53: hosted zone id is required (run 'dnsm config set hosted-zone-id <id>')")
		}

		region := opts.Region
		if region == "" {
			region = route53DefaultRegion
		}
		loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}

		keyID, err := auth.Lookup(store, route53AccessKeyID)
		if err != nil {
			return nil, fmt.Errorf("route53 auth: %w", err)
		}
		secret, err := auth.Lookup(store, route53SecretKey)
		if err != nil {
			return nil, fmt.Errorf("route53 auth: %w", err)
		}
		if keyID != "" && secret != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(keyID, secret, ""),
			))
		}

		cfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("route53: failed to load AWS config: %w", err)
		}
		return NewRoute53Provider(route53.NewFromConfig(cfg), opts.HostedZoneID), nil
	})
}

// GetDisplayName returns the human-readable provider name.
func (p *Route53Provider) GetDisplayName() string {
	return "Route 53"
}

// CreateRecord adds value to the record set with the same name and type,
// creating the set when there is none. A value already in the set is a
// conflict.
func (p *Route53Provider) CreateRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	existing, err := p.find(ctx, t, name)
	if err != nil {
		return fmt.Errorf("failed to create %s record %q: %w", t, name, err)
	}

	switch {
	case existing == nil:
		err = p.change(ctx, owner, types.ChangeActionCreate, recordSet(t, name, []string{value}))
	case hasValue(t, *existing, value):
		return fmt.Errorf("%s record %q with value %q: %w", t, name, value, domain.ErrConflict)
	default:
		err = p.change(ctx, owner, types.ChangeActionUpsert, withValue(t, *existing, value))
	}
	if err != nil {
		return fmt.Errorf("failed to create %s record %q: %w", t, name, err)
	}
	return nil
}

// UpsertRecord makes value part of the record set with the same name and
// type. A single-value set is replaced, since that value is the record
// being updated. A set holding several values belongs to several records,
// so value is added and the others are kept.
func (p *Route53Provider) UpsertRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	existing, err := p.find(ctx, t, name)
	if err != nil {
		return fmt.Errorf("failed to update %s record %q: %w", t, name, err)
	}

	set := recordSet(t, name, []string{value})
	if existing != nil && len(existing.ResourceRecords) > 1 {
		if hasValue(t, *existing, value) {
			return nil
		}
		log.WithFields(log.Fields{"type": t, "name": name}).
			Warn("route53: record set holds several values, adding the new value without replacing any")
		set = withValue(t, *existing, value)
	}
	if err := p.change(ctx, owner, types.ChangeActionUpsert, set); err != nil {
		return fmt.Errorf("failed to update %s record %q: %w", t, name, err)
	}
	return nil
}

// DeleteRecord removes value from the record set, deleting the set when
// it was the only value.
func (p *Route53Provider) DeleteRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	existing, err := p.find(ctx, t, name)
	if err != nil {
		return fmt.Errorf("failed to delete %s record %q: %w", t, name, err)
	}
	if existing == nil {
		return fmt.Errorf("%s record %q: %w", t, name, domain.ErrNotFound)
	}

	var remaining []string
	found := false
	for _, rr := range existing.ResourceRecords {
		v := aws.ToString(rr.Value)
		if sameValue(t, v, value) {
			found = true
			continue
		}
		remaining = append(remaining, v)
	}
	if !found {
		return fmt.Errorf("%s record %q with value %q: %w", t, name, value, domain.ErrNotFound)
	}

	if len(remaining) == 0 {
		err = p.change(ctx, owner, types.ChangeActionDelete, *existing)
	} else {
		set := *existing
		set.ResourceRecords = nil
		for _, v := range remaining {
			set.ResourceRecords = append(set.ResourceRecords, types.ResourceRecord{Value: aws.String(v)})
		}
		err = p.change(ctx, owner, types.ChangeActionUpsert, set)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s record %q: %w", t, name, err)
	}
	return nil
}

func (p *Route53Provider) change(ctx context.Context, owner string, action types.ChangeAction, set types.ResourceRecordSet) error {
	_, err := p.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(p.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String(ownerTag(owner)),
			Changes: []types.Change{{Action: action, ResourceRecordSet: &set}},
		},
	})
	return mapRoute53Error(err)
}

// find returns the record set named name with type t, or nil.
func (p *Route53Provider) find(ctx context.Context, t domain.RecordType, name string) (*types.ResourceRecordSet, error) {
	out, err := p.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(p.hostedZoneID),
		StartRecordName: aws.String(fqdn(name)),
		StartRecordType: types.RRType(t),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, mapRoute53Error(err)
	}
	for _, set := range out.ResourceRecordSets {
		if domain.NormalizeName(aws.ToString(set.Name)) == domain.NormalizeName(name) && set.Type == types.RRType(t) {
			return &set, nil
		}
	}
	return nil, nil
}

func recordSet(t domain.RecordType, name string, values []string) types.ResourceRecordSet {
	set := types.ResourceRecordSet{
		Name: aws.String(fqdn(name)),
		Type: types.RRType(t),
		TTL:  aws.Int64(route53TTL),
	}
	for _, v := range values {
		if t == domain.RecordTypeTXT {
			v = quoteTXT(v)
		}
		set.ResourceRecords = append(set.ResourceRecords, types.ResourceRecord{Value: aws.String(v)})
	}
	return set
}

func hasValue(t domain.RecordType, set types.ResourceRecordSet, value string) bool {
	for _, rr := range set.ResourceRecords {
		if sameValue(t, aws.ToString(rr.Value), value) {
			return true
		}
	}
	return false
}

// withValue returns a copy of set with value appended.
func withValue(t domain.RecordType, set types.ResourceRecordSet, value string) types.ResourceRecordSet {
	if t == domain.RecordTypeTXT {
		value = quoteTXT(value)
	}
	records := make([]types.ResourceRecord, 0, len(set.ResourceRecords)+1)
	records = append(records, set.ResourceRecords...)
	set.ResourceRecords = append(records, types.ResourceRecord{Value: aws.String(value)})
	return set
}

func fqdn(name string) string {
	return domain.NormalizeName(name) + "."
}

func quoteTXT(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

// mapRoute53Error maps AWS API error codes to domain sentinels.
func mapRoute53Error(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	msg := strings.ToLower(apiErr.ErrorMessage())
	switch code := apiErr.ErrorCode(); {
	case code == "NoSuchHostedZone" || strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, apiErr.ErrorMessage())
	case strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %s", domain.ErrConflict, apiErr.ErrorMessage())
	case code == "Throttling" || code == "ThrottlingException" || code == "PriorRequestNotComplete":
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, apiErr.ErrorMessage())
	case code == "AccessDenied" || code == "InvalidClientTokenId" || code == "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, apiErr.ErrorMessage())
	}
	return err
}

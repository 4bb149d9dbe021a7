package providers

import (
	"context"
	"errors"
	"testing"

	"nathanbeddoewebdev/dnsm/internal/records/domain"

	alidns "github.com/alibabacloud-go/alidns-20150109/v4/client"
	"github.com/alibabacloud-go/tea/tea"
	"github.com/google/go-cmp/cmp"
)

type fakeAlidns struct {
	records []*alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord
	calls   []string
	addErr  error
}

func (f *fakeAlidns) DescribeDomainRecords(req *alidns.DescribeDomainRecordsRequest) (*alidns.DescribeDomainRecordsResponse, error) {
	f.calls = append(f.calls, "describe "+tea.StringValue(req.RRKeyWord)+" "+tea.StringValue(req.Type))
	return &alidns.DescribeDomainRecordsResponse{
		Body: &alidns.DescribeDomainRecordsResponseBody{
			DomainRecords: &alidns.DescribeDomainRecordsResponseBodyDomainRecords{Record: f.records},
		},
	}, nil
}

func (f *fakeAlidns) AddDomainRecord(req *alidns.AddDomainRecordRequest) (*alidns.AddDomainRecordResponse, error) {
	f.calls = append(f.calls, "add "+tea.StringValue(req.RR)+" "+tea.StringValue(req.Type)+" "+tea.StringValue(req.Value))
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &alidns.AddDomainRecordResponse{}, nil
}

func (f *fakeAlidns) UpdateDomainRecord(req *alidns.UpdateDomainRecordRequest) (*alidns.UpdateDomainRecordResponse, error) {
	f.calls = append(f.calls, "update "+tea.StringValue(req.RecordId)+" "+tea.StringValue(req.Value))
	return &alidns.UpdateDomainRecordResponse{}, nil
}

func (f *fakeAlidns) DeleteDomainRecord(req *alidns.DeleteDomainRecordRequest) (*alidns.DeleteDomainRecordResponse, error) {
	f.calls = append(f.calls, "delete "+tea.StringValue(req.RecordId))
	return &alidns.DeleteDomainRecordResponse{}, nil
}

func aliRecord(id, rr, typ, value string) *alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord {
	return &alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord{
		RecordId: tea.String(id),
		RR:       tea.String(rr),
		Type:     tea.String(typ),
		Value:    tea.String(value),
	}
}

func TestAliyun_CreateUsesRelativeName(t *testing.T) {
	fake := &fakeAlidns{}
	p := NewAliyunProvider(fake, "example.com")
	ctx := context.Background()

	if err := p.CreateRecord(ctx, "alice", domain.RecordTypeA, "www.example.com", "1.2.3.4"); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if err := p.CreateRecord(ctx, "alice", domain.RecordTypeTXT, "example.com", "hi"); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	want := []string{"add www A 1.2.3.4", "add @ TXT hi"}
	if diff := cmp.Diff(want, fake.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	if err := p.CreateRecord(ctx, "alice", domain.RecordTypeA, "www.other.org", "1.2.3.4"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for a name outside the zone, got %v", err)
	}
}

func TestAliyun_Upsert(t *testing.T) {
	tests := []struct {
		name    string
		records []*alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord
		want    []string
	}{
		{
			name: "creates when missing",
			want: []string{"describe www A", "add www A 1.2.3.4"},
		},
		{
			name:    "updates first match",
			records: []*alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord{aliRecord("r1", "www", "A", "9.9.9.9")},
			want:    []string{"describe www A", "update r1 1.2.3.4"},
		},
		{
			name:    "unchanged value is a no-op",
			records: []*alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord{aliRecord("r1", "www", "A", "1.2.3.4")},
			want:    []string{"describe www A"},
		},
		{
			name:    "fuzzy matches are ignored",
			records: []*alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord{aliRecord("r1", "www2", "A", "9.9.9.9")},
			want:    []string{"describe www A", "add www A 1.2.3.4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAlidns{records: tt.records}
			p := NewAliyunProvider(fake, "example.com")
			if err := p.UpsertRecord(context.Background(), "alice", domain.RecordTypeA, "www.example.com", "1.2.3.4"); err != nil {
				t.Fatalf("UpsertRecord: %v", err)
			}
			if diff := cmp.Diff(tt.want, fake.calls); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAliyun_Delete(t *testing.T) {
	fake := &fakeAlidns{records: []*alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord{
		aliRecord("r1", "www", "A", "9.9.9.9"),
		aliRecord("r2", "www", "A", "1.2.3.4"),
	}}
	p := NewAliyunProvider(fake, "example.com")

	if err := p.DeleteRecord(context.Background(), "alice", domain.RecordTypeA, "www.example.com", "1.2.3.4"); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	want := []string{"describe www A", "delete r2"}
	if diff := cmp.Diff(want, fake.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	err := p.DeleteRecord(context.Background(), "alice", domain.RecordTypeA, "www.example.com", "5.5.5.5")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAliyun_CancelledContext(t *testing.T) {
	fake := &fakeAlidns{}
	p := NewAliyunProvider(fake, "example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.CreateRecord(ctx, "alice", domain.RecordTypeA, "www.example.com", "1.2.3.4")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("expected no API calls, got %v", fake.calls)
	}
}

func TestAliyun_ErrorMapping(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"DomainRecordDuplicate", domain.ErrConflict},
		{"Throttling.User", domain.ErrRateLimited},
		{"InvalidAccessKeyId.NotFound", domain.ErrUnauthorized},
		{"InvalidDomainName.NoExist", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			fake := &fakeAlidns{addErr: tea.NewSDKError(map[string]interface{}{"code": tt.code, "message": "boom"})}
			p := NewAliyunProvider(fake, "example.com")
			err := p.CreateRecord(context.Background(), "alice", domain.RecordTypeA, "www.example.com", "1.2.3.4")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

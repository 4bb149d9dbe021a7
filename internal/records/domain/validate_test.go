package domain

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"a record", Record{Owner: "u1", Type: RecordTypeA, Name: "a.user.example.com", Value: "1.2.3.4"}, false},
		{"aaaa record", Record{Owner: "u1", Type: RecordTypeAAAA, Name: "a.user.example.com", Value: "::1"}, false},
		{"cname record", Record{Owner: "u1", Type: RecordTypeCNAME, Name: "www.example.com", Value: "example.com."}, false},
		{"txt underscore", Record{Owner: "u1", Type: RecordTypeTXT, Name: "_acme-challenge.example.com", Value: "token"}, false},
		{"wildcard", Record{Owner: "u1", Type: RecordTypeA, Name: "*.example.com", Value: "10.0.0.1"}, false},
		{"missing owner", Record{Type: RecordTypeA, Name: "a.example.com", Value: "1.2.3.4"}, true},
		{"blank owner", Record{Owner: "  ", Type: RecordTypeA, Name: "a.example.com", Value: "1.2.3.4"}, true},
		{"unknown type", Record{Owner: "u1", Type: "SPF", Name: "a.example.com", Value: "x"}, true},
		{"bad name", Record{Owner: "u1", Type: RecordTypeA, Name: "a b.example.com", Value: "1.2.3.4"}, true},
		{"empty value", Record{Owner: "u1", Type: RecordTypeTXT, Name: "a.example.com", Value: " "}, true},
		{"ipv6 in A", Record{Owner: "u1", Type: RecordTypeA, Name: "a.example.com", Value: "::1"}, true},
		{"ipv4 in AAAA", Record{Owner: "u1", Type: RecordTypeAAAA, Name: "a.example.com", Value: "1.2.3.4"}, true},
		{"cname to garbage", Record{Owner: "u1", Type: RecordTypeCNAME, Name: "a.example.com", Value: "not a host"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.rec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  A.User.Example.COM. "); got != "a.user.example.com" {
		t.Errorf("NormalizeName() = %q", got)
	}
}

func TestNewPartialFailure(t *testing.T) {
	provErr := errors.New("provider down")

	if err := NewPartialFailure("create", nil, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	err := NewPartialFailure("update", nil, ErrNotFound)
	side, ok := FailedSide(err)
	if !ok || side != SideStore {
		t.Errorf("expected store side, got %q (ok=%v)", side, ok)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}

	err = NewPartialFailure("delete", provErr, ErrNotFound)
	side, _ = FailedSide(err)
	if side != SideBoth {
		t.Errorf("expected both, got %q", side)
	}
	if !errors.Is(err, provErr) || !errors.Is(err, ErrNotFound) {
		t.Error("expected both causes to be reachable")
	}
}

func TestPersistedRecord_Record(t *testing.T) {
	p := &PersistedRecord{ID: 7, Owner: "u1", Type: RecordTypeA, Name: "a.example.com", Value: "1.2.3.4", Description: "d"}
	r := p.Record()
	if r.ID != 7 || r.Description == nil || *r.Description != "d" {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.Course == nil || *r.Course != "" {
		t.Error("expected empty, non-nil course")
	}
}

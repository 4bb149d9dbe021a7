package domain

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"nathanbeddoewebdev/dnsm/internal/util"
)

// Validate checks the type, name and value shape of r. It does not apply
// any provider-specific rules. All failures wrap ErrValidation.
func Validate(r Record) error {
	if strings.TrimSpace(r.Owner) == "" {
		return fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if !slices.Contains(SupportedTypes, r.Type) {
		return fmt.Errorf("%w: unsupported record type %q", ErrValidation, r.Type)
	}
	if err := util.ValidateRecordName(r.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return validateValue(r.Type, r.Value)
}

// validateValue catches obvious mismatches (e.g. a non-IP value for an A
// record). It does not perform exhaustive validation.
func validateValue(t RecordType, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: record value cannot be empty", ErrValidation)
	}

	switch t {
	case RecordTypeA:
		ip := net.ParseIP(value)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("%w: A record value must be a valid IPv4 address, got %q", ErrValidation, value)
		}
	case RecordTypeAAAA:
		ip := net.ParseIP(value)
		if ip == nil || ip.To4() != nil {
			return fmt.Errorf("%w: AAAA record value must be a valid IPv6 address, got %q", ErrValidation, value)
		}
	case RecordTypeCNAME, RecordTypeNS:
		if err := util.ValidateRecordName(NormalizeName(value)); err != nil {
			return fmt.Errorf("%w: %s target: %v", ErrValidation, t, err)
		}
	}

	return nil
}

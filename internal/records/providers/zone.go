package providers

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
)

// relativeName returns name relative to zone, using "@" for the apex.
func relativeName(name, zone string) (string, error) {
	name = domain.NormalizeName(name)
	zone = domain.NormalizeName(zone)
	if zone == "" {
		return "", fmt.Errorf("%w: zone is required (run 'dnsm config set root-domain <domain>')", domain.ErrValidation)
	}
	if name == zone {
		return "@", nil
	}
	if rr, ok := strings.CutSuffix(name, "."+zone); ok && rr != "" {
		return rr, nil
	}
	return "", fmt.Errorf("%w: %q is not inside zone %q", domain.ErrValidation, name, zone)
}

// zoneCandidates returns name and each parent domain with at least two
// labels, longest first: a.b.example.com yields a.b.example.com,
// b.example.com, example.com.
func zoneCandidates(name string) []string {
	labels := strings.Split(domain.NormalizeName(name), ".")
	var out []string
	for i := 0; i+2 <= len(labels); i++ {
		out = append(out, strings.Join(labels[i:], "."))
	}
	return out
}

// sameValue compares record values, ignoring case and a trailing dot for
// hostname-valued types.
func sameValue(t domain.RecordType, a, b string) bool {
	switch t {
	case domain.RecordTypeCNAME, domain.RecordTypeNS, domain.RecordTypeMX:
		return domain.NormalizeName(a) == domain.NormalizeName(b)
	case domain.RecordTypeTXT:
		return unquoteTXT(a) == unquoteTXT(b)
	case domain.RecordTypeAAAA:
		return strings.EqualFold(a, b)
	}
	return a == b
}

func unquoteTXT(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}

// ownerTag is the annotation written on providers that support comments.
func ownerTag(owner string) string {
	return "dnsm owner=" + owner
}

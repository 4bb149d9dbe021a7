package util

import (
	"fmt"
	"regexp"
	"strings"
)

// NormalizeKey lowercases and trims s for use as a lookup key in the
// provider, credential and config registries.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validLabel matches a single DNS label. Underscores are allowed so that
// service and verification names (_acme-challenge, _sip._tcp) pass.
var validLabel = regexp.MustCompile(`^[a-zA-Z0-9_]([a-zA-Z0-9_\-]*[a-zA-Z0-9_])?$`)

// ValidateRecordName checks that a fully-qualified record name is a
// well-formed hostname:
//   - At least two labels (a bare TLD is rejected)
//   - At most 253 characters, each label 1 to 63 characters
//   - Labels use only a-z, A-Z, 0-9, hyphens and underscores
//   - Labels must not start or end with a hyphen
//   - The first label may be a single "*" wildcard
func ValidateRecordName(name string) error {
	if name == "" {
		return fmt.Errorf("record name is required")
	}
	if len(name) > 253 {
		return fmt.Errorf("record name must be at most 253 characters, got %d", len(name))
	}

	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return fmt.Errorf("record name %q must be fully qualified", name)
	}

	for i, label := range labels {
		if label == "" {
			return fmt.Errorf("record name %q contains an empty label", name)
		}
		if i == 0 && label == "*" {
			continue
		}
		if len(label) > 63 {
			return fmt.Errorf("label %q is longer than 63 characters", label)
		}
		if !validLabel.MatchString(label) {
			return fmt.Errorf("label %q contains invalid characters (only a-z, A-Z, 0-9, hyphens, and underscores are allowed, and no leading or trailing hyphen)", label)
		}
	}

	return nil
}

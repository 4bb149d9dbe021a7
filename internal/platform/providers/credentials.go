// Package providers holds provider credential metadata shared between the
// record providers and the auth subsystem.
package providers

import "nathanbeddoewebdev/dnsm/internal/util"

// CredentialKey describes a single credential field for a provider.
type CredentialKey struct {
	// Key is the suffix appended to the provider name to form the keychain key.
	// For single-token providers this is empty (key stored as just "<provider>").
	// For multi-credential providers this is set (e.g. "accesskeyid", "secretkey").
	Key string

	// Prompt is the human-readable label shown when prompting the user.
	Prompt string

	// Secret controls whether the input should be masked (e.g. passwords/tokens).
	Secret bool
}

// CredentialSpec describes the complete credential scheme for a provider.
type CredentialSpec struct {
	// Provider is the normalized provider name (e.g. "cloudflare", "route53").
	Provider string

	// DisplayName is the human-readable provider name (e.g. "Cloudflare").
	DisplayName string

	// Keys lists each credential that must be stored.
	// Single-token providers have one entry with an empty Key.
	// Multi-credential providers have one entry per credential.
	Keys []CredentialKey
}

// KeychainKey returns the keychain key for the given CredentialKey.
// For single-token providers (empty Key suffix), it returns the provider name.
// For multi-credential providers it returns "<provider>-<key>".
func (s CredentialSpec) KeychainKey(k CredentialKey) string {
	if k.Key == "" {
		return s.Provider
	}
	return s.Provider + "-" + k.Key
}

// knownSpecs is the authoritative list of registered provider credential specs.
// The auth login command iterates this to know how to prompt for credentials.
var knownSpecs = []CredentialSpec{
	{
		Provider:    "cloudflare",
		DisplayName: "Cloudflare",
		Keys: []CredentialKey{
			{Key: "", Prompt: "Account API Token (not Global API Key)", Secret: true},
		},
	},
	{
		Provider:    "route53",
		DisplayName: "Route 53",
		Keys: []CredentialKey{
			{Key: "accesskeyid", Prompt: "AWS Access Key ID", Secret: false},
			{Key: "secretaccesskey", Prompt: "AWS Secret Access Key", Secret: true},
		},
	},
	{
		Provider:    "aliyun",
		DisplayName: "Alibaba Cloud DNS",
		Keys: []CredentialKey{
			{Key: "accesskeyid", Prompt: "AccessKey ID", Secret: false},
			{Key: "accesskeysecret", Prompt: "AccessKey Secret", Secret: true},
		},
	},
	{
		Provider:    "tencent",
		DisplayName: "DNSPod",
		Keys: []CredentialKey{
			{Key: "secretid", Prompt: "SecretId", Secret: false},
			{Key: "secretkey", Prompt: "SecretKey", Secret: true},
		},
	},
}

// Lookup returns the CredentialSpec for the given provider name,
// or nil if no spec is registered for that provider.
func Lookup(providerName string) *CredentialSpec {
	normalized := util.NormalizeKey(providerName)
	for i := range knownSpecs {
		if knownSpecs[i].Provider == normalized {
			return &knownSpecs[i]
		}
	}
	return nil
}

// All returns a copy of all registered credential specs.
func All() []CredentialSpec {
	out := make([]CredentialSpec, len(knownSpecs))
	copy(out, knownSpecs)
	return out
}

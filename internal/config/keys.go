package config

import (
	"fmt"
	"strconv"
	"strings"
)

// KeySpec describes a single configuration key.
type KeySpec struct {
	// Name is the CLI-facing key name (e.g. "dns-provider").
	Name string

	// Description is a short human-readable explanation shown in help text.
	Description string

	// Get returns the current value for this key from a loaded Config.
	Get func(cfg *Config) string

	// Set validates and applies a value for this key to the given Config
	// (in memory only; the caller is responsible for calling Save).
	Set func(cfg *Config, value string) error
}

// storeDrivers lists the accepted store-driver values. It mirrors the
// drivers understood by the record store.
var storeDrivers = []string{"sqlite", "postgres"}

// Keys is the authoritative list of all supported configuration keys.
// To add a new option: add a field to Config and append a KeySpec here.
var Keys = []KeySpec{
	{
		Name:        "dns-provider",
		Description: "DNS provider records are published to (cloudflare, route53, aliyun, tencent)",
		Get:         func(cfg *Config) string { return cfg.DNSProvider },
		Set: func(cfg *Config, v string) error {
			cfg.DNSProvider = lower(v)
			return nil
		},
	},
	{
		Name:        "root-domain",
		Description: "Zone that record names live under (e.g. example.com)",
		Get:         func(cfg *Config) string { return cfg.RootDomain },
		Set: func(cfg *Config, v string) error {
			cfg.RootDomain = strings.TrimSuffix(lower(v), ".")
			return nil
		},
	},
	{
		Name:        "hosted-zone-id",
		Description: "Route 53 hosted zone id",
		Get:         func(cfg *Config) string { return cfg.HostedZoneID },
		Set: func(cfg *Config, v string) error {
			cfg.HostedZoneID = strings.TrimSpace(v)
			return nil
		},
	},
	{
		Name:        "aws-region",
		Description: "AWS region for the Route 53 client (default us-east-1)",
		Get:         func(cfg *Config) string { return cfg.AWSRegion },
		Set: func(cfg *Config, v string) error {
			cfg.AWSRegion = lower(v)
			return nil
		},
	},
	{
		Name:        "store-driver",
		Description: "Record store backend: sqlite (default) or postgres",
		Get:         func(cfg *Config) string { return cfg.StoreDriver },
		Set: func(cfg *Config, v string) error {
			v = lower(v)
			if v != "" && !contains(storeDrivers, v) {
				return fmt.Errorf("unsupported store driver %q (use one of: %s)", v, strings.Join(storeDrivers, ", "))
			}
			cfg.StoreDriver = v
			return nil
		},
	},
	{
		Name:        "store-dsn",
		Description: "SQLite file path or PostgreSQL connection string",
		Get:         func(cfg *Config) string { return cfg.StoreDSN },
		Set: func(cfg *Config, v string) error {
			// DSNs carry case-sensitive passwords and paths.
			cfg.StoreDSN = strings.TrimSpace(v)
			return nil
		},
	},
	{
		Name:        "renewal-months",
		Description: "Months a created or updated record lives before it expires (default 6)",
		Get: func(cfg *Config) string {
			if cfg.RenewalMonths == 0 {
				return ""
			}
			return strconv.Itoa(cfg.RenewalMonths)
		},
		Set: func(cfg *Config, v string) error {
			v = strings.TrimSpace(v)
			if v == "" {
				cfg.RenewalMonths = 0
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("renewal-months must be a positive integer, got %q", v)
			}
			cfg.RenewalMonths = n
			return nil
		},
	},
}

// Lookup returns the KeySpec for the given name, or nil if not found.
// The name is matched case-insensitively after trimming whitespace.
func Lookup(name string) *KeySpec {
	normalized := lower(name)
	for i := range Keys {
		if Keys[i].Name == normalized {
			return &Keys[i]
		}
	}
	return nil
}

// KeyNames returns the names of all registered keys.
func KeyNames() []string {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = k.Name
	}
	return names
}

// KeysHelp builds a formatted block listing all available keys and their
// descriptions, suitable for inclusion in Cobra Long help text.
func KeysHelp() string {
	if len(Keys) == 0 {
		return ""
	}

	maxLen := 0
	for _, k := range Keys {
		if len(k.Name) > maxLen {
			maxLen = len(k.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Available keys:\n")
	for _, k := range Keys {
		fmt.Fprintf(&b, "  %-*s   %s\n", maxLen, k.Name, k.Description)
	}
	return b.String()
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

package config

import (
	"strings"
	"testing"
)

func TestLookup_CaseInsensitive(t *testing.T) {
	spec := Lookup("  DNS-Provider ")
	if spec == nil {
		t.Fatal("expected case-insensitive lookup to succeed")
	}
	if spec.Name != "dns-provider" {
		t.Errorf("expected Name %q, got %q", "dns-provider", spec.Name)
	}
}

func TestLookup_NotFound(t *testing.T) {
	if spec := Lookup("default-provider"); spec != nil {
		t.Errorf("expected nil for unknown key, got %+v", spec)
	}
}

func TestKeys_AllHaveGetAndSet(t *testing.T) {
	for _, k := range Keys {
		if k.Get == nil {
			t.Errorf("key %q has nil Get function", k.Name)
		}
		if k.Set == nil {
			t.Errorf("key %q has nil Set function", k.Name)
		}
		if k.Description == "" {
			t.Errorf("key %q has empty Description", k.Name)
		}
	}
}

func TestKeys_SetNormalizes(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"dns-provider", " Cloudflare ", "cloudflare"},
		{"root-domain", "Example.COM.", "example.com"},
		{"hosted-zone-id", " Z0123ABC ", "Z0123ABC"},
		{"aws-region", "EU-West-1", "eu-west-1"},
		{"store-driver", "Postgres", "postgres"},
		{"store-dsn", " postgres://Admin:S3cret@db/dnsm ", "postgres://Admin:S3cret@db/dnsm"},
		{"renewal-months", "12", "12"},
		{"renewal-months", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			spec := Lookup(tt.key)
			if spec == nil {
				t.Fatalf("key %q not registered", tt.key)
			}
			cfg := &Config{}
			if err := spec.Set(cfg, tt.value); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if got := spec.Get(cfg); got != tt.want {
				t.Errorf("Get = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeys_SetRejectsInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"store-driver", "mysql"},
		{"renewal-months", "0"},
		{"renewal-months", "-3"},
		{"renewal-months", "six"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := &Config{}
			if err := Lookup(tt.key).Set(cfg, tt.value); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestKeyNames(t *testing.T) {
	names := KeyNames()
	if len(names) != len(Keys) {
		t.Fatalf("expected %d names, got %d", len(Keys), len(names))
	}
	for i, name := range names {
		if name != Keys[i].Name {
			t.Errorf("index %d: expected %q, got %q", i, Keys[i].Name, name)
		}
	}
}

func TestKeysHelp_ContainsAllKeys(t *testing.T) {
	help := KeysHelp()
	if !strings.Contains(help, "Available keys:") {
		t.Error("expected 'Available keys:' header in help output")
	}
	for _, k := range Keys {
		if !strings.Contains(help, k.Name) {
			t.Errorf("expected key %q in help output", k.Name)
		}
		if !strings.Contains(help, k.Description) {
			t.Errorf("expected description %q in help output", k.Description)
		}
	}
}

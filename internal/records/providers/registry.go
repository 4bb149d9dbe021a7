package providers

import (
	"fmt"
	"sort"
	"sync"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/services/auth"
	"nathanbeddoewebdev/dnsm/internal/swrcache"
	"nathanbeddoewebdev/dnsm/internal/util"
)

// Options carries the non-secret settings a provider may need. Which
// fields are required depends on the provider.
type Options struct {
	// Zone is the apex domain that record names live under
	// (e.g. "example.com"). Required by providers that address records
	// relative to a zone.
	Zone string

	// HostedZoneID is the Route 53 hosted zone identifier.
	HostedZoneID string

	// Region is the cloud region, where the provider has one.
	Region string

	// Cache, when set, caches zone lookups across invocations.
	Cache *swrcache.Cache
}

// Factory is a constructor function that builds a Provider given an auth
// store and settings.
type Factory func(store auth.Store, opts Options) (domain.Provider, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a provider factory to the registry.
// It panics on empty name, nil factory, or duplicate registration
// (programmer errors detected at startup).
func Register(name string, factory Factory) {
	normalizedName := util.NormalizeKey(name)
	if normalizedName == "" {
		panic("records/providers: empty provider name")
	}
	if factory == nil {
		panic("records/providers: nil factory")
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[normalizedName]; exists {
		panic(fmt.Sprintf("records/providers: provider %q already registered", name))
	}

	registry[normalizedName] = factory
}

// Get constructs and returns the Provider for the given name, using the
// store to retrieve credentials.
func Get(name string, store auth.Store, opts Options) (domain.Provider, error) {
	normalizedName := util.NormalizeKey(name)
	mu.RLock()
	factory, ok := registry[normalizedName]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("records/providers: unknown provider %q", name)
	}

	return factory(store, opts)
}

// List returns the names of all registered providers, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears the provider registry. Intended for use in tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = map[string]Factory{}
}

// RegisterAll registers every built-in provider.
func RegisterAll() {
	RegisterCloudflare()
	RegisterRoute53()
	RegisterAliyun()
	RegisterTencent()
}

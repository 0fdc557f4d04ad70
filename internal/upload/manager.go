package upload

import (
	"fmt"
	"sort"
)

// ProviderFactory is a function that creates a new provider instance
type ProviderFactory func() Provider

var providers = make(map[string]ProviderFactory)

// RegisterProvider registers a new upload provider
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewProvider creates and configures a provider instance by name
func NewProvider(name string, config map[string]any) (Provider, error) {
	factory, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown upload provider: %s (available: %v)", name, ProviderNames())
	}
	provider := factory()
	if err := provider.Configure(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// ProviderNames lists registered providers in sorted order
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterProvider("minio", func() Provider {
		return NewMinioProvider()
	})
}

package nugetmeta

import (
	"context"
)

// HybridSource routes lookups based on PURL qualifiers.
// PURLs with repository_url go to registries, others go to ecosyste.ms.
type HybridSource struct {
	ecosystems Source
	registries Source
}

// NewHybridSource creates a source that routes based on PURL qualifiers.
func NewHybridSource(userAgent string) (*HybridSource, error) {
	eco, err := NewEcosystemsSource(userAgent)
	if err != nil {
		return nil, err
	}
	return &HybridSource{
		ecosystems: eco,
		registries: NewRegistriesSource(),
	}, nil
}

func (s *HybridSource) route(purlStr string) Source {
	if repositoryURL(purlStr) != "" {
		return s.registries
	}
	return s.ecosystems
}

func (s *HybridSource) Lookup(ctx context.Context, purlStr string) (*PackageInfo, error) {
	return s.route(purlStr).Lookup(ctx, purlStr)
}

func (s *HybridSource) Versions(ctx context.Context, purlStr string) ([]VersionInfo, error) {
	return s.route(purlStr).Versions(ctx, purlStr)
}

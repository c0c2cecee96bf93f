package nugetmeta

import (
	"context"
	"time"

	"github.com/ecosyste-ms/ecosystems-go"
	"github.com/git-pkgs/registries"
)

// EcosystemsSource reads package metadata from the ecosyste.ms API.
type EcosystemsSource struct {
	client *ecosystems.Client
}

// NewEcosystemsSource creates a source that uses the ecosyste.ms API.
func NewEcosystemsSource(userAgent string) (*EcosystemsSource, error) {
	client, err := ecosystems.NewClient(userAgent)
	if err != nil {
		return nil, err
	}
	return &EcosystemsSource{client: client}, nil
}

func (s *EcosystemsSource) Lookup(ctx context.Context, purlStr string) (*PackageInfo, error) {
	packages, err := s.client.BulkLookup(ctx, []string{purlStr})
	if err != nil {
		return nil, err
	}

	for _, pkg := range packages {
		if pkg == nil {
			continue
		}
		info := &PackageInfo{
			Ecosystem:   pkg.Ecosystem,
			Name:        pkg.Name,
			RegistryURL: registries.DefaultURL(pkg.Ecosystem),
			Source:      "ecosystems",
		}
		if pkg.LatestReleaseNumber != nil {
			info.LatestVersion = *pkg.LatestReleaseNumber
		}
		if len(pkg.NormalizedLicenses) > 0 {
			info.License = pkg.NormalizedLicenses[0]
		} else if pkg.Licenses != nil && *pkg.Licenses != "" {
			info.License = *pkg.Licenses
		}
		if pkg.Description != nil {
			info.Description = *pkg.Description
		}
		if pkg.Homepage != nil {
			info.Homepage = *pkg.Homepage
		}
		if pkg.RepositoryUrl != nil {
			info.Repository = *pkg.RepositoryUrl
		}
		return info, nil
	}
	return nil, nil
}

func (s *EcosystemsSource) Versions(ctx context.Context, purlStr string) ([]VersionInfo, error) {
	p, err := ecosystems.ParsePURL(purlStr)
	if err != nil {
		return nil, err
	}

	versions, err := s.client.GetAllVersionsPURL(ctx, p)
	if err != nil {
		return nil, err
	}

	result := make([]VersionInfo, 0, len(versions))
	for _, v := range versions {
		info := VersionInfo{Number: v.Number}
		if v.PublishedAt != nil {
			info.PublishedAt, _ = time.Parse(time.RFC3339, *v.PublishedAt)
		}
		result = append(result, info)
	}
	return result, nil
}

package nugetmeta

import (
	"context"

	"github.com/git-pkgs/purl"
	"github.com/git-pkgs/registries"
	_ "github.com/git-pkgs/registries/all"
)

// RegistriesSource queries package registries directly.
type RegistriesSource struct {
	client *registries.Client
}

// NewRegistriesSource creates a source that queries registries directly.
func NewRegistriesSource() *RegistriesSource {
	return &RegistriesSource{
		client: registries.DefaultClient(),
	}
}

func (s *RegistriesSource) Lookup(ctx context.Context, purlStr string) (*PackageInfo, error) {
	packages := registries.BulkFetchPackages(ctx, []string{purlStr}, s.client)

	for _, pkg := range packages {
		if pkg == nil {
			continue
		}

		ecosystem := ""
		version := ""
		if p, err := purl.Parse(purlStr); err == nil && p != nil {
			ecosystem = p.Type
			version = p.Version
		}

		info := &PackageInfo{
			Ecosystem:     ecosystem,
			Name:          pkg.Name,
			LatestVersion: pkg.LatestVersion,
			License:       pkg.Licenses,
			Description:   pkg.Description,
			Homepage:      pkg.Homepage,
			Repository:    pkg.Repository,
			RegistryURL:   registryURL(purlStr, ecosystem),
			Source:        "registries",
		}

		// A version-specific license beats the package-level one.
		if version != "" {
			if v, err := registries.FetchVersionFromPURL(ctx, purlStr, s.client); err == nil && v != nil && v.Licenses != "" {
				info.License = v.Licenses
			}
		}
		return info, nil
	}
	return nil, nil
}

func (s *RegistriesSource) Versions(ctx context.Context, purlStr string) ([]VersionInfo, error) {
	reg, name, _, err := registries.NewFromPURL(purlStr, s.client)
	if err != nil {
		return nil, err
	}

	versions, err := reg.FetchVersions(ctx, name)
	if err != nil {
		return nil, err
	}

	result := make([]VersionInfo, 0, len(versions))
	for _, v := range versions {
		result = append(result, VersionInfo{
			Number:      v.Number,
			PublishedAt: v.PublishedAt,
			Integrity:   v.Integrity,
			License:     v.Licenses,
		})
	}
	return result, nil
}

// registryURL extracts the registry URL from a PURL qualifier or returns the default.
func registryURL(purlStr, ecosystem string) string {
	if u := repositoryURL(purlStr); u != "" {
		return u
	}
	return registries.DefaultURL(ecosystem)
}

// repositoryURL returns the repository_url qualifier of a PURL, if any.
func repositoryURL(purlStr string) string {
	p, err := purl.Parse(purlStr)
	if err != nil {
		return ""
	}
	return p.Qualifier("repository_url")
}

package nugetmeta

import (
	"context"
	"strings"
	"time"

	"github.com/git-pkgs/vers"
)

// Source supplies registry-side package metadata. The resolver consults it
// only when no manifest exists in the local caches or the flat container.
type Source interface {
	// Lookup fetches metadata for a package PURL. A PURL with a version
	// selects version-specific data where the source has it.
	// Returns nil and no error when the package is unknown.
	Lookup(ctx context.Context, purl string) (*PackageInfo, error)

	// Versions lists the published versions of a package.
	// The purl should be a package PURL without version (pkg:nuget/Newtonsoft.Json).
	Versions(ctx context.Context, purl string) ([]VersionInfo, error)
}

// PackageInfo contains metadata about a package.
type PackageInfo struct {
	Ecosystem     string
	Name          string
	LatestVersion string
	License       string
	Description   string
	Homepage      string
	Repository    string
	RegistryURL   string
	Source        string // "ecosystems", "registries", or "depsdev"
}

// VersionInfo contains metadata about a specific version.
type VersionInfo struct {
	Number      string
	PublishedAt time.Time
	Integrity   string
	License     string
}

// Manifest adapts p to the Manifest interface so registry metadata merges
// into a Component with the same rules as a parsed nuspec. A license that
// parses as an SPDX expression becomes expression metadata, a license that
// is a URL becomes the license URL, and anything else is dropped.
func (p *PackageInfo) Manifest() Manifest {
	m := infoManifest{info: p}
	lic := strings.TrimSpace(p.License)
	switch {
	case lic == "":
	case strings.HasPrefix(lic, "http://") || strings.HasPrefix(lic, "https://"):
		m.licenseURL = lic
	default:
		if expr, err := ParseExpression(lic); err == nil {
			m.license = &LicenseMetadata{Type: LicenseTypeExpression, Value: lic, Expression: expr}
		}
	}
	return m
}

type infoManifest struct {
	info       *PackageInfo
	license    *LicenseMetadata
	licenseURL string
}

func (m infoManifest) Authors() string           { return "" }
func (m infoManifest) Copyright() string         { return "" }
func (m infoManifest) Title() string             { return "" }
func (m infoManifest) Summary() string           { return "" }
func (m infoManifest) Description() string       { return strings.TrimSpace(m.info.Description) }
func (m infoManifest) License() *LicenseMetadata { return m.license }
func (m infoManifest) LicenseURL() string        { return m.licenseURL }

func (m infoManifest) ProjectURL() string {
	if m.info.Homepage != "" {
		return m.info.Homepage
	}
	return m.info.Repository
}

// latestVersion returns the highest version from a list using semver comparison.
func latestVersion(versions []VersionInfo) string {
	if len(versions) == 0 {
		return ""
	}
	latest := versions[0].Number
	for _, v := range versions[1:] {
		if vers.Compare(v.Number, latest) > 0 {
			latest = v.Number
		}
	}
	return latest
}

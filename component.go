package nugetmeta

import (
	"github.com/CycloneDX/cyclonedx-go"
	"github.com/package-url/packageurl-go"
)

// ComponentTypeLibrary is the only component type this resolver produces.
const ComponentTypeLibrary = "library"

// ExternalReferenceType classifies an ExternalReference.
type ExternalReferenceType string

// ExternalReferenceWebsite marks a project home page.
const ExternalReferenceWebsite ExternalReferenceType = "website"

// Identity names one package version. Scope is passed through to the
// resulting Component unchanged ("required", "optional", "excluded" or "").
type Identity struct {
	Name    string
	Version string
	Scope   string
}

func (id Identity) valid() bool {
	return id.Name != "" && id.Version != ""
}

// Component is the normalized metadata record for one package version.
// Empty strings and nil slices mean the attribute is absent.
type Component struct {
	Name               string
	Version            string
	Scope              string
	PackageURL         string
	Type               string
	Publisher          string
	Copyright          string
	Description        string
	Licenses           []License
	ExternalReferences []ExternalReference
}

// License is a resolved license. Any field may be empty.
type License struct {
	ID   string
	Name string
	URL  string
}

// ExternalReference points at a resource related to the component.
type ExternalReference struct {
	Type ExternalReferenceType
	URL  string
}

func newComponent(id Identity) *Component {
	return &Component{
		Name:       id.Name,
		Version:    id.Version,
		Scope:      id.Scope,
		PackageURL: packageURL(id.Name, id.Version),
		Type:       ComponentTypeLibrary,
	}
}

// packageURL returns the canonical purl for a NuGet package version.
func packageURL(name, version string) string {
	return packageurl.NewPackageURL(packageurl.TypeNuget, "", name, version, nil, "").ToString()
}

// CycloneDX converts c to a CycloneDX component. The package URL doubles as
// the BOM reference so repeated conversions produce identical output.
func (c *Component) CycloneDX() cyclonedx.Component {
	out := cyclonedx.Component{
		BOMRef:      c.PackageURL,
		Type:        cyclonedx.ComponentType(c.Type),
		Name:        c.Name,
		Version:     c.Version,
		Scope:       cyclonedx.Scope(c.Scope),
		PackageURL:  c.PackageURL,
		Publisher:   c.Publisher,
		Copyright:   c.Copyright,
		Description: c.Description,
	}
	if len(c.Licenses) > 0 {
		licenses := make(cyclonedx.Licenses, 0, len(c.Licenses))
		for _, l := range c.Licenses {
			licenses = append(licenses, cyclonedx.LicenseChoice{
				License: &cyclonedx.License{
					ID:   l.ID,
					Name: l.Name,
					URL:  l.URL,
				},
			})
		}
		out.Licenses = &licenses
	}
	if len(c.ExternalReferences) > 0 {
		refs := make([]cyclonedx.ExternalReference, 0, len(c.ExternalReferences))
		for _, r := range c.ExternalReferences {
			refs = append(refs, cyclonedx.ExternalReference{
				Type: cyclonedx.ExternalReferenceType(r.Type),
				URL:  r.URL,
			})
		}
		out.ExternalReferences = &refs
	}
	return out
}

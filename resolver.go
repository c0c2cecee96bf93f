// Package nugetmeta resolves descriptive metadata for NuGet packages into
// normalized SBOM components.
//
// A Resolver looks for the package's .nuspec manifest in the local package
// caches, then in a flat container registry, and merges the manifest fields
// into a Component: publisher, copyright, description, licenses and the
// project website. A missing manifest is not an error; the Component then
// carries only the package identity.
package nugetmeta

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/git-pkgs/purl"
	"github.com/package-url/packageurl-go"
)

// Resolver builds Components for package identities. Its configuration is
// fixed at construction, so a Resolver may be shared between goroutines.
type Resolver struct {
	fs        FileSystem
	transport Transport
	locator   *Locator
	fetcher   *Fetcher
	licenses  *LicenseResolver
	fallback  Source
	logger    *log.Logger
}

// descriptionSources lists the manifest fields that may supply the
// description, highest priority first.
var descriptionSources = []func(Manifest) string{
	Manifest.Summary,
	Manifest.Description,
	Manifest.Title,
}

type request struct {
	id      Identity
	purl    string
	fetcher *Fetcher
}

// Resolve returns the Component for id. It returns nil and no error when
// the name or version is empty. A manifest that cannot be parsed is the only
// failure reported; it wraps ErrInvalidManifest.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (*Component, error) {
	return r.resolve(ctx, request{
		id:      id,
		purl:    packageURL(id.Name, id.Version),
		fetcher: r.fetcher,
	})
}

// ResolvePURL resolves a pkg:nuget package URL. A repository_url qualifier
// replaces the flat container base URL for this call and stays on the
// Component's PackageURL, so the result names the feed it came from. Without
// a version the latest version reported by the fallback source is used; if
// there is no source the result is nil.
func (r *Resolver) ResolvePURL(ctx context.Context, purlStr string) (*Component, error) {
	p, err := purl.Parse(purlStr)
	if err != nil {
		return nil, err
	}
	if p.Type != packageurl.TypeNuget {
		return nil, fmt.Errorf("unsupported purl type: %s", p.Type)
	}

	req := request{
		id:      Identity{Name: p.FullName(), Version: p.Version},
		purl:    canonicalPURL(purlStr),
		fetcher: r.fetcher,
	}
	if u := p.Qualifier("repository_url"); u != "" {
		req.fetcher = NewFetcher(r.transport, u, r.logger)
	}

	if req.id.Version == "" && req.id.Name != "" && r.fallback != nil {
		versions, err := r.fallback.Versions(ctx, purlStr)
		if err != nil {
			r.logger.Debug("version listing failed", "purl", purlStr, "err", err)
		}
		if latest := latestVersion(versions); latest != "" {
			req.id.Version = latest
			req.purl = withVersion(purlStr, latest)
		}
	}
	return r.resolve(ctx, req)
}

func (r *Resolver) resolve(ctx context.Context, req request) (*Component, error) {
	if !req.id.valid() {
		return nil, nil
	}
	c := newComponent(req.id)
	c.PackageURL = req.purl

	m, err := r.manifest(ctx, req)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return c, nil
	}

	c.Publisher = m.Authors()
	c.Copyright = m.Copyright()
	c.Description = firstNonEmpty(m, descriptionSources)

	licenses, err := r.licenses.Resolve(ctx, m)
	if err != nil {
		return nil, err
	}
	if len(licenses) > 0 {
		c.Licenses = licenses
	}

	if u := m.ProjectURL(); u != "" {
		c.ExternalReferences = []ExternalReference{{Type: ExternalReferenceWebsite, URL: u}}
	}
	return c, nil
}

// manifest returns the manifest for req, or nil if none is available.
func (r *Resolver) manifest(ctx context.Context, req request) (Manifest, error) {
	rc, err := r.open(ctx, req)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		defer rc.Close()
		n, err := ParseNuspec(rc)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", req.id.Name, req.id.Version, err)
		}
		return n, nil
	}

	if r.fallback == nil {
		return nil, nil
	}
	info, err := r.fallback.Lookup(ctx, req.purl)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Debug("fallback lookup failed", "purl", req.purl, "err", err)
		return nil, nil
	}
	if info == nil {
		return nil, nil
	}
	r.logger.Debug("using fallback metadata", "purl", req.purl, "source", info.Source)
	return info.Manifest(), nil
}

// open returns a reader for the cached manifest, or the remote one when the
// caches miss. A nil reader means neither exists.
func (r *Resolver) open(ctx context.Context, req request) (io.ReadCloser, error) {
	name, version := req.id.Name, req.id.Version
	if path, ok := r.locator.Locate(name, version); ok {
		rc, err := r.fs.Open(path)
		if err == nil {
			r.logger.Debug("manifest cache hit", "package", name, "version", version, "path", path)
			return rc, nil
		}
		r.logger.Debug("cached manifest unreadable", "path", path, "err", err)
	}
	r.logger.Debug("manifest cache miss", "package", name, "version", version)
	return req.fetcher.Fetch(ctx, name, version)
}

func firstNonEmpty(m Manifest, sources []func(Manifest) string) string {
	for _, get := range sources {
		if v := get(m); v != "" {
			return v
		}
	}
	return ""
}

// canonicalPURL returns purlStr in canonical form, keeping its qualifiers.
func canonicalPURL(purlStr string) string {
	p, err := packageurl.FromString(purlStr)
	if err != nil {
		return purlStr
	}
	return p.ToString()
}

// withVersion sets the version of a package URL, keeping its qualifiers.
func withVersion(purlStr, version string) string {
	p, err := packageurl.FromString(purlStr)
	if err != nil {
		return purlStr
	}
	p.Version = version
	return p.ToString()
}

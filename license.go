package nugetmeta

import (
	"context"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
)

// LicenseLookup resolves a license URL to a known license. It returns a nil
// License when it does not recognize the URL. Implementations must be safe
// for concurrent use.
type LicenseLookup interface {
	LookupLicense(ctx context.Context, licenseURL string) (*License, error)
}

// NopLookup never resolves anything. It is the disabled lookup.
type NopLookup struct{}

func (NopLookup) LookupLicense(context.Context, string) (*License, error) { return nil, nil }

// LookupChain tries each lookup in order and returns the first license found.
// Errors from individual lookups are skipped.
type LookupChain []LicenseLookup

func (c LookupChain) LookupLicense(ctx context.Context, licenseURL string) (*License, error) {
	var firstErr error
	for _, l := range c {
		lic, err := l.LookupLicense(ctx, licenseURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if lic != nil {
			return lic, nil
		}
	}
	return nil, firstErr
}

// KnownURLLookup recognizes license URLs that embed an SPDX identifier:
// licenses.nuget.org, opensource.org/licenses and spdx.org/licenses. The
// identifier is returned in canonical case whatever the URL uses.
type KnownURLLookup struct{}

func (KnownURLLookup) LookupLicense(_ context.Context, licenseURL string) (*License, error) {
	id := canonicalLicenseID(spdxIDFromURL(licenseURL))
	if id == "" {
		return nil, nil
	}
	return &License{ID: id, Name: id, URL: licenseURL}, nil
}

func spdxIDFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch {
	case host == "licenses.nuget.org" && len(segs) == 1:
		return segs[0]
	case host == "opensource.org" && len(segs) == 2 && segs[0] == "licenses":
		return strings.TrimSuffix(segs[1], ".php")
	case host == "spdx.org" && len(segs) == 2 && segs[0] == "licenses":
		id := segs[1]
		for _, ext := range []string{".html", ".json", ".txt"} {
			id = strings.TrimSuffix(id, ext)
		}
		return id
	}
	return ""
}

// LicenseResolver applies the license tiers to a manifest: the license
// expression wins outright, then the license URL resolved through the
// lookup, then the bare URL.
type LicenseResolver struct {
	lookup LicenseLookup
	logger *log.Logger
}

// NewLicenseResolver returns a resolver using lookup for license URLs. A nil
// lookup behaves like NopLookup and a nil logger selects log.Default().
func NewLicenseResolver(lookup LicenseLookup, logger *log.Logger) *LicenseResolver {
	if lookup == nil {
		lookup = NopLookup{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LicenseResolver{lookup: lookup, logger: logger}
}

// Resolve returns the licenses declared by m, or nil when it declares none.
// Lookup failures fall back to a URL-only license; the only error returned
// is the context's.
func (r *LicenseResolver) Resolve(ctx context.Context, m Manifest) ([]License, error) {
	if lm := m.License(); lm != nil && lm.Expression != nil {
		leaves := lm.Expression.Leaves()
		if len(leaves) == 0 {
			r.logger.Debug("license expression names no licenses", "expression", lm.Value)
			return nil, nil
		}
		licenses := make([]License, 0, len(leaves))
		for _, id := range leaves {
			licenses = append(licenses, License{ID: id, Name: id})
		}
		return licenses, nil
	}

	licenseURL := m.LicenseURL()
	if licenseURL == "" {
		return nil, nil
	}

	lic, err := r.lookup.LookupLicense(ctx, licenseURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Debug("license lookup failed", "url", licenseURL, "err", err)
	}
	if err == nil && lic != nil {
		return []License{*lic}, nil
	}
	return []License{{URL: licenseURL}}, nil
}

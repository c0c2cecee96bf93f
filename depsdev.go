package nugetmeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/git-pkgs/purl"
)

// DepsDevSource queries the deps.dev v3 REST API.
type DepsDevSource struct {
	baseURL   string
	transport Transport
}

// NewDepsDevSource creates a source for the deps.dev API.
func NewDepsDevSource(userAgent string) *DepsDevSource {
	return &DepsDevSource{
		baseURL:   "https://api.deps.dev",
		transport: NewHTTPTransport(userAgent),
	}
}

func (s *DepsDevSource) Lookup(ctx context.Context, purlStr string) (*PackageInfo, error) {
	p, err := purl.Parse(purlStr)
	if err != nil {
		return nil, err
	}

	system := purl.PURLTypeToDepsdev(p.Type)
	if system == "" {
		return nil, fmt.Errorf("unsupported purl type: %s", p.Type)
	}

	name := p.FullName()
	info := &PackageInfo{
		Ecosystem: p.Type,
		Name:      name,
		Source:    "depsdev",
	}

	pkg, err := s.getPackage(ctx, system, name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, v := range pkg.Versions {
		if v.IsDefault {
			info.LatestVersion = v.VersionKey.Version
			break
		}
	}

	version := p.Version
	if version == "" {
		version = info.LatestVersion
	}
	if version == "" {
		return info, nil
	}

	vResp, err := s.getVersion(ctx, system, name, version)
	if errors.Is(err, ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}
	if len(vResp.Licenses) > 0 {
		info.License = joinLicenses(vResp.Licenses)
	}
	for _, link := range vResp.Links {
		switch link.Label {
		case "HOMEPAGE":
			info.Homepage = link.URL
		case "SOURCE_REPO":
			info.Repository = link.URL
		case "ORIGIN":
			info.RegistryURL = link.URL
		}
	}
	return info, nil
}

func (s *DepsDevSource) Versions(ctx context.Context, purlStr string) ([]VersionInfo, error) {
	p, err := purl.Parse(purlStr)
	if err != nil {
		return nil, err
	}

	system := purl.PURLTypeToDepsdev(p.Type)
	if system == "" {
		return nil, fmt.Errorf("unsupported purl type: %s", p.Type)
	}

	resp, err := s.getPackage(ctx, system, p.FullName())
	if err != nil {
		return nil, err
	}

	result := make([]VersionInfo, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		info := VersionInfo{
			Number: v.VersionKey.Version,
		}
		if v.PublishedAt != "" {
			info.PublishedAt, _ = time.Parse(time.RFC3339, v.PublishedAt)
		}
		result = append(result, info)
	}
	return result, nil
}

type depsdevVersionKey struct {
	System  string `json:"system"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type depsdevPackageResponse struct {
	Versions []depsdevVersion `json:"versions"`
}

type depsdevVersion struct {
	VersionKey  depsdevVersionKey `json:"versionKey"`
	PublishedAt string            `json:"publishedAt"`
	IsDefault   bool              `json:"isDefault"`
}

type depsdevLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type depsdevVersionResponse struct {
	VersionKey  depsdevVersionKey `json:"versionKey"`
	PublishedAt string            `json:"publishedAt"`
	Licenses    []string          `json:"licenses"`
	Links       []depsdevLink     `json:"links"`
}

func (s *DepsDevSource) getPackage(ctx context.Context, system, name string) (*depsdevPackageResponse, error) {
	u := fmt.Sprintf("%s/v3/systems/%s/packages/%s", s.baseURL, system, url.PathEscape(name))

	var result depsdevPackageResponse
	if err := getJSON(ctx, s.transport, u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *DepsDevSource) getVersion(ctx context.Context, system, name, version string) (*depsdevVersionResponse, error) {
	u := fmt.Sprintf("%s/v3/systems/%s/packages/%s/versions/%s",
		s.baseURL, system, url.PathEscape(name), url.PathEscape(version))

	var result depsdevVersionResponse
	if err := getJSON(ctx, s.transport, u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// getJSON GETs u through t and decodes the body into v. A missing resource
// is reported as ErrNotFound.
func getJSON(ctx context.Context, t Transport, u string, v any) error {
	s, err := t.GetStream(ctx, u)
	if err != nil {
		return err
	}
	if s == nil || s.Body == nil {
		return ErrNotFound
	}
	defer s.Body.Close()
	return json.NewDecoder(s.Body).Decode(v)
}

// joinLicenses ANDs the license expressions deps.dev reports for a version,
// parenthesizing compound ones so the result keeps their meaning.
func joinLicenses(licenses []string) string {
	parts := make([]string, 0, len(licenses))
	for _, l := range licenses {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		parts = append(parts, l)
	}
	if len(parts) > 1 {
		for i, l := range parts {
			if hasBooleanOperator(l) {
				parts[i] = "(" + l + ")"
			}
		}
	}
	return strings.Join(parts, " AND ")
}

func hasBooleanOperator(expr string) bool {
	for _, f := range strings.Fields(expr) {
		if strings.EqualFold(f, "AND") || strings.EqualFold(f, "OR") {
			return true
		}
	}
	return false
}

// Package githublicense resolves license URLs that point into GitHub
// repositories using the GitHub license API.
package githublicense

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/git-pkgs/nugetmeta"
)

const defaultUserAgent = "nugetmeta"

var (
	blobURLPattern = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/]+)/([^/]+)/(?:blob|raw|tree)/([^/]+)/(.+)$`)
	rawURLPattern  = regexp.MustCompile(`^https?://raw\.githubusercontent\.com/([^/]+)/([^/]+)/([^/]+)/(.+)$`)
)

// Client queries the GitHub REST API for repository licenses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	token      string
}

// New creates a new client. An optional user agent may be given.
func New(userAgent ...string) *Client {
	ua := defaultUserAgent
	if len(userAgent) > 0 && userAgent[0] != "" {
		ua = userAgent[0]
	}
	return &Client{
		baseURL: "https://api.github.com",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: ua,
	}
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// fileRef identifies a file at a ref in a GitHub repository.
type fileRef struct {
	owner, repo, ref, path string
}

func parseLicenseURL(raw string) (fileRef, bool) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	for _, re := range []*regexp.Regexp{blobURLPattern, rawURLPattern} {
		if m := re.FindStringSubmatch(raw); m != nil {
			return fileRef{owner: m[1], repo: m[2], ref: m[3], path: m[4]}, true
		}
	}
	return fileRef{}, false
}

// LookupLicense resolves a GitHub license file URL such as
// https://github.com/owner/repo/blob/main/LICENSE to the license GitHub
// detected for that file. URLs outside GitHub, repositories without a
// detected license and licenses GitHub cannot classify yield nil.
func (c *Client) LookupLicense(ctx context.Context, licenseURL string) (*nugetmeta.License, error) {
	f, ok := parseLicenseURL(licenseURL)
	if !ok {
		return nil, nil
	}

	u := fmt.Sprintf("%s/repos/%s/%s/license?ref=%s", c.baseURL, f.owner, f.repo, url.QueryEscape(f.ref))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github: %s", resp.Status)
	}

	var raw licenseResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	// The repository license may live in a different file than the one the
	// manifest links to.
	if raw.Path != "" && !strings.EqualFold(raw.Path, f.path) {
		return nil, nil
	}
	if raw.License.SPDXID == "" || raw.License.SPDXID == "NOASSERTION" {
		return nil, nil
	}

	return &nugetmeta.License{
		ID:   raw.License.SPDXID,
		Name: raw.License.Name,
		URL:  licenseURL,
	}, nil
}

type licenseResponse struct {
	Path    string `json:"path"`
	License struct {
		Key    string `json:"key"`
		Name   string `json:"name"`
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
}

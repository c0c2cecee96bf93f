package nugetmeta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/nugetmeta/internal/httputil"
)

// DefaultBaseURL is the public nuget.org flat container endpoint.
const DefaultBaseURL = "https://api.nuget.org/v3-flatcontainer/"

var (
	// ErrNotFound is returned by lookups when the registry has no such resource.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for connection failures and unexpected HTTP statuses.
	ErrNetwork = errors.New("network error")
)

// Stream is an open response body and its declared content type.
type Stream struct {
	Body        io.ReadCloser
	ContentType string
}

// Transport retrieves remote content. A missing resource is reported as a
// nil Stream and nil error. Implementations must be safe for concurrent use.
type Transport interface {
	GetStream(ctx context.Context, url string) (*Stream, error)
}

// HTTPTransport is a Transport over net/http that retries network errors
// and 5xx responses.
type HTTPTransport struct {
	httpClient *http.Client
	userAgent  string
	retry      httputil.Policy
}

// NewHTTPTransport creates a transport sending the given User-Agent.
func NewHTTPTransport(userAgent string) *HTTPTransport {
	return &HTTPTransport{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: userAgent,
		retry:     httputil.DefaultPolicy,
	}
}

func (t *HTTPTransport) GetStream(ctx context.Context, url string) (*Stream, error) {
	var s *Stream
	err := t.retry.Do(ctx, func() error {
		var err error
		s, err = t.get(ctx, url)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (t *HTTPTransport) get(ctx context.Context, url string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return &Stream{Body: resp.Body, ContentType: resp.Header.Get("Content-Type")}, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %s", ErrNetwork, resp.Status)}
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNetwork, resp.Status)
	}
}

// Fetcher downloads manifests from a flat container registry.
type Fetcher struct {
	transport Transport
	baseURL   string
	logger    *log.Logger
}

// NewFetcher returns a Fetcher for baseURL. An empty baseURL selects
// DefaultBaseURL; a nil logger selects log.Default().
func NewFetcher(t Transport, baseURL string, logger *log.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{transport: t, baseURL: baseURL, logger: logger}
}

// URL returns the manifest address for name and version. Unlike the local
// cache layout, the name keeps the caller's casing.
func (f *Fetcher) URL(name, version string) string {
	return f.baseURL + name + "/" + version + "/" + name + manifestExt
}

// Fetch retrieves the manifest for name and version. It returns a nil reader
// and nil error when the registry does not have it, the transport fails, or
// the response is not a manifest. Only context cancellation is returned as
// an error. The caller closes the returned reader.
func (f *Fetcher) Fetch(ctx context.Context, name, version string) (io.ReadCloser, error) {
	if name == "" || version == "" {
		return nil, nil
	}
	u := f.URL(name, version)
	s, err := f.transport.GetStream(ctx, u)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Debug("manifest fetch failed", "url", u, "err", err)
		return nil, nil
	}
	if s == nil || s.Body == nil {
		f.logger.Debug("manifest not found", "url", u)
		return nil, nil
	}
	if !isManifestContentType(s.ContentType) {
		s.Body.Close()
		f.logger.Debug("unexpected manifest content type", "url", u, "content_type", s.ContentType)
		return nil, nil
	}
	return s.Body, nil
}

func isManifestContentType(ct string) bool {
	if ct == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.HasSuffix(mt, "/xml") || strings.HasSuffix(mt, "+xml") || mt == "application/octet-stream"
}

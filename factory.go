package nugetmeta

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

const defaultUserAgent = "nugetmeta"

// Option configures a Resolver.
type Option func(*options)

type options struct {
	userAgent   string
	cacheRoots  []string
	rootsSet    bool
	baseURL     string
	fs          FileSystem
	transport   Transport
	lookup      LicenseLookup
	fallback    Source
	fallbackSet bool
	logger      *log.Logger
}

// WithUserAgent sets the User-Agent header for registry requests.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithCacheRoots sets the package cache directories, searched in order.
// Passing no roots disables the local cache.
func WithCacheRoots(roots ...string) Option {
	return func(o *options) {
		o.cacheRoots = append([]string(nil), roots...)
		o.rootsSet = true
	}
}

// WithBaseURL sets the flat container endpoint used when no cached
// manifest exists.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithFileSystem replaces the host file system.
func WithFileSystem(fs FileSystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithTransport replaces the HTTP transport used for manifest downloads.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithLicenseLookup sets the collaborator that resolves license URLs.
func WithLicenseLookup(l LicenseLookup) Option {
	return func(o *options) {
		o.lookup = l
	}
}

// WithFallback sets the metadata source consulted when no manifest exists.
// Pass nil to disable the fallback regardless of the environment.
func WithFallback(s Source) Option {
	return func(o *options) {
		o.fallback = s
		o.fallbackSet = true
	}
}

// WithLogger sets the logger. The resolver only logs at debug level.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{userAgent: defaultUserAgent}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewResolver creates a Resolver. Settings not given as options come from
// the environment:
//   - cache roots: $NUGET_PACKAGES (default ~/.nuget/packages) followed by
//     the ;-separated folders in $NUGET_FALLBACK_PACKAGES
//   - base URL: $GIT_PKGS_NUGET_URL, then git config pkgs.nugeturl, then
//     DefaultBaseURL
//   - fallback source: $GIT_PKGS_FALLBACK (ecosystems, registries, depsdev
//     or hybrid); unset means none
//
// The license lookup defaults to KnownURLLookup.
func NewResolver(opts ...Option) (*Resolver, error) {
	o := buildOptions(opts)

	if o.logger == nil {
		o.logger = log.Default()
	}
	if o.fs == nil {
		o.fs = OSFileSystem{}
	}
	if o.transport == nil {
		o.transport = NewHTTPTransport(o.userAgent)
	}
	if !o.rootsSet {
		o.cacheRoots = defaultCacheRoots()
	}
	if o.baseURL == "" {
		o.baseURL = defaultBaseURL()
	}
	if o.lookup == nil {
		o.lookup = KnownURLLookup{}
	}
	if !o.fallbackSet {
		src, err := fallbackFromEnv(o.userAgent)
		if err != nil {
			return nil, err
		}
		o.fallback = src
	}

	return &Resolver{
		fs:        o.fs,
		transport: o.transport,
		locator:   NewLocator(o.fs, o.cacheRoots),
		fetcher:   NewFetcher(o.transport, o.baseURL, o.logger),
		licenses:  NewLicenseResolver(o.lookup, o.logger),
		fallback:  o.fallback,
		logger:    o.logger,
	}, nil
}

// defaultCacheRoots returns the NuGet global packages folder followed by any
// fallback folders.
func defaultCacheRoots() []string {
	var roots []string
	if v := os.Getenv("NUGET_PACKAGES"); v != "" {
		roots = append(roots, v)
	} else if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".nuget", "packages"))
	}
	for _, dir := range strings.Split(os.Getenv("NUGET_FALLBACK_PACKAGES"), ";") {
		if dir = strings.TrimSpace(dir); dir != "" {
			roots = append(roots, dir)
		}
	}
	return roots
}

// defaultBaseURL checks the environment, then git config, then falls back to
// nuget.org. Environment variable takes precedence over git config.
func defaultBaseURL() string {
	if v := os.Getenv("GIT_PKGS_NUGET_URL"); v != "" {
		return v
	}

	out, err := exec.Command("git", "config", "--get", "pkgs.nugeturl").Output()
	if err == nil {
		if val := strings.TrimSpace(string(out)); val != "" {
			return val
		}
	}
	return DefaultBaseURL
}

// fallbackFromEnv builds the source named by GIT_PKGS_FALLBACK.
func fallbackFromEnv(userAgent string) (Source, error) {
	switch v := strings.ToLower(strings.TrimSpace(os.Getenv("GIT_PKGS_FALLBACK"))); v {
	case "", "none":
		return nil, nil
	case "ecosystems":
		src, err := NewEcosystemsSource(userAgent)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "registries":
		return NewRegistriesSource(), nil
	case "depsdev":
		return NewDepsDevSource(userAgent), nil
	case "hybrid":
		src, err := NewHybridSource(userAgent)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown GIT_PKGS_FALLBACK value %q", v)
	}
}

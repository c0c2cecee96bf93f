package nugetmeta

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

const manifestExt = ".nuspec"

// FileSystem is the read-only file access the Locator and Resolver need.
// Implementations must be safe for concurrent use.
type FileSystem interface {
	Exists(path string) bool
	Open(path string) (io.ReadCloser, error)
}

// OSFileSystem reads from the host file system.
type OSFileSystem struct{}

// Exists reports whether path names an existing regular file.
func (OSFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (OSFileSystem) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Locator finds cached manifests in an ordered list of package cache roots.
type Locator struct {
	fs    FileSystem
	roots []string
}

// NewLocator returns a Locator searching roots in order.
func NewLocator(fs FileSystem, roots []string) *Locator {
	return &Locator{fs: fs, roots: append([]string(nil), roots...)}
}

// Locate returns the path of the first cached manifest for name and version.
// Cache directories are keyed by the lowercased name.
func (l *Locator) Locate(name, version string) (string, bool) {
	if name == "" || version == "" {
		return "", false
	}
	for _, root := range l.roots {
		p := cachedManifestPath(root, name, version)
		if l.fs.Exists(p) {
			return p, true
		}
	}
	return "", false
}

func cachedManifestPath(root, name, version string) string {
	lower := strings.ToLower(name)
	return filepath.Join(root, lower, version, lower+manifestExt)
}

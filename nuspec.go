package nugetmeta

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidManifest wraps every manifest parse failure.
var ErrInvalidManifest = errors.New("invalid manifest")

// License metadata types as written in the nuspec <license type="..."> attribute.
const (
	LicenseTypeExpression = "expression"
	LicenseTypeFile       = "file"
)

// Manifest exposes the package metadata fields the resolver consumes.
// Accessors return "" or nil when a field is absent.
type Manifest interface {
	Authors() string
	Copyright() string
	Title() string
	Summary() string
	Description() string
	License() *LicenseMetadata
	LicenseURL() string
	ProjectURL() string
}

// LicenseMetadata is the structured <license> element of a manifest.
// Expression is non-nil only for LicenseTypeExpression.
type LicenseMetadata struct {
	Type       string
	Value      string
	Expression *Expression
}

// Nuspec is a parsed .nuspec manifest.
type Nuspec struct {
	id      string
	version string
	meta    nuspecMetadata
	license *LicenseMetadata
}

type nuspecPackage struct {
	XMLName  xml.Name        `xml:"package"`
	Metadata *nuspecMetadata `xml:"metadata"`
}

type nuspecMetadata struct {
	ID          string         `xml:"id"`
	Version     string         `xml:"version"`
	Title       string         `xml:"title"`
	Authors     string         `xml:"authors"`
	Copyright   string         `xml:"copyright"`
	Summary     string         `xml:"summary"`
	Description string         `xml:"description"`
	License     *nuspecLicense `xml:"license"`
	LicenseURL  string         `xml:"licenseUrl"`
	ProjectURL  string         `xml:"projectUrl"`
}

type nuspecLicense struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// ParseNuspec decodes a .nuspec document from r. Malformed XML, a missing
// <metadata> element and an unparsable license expression are all reported
// as errors wrapping ErrInvalidManifest.
func ParseNuspec(r io.Reader) (*Nuspec, error) {
	var pkg nuspecPackage
	if err := xml.NewDecoder(r).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if pkg.Metadata == nil {
		return nil, fmt.Errorf("%w: missing metadata element", ErrInvalidManifest)
	}

	n := &Nuspec{
		id:      strings.TrimSpace(pkg.Metadata.ID),
		version: strings.TrimSpace(pkg.Metadata.Version),
		meta:    *pkg.Metadata,
	}
	if l := pkg.Metadata.License; l != nil {
		lm := &LicenseMetadata{
			Type:  strings.ToLower(strings.TrimSpace(l.Type)),
			Value: strings.TrimSpace(l.Value),
		}
		if lm.Type == LicenseTypeExpression {
			expr, err := ParseExpression(lm.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
			}
			lm.Expression = expr
		}
		n.license = lm
	}
	return n, nil
}

// ID returns the package id declared in the manifest.
func (n *Nuspec) ID() string { return n.id }

// Version returns the package version declared in the manifest.
func (n *Nuspec) Version() string { return n.version }

func (n *Nuspec) Authors() string           { return strings.TrimSpace(n.meta.Authors) }
func (n *Nuspec) Copyright() string         { return strings.TrimSpace(n.meta.Copyright) }
func (n *Nuspec) Title() string             { return strings.TrimSpace(n.meta.Title) }
func (n *Nuspec) Summary() string           { return strings.TrimSpace(n.meta.Summary) }
func (n *Nuspec) Description() string       { return strings.TrimSpace(n.meta.Description) }
func (n *Nuspec) License() *LicenseMetadata { return n.license }
func (n *Nuspec) LicenseURL() string        { return strings.TrimSpace(n.meta.LicenseURL) }
func (n *Nuspec) ProjectURL() string        { return strings.TrimSpace(n.meta.ProjectURL) }

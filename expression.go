package nugetmeta

import (
	"errors"
	"fmt"

	"github.com/git-pkgs/spdx"
)

// ErrInvalidExpression is returned by ParseExpression for malformed input.
var ErrInvalidExpression = errors.New("invalid license expression")

// Expression is a parsed SPDX license expression with canonical identifiers.
type Expression struct {
	tree spdx.Expression
}

// ParseExpression parses s as a strict SPDX expression. Identifiers are
// matched case-insensitively and returned in their canonical form; unknown
// identifiers other than LicenseRef-* are rejected.
func ParseExpression(s string) (*Expression, error) {
	tree, err := spdx.ParseStrict(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidExpression, s, err)
	}
	return &Expression{tree: tree}, nil
}

// Tree returns the parsed expression.
func (e *Expression) Tree() spdx.Expression {
	if e == nil {
		return nil
	}
	return e.tree
}

// Leaves returns the license identifiers in depth-first, left-to-right
// order, keeping duplicates. WITH exceptions and "+" suffixes are not part
// of the identifiers.
func (e *Expression) Leaves() []string {
	if e == nil {
		return nil
	}
	return e.tree.Licenses()
}

// String returns the normalized expression.
func (e *Expression) String() string {
	if e == nil {
		return ""
	}
	return e.tree.String()
}

// canonicalLicenseID returns the canonical SPDX form of a single license
// identifier, or "" if id is not one.
func canonicalLicenseID(id string) string {
	tree, err := spdx.ParseStrict(id)
	if err != nil {
		return ""
	}
	l, ok := tree.(*spdx.License)
	if !ok || l.Plus || l.Exception != "" {
		return ""
	}
	return l.ID
}

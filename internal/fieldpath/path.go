// Package fieldpath names record fields for the rule engine. A Path has one
// segment ("Score") or two ("Subject.Name"): a composite field followed by
// one of its sub-fields. Paths are resolved against records by a Resolver
// supplied by the caller, so the engine never inspects records itself.
package fieldpath

import (
	"errors"
	"fmt"
	"strings"
)

// MaxSegments is the deepest nesting a Path may express.
const MaxSegments = 2

// Path is an ordered list of field names.
type Path []string

// Parse parses "Field" or "Composite.Field" into a Path.
func Parse(s string) (Path, error) {
	if s == "" {
		return nil, errors.New("empty path")
	}

	parts := strings.Split(s, ".")
	if len(parts) > MaxSegments {
		return nil, fmt.Errorf("invalid path %q: at most %d segments", s, MaxSegments)
	}

	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", s)
		}
		if !isValidIdent(part) {
			return nil, fmt.Errorf("invalid path %q: invalid identifier %q", s, part)
		}
		p = append(p, part)
	}
	return p, nil
}

// MustParse is Parse for static paths; it panics on error.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the dotted form.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// IsZero reports whether the path has no segments.
func (p Path) IsZero() bool {
	return len(p) == 0
}

// Nested reports whether the path addresses a sub-field.
func (p Path) Nested() bool {
	return len(p) == MaxSegments
}

// Head is the first segment.
func (p Path) Head() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Leaf is the last segment.
func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Equal reports whether two paths name the same field.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// isValidIdent checks if a string is a valid identifier.
func isValidIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !isLetter(r) && r != '_' {
				return false
			}
		} else if !isLetter(r) && !isDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

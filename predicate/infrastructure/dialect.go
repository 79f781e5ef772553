package predicate

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrNotRenderable is returned for nodes that have no textual form in a
// dialect, such as runtime operators.
var ErrNotRenderable = errors.New("node cannot be rendered")

// CQLRenderer is implemented by extension nodes that know their CQL form.
type CQLRenderer interface {
	RenderCQL() (string, error)
}

// OGCXMLRenderer is implemented by extension nodes that know their OGC filter
// XML form.
type OGCXMLRenderer interface {
	RenderOGCXML() (string, error)
}

// SQLRenderer is implemented by extension nodes that know their PostgreSQL
// form. bind registers a parameter and returns its placeholder.
type SQLRenderer interface {
	RenderSQL(column string, bind func(value any) string) (string, error)
}

// translatePattern rewrites a LIKE pattern from the engine's convention
// (wildCard for any run, "?" for one character) into a dialect using many
// and single. Characters meaning something in the target are escaped with a
// backslash.
func translatePattern(pattern, wildCard string, many, single rune) string {
	var sb strings.Builder
	for _, r := range pattern {
		switch {
		case string(r) == wildCard:
			sb.WriteRune(many)
		case r == '?':
			sb.WriteRune(single)
		case r == many, r == single, r == '\\':
			sb.WriteRune('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

package predicate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// CompileLike turns a LIKE pattern into an anchored regular expression. The
// wildcard matches any run of characters and '?' matches exactly one; every
// other character is literal.
func CompileLike(pattern, wildCard string, matchCase bool) (*regexp.Regexp, error) {
	if utf8.RuneCountInString(wildCard) != 1 {
		return nil, errors.Wrapf(ErrUnsupportedValue, "wildcard %q must be a single character", wildCard)
	}
	var sb strings.Builder
	sb.WriteString("(?s")
	if !matchCase {
		sb.WriteString("i")
	}
	sb.WriteString(")^")
	for _, r := range pattern {
		switch {
		case string(r) == wildCard:
			sb.WriteString(".*")
		case r == '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

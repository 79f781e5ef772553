package predicate

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrSkipChildren returned from a WalkFunc skips the children of the current
// logical node.
var ErrSkipChildren = errors.New("skip children")

type WalkFunc func(n Node, depth int) error

// Walk visits root and its descendants depth-first in evaluation order.
func Walk(root Node, fn WalkFunc) error {
	return walk(root, 0, fn)
}

func walk(n Node, depth int, fn WalkFunc) error {
	if err := fn(n, depth); err != nil {
		if errors.Is(err, ErrSkipChildren) {
			return nil
		}
		return err
	}
	logical, ok := n.(*LogicalNode)
	if !ok {
		return nil
	}
	for _, child := range logical.Children() {
		if err := walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// leafKeyValue is satisfied by every leaf kind.
type leafKeyValue interface {
	Key() string
	Value() any
}

// KeysAndValues collects the operands of all leaves by key. A key used by
// several leaves maps to a slice of their operands.
func KeysAndValues(root Node) map[string]any {
	result := make(map[string]any)
	_ = Walk(root, func(n Node, _ int) error {
		kv, ok := n.(leafKeyValue)
		if !ok {
			return nil
		}
		key, value := kv.Key(), kv.Value()
		existing, ok := result[key]
		switch {
		case !ok:
			result[key] = value
		default:
			if values, isSlice := existing.([]any); isSlice {
				result[key] = append(values, value)
			} else {
				result[key] = []any{existing, value}
			}
		}
		return nil
	})
	return result
}

// Tree renders a human readable outline, one node per line, children
// indented by two spaces.
func Tree(root Node) string {
	var lines []string
	_ = Walk(root, func(n Node, depth int) error {
		indent := strings.Repeat("  ", depth)
		if kv, ok := n.(leafKeyValue); ok {
			line := indent + kv.Key() + " " + n.Alias()
			if kv.Value() != nil {
				line += " " + formatValue(kv.Value())
			}
			lines = append(lines, line)
			return nil
		}
		lines = append(lines, indent+n.Alias())
		return nil
	})
	return strings.Join(lines, "\n")
}

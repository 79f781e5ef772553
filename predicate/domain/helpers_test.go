package predicate

import (
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// assertSameText fails with a character diff when actual differs from
// expected.
func assertSameText(t *testing.T, expected, actual string) {
	t.Helper()
	if expected == actual {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	t.Errorf("text mismatch:\n%s", dmp.DiffPrettyText(diffs))
}

type mapContext map[string]any

func (c mapContext) Get(key string) (any, error) {
	v, ok := c[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

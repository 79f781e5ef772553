package predicate

import (
	"testing"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
)

func assertSameText(t *testing.T, expected, actual string) {
	t.Helper()
	if expected == actual {
		return
	}
	dmp := diffmatchpatch.New()
	t.Errorf("text mismatch:\n%s", dmp.DiffPrettyText(dmp.DiffMain(expected, actual, false)))
}

// miyagiFilter is the tree used across the dialect tests:
// age = 42 AND (name LIKE 'Mr%' OR nickname IS NULL) AND NOT weight < 20
func miyagiFilter() *p.Builder {
	return p.And().
		Eq("age", 42).
		Or().Like("name", "Mr*").IsNull("nickname").Up().
		Not().Lt("weight", 20).
		Done()
}

var founded = time.Date(1925, 3, 1, 0, 0, 0, 0, time.UTC)

// opaqueNode is an extension without any dialect form.
type opaqueNode struct {
	reporter *p.Reporter
}

func newOpaqueNode() *opaqueNode {
	return &opaqueNode{reporter: p.NewReporter("opaque")}
}

func (n *opaqueNode) Accept(v p.Visitor) error { return v.VisitExtension(n) }
func (n *opaqueNode) Alias() string { return "opaque" }
func (n *opaqueNode) Reporter() *p.Reporter { return n.reporter }
func (n *opaqueNode) Key() string { return "x" }
func (n *opaqueNode) Value() any { return nil }
func (n *opaqueNode) Options() p.Options { return p.Options{} }
func (n *opaqueNode) Test(any) (bool, error) { return true, nil }
func (n *opaqueNode) PortableArgs() []any { return []any{"x"} }

func runtimeFilter() *p.Builder {
	reg := p.NewRegistry()
	if _, err := reg.Define("even", func(v any) bool { return v.(int)%2 == 0 }); err != nil {
		panic(err)
	}
	return p.And(p.WithRegistry(reg)).Eq("age", 42).Op("even", "age", nil)
}

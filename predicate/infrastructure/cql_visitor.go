package predicate

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
)

const cqlTautology = "(1=1)"

// CompileCQL renders a tree as an OGC CQL filter.
func CompileCQL(exp p.Visitable) (string, error) {
	v := NewCQLVisitor()
	if err := exp.Accept(v); err != nil {
		return "", err
	}
	return v.Result()
}

func NewCQLVisitor() *CQLVisitor {
	return &CQLVisitor{}
}

type CQLVisitor struct {
	cql string
}

// VisitLogical renders an empty node as a tautology, since it evaluates to
// true whatever its kind.
func (v *CQLVisitor) VisitLogical(n *p.LogicalNode) error {
	children := n.Children()
	if len(children) == 0 {
		v.cql += cqlTautology
		return nil
	}
	prefix, separator := "", " AND "
	switch n.Kind() {
	case operators.OperatorOr:
		separator = " OR "
	case operators.OperatorNot:
		prefix, separator = "NOT ", " AND NOT "
	}
	v.cql += "(" + prefix
	for i, child := range children {
		if i > 0 {
			v.cql += separator
		}
		if err := child.Accept(v); err != nil {
			return err
		}
	}
	v.cql += ")"
	return nil
}

func (v *CQLVisitor) VisitComparison(n *p.ComparisonNode) error {
	key := n.Key()
	switch op := n.Operator(); op {
	case operators.OperatorIsNull:
		v.cql += key + " IS NULL"
	case operators.OperatorLike, operators.OperatorILike:
		keyword := "LIKE"
		if !n.MatchCase() {
			keyword = "ILIKE"
		}
		pattern := translatePattern(p.FormatValue(n.Value()), n.WildCard(), '%', '_')
		v.cql += fmt.Sprintf("%s %s %s", key, keyword, cqlString(pattern))
	default:
		symbol, ok := comparisonSymbols[op]
		if !ok {
			return errors.Wrapf(ErrNotRenderable, "comparison %q", op)
		}
		v.cql += fmt.Sprintf("%s %s %s", key, symbol, cqlLiteral(n.Value()))
	}
	return nil
}

func (v *CQLVisitor) VisitRuntime(n *p.RuntimeNode) error {
	return errors.Wrapf(ErrNotRenderable, "runtime operator %q", n.Alias())
}

func (v *CQLVisitor) VisitExtension(n p.ExtensionNode) error {
	r, ok := n.(CQLRenderer)
	if !ok {
		return errors.Wrapf(ErrNotRenderable, "operator %q has no CQL form", n.Alias())
	}
	cql, err := r.RenderCQL()
	if err != nil {
		return err
	}
	v.cql += cql
	return nil
}

func (v CQLVisitor) Result() (string, error) {
	return v.cql, nil
}

var comparisonSymbols = map[operators.Operator]string{
	operators.OperatorEq:  "=",
	operators.OperatorGt:  ">",
	operators.OperatorGte: ">=",
	operators.OperatorLt:  "<",
	operators.OperatorLte: "<=",
}

// cqlLiteral quotes strings, writes dates as bare ISO 8601 timestamps and
// everything else as is.
func cqlLiteral(value any) string {
	switch val := value.(type) {
	case string:
		return cqlString(val)
	case time.Time:
		return p.FormatTime(val)
	}
	return p.FormatValue(value)
}

func cqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

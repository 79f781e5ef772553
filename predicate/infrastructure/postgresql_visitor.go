package predicate

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
)

// CompileSQL renders a tree as a PostgreSQL boolean expression with $n
// placeholders.
func CompileSQL(exp p.Visitable, opts ...PostgresqlVisitorOption) (sql string, params []any, err error) {
	v := NewPostgresqlVisitor(opts...)
	err = exp.Accept(v)
	if err != nil {
		return "", nil, err
	}
	return v.Result()
}

type PostgresqlVisitorOption func(*PostgresqlVisitor)

// PlaceholderIndex shifts placeholder numbering, for expressions embedded in
// a statement that already has index parameters.
func PlaceholderIndex(index int) PostgresqlVisitorOption {
	return func(v *PostgresqlVisitor) {
		v.placeholderIndex = index
	}
}

// WithColumns maps keys to column expressions used verbatim. Unmapped keys
// are quoted as identifiers, a dotted key becoming a qualified name.
func WithColumns(columns map[string]string) PostgresqlVisitorOption {
	return func(v *PostgresqlVisitor) {
		v.columns = columns
	}
}

func NewPostgresqlVisitor(opts ...PostgresqlVisitorOption) *PostgresqlVisitor {
	v := &PostgresqlVisitor{
		precedenceMapping: make(map[string]int),
	}
	// https://www.postgresql.org/docs/14/sql-syntax-lexical.html#SQL-PRECEDENCE-TABLE
	v.setPrecedence(100, "(any other operator) LEFT")
	v.setPrecedence(90, "LIKE NON", "ILIKE NON")
	v.setPrecedence(80, "< NON", "> NON", "= NON", "<= NON", ">= NON")
	v.setPrecedence(70, "IS NON")
	v.setPrecedence(60, "NOT RIGHT")
	v.setPrecedence(50, "AND LEFT")
	v.setPrecedence(40, "OR LEFT")
	for i := range opts {
		opts[i](v)
	}
	return v
}

type PostgresqlVisitor struct {
	sql               string
	placeholderIndex  int
	parameters        []any
	precedence        int
	precedenceMapping map[string]int
	columns           map[string]string
}

func (v PostgresqlVisitor) setPrecedence(precedence int, ops ...string) {
	for _, op := range ops {
		v.precedenceMapping[op] = precedence
	}
}

func (v *PostgresqlVisitor) visit(precedenceKey string, callable func() error) error {
	outerPrecedence := v.precedence
	innerPrecedence, ok := v.precedenceMapping[precedenceKey]
	if !ok {
		innerPrecedence, ok = v.precedenceMapping["(any other operator) LEFT"]
		if !ok {
			innerPrecedence = outerPrecedence
		}
	}
	v.precedence = innerPrecedence
	if innerPrecedence < outerPrecedence {
		v.sql += "("
	}
	err := callable()
	if err != nil {
		return err
	}
	if innerPrecedence < outerPrecedence {
		v.sql += ")"
	}
	v.precedence = outerPrecedence
	return nil
}

func (v *PostgresqlVisitor) bind(value any) string {
	v.parameters = append(v.parameters, value)
	return fmt.Sprintf("$%d", v.placeholderIndex+len(v.parameters))
}

func (v *PostgresqlVisitor) column(key string) string {
	if column, ok := v.columns[key]; ok {
		return column
	}
	return pgx.Identifier(strings.Split(key, ".")).Sanitize()
}

// VisitLogical renders an empty node as TRUE. NOT over several children is
// rendered as the conjunction of their negations. A negation is written as
// IS NOT TRUE, so a comparison against a NULL column negates to true the way
// evaluation of a missing value does.
func (v *PostgresqlVisitor) VisitLogical(n *p.LogicalNode) error {
	children := n.Children()
	if len(children) == 0 {
		v.sql += "TRUE"
		return nil
	}
	switch n.Kind() {
	case operators.OperatorNot:
		if len(children) == 1 {
			return v.visitNegation(children[0])
		}
		return v.visit("AND LEFT", func() error {
			for i, child := range children {
				if i > 0 {
					v.sql += " AND "
				}
				if err := v.visitNegation(child); err != nil {
					return err
				}
			}
			return nil
		})
	case operators.OperatorOr:
		return v.visitJunction("OR", children)
	}
	return v.visitJunction("AND", children)
}

func (v *PostgresqlVisitor) visitJunction(operator string, children []p.Node) error {
	return v.visit(operator+" LEFT", func() error {
		for i, child := range children {
			if i > 0 {
				v.sql += fmt.Sprintf(" %s ", operator)
			}
			if err := child.Accept(v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (v *PostgresqlVisitor) visitNegation(child p.Node) error {
	return v.visit("IS NON", func() error {
		v.sql += "("
		v.precedence = 0
		if err := child.Accept(v); err != nil {
			return err
		}
		v.sql += ") IS NOT TRUE"
		return nil
	})
}

func (v *PostgresqlVisitor) VisitComparison(n *p.ComparisonNode) error {
	column := v.column(n.Key())
	switch op := n.Operator(); op {
	case operators.OperatorIsNull:
		return v.visit("IS NON", func() error {
			v.sql += column + " IS NULL"
			return nil
		})
	case operators.OperatorLike, operators.OperatorILike:
		keyword := "LIKE"
		if !n.MatchCase() {
			keyword = "ILIKE"
		}
		pattern := translatePattern(p.FormatValue(n.Value()), n.WildCard(), '%', '_')
		return v.visit(keyword+" NON", func() error {
			v.sql += fmt.Sprintf("%s %s %s", column, keyword, v.bind(pattern))
			return nil
		})
	default:
		symbol, ok := comparisonSymbols[op]
		if !ok {
			return errors.Wrapf(ErrNotRenderable, "comparison %q", op)
		}
		return v.visit(symbol+" NON", func() error {
			v.sql += fmt.Sprintf("%s %s %s", column, symbol, v.bind(n.Value()))
			return nil
		})
	}
}

func (v *PostgresqlVisitor) VisitRuntime(n *p.RuntimeNode) error {
	return errors.Wrapf(ErrNotRenderable, "runtime operator %q", n.Alias())
}

func (v *PostgresqlVisitor) VisitExtension(n p.ExtensionNode) error {
	r, ok := n.(SQLRenderer)
	if !ok {
		return errors.Wrapf(ErrNotRenderable, "operator %q has no SQL form", n.Alias())
	}
	sql, err := r.RenderSQL(v.column(n.Key()), v.bind)
	if err != nil {
		return err
	}
	v.sql += sql
	return nil
}

func (v PostgresqlVisitor) Result() (sql string, params []any, err error) {
	return v.sql, v.parameters, nil
}

package operators

// Operator is the alias of a built-in operator. Aliases are used both by the
// fluent builder and as the "type" of a node in its portable form.
type Operator string

const (
	// Logical operators

	OperatorAnd Operator = "and"
	OperatorOr  Operator = "or"
	OperatorNot Operator = "not"

	// Comparison

	OperatorEq     Operator = "eq"
	OperatorIsNull Operator = "isnull"
	OperatorGt     Operator = "gt"
	OperatorGte    Operator = "gte"
	OperatorLt     Operator = "lt"
	OperatorLte    Operator = "lte"
	OperatorLike   Operator = "like"
	OperatorILike  Operator = "ilike"
)

func (o Operator) String() string {
	return string(o)
}

func (o Operator) IsLogical() bool {
	switch o {
	case OperatorAnd, OperatorOr, OperatorNot:
		return true
	}
	return false
}

func (o Operator) IsComparison() bool {
	switch o {
	case OperatorEq, OperatorIsNull, OperatorGt, OperatorGte,
		OperatorLt, OperatorLte, OperatorLike, OperatorILike:
		return true
	}
	return false
}

// IsPattern reports whether the operator matches against a wildcard pattern.
func (o Operator) IsPattern() bool {
	return o == OperatorLike || o == OperatorILike
}

// LogicalOperators lists the combinator aliases in declaration order.
func LogicalOperators() []Operator {
	return []Operator{OperatorAnd, OperatorOr, OperatorNot}
}

// ComparisonOperators lists the built-in comparison aliases in declaration order.
func ComparisonOperators() []Operator {
	return []Operator{
		OperatorEq, OperatorIsNull, OperatorGt, OperatorGte,
		OperatorLt, OperatorLte, OperatorLike, OperatorILike,
	}
}

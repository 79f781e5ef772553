package predicate

import (
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
)

type Visitable interface {
	Accept(Visitor) error
}

type Visitor interface {
	VisitLogical(*LogicalNode) error
	VisitComparison(*ComparisonNode) error
	VisitRuntime(*RuntimeNode) error
	VisitExtension(ExtensionNode) error
}

// Node is a vertex of a predicate tree.
type Node interface {
	Visitable
	Alias() string
	Reporter() *Reporter
}

// Evaluatable is implemented by every node that can decide a subject on its
// own; for leaves this includes property resolution.
type Evaluatable interface {
	Evaluate(subject any) (bool, error)
}

// Options tune leaf operators. The zero value is valid for every built-in
// comparison; LIKE defaults are filled in at construction.
type Options struct {
	IsDate    bool     `json:"isDate" yaml:"isDate"`
	MatchCase *bool    `json:"matchCase,omitempty" yaml:"matchCase,omitempty"`
	WildCard  string   `json:"wildCard,omitempty" yaml:"wildCard,omitempty"`
	Distance  *float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
}

const DefaultWildCard = "*"

func mergeOptions(opts []Options) Options {
	var result Options
	for _, o := range opts {
		if o.IsDate {
			result.IsDate = true
		}
		if o.MatchCase != nil {
			result.MatchCase = o.MatchCase
		}
		if o.WildCard != "" {
			result.WildCard = o.WildCard
		}
		if o.Distance != nil {
			result.Distance = o.Distance
		}
	}
	return result
}

func NewLogicalNode(kind operators.Operator) *LogicalNode {
	return &LogicalNode{
		kind:     kind,
		reporter: NewReporter(string(kind)),
	}
}

// LogicalNode combines the results of its children. Children are evaluated in
// insertion order.
type LogicalNode struct {
	kind     operators.Operator
	children []Node
	reporter *Reporter
}

func (n *LogicalNode) Kind() operators.Operator {
	return n.kind
}

func (n *LogicalNode) Alias() string {
	return string(n.kind)
}

func (n *LogicalNode) Children() []Node {
	return n.children
}

func (n *LogicalNode) Len() int {
	return len(n.children)
}

// Add appends a child. Nodes keep no reference to their parent; navigation
// is done by the Builder, which tracks the path from the root.
func (n *LogicalNode) Add(child Node) Node {
	n.children = append(n.children, child)
	return child
}

// Clear drops every child.
func (n *LogicalNode) Clear() {
	n.children = nil
}

// LogicalChildren returns the children that are themselves logical nodes.
func (n *LogicalNode) LogicalChildren() []*LogicalNode {
	var result []*LogicalNode
	for _, child := range n.children {
		if logical, ok := child.(*LogicalNode); ok {
			result = append(result, logical)
		}
	}
	return result
}

func (n *LogicalNode) Reporter() *Reporter {
	return n.reporter
}

func (n *LogicalNode) Evaluate(subject any) (bool, error) {
	v := NewEvaluateVisitor(subject)
	if err := n.Accept(v); err != nil {
		return false, err
	}
	return v.Result(), nil
}

func (n *LogicalNode) Accept(v Visitor) error {
	return v.VisitLogical(n)
}

// KeyValue is the base of every leaf: a property path and the operand it is
// compared against.
type KeyValue struct {
	key   string
	value any
}

func NewKeyValue(key string, value any) KeyValue {
	return KeyValue{key: key, value: value}
}

func (kv KeyValue) Key() string {
	return kv.key
}

func (kv KeyValue) Value() any {
	return kv.value
}

// NewComparison builds a built-in comparison leaf. The value is resolved once,
// here: a func() any operand is called and its result stored.
func NewComparison(op operators.Operator, key string, value any, opts ...Options) (*ComparisonNode, error) {
	if !op.IsComparison() {
		return nil, errors.Wrapf(ErrUnknownOperator, "%q is not a comparison", op)
	}
	options := mergeOptions(opts)
	value, err := normalizeOperand(ResolveOperand(value))
	if err != nil {
		return nil, errors.Wrapf(err, "%s(%s)", op, key)
	}
	if op == operators.OperatorIsNull {
		value = nil
	} else if value == nil && !op.IsPattern() {
		return nil, errors.Wrapf(ErrUnsupportedValue, "%s(%s): operand must not be null, use isnull", op, key)
	}
	if options.IsDate {
		if s, ok := value.(string); ok {
			t, err := parseTime(s)
			if err != nil {
				return nil, errors.Wrapf(ErrUnsupportedValue, "%s(%s): %v", op, key, err)
			}
			value = t
		}
	}
	if _, ok := value.(time.Time); ok {
		options.IsDate = true
	}

	n := &ComparisonNode{
		KeyValue: NewKeyValue(key, value),
		operator: op,
		options:  options,
		reporter: NewReporter(string(op) + ":" + key),
	}
	if op.IsPattern() {
		if err := n.compilePattern(); err != nil {
			return nil, errors.Wrapf(err, "%s(%s)", op, key)
		}
	}
	return n, nil
}

// ComparisonNode is one of the built-in comparison leaves.
type ComparisonNode struct {
	KeyValue
	operator operators.Operator
	options  Options
	pattern  *regexp.Regexp
	reporter *Reporter
}

func (n *ComparisonNode) compilePattern() error {
	if n.value == nil {
		return errors.Wrap(ErrUnsupportedValue, "pattern must not be null")
	}
	matchCase := n.operator != operators.OperatorILike
	if n.operator == operators.OperatorLike && n.options.MatchCase != nil {
		matchCase = *n.options.MatchCase
	}
	n.options.MatchCase = &matchCase
	if n.options.WildCard == "" {
		n.options.WildCard = DefaultWildCard
	}
	pattern, err := CompileLike(formatValue(n.value), n.options.WildCard, matchCase)
	if err != nil {
		return err
	}
	n.pattern = pattern
	return nil
}

func (n *ComparisonNode) Operator() operators.Operator {
	return n.operator
}

func (n *ComparisonNode) Alias() string {
	return string(n.operator)
}

func (n *ComparisonNode) Options() Options {
	return n.options
}

// MatchCase is meaningful for LIKE and ILIKE only.
func (n *ComparisonNode) MatchCase() bool {
	return n.options.MatchCase != nil && *n.options.MatchCase
}

func (n *ComparisonNode) WildCard() string {
	return n.options.WildCard
}

// Test compares an already resolved property value with the operand.
func (n *ComparisonNode) Test(objectValue any) bool {
	if n.operator == operators.OperatorIsNull {
		return objectValue == nil
	}
	if objectValue == nil {
		return false
	}
	if n.options.IsDate {
		objectValue = coerceTime(objectValue)
	}
	switch n.operator {
	case operators.OperatorEq:
		return valuesEqual(objectValue, n.value)
	case operators.OperatorGt:
		c, ok := compareValues(objectValue, n.value)
		return ok && c > 0
	case operators.OperatorGte:
		c, ok := compareValues(objectValue, n.value)
		return ok && c >= 0
	case operators.OperatorLt:
		c, ok := compareValues(objectValue, n.value)
		return ok && c < 0
	case operators.OperatorLte:
		c, ok := compareValues(objectValue, n.value)
		return ok && c <= 0
	case operators.OperatorLike, operators.OperatorILike:
		return n.pattern.MatchString(formatValue(objectValue))
	}
	return false
}

func (n *ComparisonNode) Evaluate(subject any) (bool, error) {
	return evaluateNode(n, subject)
}

func (n *ComparisonNode) Reporter() *Reporter {
	return n.reporter
}

func (n *ComparisonNode) Accept(v Visitor) error {
	return v.VisitComparison(n)
}

func NewRuntimeNode(key string, definition *operators.RuntimeDefinition) *RuntimeNode {
	return &RuntimeNode{
		KeyValue:   NewKeyValue(key, nil),
		definition: definition,
		reporter:   NewReporter(definition.Alias() + ":" + key),
	}
}

// RuntimeNode applies a caller supplied predicate to the resolved property.
type RuntimeNode struct {
	KeyValue
	definition *operators.RuntimeDefinition
	reporter   *Reporter
}

func (n *RuntimeNode) Definition() *operators.RuntimeDefinition {
	return n.definition
}

func (n *RuntimeNode) Alias() string {
	return n.definition.Alias()
}

func (n *RuntimeNode) Test(objectValue any) (bool, error) {
	return n.definition.Call(objectValue)
}

func (n *RuntimeNode) Evaluate(subject any) (bool, error) {
	return evaluateNode(n, subject)
}

func (n *RuntimeNode) Reporter() *Reporter {
	return n.reporter
}

func (n *RuntimeNode) Accept(v Visitor) error {
	return v.VisitRuntime(n)
}

// ExtensionNode is a leaf contributed from outside the engine, such as the
// spatial operators. The engine resolves the property and combines the
// boolean result; everything else belongs to the extension.
type ExtensionNode interface {
	Node
	Key() string
	Value() any
	Options() Options
	Test(objectValue any) (bool, error)
	// PortableArgs returns the constructor arguments stored in the portable
	// form; feeding them back to the registered factory rebuilds the node.
	PortableArgs() []any
}

func evaluateNode(n Node, subject any) (bool, error) {
	v := NewEvaluateVisitor(subject)
	if err := n.Accept(v); err != nil {
		return false, err
	}
	return v.Result(), nil
}

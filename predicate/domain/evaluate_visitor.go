package predicate

import (
	"time"

	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
)

type EvaluateVisitorOption func(*EvaluateVisitor)

// WithSignal notifies signal after every evaluated node.
func WithSignal(signal *EvaluationSignal) EvaluateVisitorOption {
	return func(v *EvaluateVisitor) {
		v.signal = signal
	}
}

func NewEvaluateVisitor(subject any, opts ...EvaluateVisitorOption) *EvaluateVisitor {
	v := &EvaluateVisitor{
		subject: subject,
	}
	for i := range opts {
		opts[i](v)
	}
	return v
}

// EvaluateVisitor decides a subject against a tree. It never mutates the
// tree apart from the report counters.
type EvaluateVisitor struct {
	subject any
	result  bool
	depth   int
	signal  *EvaluationSignal
}

func (v *EvaluateVisitor) finish(n Node, result bool, start time.Time) {
	d := time.Since(start)
	n.Reporter().Record(result, d)
	v.result = result
	if v.signal.HasObservers() {
		v.signal.Notify(EvaluationEvent{
			Node:     n,
			Result:   result,
			Duration: d,
			Depth:    v.depth,
		})
	}
}

// VisitLogical combines children left to right with short-circuit. A node
// without children is true whatever its kind. NOT is true only if every
// child is false, so with several children it behaves as NOR.
func (v *EvaluateVisitor) VisitLogical(n *LogicalNode) error {
	start := time.Now()
	result, err := v.combine(n.Kind(), n.Children())
	if err != nil {
		return err
	}
	v.finish(n, result, start)
	return nil
}

func (v *EvaluateVisitor) combine(kind operators.Operator, children []Node) (bool, error) {
	v.depth++
	defer func() { v.depth-- }()

	switch kind {
	case operators.OperatorAnd:
		for _, child := range children {
			if err := child.Accept(v); err != nil {
				return false, err
			}
			if !v.result {
				return false, nil
			}
		}
	case operators.OperatorOr:
		for _, child := range children {
			if err := child.Accept(v); err != nil {
				return false, err
			}
			if v.result {
				return true, nil
			}
		}
		return len(children) == 0, nil
	case operators.OperatorNot:
		for _, child := range children {
			if err := child.Accept(v); err != nil {
				return false, err
			}
			if v.result {
				return false, nil
			}
		}
	}
	return true, nil
}

func (v *EvaluateVisitor) VisitComparison(n *ComparisonNode) error {
	value, err := Resolve(n.Key(), v.subject)
	if err != nil {
		return err
	}
	start := time.Now()
	v.finish(n, n.Test(value), start)
	return nil
}

func (v *EvaluateVisitor) VisitRuntime(n *RuntimeNode) error {
	value, err := Resolve(n.Key(), v.subject)
	if err != nil {
		return err
	}
	start := time.Now()
	result, err := n.Test(value)
	if err != nil {
		return err
	}
	v.finish(n, result, start)
	return nil
}

func (v *EvaluateVisitor) VisitExtension(n ExtensionNode) error {
	value, err := Resolve(n.Key(), v.subject)
	if err != nil {
		return err
	}
	start := time.Now()
	result, err := n.Test(value)
	if err != nil {
		return err
	}
	v.finish(n, result, start)
	return nil
}

func (v *EvaluateVisitor) Result() bool {
	return v.result
}

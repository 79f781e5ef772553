// Package spatial adds geometry operators to the predicate engine.
//
// Coordinates are taken as planar, in the unit of the projection (metres for
// Web Mercator), and distances are given in the same unit.
package spatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
)

const (
	OperatorIntersects operators.Operator = "intersects"
	OperatorDisjoint   operators.Operator = "disjoint"
	OperatorContains   operators.Operator = "contains"
	OperatorWithin     operators.Operator = "within"
	OperatorDWithin    operators.Operator = "dwithin"
	OperatorBeyond     operators.Operator = "beyond"
)

func Operators() []operators.Operator {
	return []operators.Operator{
		OperatorIntersects,
		OperatorDisjoint,
		OperatorContains,
		OperatorWithin,
		OperatorDWithin,
		OperatorBeyond,
	}
}

func isDistance(op operators.Operator) bool {
	return op == OperatorDWithin || op == OperatorBeyond
}

// Register adds the spatial operators missing from reg and returns how many
// were added.
func Register(reg *operators.Registry) int {
	defs := make([]operators.Definition, 0, len(Operators()))
	for _, op := range Operators() {
		defs = append(defs, p.NewLeafFactory(string(op), func(key string, value any, opts p.Options) (p.Node, error) {
			return NewNode(op, key, value, opts)
		}))
	}
	return reg.RegisterIfAbsent(defs...)
}

// NewRegistry returns the built-in registry extended with the spatial
// operators.
func NewRegistry() *operators.Registry {
	reg := p.NewRegistry()
	Register(reg)
	return reg
}

// NewNode builds a spatial leaf. value is anything Geometry accepts; the
// node keeps it as WKT, which is also its portable form. dwithin and beyond
// need Options.Distance.
func NewNode(op operators.Operator, key string, value any, opts ...p.Options) (*Node, error) {
	var options p.Options
	for _, o := range opts {
		if o.Distance != nil {
			options.Distance = o.Distance
		}
	}
	if isDistance(op) {
		if options.Distance == nil {
			return nil, errors.Wrapf(p.ErrUnsupportedValue, "%s(%s): distance is required", op, key)
		}
		if *options.Distance < 0 {
			return nil, errors.Wrapf(p.ErrUnsupportedValue, "%s(%s): negative distance %v", op, key, *options.Distance)
		}
	} else {
		options.Distance = nil
	}
	geometry, err := Geometry(p.ResolveOperand(value))
	if err != nil {
		return nil, errors.Wrapf(err, "%s(%s)", op, key)
	}
	return &Node{
		KeyValue: p.NewKeyValue(key, wkt.MarshalString(geometry)),
		operator: op,
		geometry: geometry,
		options:  options,
		reporter: p.NewReporter(string(op) + ":" + key),
	}, nil
}

// Node tests the geometry found under its key against a fixed geometry.
// The subject geometry is the left operand: contains means the subject
// contains the node geometry.
type Node struct {
	p.KeyValue
	operator operators.Operator
	geometry orb.Geometry
	options  p.Options
	reporter *p.Reporter
}

func (n *Node) Operator() operators.Operator {
	return n.operator
}

func (n *Node) Alias() string {
	return string(n.operator)
}

func (n *Node) Geometry() orb.Geometry {
	return n.geometry
}

func (n *Node) WKT() string {
	return n.Value().(string)
}

func (n *Node) Options() p.Options {
	return n.options
}

func (n *Node) Distance() float64 {
	if n.options.Distance == nil {
		return 0
	}
	return *n.options.Distance
}

func (n *Node) Reporter() *p.Reporter {
	return n.reporter
}

func (n *Node) PortableArgs() []any {
	return []any{n.Key(), n.WKT(), n.options}
}

// Test decides an already resolved property value. A missing value is never
// matched.
func (n *Node) Test(objectValue any) (bool, error) {
	if objectValue == nil {
		return false, nil
	}
	subject, err := Geometry(objectValue)
	if err != nil {
		return false, err
	}
	switch n.operator {
	case OperatorIntersects:
		return Intersects(subject, n.geometry), nil
	case OperatorDisjoint:
		return !Intersects(subject, n.geometry), nil
	case OperatorContains:
		return Contains(subject, n.geometry), nil
	case OperatorWithin:
		return Contains(n.geometry, subject), nil
	case OperatorDWithin:
		return Distance(subject, n.geometry) <= n.Distance(), nil
	case OperatorBeyond:
		return Distance(subject, n.geometry) > n.Distance(), nil
	}
	return false, errors.Wrapf(p.ErrUnknownOperator, "%q", n.operator)
}

func (n *Node) Evaluate(subject any) (bool, error) {
	v := p.NewEvaluateVisitor(subject)
	if err := n.Accept(v); err != nil {
		return false, err
	}
	return v.Result(), nil
}

func (n *Node) Accept(v p.Visitor) error {
	return v.VisitExtension(n)
}

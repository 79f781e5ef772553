package predicate

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
)

// LogicalFactory registers a combinator kind under its alias.
type LogicalFactory struct {
	kind operators.Operator
}

func NewLogicalFactory(kind operators.Operator) LogicalFactory {
	return LogicalFactory{kind: kind}
}

func (f LogicalFactory) Alias() string {
	return string(f.kind)
}

func (f LogicalFactory) New() *LogicalNode {
	return NewLogicalNode(f.kind)
}

type LeafConstructor func(key string, value any, opts Options) (Node, error)

// LeafFactory registers a leaf constructor under an alias. Built-in
// comparisons and extension operators are both registered this way.
type LeafFactory struct {
	alias     string
	construct LeafConstructor
}

func NewLeafFactory(alias string, construct LeafConstructor) LeafFactory {
	return LeafFactory{alias: alias, construct: construct}
}

func (f LeafFactory) Alias() string {
	return f.alias
}

func (f LeafFactory) New(key string, value any, opts Options) (Node, error) {
	return f.construct(key, value, opts)
}

func comparisonFactory(op operators.Operator) LeafFactory {
	return NewLeafFactory(string(op), func(key string, value any, opts Options) (Node, error) {
		return NewComparison(op, key, value, opts)
	})
}

// NewRegistry returns a registry seeded with the logical and comparison
// operators.
func NewRegistry() *operators.Registry {
	reg := operators.NewRegistry()
	for _, op := range operators.LogicalOperators() {
		reg.RegisterIfAbsent(NewLogicalFactory(op))
	}
	for _, op := range operators.ComparisonOperators() {
		reg.RegisterIfAbsent(comparisonFactory(op))
	}
	return reg
}

var (
	defaultRegistry     *operators.Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry is the process-wide registry behind the package-level API.
func DefaultRegistry() *operators.Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewLeaf instantiates the leaf registered under def.
func NewLeaf(def operators.Definition, key string, value any, opts ...Options) (Node, error) {
	switch d := def.(type) {
	case *operators.RuntimeDefinition:
		return NewRuntimeNode(key, d), nil
	case LeafFactory:
		return d.New(key, value, mergeOptions(opts))
	}
	return nil, errors.Wrapf(ErrUnknownOperator, "%q is not a leaf operator", def.Alias())
}

package predicate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
)

// PortableNode is the data form of a node. It is the only persisted format,
// so field names and order must stay stable.
//
// Logical nodes carry their children in Operators. Comparison and extension
// leaves carry [key, value, options] in CtorArgs. Runtime leaves carry [key]
// or, for script operators, [key, source].
type PortableNode struct {
	Type      string         `json:"type" yaml:"type"`
	IsLogical bool           `json:"isLogical,omitempty" yaml:"isLogical,omitempty"`
	IsRuntime bool           `json:"isRuntime,omitempty" yaml:"isRuntime,omitempty"`
	Operators []PortableNode `json:"operators,omitempty" yaml:"operators,omitempty"`
	CtorArgs  []any          `json:"ctorArgs,omitempty" yaml:"ctorArgs,omitempty"`
}

type CodecOption func(*Codec)

func WithCodecRegistry(registry *operators.Registry) CodecOption {
	return func(c *Codec) {
		c.registry = registry
	}
}

func WithCodecLogger(logger *slog.Logger) CodecOption {
	return func(c *Codec) {
		c.logger = logger
	}
}

// AllowCodeReconstruction lets the codec compile script operators found in a
// portable tree whose alias is not registered yet. Only use it for trees from
// a trusted source: the script runs inside this process.
func AllowCodeReconstruction() CodecOption {
	return func(c *Codec) {
		c.allowCode = true
	}
}

func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		registry: DefaultRegistry(),
		logger:   discardLogger(),
	}
	for i := range opts {
		opts[i](c)
	}
	return c
}

// Codec transcodes trees to and from their portable form.
type Codec struct {
	registry  *operators.Registry
	allowCode bool
	logger    *slog.Logger
}

func (c *Codec) Registry() *operators.Registry {
	return c.registry
}

func (c *Codec) Encode(n Node) (PortableNode, error) {
	v := &PortableVisitor{}
	if err := n.Accept(v); err != nil {
		return PortableNode{}, err
	}
	return v.Result(), nil
}

func (c *Codec) EncodeJSON(n Node) ([]byte, error) {
	p, err := c.Encode(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

func (c *Codec) EncodeYAML(n Node) ([]byte, error) {
	p, err := c.Encode(n)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(p)
}

func (c *Codec) DecodeJSON(data []byte) (*LogicalNode, error) {
	p, err := ParsePortableJSON(data)
	if err != nil {
		return nil, err
	}
	return c.DecodeTree(p)
}

func (c *Codec) DecodeYAML(data []byte) (*LogicalNode, error) {
	p, err := ParsePortableYAML(data)
	if err != nil {
		return nil, err
	}
	return c.DecodeTree(p)
}

// ParsePortableJSON reads a portable tree without building it. Numbers are
// kept exact as json.Number.
func ParsePortableJSON(data []byte) (PortableNode, error) {
	var p PortableNode
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return PortableNode{}, errors.Wrapf(ErrMalformedTree, "invalid json: %v", err)
	}
	return p, nil
}

func ParsePortableYAML(data []byte) (PortableNode, error) {
	var p PortableNode
	if err := yaml.Unmarshal(data, &p); err != nil {
		return PortableNode{}, errors.Wrapf(ErrMalformedTree, "invalid yaml: %v", err)
	}
	return p, nil
}

// DecodeTree decodes a portable tree whose root must be a logical node.
func (c *Codec) DecodeTree(p PortableNode) (*LogicalNode, error) {
	if !p.IsLogical {
		return nil, errors.Wrapf(ErrMalformedTree, "$: root %q is not a logical operator", p.Type)
	}
	n, err := c.Decode(p)
	if err != nil {
		return nil, err
	}
	return n.(*LogicalNode), nil
}

// Decode validates p completely before building any node, so a malformed tree
// reports all of its problems at once.
func (c *Codec) Decode(p PortableNode) (Node, error) {
	if err := c.Validate(p); err != nil {
		if errors.Is(err, ErrUntrustedCode) {
			c.logger.Warn("refused to reconstruct runtime operator from portable tree", "type", p.Type)
		}
		return nil, err
	}
	n, err := c.decode(p)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("decoded predicate tree", "type", p.Type)
	return n, nil
}

// Validate checks p against the registry. The returned error aggregates every
// problem found; each one wraps ErrMalformedTree or ErrUntrustedCode.
func (c *Codec) Validate(p PortableNode) error {
	var errs error
	c.validate(p, "$", &errs)
	return errs
}

func (c *Codec) validate(p PortableNode, path string, errs *error) {
	fail := func(cause error, format string, args ...any) {
		*errs = multierror.Append(*errs, errors.Wrapf(cause, "%s: "+format, append([]any{path}, args...)...))
	}
	if p.Type == "" {
		fail(ErrMalformedTree, "missing type")
		return
	}
	def, lookupErr := c.registry.Lookup(p.Type)

	switch {
	case p.IsLogical:
		if lookupErr != nil {
			fail(ErrMalformedTree, "unknown logical operator %q", p.Type)
		} else if _, ok := def.(LogicalFactory); !ok {
			fail(ErrMalformedTree, "%q is not a logical operator", p.Type)
		}
		for i := range p.Operators {
			c.validate(p.Operators[i], fmt.Sprintf("%s.operators[%d]", path, i), errs)
		}
		return
	case len(p.Operators) > 0:
		fail(ErrMalformedTree, "leaf %q cannot have operators", p.Type)
	}

	if len(p.CtorArgs) == 0 {
		fail(ErrMalformedTree, "missing ctorArgs")
		return
	}
	if _, ok := p.CtorArgs[0].(string); !ok {
		fail(ErrMalformedTree, "key must be a string, got %T", p.CtorArgs[0])
	}

	if p.IsRuntime {
		if lookupErr == nil {
			if _, ok := def.(*operators.RuntimeDefinition); !ok {
				fail(ErrMalformedTree, "%q is not a runtime operator", p.Type)
			}
			return
		}
		source, _ := portableSource(p)
		switch {
		case source == "":
			fail(ErrMalformedTree, "runtime operator %q is not registered", p.Type)
		case !c.allowCode:
			fail(ErrUntrustedCode, "runtime operator %q carries source text", p.Type)
		}
		return
	}

	if lookupErr != nil {
		fail(ErrMalformedTree, "unknown operator %q", p.Type)
		return
	}
	if _, ok := def.(LeafFactory); !ok {
		fail(ErrMalformedTree, "%q is not a leaf operator", p.Type)
	}
	if len(p.CtorArgs) > 3 {
		fail(ErrMalformedTree, "too many ctorArgs (%d)", len(p.CtorArgs))
	}
	if len(p.CtorArgs) == 3 {
		if _, err := decodeOptions(p.CtorArgs[2]); err != nil {
			fail(ErrMalformedTree, "invalid options: %v", err)
		}
	}
}

func portableSource(p PortableNode) (string, bool) {
	if len(p.CtorArgs) < 2 {
		return "", false
	}
	source, ok := p.CtorArgs[1].(string)
	return source, ok
}

func (c *Codec) decode(p PortableNode) (Node, error) {
	if p.IsLogical {
		def, err := c.registry.Lookup(p.Type)
		if err != nil {
			return nil, err
		}
		n := def.(LogicalFactory).New()
		for i := range p.Operators {
			child, err := c.decode(p.Operators[i])
			if err != nil {
				return nil, err
			}
			n.Add(child)
		}
		return n, nil
	}

	key := p.CtorArgs[0].(string)
	if p.IsRuntime {
		def, err := c.runtimeDefinition(p)
		if err != nil {
			return nil, err
		}
		return NewRuntimeNode(key, def), nil
	}

	def, err := c.registry.Lookup(p.Type)
	if err != nil {
		return nil, err
	}
	var value any
	if len(p.CtorArgs) > 1 {
		value = p.CtorArgs[1]
	}
	var opts Options
	if len(p.CtorArgs) > 2 {
		if opts, err = decodeOptions(p.CtorArgs[2]); err != nil {
			return nil, errors.Wrapf(ErrMalformedTree, "%s(%s): %v", p.Type, key, err)
		}
	}
	n, err := def.(LeafFactory).New(key, value, opts)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedTree, "%v", err)
	}
	return n, nil
}

func (c *Codec) runtimeDefinition(p PortableNode) (*operators.RuntimeDefinition, error) {
	if def, err := c.registry.Lookup(p.Type); err == nil {
		return def.(*operators.RuntimeDefinition), nil
	}
	source, _ := portableSource(p)
	c.logger.Warn("compiling runtime operator from portable tree", "alias", p.Type)
	def, err := c.registry.DefineScript(p.Type, source)
	if errors.Is(err, operators.ErrDuplicateOperator) {
		// Defined concurrently by another decoder.
		existing, lookupErr := c.registry.Lookup(p.Type)
		if lookupErr != nil {
			return nil, lookupErr
		}
		runtimeDef, ok := existing.(*operators.RuntimeDefinition)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedTree, "%q is not a runtime operator", p.Type)
		}
		return runtimeDef, nil
	}
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedTree, "runtime operator %q: %v", p.Type, err)
	}
	return def, nil
}

// decodeOptions accepts an Options value or any map shaped like one, such as
// the result of decoding JSON or YAML into []any.
func decodeOptions(raw any) (Options, error) {
	switch o := raw.(type) {
	case nil:
		return Options{}, nil
	case Options:
		return o, nil
	case *Options:
		if o == nil {
			return Options{}, nil
		}
		return *o, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return Options{}, err
	}
	var opts Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// PortableVisitor produces the portable form of the visited node.
type PortableVisitor struct {
	result PortableNode
}

func (v *PortableVisitor) VisitLogical(n *LogicalNode) error {
	result := PortableNode{
		Type:      n.Alias(),
		IsLogical: true,
	}
	for _, child := range n.Children() {
		cv := &PortableVisitor{}
		if err := child.Accept(cv); err != nil {
			return err
		}
		result.Operators = append(result.Operators, cv.result)
	}
	v.result = result
	return nil
}

func (v *PortableVisitor) VisitComparison(n *ComparisonNode) error {
	v.result = PortableNode{
		Type:     n.Alias(),
		CtorArgs: []any{n.Key(), n.Value(), n.Options()},
	}
	return nil
}

func (v *PortableVisitor) VisitRuntime(n *RuntimeNode) error {
	args := []any{n.Key()}
	if source, ok := n.Definition().Source(); ok {
		args = append(args, source)
	}
	v.result = PortableNode{
		Type:      n.Alias(),
		IsRuntime: true,
		CtorArgs:  args,
	}
	return nil
}

func (v *PortableVisitor) VisitExtension(n ExtensionNode) error {
	v.result = PortableNode{
		Type:     n.Alias(),
		CtorArgs: n.PortableArgs(),
	}
	return nil
}

func (v *PortableVisitor) Result() PortableNode {
	return v.result
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

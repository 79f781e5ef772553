package predicate

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
)

type BuilderOption func(*Builder)

// WithRegistry makes the builder resolve aliases in registry instead of the
// process-wide DefaultRegistry.
func WithRegistry(registry *operators.Registry) BuilderOption {
	return func(b *Builder) {
		b.registry = registry
	}
}

func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithCodecOptions configures the codec used by Clone, ToPortable, FromJSON
// and FromYAML.
func WithCodecOptions(opts ...CodecOption) BuilderOption {
	return func(b *Builder) {
		b.codecOpts = append(b.codecOpts, opts...)
	}
}

// NewBuilder starts a tree whose root has the given logical kind.
func NewBuilder(kind operators.Operator, opts ...BuilderOption) *Builder {
	b := newBuilder(opts)
	if !kind.IsLogical() {
		b.err = errors.Wrapf(ErrUnknownOperator, "%q is not a logical operator", kind)
		kind = operators.OperatorAnd
	}
	b.root = NewLogicalNode(kind)
	b.path = []*LogicalNode{b.root}
	return b
}

// FromTree wraps an existing tree; the cursor starts at root.
func FromTree(root *LogicalNode, opts ...BuilderOption) *Builder {
	b := newBuilder(opts)
	b.setRoot(root)
	return b
}

func (b *Builder) setRoot(root *LogicalNode) {
	b.root = root
	b.path = []*LogicalNode{root}
}

func newBuilder(opts []BuilderOption) *Builder {
	b := &Builder{
		id:       uuid.New(),
		registry: DefaultRegistry(),
		logger:   discardLogger(),
		signal:   NewEvaluationSignal(),
	}
	for i := range opts {
		opts[i](b)
	}
	return b
}

func And(opts ...BuilderOption) *Builder {
	return NewBuilder(operators.OperatorAnd, opts...)
}

func Or(opts ...BuilderOption) *Builder {
	return NewBuilder(operators.OperatorOr, opts...)
}

func Not(opts ...BuilderOption) *Builder {
	return NewBuilder(operators.OperatorNot, opts...)
}

// Builder grows a tree through a cursor, the logical node new children are
// appended to. The cursor is kept as the path of logical nodes from the root,
// so nodes need no parent references.
//
// The first failing call is remembered and turns the following calls into
// no-ops; check Err, or the error returned by Evaluate and ToPortable.
type Builder struct {
	id        uuid.UUID
	root      *LogicalNode
	path      []*LogicalNode
	registry  *operators.Registry
	logger    *slog.Logger
	codecOpts []CodecOption
	signal    *EvaluationSignal
	err       error
}

func (b *Builder) ID() uuid.UUID {
	return b.id
}

func (b *Builder) Root() *LogicalNode {
	return b.root
}

func (b *Builder) Current() *LogicalNode {
	return b.path[len(b.path)-1]
}

func (b *Builder) Registry() *operators.Registry {
	return b.registry
}

func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
		b.logger.Debug("predicate builder failed", "tree", b.id, "error", err)
	}
	return b
}

func (b *Builder) logical(kind operators.Operator) *Builder {
	if b.err != nil {
		return b
	}
	child := NewLogicalNode(kind)
	b.Current().Add(child)
	b.path = append(b.path, child)
	return b
}

// And appends an AND node under the cursor and moves into it.
func (b *Builder) And() *Builder {
	return b.logical(operators.OperatorAnd)
}

// Or appends an OR node under the cursor and moves into it.
func (b *Builder) Or() *Builder {
	return b.logical(operators.OperatorOr)
}

// Not appends a NOT node under the cursor and moves into it. A NOT with
// several children is true only when all of them are false.
func (b *Builder) Not() *Builder {
	return b.logical(operators.OperatorNot)
}

// Up moves the cursor to its parent. No-op at the root.
func (b *Builder) Up() *Builder {
	if len(b.path) > 1 {
		b.path = b.path[:len(b.path)-1]
	}
	return b
}

// Down moves the cursor to its first logical child, if any.
func (b *Builder) Down() *Builder {
	if children := b.Current().LogicalChildren(); len(children) > 0 {
		b.path = append(b.path, children[0])
	}
	return b
}

// Next moves the cursor to the following logical sibling, if any.
func (b *Builder) Next() *Builder {
	return b.sibling(1)
}

// Prev moves the cursor to the preceding logical sibling, if any.
func (b *Builder) Prev() *Builder {
	return b.sibling(-1)
}

func (b *Builder) sibling(offset int) *Builder {
	if len(b.path) < 2 {
		return b
	}
	current := b.Current()
	siblings := b.path[len(b.path)-2].LogicalChildren()
	for i, s := range siblings {
		if s != current {
			continue
		}
		if j := i + offset; j >= 0 && j < len(siblings) {
			b.path[len(b.path)-1] = siblings[j]
		}
		break
	}
	return b
}

// Done moves the cursor back to the root.
func (b *Builder) Done() *Builder {
	b.path = b.path[:1]
	return b
}

// Clear drops the children of the cursor node.
func (b *Builder) Clear() *Builder {
	b.Current().Clear()
	return b
}

func (b *Builder) comparison(op operators.Operator, key string, value any, opts []Options) *Builder {
	if b.err != nil {
		return b
	}
	n, err := NewComparison(op, key, value, opts...)
	if err != nil {
		return b.fail(err)
	}
	b.Current().Add(n)
	return b
}

func (b *Builder) Equals(key string, value any, opts ...Options) *Builder {
	return b.comparison(operators.OperatorEq, key, value, opts)
}

func (b *Builder) Eq(key string, value any, opts ...Options) *Builder {
	return b.Equals(key, value, opts...)
}

func (b *Builder) IsNull(key string) *Builder {
	return b.comparison(operators.OperatorIsNull, key, nil, nil)
}

func (b *Builder) GreaterThan(key string, value any, opts ...Options) *Builder {
	return b.comparison(operators.OperatorGt, key, value, opts)
}

func (b *Builder) Gt(key string, value any, opts ...Options) *Builder {
	return b.GreaterThan(key, value, opts...)
}

func (b *Builder) GreaterThanEquals(key string, value any, opts ...Options) *Builder {
	return b.comparison(operators.OperatorGte, key, value, opts)
}

func (b *Builder) Gte(key string, value any, opts ...Options) *Builder {
	return b.GreaterThanEquals(key, value, opts...)
}

func (b *Builder) LessThan(key string, value any, opts ...Options) *Builder {
	return b.comparison(operators.OperatorLt, key, value, opts)
}

func (b *Builder) Lt(key string, value any, opts ...Options) *Builder {
	return b.LessThan(key, value, opts...)
}

func (b *Builder) LessThanEquals(key string, value any, opts ...Options) *Builder {
	return b.comparison(operators.OperatorLte, key, value, opts)
}

func (b *Builder) Lte(key string, value any, opts ...Options) *Builder {
	return b.LessThanEquals(key, value, opts...)
}

// Like matches value as a pattern where the wildcard (default "*") stands
// for any run of characters and "?" for exactly one. Case sensitive unless
// MatchCase is set to false.
func (b *Builder) Like(key string, pattern string, opts ...Options) *Builder {
	return b.comparison(operators.OperatorLike, key, pattern, opts)
}

// ILike is Like ignoring case.
func (b *Builder) ILike(key string, pattern string, opts ...Options) *Builder {
	return b.comparison(operators.OperatorILike, key, pattern, opts)
}

// Any appends an OR of equality tests, one per value. Without values the
// tree is left untouched.
func (b *Builder) Any(key string, values ...any) *Builder {
	if b.err != nil || len(values) == 0 {
		return b
	}
	or := NewLogicalNode(operators.OperatorOr)
	for _, value := range values {
		n, err := NewComparison(operators.OperatorEq, key, value)
		if err != nil {
			return b.fail(err)
		}
		or.Add(n)
	}
	b.Current().Add(or)
	return b
}

// Operator appends the leaf registered under alias. Runtime definitions
// ignore value and opts.
func (b *Builder) Operator(alias, key string, value any, opts ...Options) *Builder {
	if b.err != nil {
		return b
	}
	def, err := b.registry.Lookup(alias)
	if err != nil {
		return b.fail(err)
	}
	n, err := NewLeaf(def, key, value, opts...)
	if err != nil {
		return b.fail(err)
	}
	b.Current().Add(n)
	return b
}

func (b *Builder) Op(alias, key string, value any, opts ...Options) *Builder {
	return b.Operator(alias, key, value, opts...)
}

// AddBuilder adopts the tree of other under the cursor. The subtree is
// shared, not copied: clone other first if it is still going to change.
func (b *Builder) AddBuilder(other *Builder) *Builder {
	if b.err != nil {
		return b
	}
	if other.err != nil {
		return b.fail(other.err)
	}
	b.Current().Add(other.root)
	return b
}

func (b *Builder) codec() *Codec {
	opts := []CodecOption{WithCodecRegistry(b.registry), WithCodecLogger(b.logger)}
	return NewCodec(append(opts, b.codecOpts...)...)
}

// Clone returns an independent copy of the tree made through its portable
// form. The copy shares the registry and options but starts with fresh
// reports and the cursor at its root.
func (b *Builder) Clone() (*Builder, error) {
	if b.err != nil {
		return nil, b.err
	}
	codec := b.codec()
	p, err := codec.Encode(b.root)
	if err != nil {
		return nil, err
	}
	root, err := codec.DecodeTree(p)
	if err != nil {
		return nil, err
	}
	clone := FromTree(root, WithRegistry(b.registry), WithLogger(b.logger), WithCodecOptions(b.codecOpts...))
	return clone, nil
}

// Evaluate decides subject against the whole tree, whatever the cursor.
func (b *Builder) Evaluate(subject any) (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	v := NewEvaluateVisitor(subject, WithSignal(b.signal))
	if err := b.root.Accept(v); err != nil {
		return false, err
	}
	return v.Result(), nil
}

// OnEvaluated attaches an observer called after every node evaluation.
func (b *Builder) OnEvaluated(observer Observer) (detach func()) {
	return b.signal.Attach(observer)
}

func (b *Builder) ToPortable() (PortableNode, error) {
	if b.err != nil {
		return PortableNode{}, b.err
	}
	return b.codec().Encode(b.root)
}

func (b *Builder) MarshalJSON() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.codec().EncodeJSON(b.root)
}

func (b *Builder) MarshalYAML() (any, error) {
	return b.ToPortable()
}

func (b *Builder) Report() ReportSummary {
	return Summarize(b.root)
}

func (b *Builder) ResetReport() *Builder {
	ResetReports(b.root)
	return b
}

func (b *Builder) Tree() string {
	return Tree(b.root)
}

func (b *Builder) KeysAndValues() map[string]any {
	return KeysAndValues(b.root)
}

// Define registers fn under alias in the process-wide registry.
func Define(alias string, fn operators.Predicate) (*operators.RuntimeDefinition, error) {
	def, err := DefaultRegistry().Define(alias, fn)
	if err != nil {
		return nil, err
	}
	slog.Debug("predicate operator defined", "alias", alias)
	return def, nil
}

// DefineScript registers a Lua predicate under alias in the process-wide
// registry. The script must return a function of one argument.
func DefineScript(alias, source string) (*operators.RuntimeDefinition, error) {
	def, err := DefaultRegistry().DefineScript(alias, source)
	if err != nil {
		return nil, err
	}
	slog.Debug("predicate script operator defined", "alias", alias)
	return def, nil
}

// OperatorAliases lists the aliases of the process-wide registry.
func OperatorAliases() []string {
	return DefaultRegistry().Aliases()
}

func FromJSON(data []byte, opts ...BuilderOption) (*Builder, error) {
	return fromPortable(data, (*Codec).DecodeJSON, opts)
}

func FromYAML(data []byte, opts ...BuilderOption) (*Builder, error) {
	return fromPortable(data, (*Codec).DecodeYAML, opts)
}

func fromPortable(data []byte, decode func(*Codec, []byte) (*LogicalNode, error), opts []BuilderOption) (*Builder, error) {
	b := newBuilder(opts)
	root, err := decode(b.codec(), data)
	if err != nil {
		return nil, err
	}
	b.setRoot(root)
	return b, nil
}

package operators

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrUnknownOperator   = errors.New("unknown operator")
	ErrDuplicateOperator = errors.New("operator already defined")
)

// Definition is anything that can be registered under an alias: a node
// constructor or a runtime predicate.
type Definition interface {
	Alias() string
}

// Registry maps operator aliases to their definitions. It only grows; there is
// no way to remove an alias once registered, so trees serialized earlier keep
// resolving to the same operators.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]Definition),
	}
}

// Register adds a definition. Registering an alias twice fails with
// ErrDuplicateOperator.
func (r *Registry) Register(def Definition) error {
	alias := def.Alias()
	if alias == "" {
		return errors.New("operator alias must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.definitions[alias]; ok {
		return errors.Wrapf(ErrDuplicateOperator, "operator %q", alias)
	}
	r.definitions[alias] = def
	return nil
}

// RegisterIfAbsent adds the definitions whose aliases are not registered yet
// and reports how many were added. Extensions use it to merge their aliases
// into a registry any number of times.
func (r *Registry) RegisterIfAbsent(defs ...Definition) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	for _, def := range defs {
		if _, ok := r.definitions[def.Alias()]; ok {
			continue
		}
		r.definitions[def.Alias()] = def
		added++
	}
	return added
}

func (r *Registry) Lookup(alias string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[alias]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOperator, "operator %q", alias)
	}
	return def, nil
}

func (r *Registry) Has(alias string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.definitions[alias]
	return ok
}

// Aliases returns every registered alias, sorted.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	aliases := make([]string, 0, len(r.definitions))
	for alias := range r.definitions {
		aliases = append(aliases, alias)
	}
	r.mu.RUnlock()
	sort.Strings(aliases)
	return aliases
}

// Define registers a runtime operator backed by a Go function.
func (r *Registry) Define(alias string, fn Predicate) (*RuntimeDefinition, error) {
	if fn == nil {
		return nil, errors.Errorf("operator %q: predicate must not be nil", alias)
	}
	def := NewRuntimeDefinition(alias, fn)
	if err := r.Register(def); err != nil {
		return nil, err
	}
	return def, nil
}

// DefineScript registers a runtime operator backed by a Lua chunk that
// returns the predicate function. The source is kept so the operator can be
// carried inside a portable tree.
func (r *Registry) DefineScript(alias, source string) (*RuntimeDefinition, error) {
	if r.Has(alias) {
		return nil, errors.Wrapf(ErrDuplicateOperator, "operator %q", alias)
	}
	def, err := NewScriptDefinition(alias, source)
	if err != nil {
		return nil, err
	}
	if err := r.Register(def); err != nil {
		return nil, err
	}
	return def, nil
}

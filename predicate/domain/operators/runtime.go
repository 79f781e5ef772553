package operators

// Predicate is a caller supplied test over the resolved property value.
type Predicate func(value any) bool

// RuntimeDefinition is an operator whose behaviour is supplied at runtime,
// either as a Go function or as a Lua script.
type RuntimeDefinition struct {
	alias  string
	fn     Predicate
	script *Script
}

func NewRuntimeDefinition(alias string, fn Predicate) *RuntimeDefinition {
	return &RuntimeDefinition{
		alias: alias,
		fn:    fn,
	}
}

func NewScriptDefinition(alias, source string) (*RuntimeDefinition, error) {
	script, err := CompileScript(source)
	if err != nil {
		return nil, err
	}
	return &RuntimeDefinition{
		alias:  alias,
		script: script,
	}, nil
}

func (d *RuntimeDefinition) Alias() string {
	return d.alias
}

// Source returns the script text of a script operator. Go function
// operators have no portable source.
func (d *RuntimeDefinition) Source() (string, bool) {
	if d.script == nil {
		return "", false
	}
	return d.script.Source(), true
}

func (d *RuntimeDefinition) Call(value any) (bool, error) {
	if d.script != nil {
		return d.script.Call(value)
	}
	return d.fn(value), nil
}

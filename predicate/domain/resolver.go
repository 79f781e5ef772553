package predicate

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
)

// Getter resolves properties on demand. A Getter subject is called with the
// property key and its result is resolved again.
type Getter func(key string) any

// Context is a subject that looks its properties up itself. Returning
// ErrKeyNotFound means the property is missing.
type Context interface {
	Get(string) (any, error)
}

const maxGetterDepth = 32

var timeType = reflect.TypeOf(time.Time{})

// Resolve reads the property key from subject. A missing property resolves to
// nil without error. Keys are tried literally first ("a.b" as one key) and
// then as a dotted path. A property holding a func() any is called once.
func Resolve(key string, subject any) (any, error) {
	value, err := resolveSubject(key, subject, 0)
	if err != nil {
		return nil, err
	}
	if fn, ok := value.(func() any); ok {
		value = fn()
	}
	return value, nil
}

// ResolveOperand unwraps lazily computed operands. It is applied once when a
// leaf is built, never per subject.
func ResolveOperand(value any) any {
	for i := 0; i < maxGetterDepth; i++ {
		fn, ok := value.(func() any)
		if !ok {
			return value
		}
		value = fn()
	}
	return value
}

func resolveSubject(key string, subject any, depth int) (any, error) {
	if depth > maxGetterDepth {
		return nil, errors.Wrapf(ErrUnsupportedValue, "getter chain for %q is too deep", key)
	}
	switch s := subject.(type) {
	case nil:
		return nil, nil
	case Getter:
		return resolveGetterResult(key, s(key), depth)
	case func(string) any:
		return resolveGetterResult(key, s(key), depth)
	}
	if !isContainer(subject) {
		return nil, errors.Wrapf(ErrUnsupportedValue, "cannot resolve %q on %T", key, subject)
	}
	return lookupPath(subject, key)
}

func resolveGetterResult(key string, value any, depth int) (any, error) {
	switch value.(type) {
	case Getter, func(string) any:
		return resolveSubject(key, value, depth+1)
	}
	if isContainer(value) {
		return resolveSubject(key, value, depth+1)
	}
	return value, nil
}

func lookupPath(subject any, key string) (any, error) {
	value, found, err := lookup(subject, key)
	if err != nil {
		return nil, err
	}
	if found || !strings.Contains(key, ".") {
		return value, nil
	}
	current := subject
	for _, part := range strings.Split(key, ".") {
		if !isContainer(current) {
			return nil, nil
		}
		current, found, err = lookup(current, part)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
	}
	return current, nil
}

func isContainer(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case map[string]any, Context:
		return true
	case *fastjson.Value:
		return v != nil && (v.Type() == fastjson.TypeObject || v.Type() == fastjson.TypeArray)
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return rv.Type() != timeType
	}
	return false
}

// lookup reads a single key from a container.
func lookup(container any, key string) (value any, found bool, err error) {
	switch c := container.(type) {
	case map[string]any:
		value, found = c[key]
		return value, found, nil
	case Context:
		value, err = c.Get(key)
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return value, true, nil
	case *fastjson.Value:
		v := c.Get(key)
		if v == nil {
			return nil, false, nil
		}
		return fromFastJSON(v), true, nil
	}

	rv := reflect.ValueOf(container)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		mv := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, false, nil
		}
		return mv.Interface(), true, nil
	case reflect.Struct:
		fv, ok := structField(rv, key)
		if !ok {
			return nil, false, nil
		}
		return fv.Interface(), true, nil
	}
	return nil, false, errors.Wrapf(ErrUnsupportedValue, "cannot resolve %q on %T", key, container)
}

// structField matches an exported field by json tag, then by name, then by
// name ignoring case.
func structField(rv reflect.Value, key string) (reflect.Value, bool) {
	rt := rv.Type()
	fold := -1
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" && tag != "-" && tag == key {
			return rv.Field(i), true
		}
		if f.Name == key {
			return rv.Field(i), true
		}
		if fold < 0 && strings.EqualFold(f.Name, key) {
			fold = i
		}
	}
	if fold >= 0 {
		return rv.Field(fold), true
	}
	return reflect.Value{}, false
}

func fromFastJSON(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeNull:
		return nil
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return json.Number(v.String())
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	}
	return v
}

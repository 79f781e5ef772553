package operators

import (
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

// Script is a Lua predicate. The source must be a chunk returning a function
// of one argument, for example:
//
//	return function(v) return v % 2 == 0 end
//
// Only the base, package, table, string and math libraries are opened, with
// dofile, loadfile and load removed and require limited to preloaded modules,
// so scripts have no access to the file system or the process. The json
// module is available through require("json").
//
// An LState is not safe for concurrent use, hence the pool; each pooled state
// compiles the source once.
type Script struct {
	source string
	pool   sync.Pool
}

type scriptState struct {
	L  *lua.LState
	fn *lua.LFunction
}

func CompileScript(source string) (*Script, error) {
	state, err := newScriptState(source)
	if err != nil {
		return nil, err
	}
	s := &Script{source: source}
	s.pool.New = func() any {
		st, err := newScriptState(source)
		if err != nil {
			return err
		}
		return st
	}
	s.pool.Put(state)
	return s, nil
}

func newScriptState(source string) (*scriptState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	restrictScriptState(L)
	luajson.Preload(L)

	chunk, err := L.LoadString(source)
	if err != nil {
		L.Close()
		return nil, errors.Wrap(err, "cannot compile script")
	}
	L.Push(chunk)
	if err := L.PCall(0, 1, nil); err != nil {
		L.Close()
		return nil, errors.Wrap(err, "cannot run script")
	}
	fn, ok := L.Get(-1).(*lua.LFunction)
	L.Pop(1)
	if !ok {
		L.Close()
		return nil, errors.New("script must return a function")
	}
	return &scriptState{L: L, fn: fn}, nil
}

func restrictScriptState(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load"} {
		L.SetGlobal(name, lua.LNil)
	}
	pkg, ok := L.GetGlobal(lua.LoadLibName).(*lua.LTable)
	if !ok {
		return
	}
	pkg.RawSetString("path", lua.LString(""))
	// require shares this table through the registry; keep the preload loader only.
	if loaders, ok := pkg.RawGetString("loaders").(*lua.LTable); ok {
		for loaders.Len() > 1 {
			loaders.Remove(loaders.Len())
		}
	}
}

func (s *Script) Source() string {
	return s.source
}

func (s *Script) Call(value any) (bool, error) {
	var state *scriptState
	switch item := s.pool.Get().(type) {
	case *scriptState:
		state = item
	case error:
		return false, item
	}
	defer s.pool.Put(state)

	arg, err := toLuaValue(state.L, value)
	if err != nil {
		return false, err
	}
	err = state.L.CallByParam(lua.P{
		Fn:      state.fn,
		NRet:    1,
		Protect: true,
	}, arg)
	if err != nil {
		return false, errors.Wrap(err, "lua predicate error")
	}
	result := state.L.Get(-1)
	state.L.Pop(1)
	return lua.LVAsBool(result), nil
}

func toLuaValue(L *lua.LState, value any) (lua.LValue, error) {
	switch v := value.(type) {
	case nil:
		return lua.LNil, nil
	case string:
		return lua.LString(v), nil
	case bool:
		return lua.LBool(v), nil
	case time.Time:
		return lua.LString(v.Format(time.RFC3339Nano)), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot pass %q to lua", v)
		}
		return lua.LNumber(f), nil
	case *fastjson.Value:
		if v == nil {
			return lua.LNil, nil
		}
		return luajson.Decode(L, v.MarshalTo(nil))
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float()), nil
	}
	// Structured values go through their JSON form.
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot pass %T to lua", value)
	}
	return luajson.Decode(L, data)
}

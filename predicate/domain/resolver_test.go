package predicate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

type address struct {
	City string
}

type person struct {
	Name    string `json:"full_name"`
	Age     int
	Address *address
	secret  string
}

func TestResolveMap(t *testing.T) {
	subject := map[string]any{
		"age": 42,
		"a.b": "literal",
		"a":   map[string]any{"b": "nested", "c": map[string]any{"d": true}},
		"n":   nil,
	}
	cases := []struct {
		key      string
		expected any
	}{
		{"age", 42},
		{"a.b", "literal"},
		{"a.c.d", true},
		{"n", nil},
		{"missing", nil},
		{"age.value", nil},
		{"a.missing.d", nil},
	}
	for _, c := range cases {
		t.Run(c.key, func(t *testing.T) {
			v, err := Resolve(c.key, subject)
			require.NoError(t, err)
			assert.Equal(t, c.expected, v)
		})
	}
}

func TestResolveTypedMap(t *testing.T) {
	v, err := Resolve("x", map[string]int{"x": 3})
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestResolveStruct(t *testing.T) {
	subject := &person{Name: "Mr Miyagi", Age: 42, Address: &address{City: "Okinawa"}, secret: "bonsai"}

	v, err := Resolve("full_name", subject)
	require.NoError(t, err)
	assert.Equal(t, "Mr Miyagi", v)

	v, err = Resolve("age", subject)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = Resolve("Address.City", subject)
	require.NoError(t, err)
	assert.Equal(t, "Okinawa", v)

	v, err = Resolve("secret", subject)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = Resolve("Address.City", person{})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestResolveGetter(t *testing.T) {
	calls := 0
	getter := Getter(func(key string) any {
		calls++
		return map[string]any{"age": 42}[key]
	})
	v, err := Resolve("age", getter)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	plain := func(key string) any {
		return map[string]any{"age": 7}
	}
	v, err = Resolve("age", plain)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestResolveLazyProperty(t *testing.T) {
	calls := 0
	subject := map[string]any{"lazy": func() any {
		calls++
		return 5
	}}
	v, err := Resolve("lazy", subject)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.Equal(t, 1, calls)
}

func TestResolveContext(t *testing.T) {
	ctx := mapContext{"age": 42, "inner": map[string]any{"x": 1}}

	v, err := Resolve("age", ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = Resolve("inner.x", ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = Resolve("missing", ctx)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestResolveFastJSON(t *testing.T) {
	doc, err := fastjson.Parse(`{"a":{"b":[1,{"c":"x"}]},"n":null,"ok":true}`)
	require.NoError(t, err)

	v, err := Resolve("a.b.1.c", doc)
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = Resolve("a.b.0", doc)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), v)

	v, err = Resolve("ok", doc)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Resolve("n", doc)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = Resolve("missing", doc)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestResolveUnsupported(t *testing.T) {
	_, err := Resolve("age", 42)
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = Resolve("age", "Mr Miyagi")
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	v, err := Resolve("age", nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestResolveOperand(t *testing.T) {
	assert.Equal(t, 3, ResolveOperand(func() any {
		return func() any { return 3 }
	}))
	assert.Equal(t, "x", ResolveOperand("x"))
}

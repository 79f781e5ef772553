package predicate

import (
	"errors"
	"reflect"
	"testing"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
)

func compile(t *testing.T, b *p.Builder, opts ...PostgresqlVisitorOption) (string, []any) {
	t.Helper()
	if err := b.Err(); err != nil {
		t.Fatalf("Builder failed: %v", err)
	}
	sql, params, err := CompileSQL(b.Root(), opts...)
	if err != nil {
		t.Fatalf("CompileSQL failed: %v", err)
	}
	return sql, params
}

func TestCompileSQL(t *testing.T) {
	sql, params := compile(t, miyagiFilter())

	expected := `"age" = $1 AND ("name" LIKE $2 OR "nickname" IS NULL) AND ("weight" < $3) IS NOT TRUE`
	if sql != expected {
		t.Errorf("Expected %s, got %s", expected, sql)
	}
	if !reflect.DeepEqual(params, []any{42, "Mr%", 20}) {
		t.Errorf("Expected params [42 Mr%% 20], got %v", params)
	}
}

func TestSQLPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		builder  *p.Builder
		expected string
	}{
		{"and inside or", p.Or().And().Eq("a", 1).Eq("b", 2).Up().Eq("c", 3), `"a" = $1 AND "b" = $2 OR "c" = $3`},
		{"or inside and", p.And().Eq("a", 1).Or().Eq("b", 2).Eq("c", 3), `"a" = $1 AND ("b" = $2 OR "c" = $3)`},
		{"not over or", p.Not().Or().Eq("a", 1).Eq("b", 2), `("a" = $1 OR "b" = $2) IS NOT TRUE`},
		{"not over isnull", p.Not().IsNull("a"), `("a" IS NULL) IS NOT TRUE`},
		{"double not", p.Not().Not().Eq("a", 1), `(("a" = $1) IS NOT TRUE) IS NOT TRUE`},
		{"nor", p.Not().Eq("a", 1).Gte("b", 2), `("a" = $1) IS NOT TRUE AND ("b" >= $2) IS NOT TRUE`},
		{"nor inside or", p.Or().IsNull("c").Not().Eq("a", 1).Eq("b", 2), `"c" IS NULL OR ("a" = $1) IS NOT TRUE AND ("b" = $2) IS NOT TRUE`},
		{"empty", p.Or(), `TRUE`},
		{"empty child", p.And().Eq("a", 1).Or(), `"a" = $1 AND TRUE`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sql, _ := compile(t, c.builder)
			if sql != c.expected {
				t.Errorf("Expected %s, got %s", c.expected, sql)
			}
		})
	}
}

func TestSQLNegationOfMissingValue(t *testing.T) {
	b := p.Not().Eq("age", 42)
	matched, err := b.Evaluate(map[string]any{"name": "Mr Miyagi"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !matched {
		t.Fatal("Expected a missing age to satisfy the negation")
	}

	// "age" = NULL is unknown; IS NOT TRUE turns it into true as well.
	sql, params := compile(t, b)
	expected := `("age" = $1) IS NOT TRUE`
	if sql != expected {
		t.Errorf("Expected %s, got %s", expected, sql)
	}
	if !reflect.DeepEqual(params, []any{42}) {
		t.Errorf("Expected params [42], got %v", params)
	}
}

func TestSQLPlaceholderIndex(t *testing.T) {
	sql, params := compile(t, p.And().Eq("a", 1).Lt("b", 2), PlaceholderIndex(2))

	if sql != `"a" = $3 AND "b" < $4` {
		t.Errorf("Expected placeholders to start at $3, got %s", sql)
	}
	if len(params) != 2 {
		t.Errorf("Expected 2 params, got %v", params)
	}
}

func TestSQLColumns(t *testing.T) {
	b := p.And().Eq("age", 42).Eq("user.name", "Mr Miyagi").IsNull(`we"ird`)
	sql, _ := compile(t, b, WithColumns(map[string]string{"age": "extract(year from age(u.born))"}))

	expected := `extract(year from age(u.born)) = $1 AND "user"."name" = $2 AND "we""ird" IS NULL`
	if sql != expected {
		t.Errorf("Expected %s, got %s", expected, sql)
	}
}

func TestSQLLike(t *testing.T) {
	sql, params := compile(t, p.And().ILike("name", "mr*_?").Like("code", "A%", p.Options{WildCard: "%"}))

	if sql != `"name" ILIKE $1 AND "code" LIKE $2` {
		t.Errorf("Unexpected SQL %s", sql)
	}
	if !reflect.DeepEqual(params, []any{`mr%\__`, "A%"}) {
		t.Errorf("Unexpected params %v", params)
	}
}

func TestSQLNotRenderable(t *testing.T) {
	_, _, err := CompileSQL(runtimeFilter().Root())
	if !errors.Is(err, ErrNotRenderable) {
		t.Errorf("Expected ErrNotRenderable, got %v", err)
	}

	root := p.NewLogicalNode("and")
	root.Add(newOpaqueNode())
	_, _, err = CompileSQL(root)
	if !errors.Is(err, ErrNotRenderable) {
		t.Errorf("Expected ErrNotRenderable, got %v", err)
	}
}

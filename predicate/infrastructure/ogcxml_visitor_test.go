package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
)

func filter(body string) string {
	return ogcFilterOpen + body + ogcFilterClose
}

func TestCompileOGCXML(t *testing.T) {
	cases := []struct {
		name     string
		builder  *p.Builder
		expected string
	}{
		{
			"single child unwrapped",
			p.And().Eq("age", 42),
			`<ogc:PropertyIsEqualTo matchCase="true"><ogc:PropertyName>age</ogc:PropertyName><ogc:Literal>42</ogc:Literal></ogc:PropertyIsEqualTo>`,
		},
		{
			"empty",
			p.And(),
			ogcTautology,
		},
		{
			"or",
			p.Or().IsNull("a").Gte("b", 2),
			`<ogc:Or>` +
				`<ogc:PropertyIsNull><ogc:PropertyName>a</ogc:PropertyName></ogc:PropertyIsNull>` +
				`<ogc:PropertyIsGreaterThanOrEqualTo><ogc:PropertyName>b</ogc:PropertyName><ogc:Literal>2</ogc:Literal></ogc:PropertyIsGreaterThanOrEqualTo>` +
				`</ogc:Or>`,
		},
		{
			"nor",
			p.Not().Gt("a", 1).Lte("b", 2),
			`<ogc:Not><ogc:Or>` +
				`<ogc:PropertyIsGreaterThan><ogc:PropertyName>a</ogc:PropertyName><ogc:Literal>1</ogc:Literal></ogc:PropertyIsGreaterThan>` +
				`<ogc:PropertyIsLessThanOrEqualTo><ogc:PropertyName>b</ogc:PropertyName><ogc:Literal>2</ogc:Literal></ogc:PropertyIsLessThanOrEqualTo>` +
				`</ogc:Or></ogc:Not>`,
		},
		{
			"escaping",
			p.And().Eq("name", "O'Neil & <Co>"),
			`<ogc:PropertyIsEqualTo matchCase="true"><ogc:PropertyName>name</ogc:PropertyName><ogc:Literal>O&#39;Neil &amp; &lt;Co&gt;</ogc:Literal></ogc:PropertyIsEqualTo>`,
		},
		{
			"ilike",
			p.And().ILike("name", "mr%", p.Options{WildCard: "%"}),
			`<ogc:PropertyIsLike matchCase="false" wildCard="%" escapeChar="\" singleChar="?"><ogc:PropertyName>name</ogc:PropertyName><ogc:Literal>mr%</ogc:Literal></ogc:PropertyIsLike>`,
		},
		{
			"like backslash",
			p.And().Like("path", `a\b*?`),
			`<ogc:PropertyIsLike matchCase="true" wildCard="*" escapeChar="\" singleChar="?"><ogc:PropertyName>path</ogc:PropertyName><ogc:Literal>a\\b*?</ogc:Literal></ogc:PropertyIsLike>`,
		},
		{
			"date",
			p.And().Lt("founded", founded),
			`<ogc:PropertyIsLessThan><ogc:PropertyName>founded</ogc:PropertyName><ogc:Literal>1925-03-01T00:00:00.000Z</ogc:Literal></ogc:PropertyIsLessThan>`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.NoError(t, c.builder.Err())
			out, err := CompileOGCXML(c.builder.Root())
			require.NoError(t, err)
			assertSameText(t, filter(c.expected), out)
		})
	}
}

func TestCompileOGCXMLMiyagi(t *testing.T) {
	out, err := CompileOGCXML(miyagiFilter().Root())
	require.NoError(t, err)
	assertSameText(t, filter(`<ogc:And>`+
		`<ogc:PropertyIsEqualTo matchCase="true"><ogc:PropertyName>age</ogc:PropertyName><ogc:Literal>42</ogc:Literal></ogc:PropertyIsEqualTo>`+
		`<ogc:Or>`+
		`<ogc:PropertyIsLike matchCase="true" wildCard="*" escapeChar="\" singleChar="?"><ogc:PropertyName>name</ogc:PropertyName><ogc:Literal>Mr*</ogc:Literal></ogc:PropertyIsLike>`+
		`<ogc:PropertyIsNull><ogc:PropertyName>nickname</ogc:PropertyName></ogc:PropertyIsNull>`+
		`</ogc:Or>`+
		`<ogc:Not><ogc:PropertyIsLessThan><ogc:PropertyName>weight</ogc:PropertyName><ogc:Literal>20</ogc:Literal></ogc:PropertyIsLessThan></ogc:Not>`+
		`</ogc:And>`), out)
}

func TestCompileOGCXMLNotRenderable(t *testing.T) {
	_, err := CompileOGCXML(runtimeFilter().Root())
	assert.ErrorIs(t, err, ErrNotRenderable)

	root := p.NewLogicalNode("or")
	root.Add(newOpaqueNode())
	_, err = CompileOGCXML(root)
	assert.ErrorIs(t, err, ErrNotRenderable)
}

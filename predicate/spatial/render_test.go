package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
	infra "github.com/krew-solutions/ascetic-predicate-go/predicate/infrastructure"
)

func dojoFilter(t *testing.T) *p.Builder {
	t.Helper()
	b := p.And(p.WithRegistry(NewRegistry())).
		Eq("kind", "dojo").
		Op("dwithin", "location", "POINT(0 0)", distance(5)).
		Or().
		Op("intersects", "area", square).
		Op("beyond", "area", "POINT(1 2)", distance(100)).
		Done()
	require.NoError(t, b.Err())
	return b
}

func TestRenderCQL(t *testing.T) {
	cql, err := infra.CompileCQL(dojoFilter(t).Root())
	require.NoError(t, err)
	assert.Equal(t, "(kind = 'dojo' AND DWITHIN(location, POINT(0 0), 5, m) AND "+
		"(INTERSECTS(area, POLYGON((0 0,10 0,10 10,0 10,0 0))) OR BEYOND(area, POINT(1 2), 100, m)))", cql)
}

func TestRenderSQL(t *testing.T) {
	sql, params, err := infra.CompileSQL(dojoFilter(t).Root())
	require.NoError(t, err)
	assert.Equal(t, `"kind" = $1 AND ST_DWithin("location", ST_GeomFromText($2), $3) AND `+
		`(ST_Intersects("area", ST_GeomFromText($4)) OR NOT ST_DWithin("area", ST_GeomFromText($5), $6))`, sql)
	assert.Equal(t, []any{
		"dojo",
		"POINT(0 0)", 5.0,
		"POLYGON((0 0,10 0,10 10,0 10,0 0))",
		"POINT(1 2)", 100.0,
	}, params)
}

func TestRenderOGCXML(t *testing.T) {
	b := p.Not(p.WithRegistry(NewRegistry())).Op("dwithin", "location", "POINT(0 0)", distance(5))
	out, err := infra.CompileOGCXML(b.Root())
	require.NoError(t, err)
	assert.Contains(t, out, `<ogc:Not><ogc:DWithin><ogc:PropertyName>location</ogc:PropertyName>`+
		`<gml:Point><gml:coordinates>0,0</gml:coordinates></gml:Point>`+
		`<ogc:Distance units="m">5</ogc:Distance></ogc:DWithin></ogc:Not>`)
}

func TestGML(t *testing.T) {
	cases := []struct {
		name     string
		geometry orb.Geometry
		expected string
	}{
		{
			"line",
			orb.LineString{{0, 0}, {1.5, -2}},
			`<gml:LineString><gml:coordinates>0,0 1.5,-2</gml:coordinates></gml:LineString>`,
		},
		{
			"polygon with hole",
			orb.Polygon{
				{{0, 0}, {4, 0}, {4, 4}, {0, 0}},
				{{1, 1}, {2, 1}, {2, 2}, {1, 1}},
			},
			`<gml:Polygon>` +
				`<gml:outerBoundaryIs><gml:LinearRing><gml:coordinates>0,0 4,0 4,4 0,0</gml:coordinates></gml:LinearRing></gml:outerBoundaryIs>` +
				`<gml:innerBoundaryIs><gml:LinearRing><gml:coordinates>1,1 2,1 2,2 1,1</gml:coordinates></gml:LinearRing></gml:innerBoundaryIs>` +
				`</gml:Polygon>`,
		},
		{
			"multipoint",
			orb.MultiPoint{{1, 2}, {3, 4}},
			`<gml:MultiPoint>` +
				`<gml:pointMember><gml:Point><gml:coordinates>1,2</gml:coordinates></gml:Point></gml:pointMember>` +
				`<gml:pointMember><gml:Point><gml:coordinates>3,4</gml:coordinates></gml:Point></gml:pointMember>` +
				`</gml:MultiPoint>`,
		},
		{
			"collection",
			orb.Collection{orb.Point{1, 2}, orb.LineString{{0, 0}, {1, 1}}},
			`<gml:MultiGeometry>` +
				`<gml:geometryMember><gml:Point><gml:coordinates>1,2</gml:coordinates></gml:Point></gml:geometryMember>` +
				`<gml:geometryMember><gml:LineString><gml:coordinates>0,0 1,1</gml:coordinates></gml:LineString></gml:geometryMember>` +
				`</gml:MultiGeometry>`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gml, err := GML(c.geometry)
			require.NoError(t, err)
			assert.Equal(t, c.expected, gml)
		})
	}
}

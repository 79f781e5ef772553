package spatial

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	infra "github.com/krew-solutions/ascetic-predicate-go/predicate/infrastructure"
)

var (
	cqlFunctions = map[string]string{
		string(OperatorIntersects): "INTERSECTS",
		string(OperatorDisjoint):   "DISJOINT",
		string(OperatorContains):   "CONTAINS",
		string(OperatorWithin):     "WITHIN",
		string(OperatorDWithin):    "DWITHIN",
		string(OperatorBeyond):     "BEYOND",
	}
	ogcTags = map[string]string{
		string(OperatorIntersects): "ogc:Intersects",
		string(OperatorDisjoint):   "ogc:Disjoint",
		string(OperatorContains):   "ogc:Contains",
		string(OperatorWithin):     "ogc:Within",
		string(OperatorDWithin):    "ogc:DWithin",
		string(OperatorBeyond):     "ogc:Beyond",
	}
	postgisFunctions = map[string]string{
		string(OperatorIntersects): "ST_Intersects",
		string(OperatorDisjoint):   "ST_Disjoint",
		string(OperatorContains):   "ST_Contains",
		string(OperatorWithin):     "ST_Within",
	}
)

func formatFloat(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

// RenderCQL renders e.g. INTERSECTS(geom, POINT(1 2)) or
// DWITHIN(geom, POINT(1 2), 100, m).
func (n *Node) RenderCQL() (string, error) {
	fn := cqlFunctions[n.Alias()]
	if isDistance(n.operator) {
		return fmt.Sprintf("%s(%s, %s, %s, m)", fn, n.Key(), n.WKT(), formatFloat(n.Distance())), nil
	}
	return fmt.Sprintf("%s(%s, %s)", fn, n.Key(), n.WKT()), nil
}

func (n *Node) RenderOGCXML() (string, error) {
	gml, err := GML(n.geometry)
	if err != nil {
		return "", err
	}
	tag := ogcTags[n.Alias()]
	out := "<" + tag + ">" + infra.PropertyName(n.Key()) + gml
	if isDistance(n.operator) {
		out += `<ogc:Distance units="m">` + formatFloat(n.Distance()) + "</ogc:Distance>"
	}
	return out + "</" + tag + ">", nil
}

// RenderSQL renders a PostGIS predicate with the geometry passed as WKT.
func (n *Node) RenderSQL(column string, bind func(value any) string) (string, error) {
	geometry := "ST_GeomFromText(" + bind(n.WKT()) + ")"
	switch n.operator {
	case OperatorDWithin:
		return fmt.Sprintf("ST_DWithin(%s, %s, %s)", column, geometry, bind(n.Distance())), nil
	case OperatorBeyond:
		return fmt.Sprintf("NOT ST_DWithin(%s, %s, %s)", column, geometry, bind(n.Distance())), nil
	}
	return fmt.Sprintf("%s(%s, %s)", postgisFunctions[n.Alias()], column, geometry), nil
}

// GML renders g as a GML 2 geometry.
func GML(g orb.Geometry) (string, error) {
	var sb strings.Builder
	if err := writeGML(&sb, g); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeGML(sb *strings.Builder, g orb.Geometry) error {
	switch v := g.(type) {
	case orb.Point:
		sb.WriteString("<gml:Point>")
		writeCoordinates(sb, []orb.Point{v})
		sb.WriteString("</gml:Point>")
	case orb.LineString:
		sb.WriteString("<gml:LineString>")
		writeCoordinates(sb, v)
		sb.WriteString("</gml:LineString>")
	case orb.Ring:
		return writeGML(sb, orb.Polygon{v})
	case orb.Bound:
		return writeGML(sb, v.ToPolygon())
	case orb.Polygon:
		sb.WriteString("<gml:Polygon>")
		for i, ring := range v {
			boundary := "gml:innerBoundaryIs"
			if i == 0 {
				boundary = "gml:outerBoundaryIs"
			}
			sb.WriteString("<" + boundary + "><gml:LinearRing>")
			writeCoordinates(sb, ring)
			sb.WriteString("</gml:LinearRing></" + boundary + ">")
		}
		sb.WriteString("</gml:Polygon>")
	case orb.MultiPoint:
		return writeMembers(sb, "gml:MultiPoint", "gml:pointMember", len(v), func(i int) orb.Geometry { return v[i] })
	case orb.MultiLineString:
		return writeMembers(sb, "gml:MultiLineString", "gml:lineStringMember", len(v), func(i int) orb.Geometry { return v[i] })
	case orb.MultiPolygon:
		return writeMembers(sb, "gml:MultiPolygon", "gml:polygonMember", len(v), func(i int) orb.Geometry { return v[i] })
	case orb.Collection:
		return writeMembers(sb, "gml:MultiGeometry", "gml:geometryMember", len(v), func(i int) orb.Geometry { return v[i] })
	default:
		return errors.Wrapf(infra.ErrNotRenderable, "geometry %T has no GML form", g)
	}
	return nil
}

func writeMembers(sb *strings.Builder, tag, member string, n int, at func(int) orb.Geometry) error {
	sb.WriteString("<" + tag + ">")
	for i := 0; i < n; i++ {
		sb.WriteString("<" + member + ">")
		if err := writeGML(sb, at(i)); err != nil {
			return err
		}
		sb.WriteString("</" + member + ">")
	}
	sb.WriteString("</" + tag + ">")
	return nil
}

func writeCoordinates(sb *strings.Builder, ps []orb.Point) {
	sb.WriteString("<gml:coordinates>")
	for i, pt := range ps {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(formatFloat(pt[0]))
		sb.WriteByte(',')
		sb.WriteString(formatFloat(pt[1]))
	}
	sb.WriteString("</gml:coordinates>")
}

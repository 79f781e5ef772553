package predicate

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
)

const (
	ogcFilterOpen  = `<ogc:Filter xmlns:gml="http://www.opengis.net/gml" xmlns:ogc="http://www.opengis.net/ogc">`
	ogcFilterClose = `</ogc:Filter>`
	ogcTautology   = `<ogc:PropertyIsEqualTo><ogc:Literal>1</ogc:Literal><ogc:Literal>1</ogc:Literal></ogc:PropertyIsEqualTo>`
)

// CompileOGCXML renders a tree as an OGC filter encoding document.
func CompileOGCXML(exp p.Visitable) (string, error) {
	v := NewOGCXMLVisitor()
	if err := exp.Accept(v); err != nil {
		return "", err
	}
	return v.Result()
}

func NewOGCXMLVisitor() *OGCXMLVisitor {
	return &OGCXMLVisitor{}
}

type OGCXMLVisitor struct {
	xml string
}

// VisitLogical unwraps AND and OR nodes with a single child, which the
// filter schema does not allow. NOT over several children is rendered as
// NOT of their OR.
func (v *OGCXMLVisitor) VisitLogical(n *p.LogicalNode) error {
	children := n.Children()
	if len(children) == 0 {
		v.xml += ogcTautology
		return nil
	}
	switch n.Kind() {
	case operators.OperatorNot:
		v.xml += "<ogc:Not>"
		if err := v.visitGroup("ogc:Or", children); err != nil {
			return err
		}
		v.xml += "</ogc:Not>"
		return nil
	case operators.OperatorOr:
		return v.visitGroup("ogc:Or", children)
	}
	return v.visitGroup("ogc:And", children)
}

func (v *OGCXMLVisitor) visitGroup(tag string, children []p.Node) error {
	if len(children) == 1 {
		return children[0].Accept(v)
	}
	v.xml += "<" + tag + ">"
	for _, child := range children {
		if err := child.Accept(v); err != nil {
			return err
		}
	}
	v.xml += "</" + tag + ">"
	return nil
}

func (v *OGCXMLVisitor) VisitComparison(n *p.ComparisonNode) error {
	property := PropertyName(n.Key())
	literal := "<ogc:Literal>" + xmlEscape(p.FormatValue(n.Value())) + "</ogc:Literal>"
	switch op := n.Operator(); op {
	case operators.OperatorEq:
		v.xml += `<ogc:PropertyIsEqualTo matchCase="true">` + property + literal + `</ogc:PropertyIsEqualTo>`
	case operators.OperatorIsNull:
		v.xml += "<ogc:PropertyIsNull>" + property + "</ogc:PropertyIsNull>"
	case operators.OperatorLike, operators.OperatorILike:
		// Backslash is the declared escapeChar; a literal one must be doubled.
		pattern := strings.ReplaceAll(p.FormatValue(n.Value()), `\`, `\\`)
		v.xml += fmt.Sprintf(
			`<ogc:PropertyIsLike matchCase="%t" wildCard="%s" escapeChar="\" singleChar="?">%s<ogc:Literal>%s</ogc:Literal></ogc:PropertyIsLike>`,
			n.MatchCase(), xmlEscape(n.WildCard()), property, xmlEscape(pattern),
		)
	default:
		tag, ok := comparisonTags[op]
		if !ok {
			return errors.Wrapf(ErrNotRenderable, "comparison %q", op)
		}
		v.xml += "<" + tag + ">" + property + literal + "</" + tag + ">"
	}
	return nil
}

func (v *OGCXMLVisitor) VisitRuntime(n *p.RuntimeNode) error {
	return errors.Wrapf(ErrNotRenderable, "runtime operator %q", n.Alias())
}

func (v *OGCXMLVisitor) VisitExtension(n p.ExtensionNode) error {
	r, ok := n.(OGCXMLRenderer)
	if !ok {
		return errors.Wrapf(ErrNotRenderable, "operator %q has no OGC XML form", n.Alias())
	}
	out, err := r.RenderOGCXML()
	if err != nil {
		return err
	}
	v.xml += out
	return nil
}

func (v OGCXMLVisitor) Result() (string, error) {
	return ogcFilterOpen + v.xml + ogcFilterClose, nil
}

var comparisonTags = map[operators.Operator]string{
	operators.OperatorGt:  "ogc:PropertyIsGreaterThan",
	operators.OperatorGte: "ogc:PropertyIsGreaterThanOrEqualTo",
	operators.OperatorLt:  "ogc:PropertyIsLessThan",
	operators.OperatorLte: "ogc:PropertyIsLessThanOrEqualTo",
}

// PropertyName renders the ogc:PropertyName element for key.
func PropertyName(key string) string {
	return "<ogc:PropertyName>" + xmlEscape(key) + "</ogc:PropertyName>"
}

func xmlEscape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

package style

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	nsSLD   = "http://www.opengis.net/sld"
	nsOGC   = "http://www.opengis.net/ogc"
	nsGML   = "http://www.opengis.net/gml"
	nsXLink = "http://www.w3.org/1999/xlink"
)

// WriteSLD writes style as SLD 1.0 document.
func WriteSLD(w io.Writer, s *Style) error {
	doc := BuildSLD(s)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("unable to write SLD: %w", err)
	}
	return nil
}

// BuildSLD returns SLD 1.0 document for the style.
func BuildSLD(s *Style) *etree.Document {
	doc := etree.NewDocument()
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("sld:StyledLayerDescriptor")
	root.CreateAttr("xmlns:sld", nsSLD)
	root.CreateAttr("xmlns:ogc", nsOGC)
	root.CreateAttr("xmlns:gml", nsGML)
	root.CreateAttr("xmlns:xlink", nsXLink)
	root.CreateAttr("version", "1.0.0")

	layer := root.CreateElement("sld:NamedLayer")
	textElement(layer, "sld:Name", s.Name)

	us := layer.CreateElement("sld:UserStyle")
	textElement(us, "sld:Name", s.Name)
	textElement(us, "sld:Title", s.Title)
	textElement(us, "sld:Abstract", s.Abstract)

	for _, fts := range s.FeatureTypeStyles {
		writeFeatureTypeStyle(us, fts)
	}

	doc.Indent(2)
	return doc
}

func writeFeatureTypeStyle(parent *etree.Element, fts *FeatureTypeStyle) {
	el := parent.CreateElement("sld:FeatureTypeStyle")
	textElement(el, "sld:Name", fts.Name)
	textElement(el, "sld:FeatureTypeName", fts.FeatureTypeName)
	for _, r := range fts.Rules {
		writeRule(el, r)
	}
}

func writeRule(parent *etree.Element, r *Rule) {
	el := parent.CreateElement("sld:Rule")
	textElement(el, "sld:Name", r.Name)
	textElement(el, "sld:Title", r.Title)
	textElement(el, "sld:Abstract", r.Abstract)
	if r.Filter != nil {
		if _, all := r.Filter.(Include); !all {
			writeFilter(el.CreateElement("ogc:Filter"), r.Filter)
		}
	}
	if r.MinScale > 0 {
		textElement(el, "sld:MinScaleDenominator", formatFloat(r.MinScale))
	}
	if r.MaxScale > 0 {
		textElement(el, "sld:MaxScaleDenominator", formatFloat(r.MaxScale))
	}
	for _, sym := range r.Symbolizers {
		writeSymbolizer(el, sym)
	}
}

func writeFilter(parent *etree.Element, f Filter) {
	switch f := f.(type) {
	case FeatureID:
		for _, id := range f.IDs {
			parent.CreateElement("ogc:FeatureId").CreateAttr("fid", id)
		}
	case Compare:
		el := parent.CreateElement("ogc:" + f.Op.Element())
		textElement(el, "ogc:PropertyName", f.Property)
		el.CreateElement("ogc:Literal").SetText(f.Value)
	case Like:
		el := parent.CreateElement("ogc:PropertyIsLike")
		el.CreateAttr("wildCard", "%")
		el.CreateAttr("singleChar", "_")
		el.CreateAttr("escape", "\\")
		textElement(el, "ogc:PropertyName", f.Property)
		el.CreateElement("ogc:Literal").SetText(f.Pattern)
	case IsNull:
		el := parent.CreateElement("ogc:PropertyIsNull")
		textElement(el, "ogc:PropertyName", f.Property)
	case And:
		el := parent.CreateElement("ogc:And")
		for _, c := range f.Filters {
			writeFilter(el, c)
		}
	case Or:
		el := parent.CreateElement("ogc:Or")
		for _, c := range f.Filters {
			writeFilter(el, c)
		}
	case Not:
		writeFilter(parent.CreateElement("ogc:Not"), f.Filter)
	}
}

func writeSymbolizer(parent *etree.Element, sym Symbolizer) {
	el := parent.CreateElement("sld:" + sym.Kind() + "Symbolizer")
	switch s := sym.(type) {
	case *PointSymbolizer:
		writeGraphic(el, "sld:Graphic", s.Graphic)
	case *LineSymbolizer:
		writeStroke(el, s.Stroke)
	case *PolygonSymbolizer:
		writeFill(el, s.Fill)
		writeStroke(el, s.Stroke)
	case *TextSymbolizer:
		writeText(el, s)
	}
	for _, o := range sym.Options() {
		vo := el.CreateElement("sld:VendorOption")
		vo.CreateAttr("name", o.Name)
		vo.SetText(o.Value)
	}
}

func writeText(el *etree.Element, s *TextSymbolizer) {
	if s.Label != nil {
		writeExpression(el.CreateElement("sld:Label"), s.Label)
	}
	if len(s.Font.Family) > 0 || s.Font.Style != "" || s.Font.Weight != "" || s.Font.Size != nil {
		font := el.CreateElement("sld:Font")
		for _, family := range s.Font.Family {
			cssParameter(font, "font-family", Lit(family))
		}
		if s.Font.Style != "" {
			cssParameter(font, "font-style", Lit(s.Font.Style))
		}
		if s.Font.Weight != "" {
			cssParameter(font, "font-weight", Lit(s.Font.Weight))
		}
		cssParameter(font, "font-size", s.Font.Size)
	}
	switch {
	case s.PointPlacement != nil:
		pp := el.CreateElement("sld:LabelPlacement").CreateElement("sld:PointPlacement")
		p := s.PointPlacement
		if p.AnchorX != nil || p.AnchorY != nil {
			ap := pp.CreateElement("sld:AnchorPoint")
			expressionElement(ap, "sld:AnchorPointX", p.AnchorX)
			expressionElement(ap, "sld:AnchorPointY", p.AnchorY)
		}
		if p.DisplacementX != nil || p.DisplacementY != nil {
			d := pp.CreateElement("sld:Displacement")
			expressionElement(d, "sld:DisplacementX", p.DisplacementX)
			expressionElement(d, "sld:DisplacementY", p.DisplacementY)
		}
		expressionElement(pp, "sld:Rotation", p.Rotation)
	case s.LinePlacement != nil:
		lp := el.CreateElement("sld:LabelPlacement").CreateElement("sld:LinePlacement")
		expressionElement(lp, "sld:PerpendicularOffset", s.LinePlacement.PerpendicularOffset)
	}
	if s.Halo != nil {
		halo := el.CreateElement("sld:Halo")
		expressionElement(halo, "sld:Radius", s.Halo.Radius)
		writeFill(halo, s.Halo.Fill)
	}
	writeFill(el, s.Fill)
	writeGraphic(el, "sld:Graphic", s.Shield)
	expressionElement(el, "sld:Priority", s.Priority)
}

func writeGraphic(parent *etree.Element, name string, g *Graphic) {
	if g == nil {
		return
	}
	el := parent
	if name != "sld:Graphic" {
		// graphic fill and stroke wrap the graphic, point symbolizer does not
		el = parent.CreateElement(name)
	}
	el = el.CreateElement("sld:Graphic")
	for _, sym := range g.Symbols {
		switch sym := sym.(type) {
		case *ExternalGraphic:
			eg := el.CreateElement("sld:ExternalGraphic")
			or := eg.CreateElement("sld:OnlineResource")
			or.CreateAttr("xlink:type", "simple")
			or.CreateAttr("xlink:href", sym.Href)
			textElement(eg, "sld:Format", sym.Format)
		case *Mark:
			mark := el.CreateElement("sld:Mark")
			textElement(mark, "sld:WellKnownName", sym.WellKnownName)
			writeFill(mark, sym.Fill)
			writeStroke(mark, sym.Stroke)
		}
	}
	expressionElement(el, "sld:Opacity", g.Opacity)
	expressionElement(el, "sld:Size", g.Size)
	expressionElement(el, "sld:Rotation", g.Rotation)
}

func writeFill(parent *etree.Element, f *Fill) {
	if f == nil {
		return
	}
	el := parent.CreateElement("sld:Fill")
	writeGraphic(el, "sld:GraphicFill", f.GraphicFill)
	cssParameter(el, "fill", f.Color)
	cssParameter(el, "fill-opacity", f.Opacity)
}

func writeStroke(parent *etree.Element, s *Stroke) {
	if s == nil {
		return
	}
	el := parent.CreateElement("sld:Stroke")
	writeGraphic(el, "sld:GraphicFill", s.GraphicFill)
	writeGraphic(el, "sld:GraphicStroke", s.GraphicStroke)
	cssParameter(el, "stroke", s.Color)
	cssParameter(el, "stroke-width", s.Width)
	cssParameter(el, "stroke-opacity", s.Opacity)
	if s.LineCap != "" {
		cssParameter(el, "stroke-linecap", Lit(s.LineCap))
	}
	if s.LineJoin != "" {
		cssParameter(el, "stroke-linejoin", Lit(s.LineJoin))
	}
	if len(s.DashArray) > 0 {
		cssParameter(el, "stroke-dasharray", Lit(formatFloats(s.DashArray)))
	}
	cssParameter(el, "stroke-dashoffset", s.DashOffset)
}

func cssParameter(parent *etree.Element, name string, e Expression) {
	if e == nil {
		return
	}
	el := parent.CreateElement("sld:CssParameter")
	el.CreateAttr("name", name)
	writeExpression(el, e)
}

func expressionElement(parent *etree.Element, name string, e Expression) {
	if e == nil {
		return
	}
	writeExpression(parent.CreateElement(name), e)
}

// writeExpression puts expression inside element: literals as text,
// everything else as ogc expression elements.
func writeExpression(el *etree.Element, e Expression) {
	switch e := e.(type) {
	case Literal:
		el.SetText(e.Value)
	case PropertyName:
		textElement(el, "ogc:PropertyName", e.Name)
	case Arithmetic:
		op := el.CreateElement("ogc:" + arithmeticElement(e.Op))
		writeExpressionElement(op, e.Left)
		writeExpressionElement(op, e.Right)
	case Function:
		fn := el.CreateElement("ogc:Function")
		fn.CreateAttr("name", e.Name)
		for _, a := range e.Args {
			writeExpressionElement(fn, a)
		}
	}
}

// writeExpressionElement is used inside ogc arithmetic where literals must be
// wrapped into ogc:Literal.
func writeExpressionElement(parent *etree.Element, e Expression) {
	if l, ok := e.(Literal); ok {
		parent.CreateElement("ogc:Literal").SetText(l.Value)
		return
	}
	writeExpression(parent, e)
}

func arithmeticElement(op byte) string {
	switch op {
	case '+':
		return "Add"
	case '-':
		return "Sub"
	case '*':
		return "Mul"
	default:
		return "Div"
	}
}

func textElement(parent *etree.Element, name, text string) {
	if text == "" {
		return
	}
	parent.CreateElement(name).SetText(text)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatFloats(fs []float64) string {
	parts := make([]string, 0, len(fs))
	for _, f := range fs {
		parts = append(parts, formatFloat(f))
	}
	return strings.Join(parts, " ")
}

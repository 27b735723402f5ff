package translate

import (
	"math"

	"geocss/css"
	"geocss/style"
)

type zSymbolizer struct {
	z   int
	sym style.Symbolizer
}

// symbolizers turns merged properties into symbolizers. Every key property
// (fill, stroke, mark, label) produces one symbolizer per comma separated
// value.
func (tr *translation) symbolizers(m merged) []zSymbolizer {
	var out []zSymbolizer
	add := func(i int, sym style.Symbolizer) {
		out = append(out, zSymbolizer{z: tr.zIndex(m.props, i), sym: sym})
	}
	d := m.props
	for i := range d.count("fill") {
		if sym := tr.polygon(m, i); sym != nil {
			add(i, sym)
		}
	}
	for i := range d.count("stroke") {
		if sym := tr.line(m, i); sym != nil {
			add(i, sym)
		}
	}
	for i := range d.count("mark") {
		if sym := tr.point(m, i); sym != nil {
			add(i, sym)
		}
	}
	for i := range d.count("label") {
		if sym := tr.text(m, i); sym != nil {
			add(i, sym)
		}
	}
	return out
}

func (tr *translation) zIndex(d declarations, i int) int {
	v, decl, ok := d.value("z-index", i)
	if !ok {
		return 0
	}
	if len(v) != 1 || v[0].Kind != css.TermNumber || v[0].Number != math.Trunc(v[0].Number) ||
		v[0].Number > math.MaxInt32 || v[0].Number < math.MinInt32 {
		tr.invalid(decl, v, "z-index")
		return 0
	}
	return int(v[0].Number)
}

func (tr *translation) polygon(m merged, i int) *style.PolygonSymbolizer {
	d := m.props
	v, _, _ := d.value("fill", i)
	fill := &style.Fill{}
	if isGraphic(v) {
		if fill.GraphicFill = tr.graphic(m, "fill", i); fill.GraphicFill == nil {
			return nil
		}
	} else {
		if fill.Color = tr.color(d, "fill", i); fill.Color == nil {
			return nil
		}
		fill.Opacity = tr.opacity(d, "fill-opacity", i)
	}
	return &style.PolygonSymbolizer{
		Fill:          fill,
		VendorOptions: tr.vendorOptions(d, kindPolygon, i),
	}
}

func (tr *translation) line(m merged, i int) *style.LineSymbolizer {
	d := m.props
	v, _, _ := d.value("stroke", i)

	var stroke *style.Stroke
	if isGraphic(v) {
		g := tr.graphic(m, "stroke", i)
		if g == nil {
			return nil
		}
		stroke = tr.strokeAttributes(d, i)
		if tr.keyword(d, "stroke-repeat", i) == "stipple" {
			stroke.GraphicFill = g
		} else {
			stroke.GraphicStroke = g
		}
	} else if stroke = tr.stroke(d, i); stroke == nil {
		return nil
	}
	return &style.LineSymbolizer{
		Stroke:        stroke,
		VendorOptions: tr.vendorOptions(d, kindLine, i),
	}
}

// stroke returns solid colour stroke.
func (tr *translation) stroke(d declarations, i int) *style.Stroke {
	color := tr.color(d, "stroke", i)
	if color == nil {
		return nil
	}
	s := tr.strokeAttributes(d, i)
	s.Color = color
	s.Opacity = tr.opacity(d, "stroke-opacity", i)
	return s
}

func (tr *translation) strokeAttributes(d declarations, i int) *style.Stroke {
	return &style.Stroke{
		Width:      tr.number(d, "stroke-width", i),
		LineCap:    tr.keyword(d, "stroke-linecap", i),
		LineJoin:   tr.keyword(d, "stroke-linejoin", i),
		DashArray:  tr.numbers(d, "stroke-dasharray", i),
		DashOffset: tr.number(d, "stroke-dashoffset", i),
	}
}

func (tr *translation) point(m merged, i int) *style.PointSymbolizer {
	v, decl, _ := m.props.value("mark", i)
	if !isGraphic(v) {
		tr.invalid(decl, v, "mark")
		return nil
	}
	g := tr.graphic(m, "mark", i)
	if g == nil {
		return nil
	}
	return &style.PointSymbolizer{
		Graphic:       g,
		VendorOptions: tr.vendorOptions(m.props, kindPoint, i),
	}
}

func (tr *translation) text(m merged, i int) *style.TextSymbolizer {
	d := m.props
	label := tr.expression(d, "label", i)
	if label == nil {
		return nil
	}
	sym := &style.TextSymbolizer{
		Label:    label,
		Priority: tr.expression(d, "-gt-label-priority", i),
	}

	for _, v := range d["font-family"].Values {
		sym.Font.Family = append(sym.Font.Family, termLiteral(v))
	}
	sym.Font.Size = tr.number(d, "font-size", i)
	sym.Font.Style = tr.keyword(d, "font-style", i)
	sym.Font.Weight = tr.keyword(d, "font-weight", i)

	if d.has("font-fill", "font-opacity") {
		sym.Fill = &style.Fill{
			Color:   tr.color(d, "font-fill", i),
			Opacity: tr.opacity(d, "font-opacity", i),
		}
	}
	if d.has("halo-radius", "halo-color") {
		sym.Halo = &style.Halo{Radius: tr.number(d, "halo-radius", i)}
		if d.has("halo-color", "halo-opacity") {
			sym.Halo.Fill = &style.Fill{
				Color:   tr.color(d, "halo-color", i),
				Opacity: tr.opacity(d, "halo-opacity", i),
			}
		}
	}

	anchor := tr.pair(d, "label-anchor", i)
	offset := tr.numbers(d, "label-offset", i)
	rotation := tr.number(d, "label-rotation", i)
	switch {
	case len(offset) == 1 && anchor == nil:
		sym.LinePlacement = &style.LinePlacement{PerpendicularOffset: style.LitFloat(offset[0])}
	case anchor != nil || len(offset) > 0 || rotation != nil:
		pp := &style.PointPlacement{Rotation: rotation}
		if anchor != nil {
			pp.AnchorX, pp.AnchorY = style.LitFloat(anchor[0]), style.LitFloat(anchor[1])
		}
		switch len(offset) {
		case 0:
		case 1:
			pp.DisplacementX, pp.DisplacementY = style.LitFloat(offset[0]), style.LitFloat(offset[0])
		default:
			pp.DisplacementX, pp.DisplacementY = style.LitFloat(offset[0]), style.LitFloat(offset[1])
		}
		sym.PointPlacement = pp
	}

	if d.has("shield") {
		sym.Shield = tr.graphic(m, "shield", i)
	}
	sym.VendorOptions = tr.vendorOptions(d, kindText, i)
	return sym
}

// pair returns two numbers of the value, nil when value is absent or bad.
func (tr *translation) pair(d declarations, name string, i int) []float64 {
	ns := tr.numbers(d, name, i)
	if ns == nil {
		return nil
	}
	if len(ns) != 2 {
		v, decl, _ := d.value(name, i)
		tr.invalid(decl, v, "pair of numbers")
		return nil
	}
	return ns
}

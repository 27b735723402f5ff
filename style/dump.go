package style

import (
	"strings"

	"geocss/utils/debug"
)

// String returns indented dump of the style for debugging.
func (s *Style) String() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "Style")
	tw.Field(1, "name", s.Name)
	tw.Field(1, "title", s.Title)
	for _, fts := range s.FeatureTypeStyles {
		tw.Line(1, "FeatureTypeStyle z=%d", fts.ZIndex)
		tw.Field(2, "type", fts.FeatureTypeName)
		for _, r := range fts.Rules {
			dumpRule(tw, 2, r)
		}
	}
	return tw.String()
}

func dumpRule(tw *debug.TreeWriter, depth int, r *Rule) {
	tw.Line(depth, "Rule")
	tw.Field(depth+1, "name", r.Name)
	tw.Field(depth+1, "title", r.Title)
	if r.Filter != nil {
		tw.Field(depth+1, "filter", r.Filter.String())
	}
	if r.MinScale > 0 {
		tw.Field(depth+1, "min-scale", formatFloat(r.MinScale))
	}
	if r.MaxScale > 0 {
		tw.Field(depth+1, "max-scale", formatFloat(r.MaxScale))
	}
	for _, sym := range r.Symbolizers {
		tw.Line(depth+1, "%sSymbolizer", sym.Kind())
		switch s := sym.(type) {
		case *PointSymbolizer:
			dumpGraphic(tw, depth+2, "graphic", s.Graphic)
		case *LineSymbolizer:
			dumpStroke(tw, depth+2, s.Stroke)
		case *PolygonSymbolizer:
			dumpFill(tw, depth+2, s.Fill)
			dumpStroke(tw, depth+2, s.Stroke)
		case *TextSymbolizer:
			tw.Field(depth+2, "label", exprString(s.Label))
			tw.Field(depth+2, "font-family", strings.Join(s.Font.Family, ","))
			tw.Field(depth+2, "font-size", exprString(s.Font.Size))
			dumpFill(tw, depth+2, s.Fill)
			if s.Halo != nil {
				tw.Field(depth+2, "halo-radius", exprString(s.Halo.Radius))
			}
			dumpGraphic(tw, depth+2, "shield", s.Shield)
		}
		for _, o := range sym.Options() {
			tw.Field(depth+2, "option "+o.Name, o.Value)
		}
	}
}

func dumpGraphic(tw *debug.TreeWriter, depth int, label string, g *Graphic) {
	if g == nil {
		return
	}
	tw.Line(depth, "%s", label)
	for _, sym := range g.Symbols {
		switch sym := sym.(type) {
		case *Mark:
			tw.Field(depth+1, "mark", sym.WellKnownName)
			dumpFill(tw, depth+2, sym.Fill)
			dumpStroke(tw, depth+2, sym.Stroke)
		case *ExternalGraphic:
			tw.Field(depth+1, "external", sym.Href+" "+sym.Format)
		}
	}
	tw.Field(depth+1, "size", exprString(g.Size))
	tw.Field(depth+1, "rotation", exprString(g.Rotation))
	tw.Field(depth+1, "opacity", exprString(g.Opacity))
}

func dumpFill(tw *debug.TreeWriter, depth int, f *Fill) {
	if f == nil {
		return
	}
	tw.Field(depth, "fill", exprString(f.Color))
	tw.Field(depth, "fill-opacity", exprString(f.Opacity))
	dumpGraphic(tw, depth, "fill-graphic", f.GraphicFill)
}

func dumpStroke(tw *debug.TreeWriter, depth int, s *Stroke) {
	if s == nil {
		return
	}
	tw.Field(depth, "stroke", exprString(s.Color))
	tw.Field(depth, "stroke-width", exprString(s.Width))
	tw.Field(depth, "stroke-opacity", exprString(s.Opacity))
	if len(s.DashArray) > 0 {
		tw.Field(depth, "stroke-dasharray", formatFloats(s.DashArray))
	}
	dumpGraphic(tw, depth, "stroke-graphic", s.GraphicStroke)
	dumpGraphic(tw, depth, "stroke-graphic-fill", s.GraphicFill)
}

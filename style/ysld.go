package style

import (
	"fmt"
	"io"
	"strconv"

	yaml "gopkg.in/yaml.v3"
)

type (
	ysldStyle struct {
		Name          string             `yaml:"name,omitempty"`
		Title         string             `yaml:"title,omitempty"`
		Abstract      string             `yaml:"abstract,omitempty"`
		FeatureStyles []ysldFeatureStyle `yaml:"feature-styles"`
	}

	ysldFeatureStyle struct {
		Name        string     `yaml:"name,omitempty"`
		FeatureType string     `yaml:"feature-type,omitempty"`
		Rules       []ysldRule `yaml:"rules"`
	}

	ysldRule struct {
		Name        string           `yaml:"name,omitempty"`
		Title       string           `yaml:"title,omitempty"`
		Abstract    string           `yaml:"abstract,omitempty"`
		Filter      string           `yaml:"filter,omitempty"`
		Scale       []string         `yaml:"scale,omitempty,flow"`
		Symbolizers []map[string]any `yaml:"symbolizers"`
	}

	// ysldProps keeps keys in insertion order, yaml.v3 sorts plain maps.
	ysldProps struct {
		node yaml.Node
	}
)

func newProps() *ysldProps {
	return &ysldProps{node: yaml.Node{Kind: yaml.MappingNode}}
}

func (p *ysldProps) set(key string, value any) {
	if value == nil {
		return
	}
	var v yaml.Node
	if err := v.Encode(value); err != nil {
		// only plain values, slices and nested props are ever passed in
		panic(fmt.Sprintf("ysld: unable to encode %q: %v", key, err))
	}
	p.node.Content = append(p.node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, &v)
}

func (p *ysldProps) expr(key string, e Expression) {
	if e == nil {
		return
	}
	p.set(key, ysldValue(e))
}

func (p *ysldProps) MarshalYAML() (any, error) {
	return &p.node, nil
}

// WriteYSLD writes style in YSLD (YAML) form.
func WriteYSLD(w io.Writer, s *Style) error {
	doc := ysldStyle{
		Name:          s.Name,
		Title:         s.Title,
		Abstract:      s.Abstract,
		FeatureStyles: make([]ysldFeatureStyle, 0, len(s.FeatureTypeStyles)),
	}
	for _, fts := range s.FeatureTypeStyles {
		fs := ysldFeatureStyle{
			Name:        fts.Name,
			FeatureType: fts.FeatureTypeName,
			Rules:       make([]ysldRule, 0, len(fts.Rules)),
		}
		for _, r := range fts.Rules {
			fs.Rules = append(fs.Rules, buildYSLDRule(r))
		}
		doc.FeatureStyles = append(doc.FeatureStyles, fs)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("unable to write YSLD: %w", err)
	}
	return enc.Close()
}

func buildYSLDRule(r *Rule) ysldRule {
	yr := ysldRule{
		Name:        r.Name,
		Title:       r.Title,
		Abstract:    r.Abstract,
		Symbolizers: make([]map[string]any, 0, len(r.Symbolizers)),
	}
	if r.Filter != nil {
		if _, all := r.Filter.(Include); !all {
			yr.Filter = "${" + r.Filter.String() + "}"
		}
	}
	if r.MinScale > 0 || r.MaxScale > 0 {
		yr.Scale = []string{"min", "max"}
		if r.MinScale > 0 {
			yr.Scale[0] = formatFloat(r.MinScale)
		}
		if r.MaxScale > 0 {
			yr.Scale[1] = formatFloat(r.MaxScale)
		}
	}
	for _, sym := range r.Symbolizers {
		yr.Symbolizers = append(yr.Symbolizers, map[string]any{
			ysldSymbolizerKey(sym): buildYSLDSymbolizer(sym),
		})
	}
	return yr
}

func ysldSymbolizerKey(sym Symbolizer) string {
	switch sym.(type) {
	case *PointSymbolizer:
		return "point"
	case *LineSymbolizer:
		return "line"
	case *PolygonSymbolizer:
		return "polygon"
	default:
		return "text"
	}
}

func buildYSLDSymbolizer(sym Symbolizer) *ysldProps {
	p := newProps()
	switch s := sym.(type) {
	case *PointSymbolizer:
		ysldGraphic(p, s.Graphic)
	case *LineSymbolizer:
		ysldStroke(p, s.Stroke)
	case *PolygonSymbolizer:
		ysldFill(p, s.Fill)
		ysldStroke(p, s.Stroke)
	case *TextSymbolizer:
		p.expr("label", s.Label)
		if len(s.Font.Family) > 0 {
			p.set("font-family", s.Font.Family[0])
		}
		if s.Font.Style != "" {
			p.set("font-style", s.Font.Style)
		}
		if s.Font.Weight != "" {
			p.set("font-weight", s.Font.Weight)
		}
		p.expr("font-size", s.Font.Size)
		ysldFill(p, s.Fill)
		if s.Halo != nil {
			halo := newProps()
			halo.expr("radius", s.Halo.Radius)
			ysldFill(halo, s.Halo.Fill)
			p.set("halo", halo)
		}
		if pp := s.PointPlacement; pp != nil {
			p.set("placement", "point")
			if pp.AnchorX != nil || pp.AnchorY != nil {
				p.set("anchor", []any{ysldValue(pp.AnchorX), ysldValue(pp.AnchorY)})
			}
			if pp.DisplacementX != nil || pp.DisplacementY != nil {
				p.set("displacement", []any{ysldValue(pp.DisplacementX), ysldValue(pp.DisplacementY)})
			}
			p.expr("rotation", pp.Rotation)
		}
		if lp := s.LinePlacement; lp != nil {
			p.set("placement", "line")
			p.expr("offset", lp.PerpendicularOffset)
		}
		if s.Shield != nil {
			shield := newProps()
			ysldGraphic(shield, s.Shield)
			p.set("graphic", shield)
		}
		p.expr("priority", s.Priority)
	}
	for _, o := range sym.Options() {
		p.set("x-"+o.Name, o.Value)
	}
	return p
}

func ysldGraphic(p *ysldProps, g *Graphic) {
	if g == nil {
		return
	}
	p.expr("size", g.Size)
	p.expr("opacity", g.Opacity)
	p.expr("rotation", g.Rotation)
	symbols := make([]*ysldProps, 0, len(g.Symbols))
	for _, sym := range g.Symbols {
		inner, outer := newProps(), newProps()
		switch sym := sym.(type) {
		case *Mark:
			inner.set("shape", sym.WellKnownName)
			ysldFill(inner, sym.Fill)
			ysldStroke(inner, sym.Stroke)
			outer.set("mark", inner)
		case *ExternalGraphic:
			inner.set("url", sym.Href)
			inner.set("format", sym.Format)
			outer.set("external", inner)
		}
		symbols = append(symbols, outer)
	}
	p.set("symbols", symbols)
}

func ysldFill(p *ysldProps, f *Fill) {
	if f == nil {
		return
	}
	p.expr("fill-color", f.Color)
	p.expr("fill-opacity", f.Opacity)
	if f.GraphicFill != nil {
		g := newProps()
		ysldGraphic(g, f.GraphicFill)
		p.set("fill-graphic", g)
	}
}

func ysldStroke(p *ysldProps, s *Stroke) {
	if s == nil {
		return
	}
	p.expr("stroke-color", s.Color)
	p.expr("stroke-width", s.Width)
	p.expr("stroke-opacity", s.Opacity)
	if s.LineCap != "" {
		p.set("stroke-linecap", s.LineCap)
	}
	if s.LineJoin != "" {
		p.set("stroke-linejoin", s.LineJoin)
	}
	if len(s.DashArray) > 0 {
		p.set("stroke-dasharray", formatFloats(s.DashArray))
	}
	p.expr("stroke-dashoffset", s.DashOffset)
	if s.GraphicStroke != nil {
		g := newProps()
		ysldGraphic(g, s.GraphicStroke)
		p.set("stroke-graphic", g)
	}
	if s.GraphicFill != nil {
		g := newProps()
		ysldGraphic(g, s.GraphicFill)
		p.set("stroke-graphic-fill", g)
	}
}

// ysldValue renders numeric literals as numbers, other literals as strings
// and everything else as embedded CQL.
func ysldValue(e Expression) any {
	switch e := e.(type) {
	case nil:
		return nil
	case Literal:
		if f, err := strconv.ParseFloat(e.Value, 64); err == nil {
			return f
		}
		return e.Value
	default:
		return "${" + e.String() + "}"
	}
}

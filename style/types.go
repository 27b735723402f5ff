// Package style defines rendering style model produced by the stylesheet
// translator. The model follows OGC Styled Layer Descriptor 1.0 closely, so it
// can be written as SLD or YSLD without loss.
package style

// Style is a complete rendering style for a layer.
type Style struct {
	Name              string
	Title             string
	Abstract          string
	FeatureTypeStyles []*FeatureTypeStyle
}

// Rules returns all rules of all feature type styles in painting order.
func (s *Style) Rules() []*Rule {
	var rules []*Rule
	for _, fts := range s.FeatureTypeStyles {
		rules = append(rules, fts.Rules...)
	}
	return rules
}

// ExternalGraphics returns every external graphic referenced by the style, in
// painting order. Returned values are shared with the style so hrefs could be
// rewritten in place.
func (s *Style) ExternalGraphics() []*ExternalGraphic {
	var res []*ExternalGraphic
	var graphic func(g *Graphic)
	fill := func(f *Fill) {
		if f != nil {
			graphic(f.GraphicFill)
		}
	}
	stroke := func(st *Stroke) {
		if st != nil {
			graphic(st.GraphicStroke)
			graphic(st.GraphicFill)
		}
	}
	graphic = func(g *Graphic) {
		if g == nil {
			return
		}
		for _, sym := range g.Symbols {
			switch sym := sym.(type) {
			case *ExternalGraphic:
				res = append(res, sym)
			case *Mark:
				fill(sym.Fill)
				stroke(sym.Stroke)
			}
		}
	}

	for _, r := range s.Rules() {
		for _, sym := range r.Symbolizers {
			switch sym := sym.(type) {
			case *PointSymbolizer:
				graphic(sym.Graphic)
			case *LineSymbolizer:
				stroke(sym.Stroke)
			case *PolygonSymbolizer:
				fill(sym.Fill)
				stroke(sym.Stroke)
			case *TextSymbolizer:
				fill(sym.Fill)
				graphic(sym.Shield)
			}
		}
	}
	return res
}

// FeatureTypeStyle groups rules painted together in a single pass. Feature
// type styles are painted in order, so z-index levels map to separate ones.
type FeatureTypeStyle struct {
	Name            string
	FeatureTypeName string // empty - applies to any feature type
	ZIndex          int    // informational, order of FeatureTypeStyles is what matters
	Rules           []*Rule
}

// Rule selects features with filter and scale range and paints them with
// symbolizers.
type Rule struct {
	Name     string
	Title    string
	Abstract string
	Filter   Filter // nil matches everything
	// Scale denominators, zero means unbounded.
	MinScale    float64
	MaxScale    float64
	Symbolizers []Symbolizer
}

// VendorOption is a renderer specific extension attached to a symbolizer.
type VendorOption struct {
	Name  string
	Value string
}

// VendorOptions keeps options in order of appearance.
type VendorOptions []VendorOption

// Get returns value of the named option.
func (vo VendorOptions) Get(name string) (string, bool) {
	for _, o := range vo {
		if o.Name == name {
			return o.Value, true
		}
	}
	return "", false
}

// Set adds option or replaces value of already present one.
func (vo *VendorOptions) Set(name, value string) {
	for i := range *vo {
		if (*vo)[i].Name == name {
			(*vo)[i].Value = value
			return
		}
	}
	*vo = append(*vo, VendorOption{Name: name, Value: value})
}

// Symbolizer describes how to paint a feature.
type Symbolizer interface {
	// Kind returns symbolizer name as used in SLD without "Symbolizer" suffix.
	Kind() string
	// Options returns vendor options of the symbolizer.
	Options() VendorOptions
}

// Fill describes area filling.
type Fill struct {
	Color       Expression
	Opacity     Expression
	GraphicFill *Graphic
}

// Stroke describes line drawing.
type Stroke struct {
	Color         Expression
	Width         Expression
	Opacity       Expression
	LineCap       string
	LineJoin      string
	DashArray     []float64
	DashOffset    Expression
	GraphicStroke *Graphic
	GraphicFill   *Graphic
}

// Mark is a well known shape (circle, square, shape://vertline...) with its
// own fill and stroke.
type Mark struct {
	WellKnownName string
	Fill          *Fill
	Stroke        *Stroke
}

// ExternalGraphic references an image by URL.
type ExternalGraphic struct {
	Href   string
	Format string
}

// GraphicSymbol is either *Mark or *ExternalGraphic. Renderer picks the first
// one it is able to paint.
type GraphicSymbol interface {
	graphicSymbol()
}

func (*Mark) graphicSymbol()            {}
func (*ExternalGraphic) graphicSymbol() {}

// Graphic is a point-like symbol.
type Graphic struct {
	Symbols  []GraphicSymbol
	Opacity  Expression
	Size     Expression
	Rotation Expression
}

// PointSymbolizer paints a graphic at feature location.
type PointSymbolizer struct {
	Graphic       *Graphic
	VendorOptions VendorOptions
}

// LineSymbolizer paints feature geometry as a line.
type LineSymbolizer struct {
	Stroke        *Stroke
	VendorOptions VendorOptions
}

// PolygonSymbolizer paints feature geometry as a polygon.
type PolygonSymbolizer struct {
	Fill          *Fill
	Stroke        *Stroke
	VendorOptions VendorOptions
}

// Font selects typeface for labels.
type Font struct {
	Family []string
	Style  string
	Weight string
	Size   Expression
}

// Halo is an outline drawn around label glyphs.
type Halo struct {
	Radius Expression
	Fill   *Fill
}

// PointPlacement positions label relative to a point.
type PointPlacement struct {
	AnchorX, AnchorY             Expression
	DisplacementX, DisplacementY Expression
	Rotation                     Expression
}

// LinePlacement positions label along a line.
type LinePlacement struct {
	PerpendicularOffset Expression
}

// TextSymbolizer paints labels. At most one of PointPlacement and
// LinePlacement is set. Shield is a graphic painted behind the label.
type TextSymbolizer struct {
	Label          Expression
	Font           Font
	Fill           *Fill
	Halo           *Halo
	PointPlacement *PointPlacement
	LinePlacement  *LinePlacement
	Shield         *Graphic
	Priority       Expression
	VendorOptions  VendorOptions
}

func (s *PointSymbolizer) Kind() string   { return "Point" }
func (s *LineSymbolizer) Kind() string    { return "Line" }
func (s *PolygonSymbolizer) Kind() string { return "Polygon" }
func (s *TextSymbolizer) Kind() string    { return "Text" }

func (s *PointSymbolizer) Options() VendorOptions   { return s.VendorOptions }
func (s *LineSymbolizer) Options() VendorOptions    { return s.VendorOptions }
func (s *PolygonSymbolizer) Options() VendorOptions { return s.VendorOptions }
func (s *TextSymbolizer) Options() VendorOptions    { return s.VendorOptions }

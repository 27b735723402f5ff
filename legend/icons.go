package legend

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/srwiley/rasterx"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"geocss/resource"
	"geocss/style"
)

// fallback colour for values computed per feature
var featureDependent = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// icon paints rule symbolizers over each other.
func (r *Renderer) icon(ctx context.Context, rule *style.Rule) *image.NRGBA {
	size := r.opts.IconSize
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for _, sym := range rule.Symbolizers {
		switch s := sym.(type) {
		case *style.PolygonSymbolizer:
			r.drawPolygon(ctx, img, s)
		case *style.LineSymbolizer:
			r.drawLine(ctx, img, s.Stroke)
		case *style.PointSymbolizer:
			r.drawGraphic(ctx, img, s.Graphic, float64(size)/2, float64(size)/2, float64(size))
		case *style.TextSymbolizer:
			r.drawText(img, s)
		}
	}
	return img
}

func (r *Renderer) drawPolygon(ctx context.Context, img *image.NRGBA, s *style.PolygonSymbolizer) {
	size := float64(img.Bounds().Dx())
	if s.Fill != nil {
		if s.Fill.GraphicFill != nil {
			r.drawGraphic(ctx, img, s.Fill.GraphicFill, size/2, size/2, size-2)
		} else {
			w, h := img.Bounds().Dx(), img.Bounds().Dy()
			filler := rasterx.NewFiller(w, h, rasterx.NewScannerGV(w, h, img, img.Bounds()))
			filler.SetColor(fillColor(s.Fill))
			rasterx.AddRect(1, 1, size-1, size-1, 0, filler)
			filler.Draw()
		}
	}
	if s.Stroke != nil {
		r.strokePath(img, s.Stroke, []fixed.Point26_6{
			rasterx.ToFixedP(1, 1),
			rasterx.ToFixedP(size-1, 1),
			rasterx.ToFixedP(size-1, size-1),
			rasterx.ToFixedP(1, size-1),
		}, true)
	}
}

func (r *Renderer) drawLine(ctx context.Context, img *image.NRGBA, s *style.Stroke) {
	if s == nil {
		return
	}
	size := float64(img.Bounds().Dx())
	if g := s.GraphicStroke; g != nil {
		step := size / 3
		for x := step / 2; x < size; x += step {
			r.drawGraphic(ctx, img, g, x, size/2, step)
		}
		return
	}
	r.strokePath(img, s, []fixed.Point26_6{
		rasterx.ToFixedP(1, size-2),
		rasterx.ToFixedP(size/3, size/3),
		rasterx.ToFixedP(2*size/3, 2*size/3),
		rasterx.ToFixedP(size-1, 2),
	}, false)
}

func (r *Renderer) strokePath(img *image.NRGBA, s *style.Stroke, points []fixed.Point26_6, closed bool) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	width := literalFloat(s.Width, 1)
	width = min(max(width, 0.5), float64(w)/3)

	stroker := rasterx.NewStroker(w, h, rasterx.NewScannerGV(w, h, img, img.Bounds()))
	stroker.SetStroke(fixed.Int26_6(width*64), fixed.Int26_6(4*64), capFunc(s.LineCap), nil, rasterx.RoundGap, joinMode(s.LineJoin))
	stroker.SetColor(strokeColor(s))
	stroker.Start(points[0])
	for _, p := range points[1:] {
		stroker.Line(p)
	}
	stroker.Stop(closed)
	stroker.Draw()
}

func capFunc(c string) rasterx.CapFunc {
	switch c {
	case "round":
		return rasterx.RoundCap
	case "square":
		return rasterx.SquareCap
	}
	return rasterx.ButtCap
}

func joinMode(j string) rasterx.JoinMode {
	switch j {
	case "round":
		return rasterx.Round
	case "bevel":
		return rasterx.Bevel
	}
	return rasterx.Miter
}

// drawGraphic paints the first symbol renderer can handle centered at cx, cy.
func (r *Renderer) drawGraphic(ctx context.Context, img *image.NRGBA, g *style.Graphic, cx, cy, maxSize float64) {
	if g == nil {
		return
	}
	size := min(literalFloat(g.Size, maxSize*0.75), maxSize)
	opacity := literalFloat(g.Opacity, 1)
	for _, sym := range g.Symbols {
		switch sym := sym.(type) {
		case *style.Mark:
			if drawMark(img, sym, cx, cy, size) {
				return
			}
		case *style.ExternalGraphic:
			ext := r.external(ctx, sym, int(math.Round(size)))
			if ext == nil {
				continue
			}
			pt := image.Pt(int(cx)-ext.Bounds().Dx()/2, int(cy)-ext.Bounds().Dy()/2)
			*img = *imaging.Overlay(img, ext, pt, opacity)
			return
		}
	}
}

// drawMark paints well known shape, false is returned for unknown shapes.
func drawMark(img *image.NRGBA, m *style.Mark, cx, cy, size float64) bool {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	half := size / 2

	var path []fixed.Point26_6
	circle := false
	switch strings.ToLower(m.WellKnownName) {
	case "circle":
		circle = true
	case "square":
		path = polygon(cx, cy, half*math.Sqrt2, 4, math.Pi/4)
	case "triangle":
		path = polygon(cx, cy, half, 3, -math.Pi/2)
	case "star":
		path = star(cx, cy, half, half*0.4)
	case "cross", "shape://plus":
		path = cross(cx, cy, half, half/3, 0)
	case "x", "shape://times":
		path = cross(cx, cy, half, half/3, math.Pi/4)
	default:
		return false
	}

	addShape := func(a rasterx.Adder) {
		if circle {
			rasterx.AddCircle(cx, cy, half, a)
			return
		}
		a.Start(path[0])
		for _, p := range path[1:] {
			a.Line(p)
		}
		a.Stop(true)
	}

	if m.Fill != nil {
		filler := rasterx.NewFiller(w, h, rasterx.NewScannerGV(w, h, img, img.Bounds()))
		filler.SetColor(fillColor(m.Fill))
		addShape(filler)
		filler.Draw()
	}
	if m.Stroke != nil {
		stroker := rasterx.NewStroker(w, h, rasterx.NewScannerGV(w, h, img, img.Bounds()))
		width := min(max(literalFloat(m.Stroke.Width, 1), 0.5), half)
		stroker.SetStroke(fixed.Int26_6(width*64), fixed.Int26_6(4*64), rasterx.ButtCap, nil, rasterx.RoundGap, rasterx.Miter)
		stroker.SetColor(strokeColor(m.Stroke))
		addShape(stroker)
		stroker.Draw()
	}
	if m.Fill == nil && m.Stroke == nil {
		// unstyled marks are painted grey
		filler := rasterx.NewFiller(w, h, rasterx.NewScannerGV(w, h, img, img.Bounds()))
		filler.SetColor(featureDependent)
		addShape(filler)
		filler.Draw()
	}
	return true
}

func polygon(cx, cy, radius float64, n int, start float64) []fixed.Point26_6 {
	pts := make([]fixed.Point26_6, 0, n)
	for i := range n {
		a := start + 2*math.Pi*float64(i)/float64(n)
		pts = append(pts, rasterx.ToFixedP(cx+radius*math.Cos(a), cy+radius*math.Sin(a)))
	}
	return pts
}

func star(cx, cy, outer, inner float64) []fixed.Point26_6 {
	pts := make([]fixed.Point26_6, 0, 10)
	for i := range 10 {
		radius := outer
		if i%2 == 1 {
			radius = inner
		}
		a := -math.Pi/2 + math.Pi*float64(i)/5
		pts = append(pts, rasterx.ToFixedP(cx+radius*math.Cos(a), cy+radius*math.Sin(a)))
	}
	return pts
}

// cross returns outline of a plus sign rotated by angle.
func cross(cx, cy, half, arm, angle float64) []fixed.Point26_6 {
	a := arm / 2
	outline := [][2]float64{
		{-a, -half}, {a, -half}, {a, -a}, {half, -a}, {half, a}, {a, a},
		{a, half}, {-a, half}, {-a, a}, {-half, a}, {-half, -a}, {-a, -a},
	}
	sin, cos := math.Sincos(angle)
	pts := make([]fixed.Point26_6, 0, len(outline))
	for _, p := range outline {
		x := p[0]*cos - p[1]*sin
		y := p[0]*sin + p[1]*cos
		pts = append(pts, rasterx.ToFixedP(cx+x, cy+y))
	}
	return pts
}

func (r *Renderer) drawText(img *image.NRGBA, s *style.TextSymbolizer) {
	c := color.Color(color.Black)
	if s.Fill != nil {
		c = fillColor(s.Fill)
	}
	face := basicfont.Face7x13
	size := img.Bounds().Dx()
	text := "Aa"
	if font.MeasureString(face, text).Ceil() > size {
		text = "A"
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
	}
	adv := d.MeasureString(text).Ceil()
	d.Dot = fixed.P((size-adv)/2, (size+face.Ascent)/2)
	d.DrawString(text)
}

// external loads and decodes external graphic fitted into size x size box.
func (r *Renderer) external(ctx context.Context, g *style.ExternalGraphic, size int) image.Image {
	size = max(size, 1)
	key := g.Href + "@" + strconv.Itoa(size)
	if img, ok := r.graphics[key]; ok {
		return img
	}
	img := r.loadExternal(ctx, g, size)
	r.graphics[key] = img
	return img
}

func (r *Renderer) loadExternal(ctx context.Context, g *style.ExternalGraphic, size int) image.Image {
	if r.opts.Loader == nil {
		return nil
	}
	u, err := resource.Resolve(nil, g.Href)
	if err != nil {
		r.log.Debug("Bad graphic url", zap.String("url", g.Href), zap.Error(err))
		return nil
	}
	data, err := r.opts.Loader.Load(ctx, u)
	if err != nil {
		r.log.Warn("Unable to load graphic", zap.String("url", g.Href), zap.Error(err))
		return nil
	}

	format := g.Format
	if sniffed := resource.SniffMIME(data); sniffed != "" {
		format = sniffed
	}
	if format == "image/svg+xml" {
		img, err := rasterizeSVG(data, size, size)
		if err != nil {
			r.log.Warn("Unable to rasterize graphic", zap.String("url", g.Href), zap.Error(err))
			return nil
		}
		return img
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		r.log.Warn("Unable to decode graphic", zap.String("url", g.Href), zap.String("format", format), zap.Error(err))
		return nil
	}
	return imaging.Fit(img, size, size, imaging.Lanczos)
}

func literalFloat(e style.Expression, def float64) float64 {
	if v, ok := style.LiteralFloat(e); ok {
		return v
	}
	return def
}

func fillColor(f *style.Fill) color.Color {
	return withOpacity(parseHex(f.Color, featureDependent), literalFloat(f.Opacity, 1))
}

func strokeColor(s *style.Stroke) color.Color {
	return withOpacity(parseHex(s.Color, color.NRGBA{A: 255}), literalFloat(s.Opacity, 1))
}

// parseHex converts #rrggbb literal to colour, def is used for anything else.
func parseHex(e style.Expression, def color.NRGBA) color.NRGBA {
	s, ok := style.LiteralString(e)
	if !ok || len(s) != 7 || s[0] != '#' {
		return def
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return def
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(math.Round(255 * min(max(opacity, 0), 1)))
	return c
}

// Package legend renders legend image for a style: one row per rule with an
// icon painted by the rule symbolizers and the rule title next to it.
package legend

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"geocss/resource"
	"geocss/style"
)

// Options controls legend layout.
type Options struct {
	IconSize   int // pixels, square icons
	Width      int // pixels, whole legend
	Padding    int
	Background color.Color
	TextColor  color.Color
	Grayscale  bool
	// Loader fetches external graphics, they are skipped when nil.
	Loader resource.Loader
}

// DefaultOptions returns options used for zero fields.
func DefaultOptions() Options {
	return Options{
		IconSize:   16,
		Width:      240,
		Padding:    4,
		Background: color.White,
		TextColor:  color.Black,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.IconSize <= 0 {
		o.IconSize = def.IconSize
	}
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Padding <= 0 {
		o.Padding = def.Padding
	}
	if o.Background == nil {
		o.Background = def.Background
	}
	if o.TextColor == nil {
		o.TextColor = def.TextColor
	}
	return o
}

// Renderer draws legends.
type Renderer struct {
	log  *zap.Logger
	opts Options
	// decoded external graphics by url
	graphics map[string]image.Image
}

// NewRenderer creates legend renderer.
func NewRenderer(log *zap.Logger, opts Options) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{
		log:      log.Named("legend"),
		opts:     opts.withDefaults(),
		graphics: make(map[string]image.Image),
	}
}

// Render draws legend for style with default renderer.
func Render(ctx context.Context, st *style.Style, opts Options) (image.Image, error) {
	return NewRenderer(nil, opts).Render(ctx, st)
}

// Render draws legend for style. Style without rules produces an error.
func (r *Renderer) Render(ctx context.Context, st *style.Style) (image.Image, error) {
	rules := st.Rules()
	if len(rules) == 0 {
		return nil, fmt.Errorf("style %q has no rules", st.Name)
	}

	o := r.opts
	rowH := max(o.IconSize, basicfont.Face7x13.Height) + o.Padding
	img := imaging.New(o.Width, o.Padding+rowH*len(rules), o.Background)

	for i, rule := range rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		top := o.Padding + i*rowH
		icon := r.icon(ctx, rule)
		img = imaging.Overlay(img, icon, image.Pt(o.Padding, top), 1.0)

		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(o.TextColor),
			Face: basicfont.Face7x13,
			Dot: fixed.P(
				2*o.Padding+o.IconSize,
				top+(o.IconSize+basicfont.Face7x13.Ascent)/2,
			),
		}
		d.DrawString(fitText(ruleTitle(rule, i), o.Width-3*o.Padding-o.IconSize))
	}

	r.log.Debug("Legend rendered", zap.String("style", st.Name), zap.Int("rows", len(rules)))
	if o.Grayscale {
		return imaging.Grayscale(img), nil
	}
	return img, nil
}

// Encode writes legend as PNG.
func Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
}

func ruleTitle(rule *style.Rule, i int) string {
	switch {
	case rule.Title != "":
		return rule.Title
	case rule.Name != "":
		return rule.Name
	case rule.Filter != nil:
		return rule.Filter.String()
	}
	return "rule " + strconv.Itoa(i+1)
}

// fitText shortens text to fit into width pixels.
func fitText(s string, width int) string {
	face := basicfont.Face7x13
	if font.MeasureString(face, s).Ceil() <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		t := string(runes) + "..."
		if font.MeasureString(face, t).Ceil() <= width {
			return t
		}
	}
	return ""
}

// HexColor parses "#rrggbb" colour, anything else yields def.
func HexColor(s string, def color.Color) color.Color {
	if c := parseHex(style.Lit(s), color.NRGBA{}); c.A != 0 {
		return c
	}
	return def
}

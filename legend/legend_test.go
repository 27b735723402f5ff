package legend

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"testing"

	"go.uber.org/zap/zaptest"

	"geocss/resource"
	"geocss/style"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50"><rect width="100" height="50" fill="#0000ff"/></svg>`

func sampleStyle() *style.Style {
	return &style.Style{
		Name: "sample",
		FeatureTypeStyles: []*style.FeatureTypeStyle{{
			Rules: []*style.Rule{
				{
					Title: "Lakes",
					Symbolizers: []style.Symbolizer{&style.PolygonSymbolizer{
						Fill: &style.Fill{Color: style.Lit("#ff0000")},
					}},
				},
				{
					Filter: style.Compare{Property: "kind", Op: style.OpEQ, Value: "road"},
					Symbolizers: []style.Symbolizer{&style.LineSymbolizer{
						Stroke: &style.Stroke{Color: style.Lit("#000000"), Width: style.LitFloat(2)},
					}},
				},
				{
					Symbolizers: []style.Symbolizer{
						&style.PointSymbolizer{Graphic: &style.Graphic{
							Size: style.LitFloat(10),
							Symbols: []style.GraphicSymbol{&style.Mark{
								WellKnownName: "star",
								Fill:          &style.Fill{Color: style.Lit("#00ff00")},
							}},
						}},
					},
				},
				{
					Title: "Icons",
					Symbolizers: []style.Symbolizer{&style.PointSymbolizer{Graphic: &style.Graphic{
						Symbols: []style.GraphicSymbol{&style.ExternalGraphic{Href: "http://h/icon.svg", Format: "image/svg+xml"}},
					}}},
				},
			},
		}},
	}
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestRender(t *testing.T) {
	var loads int
	loader := resource.LoaderFunc(func(_ context.Context, u *url.URL) ([]byte, error) {
		loads++
		if u.String() != "http://h/icon.svg" {
			return nil, errors.New("unexpected url " + u.String())
		}
		return []byte(testSVG), nil
	})

	r := NewRenderer(zaptest.NewLogger(t), Options{Loader: loader})
	img, err := r.Render(context.Background(), sampleStyle())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	// 4 rows of max(16, 13) + 4 pixels below 4 pixels of padding
	if img.Bounds().Dx() != 240 || img.Bounds().Dy() != 84 {
		t.Fatalf("unexpected bounds: %v", img.Bounds())
	}
	if c := nrgbaAt(img, 12, 12); c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("polygon icon centre = %v, want red", c)
	}
	if c := nrgbaAt(img, 1, 1); c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("background = %v, want white", c)
	}
	if c := nrgbaAt(img, 12, 52); c.G != 255 || c.R != 0 {
		t.Errorf("star icon centre = %v, want green", c)
	}
	if c := nrgbaAt(img, 12, 72); c.B != 255 || c.R != 0 {
		t.Errorf("external graphic centre = %v, want blue", c)
	}
	if loads != 1 {
		t.Errorf("graphic loaded %d times, want 1", loads)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Errorf("encoded legend is not PNG: %v", err)
	}
}

func TestRender_Grayscale(t *testing.T) {
	img, err := Render(context.Background(), sampleStyle(), Options{Grayscale: true})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	c := nrgbaAt(img, 12, 12)
	if c.R != c.G || c.G != c.B {
		t.Errorf("pixel %v is not grey", c)
	}
}

func TestRender_NoRules(t *testing.T) {
	if _, err := Render(context.Background(), &style.Style{Name: "empty"}, Options{}); err == nil {
		t.Error("expected error for style without rules")
	}
}

func TestRender_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Render(ctx, sampleStyle(), Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIcon_Text(t *testing.T) {
	r := NewRenderer(zaptest.NewLogger(t), Options{})
	icon := r.icon(context.Background(), &style.Rule{Symbolizers: []style.Symbolizer{
		&style.TextSymbolizer{Label: style.Prop("name"), Fill: &style.Fill{Color: style.Lit("#ff0000")}},
	}})

	var painted int
	b := icon.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if c := icon.NRGBAAt(x, y); c.A > 0 {
				if c.R != 255 {
					t.Fatalf("pixel %d,%d = %v, want red", x, y, c)
				}
				painted++
			}
		}
	}
	if painted == 0 {
		t.Error("text icon is empty")
	}
}

func TestRuleTitle(t *testing.T) {
	tests := []struct {
		name string
		rule style.Rule
		want string
	}{
		{"title", style.Rule{Title: "Roads", Name: "r"}, "Roads"},
		{"name", style.Rule{Name: "r"}, "r"},
		{"filter", style.Rule{Filter: style.IsNull{Property: "a"}}, "a IS NULL"},
		{"index", style.Rule{}, "rule 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ruleTitle(&tt.rule, 2); got != tt.want {
				t.Errorf("ruleTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFitText(t *testing.T) {
	if got := fitText("short", 100); got != "short" {
		t.Errorf("fitText() = %q", got)
	}
	// 7 pixels per glyph
	if got := fitText("a rather long title", 70); got != "a rathe..." {
		t.Errorf("fitText() = %q", got)
	}
}

func TestRasterizeSVG(t *testing.T) {
	t.Run("intrinsic", func(t *testing.T) {
		img, err := rasterizeSVG([]byte(testSVG), 0, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
			t.Fatalf("unexpected bounds: %v", img.Bounds())
		}
	})

	t.Run("fit_box", func(t *testing.T) {
		img, err := rasterizeSVG([]byte(testSVG), 16, 16)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
			t.Fatalf("unexpected bounds: %v", img.Bounds())
		}
	})
}

func TestParseHex(t *testing.T) {
	def := color.NRGBA{1, 2, 3, 255}
	tests := []struct {
		in   style.Expression
		want color.NRGBA
	}{
		{style.Lit("#102030"), color.NRGBA{0x10, 0x20, 0x30, 255}},
		{style.Prop("colour"), def},
		{style.Lit("red"), def},
		{nil, def},
	}
	for _, tt := range tests {
		if got := parseHex(tt.in, def); got != tt.want {
			t.Errorf("parseHex(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHexColor(t *testing.T) {
	if got := HexColor("#336699", color.Black); got != (color.NRGBA{0x33, 0x66, 0x99, 255}) {
		t.Errorf("HexColor() = %v", got)
	}
	if got := HexColor("", color.White); got != color.White {
		t.Errorf("HexColor(\"\") = %v, want default", got)
	}
}

package translate_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"geocss/css"
	"geocss/resource"
	"geocss/style"
	"geocss/translate"
)

func run(t *testing.T, src string, base *url.URL, opts ...translate.Option) *translate.Result {
	t.Helper()
	log := zaptest.NewLogger(t)
	sheet, err := css.NewParser(log).Parse([]byte(src), "test.css")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	res, err := translate.NewTranslator(log, opts...).Translate(context.Background(), sheet, base)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	return res
}

func filterString(f style.Filter) string {
	if f == nil {
		return ""
	}
	return f.String()
}

func literal(e style.Expression) string {
	if e == nil {
		return ""
	}
	return e.String()
}

func TestTranslate_CatchAll(t *testing.T) {
	res := run(t, `* { stroke: black }`, nil)

	st := res.Style
	if len(st.FeatureTypeStyles) != 1 {
		t.Fatalf("expected 1 feature type style, got %d", len(st.FeatureTypeStyles))
	}
	fts := st.FeatureTypeStyles[0]
	if fts.FeatureTypeName != "" {
		t.Errorf("FeatureTypeName = %q, want empty", fts.FeatureTypeName)
	}
	if len(fts.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(fts.Rules))
	}
	rule := fts.Rules[0]
	if rule.Filter != nil {
		t.Errorf("Filter = %v, want nil", rule.Filter)
	}
	if rule.MinScale != 0 || rule.MaxScale != 0 {
		t.Errorf("scale range = [%v, %v), want unbounded", rule.MinScale, rule.MaxScale)
	}
	if len(rule.Symbolizers) != 1 {
		t.Fatalf("expected 1 symbolizer, got %d", len(rule.Symbolizers))
	}
	line, ok := rule.Symbolizers[0].(*style.LineSymbolizer)
	if !ok {
		t.Fatalf("symbolizer is %T, want *style.LineSymbolizer", rule.Symbolizers[0])
	}
	if got := literal(line.Stroke.Color); got != "'#000000'" {
		t.Errorf("stroke colour = %s, want '#000000'", got)
	}
}

func TestTranslate_OverlappingRules(t *testing.T) {
	res := run(t, `
[a > 1] { fill: red }
[b = 2] { stroke: blue }
`, nil)

	rules := res.Style.Rules()
	want := []struct {
		filter string
		kinds  []string
	}{
		{"a > 1 AND b = 2", []string{"Polygon", "Line"}},
		{"a > 1 AND b <> 2", []string{"Polygon"}},
		{"b = 2 AND a <= 1", []string{"Line"}},
	}
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d:\n%s", len(want), len(rules), res.Style)
	}
	for i, w := range want {
		if got := filterString(rules[i].Filter); got != w.filter {
			t.Errorf("rule %d filter = %q, want %q", i, got, w.filter)
		}
		var kinds []string
		for _, s := range rules[i].Symbolizers {
			kinds = append(kinds, s.Kind())
		}
		if strings.Join(kinds, ",") != strings.Join(w.kinds, ",") {
			t.Errorf("rule %d symbolizers = %v, want %v", i, kinds, w.kinds)
		}
	}
}

func TestTranslate_ContradictoryRules(t *testing.T) {
	res := run(t, `
[a = 1] { fill: red }
[a = 2] { stroke: blue }
`, nil)

	rules := res.Style.Rules()
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d:\n%s", len(rules), res.Style)
	}
	if got := filterString(rules[0].Filter); got != "a = 1" {
		t.Errorf("first filter = %q", got)
	}
	if got := filterString(rules[1].Filter); got != "a = 2" {
		t.Errorf("second filter = %q", got)
	}
}

func TestTranslate_ComplementaryRules(t *testing.T) {
	res := run(t, `
[a < 5] { stroke: red }
[a >= 5] { stroke: blue }
[b = 1] { fill: green }
`, nil)

	rules := res.Style.Rules()
	if len(rules) != 4 {
		t.Fatalf("expected 4 rules, got %d:\n%s", len(rules), res.Style)
	}
	for i, r := range rules {
		got := filterString(r.Filter)
		if strings.Contains(got, "a < 5") && strings.Contains(got, "a >= 5") {
			t.Errorf("rule %d has contradictory filter %q", i, got)
		}
		if len(r.Symbolizers) == 1 && r.Symbolizers[0].Kind() == "Polygon" {
			t.Errorf("rule %d filter %q selects features outside of both complementary rules", i, got)
		}
	}
}

func TestTranslate_ExcludedConjunction(t *testing.T) {
	res := run(t, `
[a > 1] { fill: red }
[b = 2][c = 3] { stroke: blue }
`, nil)

	var filters []string
	for _, r := range res.Style.Rules() {
		filters = append(filters, filterString(r.Filter))
	}
	want := "a > 1 AND (b <> 2 OR c <> 3)"
	found := false
	for _, f := range filters {
		if f == want {
			found = true
		}
	}
	if !found {
		t.Errorf("no rule with filter %q among %q", want, filters)
	}
}

func TestTranslate_MoreSpecificWins(t *testing.T) {
	res := run(t, `
* { stroke: black; stroke-width: 1 }
[kind = 'highway'] { stroke-width: 3 }
`, nil)

	rules := res.Style.Rules()
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d:\n%s", len(rules), res.Style)
	}
	tests := []struct {
		filter string
		width  string
	}{
		{"kind = 'highway'", "3"},
		{"kind <> 'highway'", "1"},
	}
	for i, tt := range tests {
		if got := filterString(rules[i].Filter); got != tt.filter {
			t.Errorf("rule %d filter = %q, want %q", i, got, tt.filter)
		}
		line := rules[i].Symbolizers[0].(*style.LineSymbolizer)
		if got := literal(line.Stroke.Width); got != tt.width {
			t.Errorf("rule %d width = %s, want %s", i, got, tt.width)
		}
		if got := literal(line.Stroke.Color); got != "'#000000'" {
			t.Errorf("rule %d colour = %s", i, got)
		}
	}
}

func TestTranslate_Scale(t *testing.T) {
	t.Run("upper bound", func(t *testing.T) {
		res := run(t, `[@scale < 10000] { stroke: black }`, nil)
		rules := res.Style.Rules()
		if len(rules) != 1 {
			t.Fatalf("expected 1 rule, got %d", len(rules))
		}
		if rules[0].MinScale != 0 || rules[0].MaxScale != 10000 {
			t.Errorf("scale range = [%v, %v), want [0, 10000)", rules[0].MinScale, rules[0].MaxScale)
		}
	})

	t.Run("overlapping", func(t *testing.T) {
		res := run(t, `
* { stroke: black }
[@sd > 1k] { stroke-width: 2 }
`, nil)
		rules := res.Style.Rules()
		if len(rules) != 2 {
			t.Fatalf("expected 2 rules, got %d:\n%s", len(rules), res.Style)
		}
		if rules[0].MinScale != 0 || rules[0].MaxScale != 1000 {
			t.Errorf("first range = [%v, %v)", rules[0].MinScale, rules[0].MaxScale)
		}
		if w := rules[0].Symbolizers[0].(*style.LineSymbolizer).Stroke.Width; w != nil {
			t.Errorf("first rule width = %v, want none", w)
		}
		if rules[1].MinScale != 1000 || rules[1].MaxScale != 0 {
			t.Errorf("second range = [%v, %v)", rules[1].MinScale, rules[1].MaxScale)
		}
		if w := literal(rules[1].Symbolizers[0].(*style.LineSymbolizer).Stroke.Width); w != "2" {
			t.Errorf("second rule width = %s, want 2", w)
		}
	})
}

func TestTranslate_ZIndex(t *testing.T) {
	res := run(t, `* { stroke: black, red; stroke-width: 5, 3; z-index: 0, 1 }`, nil)

	ftss := res.Style.FeatureTypeStyles
	if len(ftss) != 2 {
		t.Fatalf("expected 2 feature type styles, got %d", len(ftss))
	}
	tests := []struct {
		z     int
		color string
		width string
	}{
		{0, "'#000000'", "5"},
		{1, "'#ff0000'", "3"},
	}
	for i, tt := range tests {
		fts := ftss[i]
		if fts.ZIndex != tt.z {
			t.Errorf("fts %d z-index = %d, want %d", i, fts.ZIndex, tt.z)
		}
		line := fts.Rules[0].Symbolizers[0].(*style.LineSymbolizer)
		if got := literal(line.Stroke.Color); got != tt.color {
			t.Errorf("fts %d colour = %s, want %s", i, got, tt.color)
		}
		if got := literal(line.Stroke.Width); got != tt.width {
			t.Errorf("fts %d width = %s, want %s", i, got, tt.width)
		}
	}
}

func TestTranslate_ZIndexOutOfRange(t *testing.T) {
	for _, z := range []string{"99999999999", "-99999999999", "1.5"} {
		t.Run(z, func(t *testing.T) {
			res := run(t, `* { stroke: black; z-index: `+z+` }`, nil)

			ftss := res.Style.FeatureTypeStyles
			if len(ftss) != 1 {
				t.Fatalf("expected 1 feature type style, got %d", len(ftss))
			}
			if ftss[0].ZIndex != 0 {
				t.Errorf("z-index = %d, want 0", ftss[0].ZIndex)
			}
			found := false
			for _, w := range res.Warnings {
				if strings.Contains(w, "not a valid z-index") {
					found = true
				}
			}
			if !found {
				t.Errorf("no z-index warning in %q", res.Warnings)
			}
		})
	}
}

func TestTranslate_TypeNames(t *testing.T) {
	res := run(t, `
roads { stroke: black }
rivers { stroke: blue }
* { stroke-width: 2 }
`, nil)

	ftss := res.Style.FeatureTypeStyles
	if len(ftss) != 2 {
		t.Fatalf("expected 2 feature type styles, got %d", len(ftss))
	}
	for i, name := range []string{"roads", "rivers"} {
		if ftss[i].FeatureTypeName != name {
			t.Errorf("fts %d type = %q, want %q", i, ftss[i].FeatureTypeName, name)
		}
		if len(ftss[i].Rules) != 1 {
			t.Fatalf("fts %d has %d rules", i, len(ftss[i].Rules))
		}
		line := ftss[i].Rules[0].Symbolizers[0].(*style.LineSymbolizer)
		if got := literal(line.Stroke.Width); got != "2" {
			t.Errorf("fts %d width = %s, want 2", i, got)
		}
	}
}

func TestTranslate_FeatureIDsAndLabels(t *testing.T) {
	res := run(t, `
#states.1 {
  label: [STATE_NAME];
  font-family: Arial, Sans;
  font-size: 12px;
  font-fill: #333;
  halo-radius: 2;
  halo-color: white;
  label-anchor: 0.5 0.5;
  -gt-label-padding: 5;
  -gt-label-follow-rivers: true;
}
`, nil)

	rules := res.Style.Rules()
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if got := filterString(rules[0].Filter); got != "IN ('states.1')" {
		t.Errorf("filter = %q", got)
	}
	text, ok := rules[0].Symbolizers[0].(*style.TextSymbolizer)
	if !ok {
		t.Fatalf("symbolizer is %T", rules[0].Symbolizers[0])
	}
	if got := literal(text.Label); got != "STATE_NAME" {
		t.Errorf("label = %s", got)
	}
	if strings.Join(text.Font.Family, ",") != "Arial,Sans" {
		t.Errorf("font family = %v", text.Font.Family)
	}
	if got := literal(text.Font.Size); got != "12" {
		t.Errorf("font size = %s", got)
	}
	if got := literal(text.Fill.Color); got != "'#333333'" {
		t.Errorf("font fill = %s", got)
	}
	if text.Halo == nil || literal(text.Halo.Fill.Color) != "'#ffffff'" {
		t.Errorf("halo = %+v", text.Halo)
	}
	if text.PointPlacement == nil || literal(text.PointPlacement.AnchorX) != "0.5" {
		t.Errorf("point placement = %+v", text.PointPlacement)
	}
	if v, ok := text.VendorOptions.Get("spaceAround"); !ok || v != "5" {
		t.Errorf("spaceAround = %q, %v", v, ok)
	}
	if v, ok := text.VendorOptions.Get("label-follow-rivers"); !ok || v != "true" {
		t.Errorf("label-follow-rivers = %q, %v", v, ok)
	}
}

func TestTranslate_LabelPlacement(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line string
		disp [2]string
	}{
		{"line offset", `* { label: [name]; label-offset: 5 }`, "5", [2]string{}},
		{"displacement", `* { label: [name]; label-offset: 2 3 }`, "", [2]string{"2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, tt.src, nil)
			text := res.Style.Rules()[0].Symbolizers[0].(*style.TextSymbolizer)
			if tt.line != "" {
				if text.LinePlacement == nil || literal(text.LinePlacement.PerpendicularOffset) != tt.line {
					t.Errorf("line placement = %+v", text.LinePlacement)
				}
				return
			}
			pp := text.PointPlacement
			if pp == nil {
				t.Fatal("expected point placement")
			}
			if literal(pp.DisplacementX) != tt.disp[0] || literal(pp.DisplacementY) != tt.disp[1] {
				t.Errorf("displacement = %v, %v", pp.DisplacementX, pp.DisplacementY)
			}
		})
	}
}

func TestTranslate_LabelConcatenation(t *testing.T) {
	res := run(t, `* { label: [name] ' - ' [ref] }`, nil)
	text := res.Style.Rules()[0].Symbolizers[0].(*style.TextSymbolizer)
	if got := literal(text.Label); got != "Concatenate(name, ' - ', ref)" {
		t.Errorf("label = %s", got)
	}
}

func TestTranslate_MarkPseudoClasses(t *testing.T) {
	res := run(t, `
* { mark: symbol(circle), symbol(square); mark-size: 8 }
*:mark { fill: red }
*:nth-mark(2) { stroke: black }
`, nil)

	rules := res.Style.Rules()
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d:\n%s", len(rules), res.Style)
	}
	syms := rules[0].Symbolizers
	if len(syms) != 2 {
		t.Fatalf("expected 2 symbolizers, got %d", len(syms))
	}

	first := syms[0].(*style.PointSymbolizer).Graphic
	if got := literal(first.Size); got != "8" {
		t.Errorf("size = %s", got)
	}
	m1 := first.Symbols[0].(*style.Mark)
	if m1.WellKnownName != "circle" || m1.Fill == nil || literal(m1.Fill.Color) != "'#ff0000'" || m1.Stroke != nil {
		t.Errorf("first mark = %+v", m1)
	}

	m2 := syms[1].(*style.PointSymbolizer).Graphic.Symbols[0].(*style.Mark)
	if m2.WellKnownName != "square" || m2.Stroke == nil || literal(m2.Stroke.Color) != "'#000000'" {
		t.Errorf("second mark = %+v", m2)
	}
}

func TestTranslate_ExternalGraphics(t *testing.T) {
	base, _ := url.Parse("http://h/styles/a.css")
	svg := resource.LoaderFunc(func(context.Context, *url.URL) ([]byte, error) {
		return []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), nil
	})

	tests := []struct {
		name   string
		src    string
		base   *url.URL
		opts   []translate.Option
		href   string
		format string
	}{
		{"relative resolved", `* { mark: url("icon.png") }`, base, nil, "http://h/styles/icon.png", "image/png"},
		{"explicit mime", `* { mark: url("icon"); mark-mime: "image/gif" }`, nil, nil, "icon", "image/gif"},
		{"default mime", `* { mark: url("icon") }`, nil, nil, "icon", translate.DefaultMIME},
		{"sniffed", `* { mark: url("icon") }`, nil, []translate.Option{translate.WithSniffing(svg)}, "icon", "image/svg+xml"},
		{"custom default", `* { mark: url("icon") }`, nil, []translate.Option{translate.WithDefaultMIME("image/jpeg")}, "icon", "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, tt.src, tt.base, tt.opts...)
			g := res.Style.Rules()[0].Symbolizers[0].(*style.PointSymbolizer).Graphic
			eg, ok := g.Symbols[0].(*style.ExternalGraphic)
			if !ok {
				t.Fatalf("symbol is %T", g.Symbols[0])
			}
			if eg.Href != tt.href {
				t.Errorf("href = %q, want %q", eg.Href, tt.href)
			}
			if eg.Format != tt.format {
				t.Errorf("format = %q, want %q", eg.Format, tt.format)
			}
		})
	}
}

func TestTranslate_GraphicStroke(t *testing.T) {
	res := run(t, `* { stroke: symbol('shape://vertline'), symbol(circle); stroke-repeat: repeat, stipple }`, nil)
	syms := res.Style.Rules()[0].Symbolizers
	if len(syms) != 2 {
		t.Fatalf("expected 2 symbolizers, got %d", len(syms))
	}
	if s := syms[0].(*style.LineSymbolizer).Stroke; s.GraphicStroke == nil || s.GraphicFill != nil {
		t.Errorf("first stroke = %+v", s)
	}
	if s := syms[1].(*style.LineSymbolizer).Stroke; s.GraphicFill == nil || s.GraphicStroke != nil {
		t.Errorf("second stroke = %+v", s)
	}
}

func TestTranslate_Values(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		color   string
		opacity string
	}{
		{"short hex", `* { fill: #abc }`, "'#aabbcc'", ""},
		{"named", `* { fill: Orange }`, "'#ffa500'", ""},
		{"rgb", `* { fill: rgb(255, 0, 16) }`, "'#ff0010'", ""},
		{"rgb percent", `* { fill: rgb(100%, 50%, 0%) }`, "'#ff8000'", ""},
		{"opacity percent", `* { fill: red; fill-opacity: 50% }`, "'#ff0000'", "0.5"},
		{"expression", `* { fill: [color]; fill-opacity: 0.3 }`, "color", "0.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, tt.src, nil)
			fill := res.Style.Rules()[0].Symbolizers[0].(*style.PolygonSymbolizer).Fill
			if got := literal(fill.Color); got != tt.color {
				t.Errorf("colour = %s, want %s", got, tt.color)
			}
			if got := literal(fill.Opacity); got != tt.opacity {
				t.Errorf("opacity = %s, want %s", got, tt.opacity)
			}
		})
	}
}

func TestTranslate_InvalidValuesWarn(t *testing.T) {
	res := run(t, `
* { stroke: notacolour }
[a = 1] { fill: red; -gt-weird: 1 }
`, nil)

	wantWarnings := []string{"not a valid colour", "unsupported vendor option -gt-weird"}
	for _, want := range wantWarnings {
		found := false
		for _, w := range res.Warnings {
			if strings.Contains(w, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("no warning containing %q in %q", want, res.Warnings)
		}
	}
	for _, r := range res.Style.Rules() {
		for _, s := range r.Symbolizers {
			if s.Kind() == "Line" {
				t.Errorf("unexpected line symbolizer for invalid colour")
			}
		}
	}
}

func TestTranslate_VendorOptionsByKind(t *testing.T) {
	res := run(t, `* { fill: red; stroke: black; -gt-fill-label-obstacle: true; -gt-stroke-label-obstacle: false }`, nil)
	syms := res.Style.Rules()[0].Symbolizers
	poly := syms[0].(*style.PolygonSymbolizer)
	line := syms[1].(*style.LineSymbolizer)
	if v, _ := poly.VendorOptions.Get("labelObstacle"); v != "true" {
		t.Errorf("polygon labelObstacle = %q", v)
	}
	if v, _ := line.VendorOptions.Get("labelObstacle"); v != "false" {
		t.Errorf("line labelObstacle = %q", v)
	}
}

func TestTranslate_TooManyCombinations(t *testing.T) {
	log := zaptest.NewLogger(t)
	sheet, err := css.NewParser(log).Parse([]byte(`
[a1 = 1] { stroke: black }
[a2 = 1] { stroke: black }
[a3 = 1] { stroke: black }
[a4 = 1] { stroke: black }
`), "test.css")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, err = translate.NewTranslator(log, translate.WithMaxCombinations(4)).Translate(context.Background(), sheet, nil)
	if !errors.Is(err, translate.ErrTooManyCombinations) {
		t.Errorf("expected ErrTooManyCombinations, got %v", err)
	}

	res, err := translate.NewTranslator(log).Translate(context.Background(), sheet, nil)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	// every non empty subset of four independent rules
	if n := len(res.Style.Rules()); n != 15 {
		t.Errorf("expected 15 rules, got %d", n)
	}
}

func TestTranslate_Canceled(t *testing.T) {
	log := zaptest.NewLogger(t)
	sheet, err := css.NewParser(log).Parse([]byte(`* { stroke: black }`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := translate.NewTranslator(log).Translate(ctx, sheet, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTranslate_FlatMode(t *testing.T) {
	res := run(t, `
@mode "Flat";
[a > 1] { fill: red }
[@scale < 5000][b = 2] { stroke: blue }
`, nil)

	rules := res.Style.Rules()
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d:\n%s", len(rules), res.Style)
	}
	if got := filterString(rules[0].Filter); got != "a > 1" {
		t.Errorf("first filter = %q", got)
	}
	if got := filterString(rules[1].Filter); got != "b = 2" {
		t.Errorf("second filter = %q", got)
	}
	if rules[1].MaxScale != 5000 {
		t.Errorf("second max scale = %v", rules[1].MaxScale)
	}
}

func TestTranslate_StyleNames(t *testing.T) {
	named := run(t, `@styleName "roads"; @styleTitle "Roads"; * { stroke: black }`, nil)
	if named.Style.Name != "roads" || named.Style.Title != "Roads" {
		t.Errorf("name, title = %q, %q", named.Style.Name, named.Style.Title)
	}

	first := run(t, `* { stroke: black }`, nil).Style.Name
	second := run(t, `* { stroke: black }`, nil).Style.Name
	other := run(t, `* { stroke: red }`, nil).Style.Name
	if !strings.HasPrefix(first, "style-") {
		t.Errorf("anonymous name = %q", first)
	}
	if first != second {
		t.Errorf("anonymous names differ: %q, %q", first, second)
	}
	if first == other {
		t.Errorf("different stylesheets got the same name %q", first)
	}
}

func TestTranslate_RuleTitles(t *testing.T) {
	res := run(t, `
/* @title Everything */
* { stroke: black }
/* @title Highways */
[kind = 'highway'] { stroke-width: 3 }
`, nil)

	rules := res.Style.Rules()
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Title != "Highways, Everything" {
		t.Errorf("first title = %q", rules[0].Title)
	}
	if rules[1].Title != "Everything" {
		t.Errorf("second title = %q", rules[1].Title)
	}
}

func TestTranslate_NestedConditions(t *testing.T) {
	res := run(t, `
[a > 1] { fill: red }
[a > 1][b = 2] { fill: blue }
`, nil)

	rules := res.Style.Rules()
	want := []struct {
		filter string
		color  string
	}{
		{"a > 1 AND b = 2", "'#0000ff'"},
		{"a > 1 AND b <> 2", "'#ff0000'"},
	}
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d:\n%s", len(want), len(rules), res.Style)
	}
	for i, w := range want {
		if got := filterString(rules[i].Filter); got != w.filter {
			t.Errorf("rule %d filter = %q, want %q", i, got, w.filter)
		}
		fill := rules[i].Symbolizers[0].(*style.PolygonSymbolizer).Fill
		if got := literal(fill.Color); got != w.color {
			t.Errorf("rule %d colour = %s, want %s", i, got, w.color)
		}
	}
}

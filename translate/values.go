package translate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"geocss/css"
	"geocss/style"
)

// has reports whether any of the properties is declared.
func (d declarations) has(names ...string) bool {
	for _, n := range names {
		if _, ok := d[n]; ok {
			return true
		}
	}
	return false
}

// count returns number of comma separated values of the property.
func (d declarations) count(name string) int {
	return len(d[name].Values)
}

// value returns i-th comma separated value of the property. Shorter lists
// repeat their last value.
func (d declarations) value(name string, i int) (css.Value, css.Declaration, bool) {
	decl, ok := d[name]
	if !ok || len(decl.Values) == 0 {
		return nil, decl, false
	}
	return decl.Values[min(i, len(decl.Values)-1)], decl, true
}

func (tr *translation) invalid(decl css.Declaration, v css.Value, what string) {
	tr.warn(fmt.Sprintf("line %d: %s: %q is not a valid %s", decl.Line, decl.Property, v.String(), what))
}

// color returns colour expression, literal colours are normalized to #rrggbb.
func (tr *translation) color(d declarations, name string, i int) style.Expression {
	v, decl, ok := d.value(name, i)
	if !ok {
		return nil
	}
	if len(v) == 1 {
		if v[0].Kind == css.TermExpression {
			return v[0].Expr
		}
		if c, ok := ParseColor(v[0]); ok {
			return style.Lit(c)
		}
	}
	tr.invalid(decl, v, "colour")
	return nil
}

// number returns numeric expression, units are dropped.
func (tr *translation) number(d declarations, name string, i int) style.Expression {
	v, decl, ok := d.value(name, i)
	if !ok {
		return nil
	}
	if len(v) == 1 {
		switch v[0].Kind {
		case css.TermNumber:
			return style.LitFloat(v[0].Number)
		case css.TermExpression:
			return v[0].Expr
		}
	}
	tr.invalid(decl, v, "number")
	return nil
}

// opacity returns numeric expression, percentages are turned into fractions.
func (tr *translation) opacity(d declarations, name string, i int) style.Expression {
	v, _, ok := d.value(name, i)
	if ok && len(v) == 1 && v[0].Kind == css.TermPercentage {
		return style.LitFloat(v[0].Number / 100)
	}
	return tr.number(d, name, i)
}

// numbers returns all terms of a space separated numeric value.
func (tr *translation) numbers(d declarations, name string, i int) []float64 {
	v, decl, ok := d.value(name, i)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(v))
	for _, t := range v {
		if t.Kind != css.TermNumber {
			tr.invalid(decl, v, "list of numbers")
			return nil
		}
		out = append(out, t.Number)
	}
	return out
}

// expression returns value as expression: literal for plain terms,
// concatenation when value has several terms.
func (tr *translation) expression(d declarations, name string, i int) style.Expression {
	v, _, ok := d.value(name, i)
	if !ok {
		return nil
	}
	parts := make([]style.Expression, 0, len(v))
	for _, t := range v {
		parts = append(parts, termExpression(t))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return style.Function{Name: "Concatenate", Args: parts}
}

// keyword returns identifier or string value.
func (tr *translation) keyword(d declarations, name string, i int) string {
	v, decl, ok := d.value(name, i)
	if !ok {
		return ""
	}
	if len(v) == 1 {
		switch v[0].Kind {
		case css.TermIdent, css.TermString:
			return v[0].Text
		}
	}
	tr.invalid(decl, v, "keyword")
	return ""
}

func termExpression(t css.Term) style.Expression {
	switch t.Kind {
	case css.TermExpression:
		return t.Expr
	case css.TermNumber:
		return style.LitFloat(t.Number)
	case css.TermPercentage:
		return style.Lit(t.Raw)
	case css.TermColor:
		if c, ok := ParseColor(t); ok {
			return style.Lit(c)
		}
	case css.TermIdent, css.TermString, css.TermURL:
		return style.Lit(t.Text)
	}
	return style.Lit(t.Raw)
}

// termLiteral returns textual form of a plain term used in vendor options.
func termLiteral(v css.Value) string {
	parts := make([]string, 0, len(v))
	for _, t := range v {
		switch t.Kind {
		case css.TermNumber:
			parts = append(parts, strconv.FormatFloat(t.Number, 'f', -1, 64))
		case css.TermIdent, css.TermString, css.TermURL:
			parts = append(parts, t.Text)
		case css.TermExpression:
			parts = append(parts, "${"+t.Expr.String()+"}")
		default:
			parts = append(parts, t.Raw)
		}
	}
	return strings.Join(parts, " ")
}

var namedColors = map[string][3]int{
	"black":   {0, 0, 0},
	"white":   {255, 255, 255},
	"red":     {255, 0, 0},
	"green":   {0, 128, 0},
	"blue":    {0, 0, 255},
	"gray":    {128, 128, 128},
	"grey":    {128, 128, 128},
	"silver":  {192, 192, 192},
	"maroon":  {128, 0, 0},
	"navy":    {0, 0, 128},
	"teal":    {0, 128, 128},
	"olive":   {128, 128, 0},
	"purple":  {128, 0, 128},
	"fuchsia": {255, 0, 255},
	"magenta": {255, 0, 255},
	"aqua":    {0, 255, 255},
	"cyan":    {0, 255, 255},
	"lime":    {0, 255, 0},
	"yellow":  {255, 255, 0},
	"orange":  {255, 165, 0},
	"brown":   {165, 42, 42},
	"pink":    {255, 192, 203},
	"gold":    {255, 215, 0},
	"khaki":   {240, 230, 140},
	"tan":     {210, 180, 140},
	"beige":   {245, 245, 220},
}

// ParseColor converts colour term (#rgb, #rrggbb, rgb() or colour name) to
// #rrggbb form.
func ParseColor(t css.Term) (string, bool) {
	r, g, b, ok := parseRGB(t)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b), true
}

func parseRGB(t css.Term) (r, g, b int, ok bool) {
	switch t.Kind {
	case css.TermColor:
		hex := strings.TrimPrefix(t.Text, "#")
		switch len(hex) {
		case 3:
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		case 6:
		default:
			return 0, 0, 0, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, 0, 0, false
		}
		return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true

	case css.TermIdent:
		c, ok := namedColors[strings.ToLower(t.Text)]
		return c[0], c[1], c[2], ok

	case css.TermFunction:
		if t.Text != "rgb" || len(t.Args) != 3 {
			return 0, 0, 0, false
		}
		var c [3]int
		for i, arg := range t.Args {
			if len(arg) != 1 {
				return 0, 0, 0, false
			}
			switch arg[0].Kind {
			case css.TermNumber:
				c[i] = clampChannel(arg[0].Number)
			case css.TermPercentage:
				c[i] = clampChannel(arg[0].Number * 255 / 100)
			default:
				return 0, 0, 0, false
			}
		}
		return c[0], c[1], c[2], true
	}
	return 0, 0, 0, false
}

func clampChannel(v float64) int {
	return int(math.Round(max(0, min(255, v))))
}

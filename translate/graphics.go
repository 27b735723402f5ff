package translate

import (
	"fmt"

	"go.uber.org/zap"

	"geocss/css"
	"geocss/resource"
	"geocss/style"
)

// graphic builds graphic out of i-th value of the property (fill, stroke,
// mark or shield) and properties of the same prefix. Nested mark styling is
// taken from pseudo class rules.
func (tr *translation) graphic(m merged, prop string, i int) *style.Graphic {
	d := m.props
	v, decl, ok := d.value(prop, i)
	if !ok {
		return nil
	}

	mime := tr.keyword(d, prop+"-mime", i)
	g := &style.Graphic{
		Size:     tr.number(d, prop+"-size", i),
		Rotation: tr.number(d, prop+"-rotation", i),
		Opacity:  tr.opacity(d, prop+"-opacity", i),
	}
	for _, t := range v {
		switch {
		case t.Kind == css.TermURL:
			g.Symbols = append(g.Symbols, tr.externalGraphic(t.Text, mime))
		case t.Kind == css.TermFunction && t.Text == "symbol":
			mark, ok := tr.mark(t, m, prop, i)
			if !ok {
				tr.invalid(decl, v, "symbol")
				return nil
			}
			g.Symbols = append(g.Symbols, mark)
		default:
			return nil
		}
	}
	return g
}

func isGraphic(v css.Value) bool {
	for _, t := range v {
		if t.Kind != css.TermURL && !(t.Kind == css.TermFunction && t.Text == "symbol") {
			return false
		}
	}
	return len(v) > 0
}

// mark creates well known mark styled by :symbol, :nth-symbol(n), :<prop>
// and :nth-<prop>(n) rules, later ones override earlier.
func (tr *translation) mark(t css.Term, m merged, prop string, i int) (*style.Mark, bool) {
	if len(t.Args) != 1 || len(t.Args[0]) != 1 {
		return nil, false
	}
	arg := t.Args[0][0]
	if arg.Kind != css.TermIdent && arg.Kind != css.TermString {
		return nil, false
	}

	nested := declarations{}
	for _, p := range []css.Pseudo{
		{Name: "symbol"},
		{Name: "symbol", Index: i + 1},
		{Name: prop},
		{Name: prop, Index: i + 1},
	} {
		for name, decl := range m.pseudo[p.String()] {
			nested[name] = decl
		}
	}

	mark := &style.Mark{WellKnownName: arg.Text}
	if nested.has("fill") {
		mark.Fill = &style.Fill{
			Color:   tr.color(nested, "fill", 0),
			Opacity: tr.opacity(nested, "fill-opacity", 0),
		}
	}
	if nested.has("stroke") {
		mark.Stroke = tr.stroke(nested, 0)
	}
	return mark, true
}

// externalGraphic resolves reference and finds its media type.
func (tr *translation) externalGraphic(ref, mime string) *style.ExternalGraphic {
	href := ref
	u, err := resource.Resolve(tr.base, ref)
	if err != nil {
		tr.warn(fmt.Sprintf("bad url %q: %v", ref, err))
	} else {
		href = u.String()
	}

	if mime == "" && u != nil {
		mime = resource.MIMEFromPath(u.Path)
	}
	if mime == "" && u != nil && u.IsAbs() && tr.sniff {
		mime = tr.sniffMIME(href)
	}
	if mime == "" {
		mime = tr.defaultMIME
	}
	return &style.ExternalGraphic{Href: href, Format: mime}
}

func (tr *translation) sniffMIME(href string) string {
	if mime, ok := tr.sniffed[href]; ok {
		return mime
	}
	u, _ := resource.Resolve(nil, href)
	data, err := tr.loader.Load(tr.ctx, u)
	if err != nil {
		tr.log.Debug("Unable to load graphic", zap.String("url", href), zap.Error(err))
		tr.warn(fmt.Sprintf("unable to load %s to detect its type: %v", href, err))
		tr.sniffed[href] = ""
		return ""
	}
	mime := resource.SniffMIME(data)
	tr.sniffed[href] = mime
	return mime
}

package translate

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"geocss/css"
	"geocss/style"
)

// selRule is a stylesheet rule narrowed to a single selector.
type selRule struct {
	sel      css.Selector
	decls    []css.Declaration
	title    string
	abstract string
	spec     css.Specificity
	order    int
}

// expandRules splits rules with comma separated selectors, one entry per
// selector, keeping source order.
func expandRules(rules []css.Rule) []*selRule {
	var out []*selRule
	for _, r := range rules {
		for _, sel := range r.Selectors {
			out = append(out, &selRule{
				sel:      sel,
				decls:    r.Declarations,
				title:    r.Title,
				abstract: r.Abstract,
				spec:     sel.Specificity(),
				order:    len(out),
			})
		}
	}
	return out
}

// bySpecificity orders rules from the least specific to the most specific,
// later rules win ties.
func bySpecificity(a, b *selRule) int {
	switch {
	case a.spec.Less(b.spec):
		return -1
	case b.spec.Less(a.spec):
		return 1
	}
	return cmp.Compare(a.order, b.order)
}

// layer is a style rule destined for a feature type style.
type layer struct {
	typeName string
	group    int
	z        int
	rule     *style.Rule
}

// buildFeatureTypeStyles puts layers with the same z-index and feature type
// together. Lower z-index is painted first.
func buildFeatureTypeStyles(layers []layer) []*style.FeatureTypeStyle {
	type key struct{ z, group int }

	var (
		keys  []key
		index = make(map[key]*style.FeatureTypeStyle)
	)
	for _, l := range layers {
		k := key{z: l.z, group: l.group}
		fts, ok := index[k]
		if !ok {
			fts = &style.FeatureTypeStyle{FeatureTypeName: l.typeName, ZIndex: l.z}
			index[k] = fts
			keys = append(keys, k)
		}
		fts.Rules = append(fts.Rules, l.rule)
	}
	slices.SortStableFunc(keys, func(a, b key) int {
		if c := cmp.Compare(a.z, b.z); c != 0 {
			return c
		}
		return cmp.Compare(a.group, b.group)
	})

	out := make([]*style.FeatureTypeStyle, 0, len(keys))
	for _, k := range keys {
		out = append(out, index[k])
	}
	return out
}

type typeGroup struct {
	name  string
	rules []*selRule
}

// groupByType splits rules by feature type name. Rules without type name
// apply to every group.
func groupByType(rules []*selRule) []typeGroup {
	var groups []typeGroup
	for _, r := range rules {
		name := r.sel.TypeName
		if name == "" || slices.ContainsFunc(groups, func(g typeGroup) bool { return g.name == name }) {
			continue
		}
		groups = append(groups, typeGroup{name: name})
	}
	if len(groups) == 0 {
		return []typeGroup{{rules: rules}}
	}
	for i := range groups {
		for _, r := range rules {
			if r.sel.TypeName == "" || r.sel.TypeName == groups[i].name {
				groups[i].rules = append(groups[i].rules, r)
			}
		}
	}
	return groups
}

// scaleSlice is a scale range where the same set of rules is active.
type scaleSlice struct {
	lo, hi float64
	rules  []*selRule
}

func (s scaleSlice) bounds() (minScale, maxScale float64) {
	if !math.IsInf(s.hi, 1) {
		maxScale = s.hi
	}
	return s.lo, maxScale
}

// sliceByScale cuts the scale axis at every value used in scale conditions
// and finds active rules for each piece. Adjacent pieces with the same rules
// are joined, pieces without rules are dropped.
func sliceByScale(rules []*selRule) []scaleSlice {
	breaks := []float64{0, math.Inf(1)}
	for _, r := range rules {
		for _, sc := range r.sel.Scales {
			if sc.Value > 0 {
				breaks = append(breaks, sc.Value)
			}
		}
	}
	slices.Sort(breaks)
	breaks = slices.Compact(breaks)

	var out []scaleSlice
	for i := 0; i+1 < len(breaks); i++ {
		lo, hi := breaks[i], breaks[i+1]
		sample := lo + (hi-lo)/2
		if math.IsInf(hi, 1) {
			sample = lo + 1
		}
		var active []*selRule
		for _, r := range rules {
			if scalesHold(r.sel.Scales, sample) {
				active = append(active, r)
			}
		}
		if n := len(out); n > 0 && out[n-1].hi == lo && slices.Equal(out[n-1].rules, active) {
			out[n-1].hi = hi
			continue
		}
		if len(active) == 0 {
			continue
		}
		out = append(out, scaleSlice{lo: lo, hi: hi, rules: active})
	}
	return out
}

func scalesHold(conds []css.ScaleCondition, scale float64) bool {
	for _, c := range conds {
		if !c.Holds(scale) {
			return false
		}
	}
	return true
}

// combination is a set of rules known to apply together with rules known not
// to apply.
type combination struct {
	included []*selRule
	excluded []*selRule
	conj     conjunction
}

func (c *combination) with(r *selRule) (*combination, bool) {
	conj, ok := c.conj.and(r)
	if !ok {
		return nil, false
	}
	for _, e := range c.excluded {
		if conj.implies(e) {
			return nil, false
		}
	}
	return &combination{
		included: append(slices.Clip(c.included), r),
		excluded: c.excluded,
		conj:     conj,
	}, true
}

func (c *combination) without(r *selRule) (*combination, bool) {
	if c.conj.implies(r) {
		return nil, false
	}
	conj, ok := c.conj.andNot(r)
	if !ok {
		return nil, false
	}
	return &combination{
		included: c.included,
		excluded: append(slices.Clip(c.excluded), r),
		conj:     conj,
	}, true
}

// filter builds filter selecting features of the combination.
func (c *combination) filter() style.Filter {
	conj := c.conj.positive()

	var parts []style.Filter
	if conj.hasIDs {
		parts = append(parts, style.FeatureID{IDs: conj.ids})
	}
	parts = append(parts, conj.filters...)

	for _, e := range c.excluded {
		if _, ok := conj.and(e); !ok {
			continue
		}
		var rest []style.Filter
		if len(e.sel.IDs) > 0 && !conj.idsWithin(e.sel.IDs) {
			rest = append(rest, style.FeatureID{IDs: e.sel.IDs})
		}
		for _, f := range e.sel.Filters {
			if !conj.impliesFilter(f) {
				rest = append(rest, f)
			}
		}
		switch len(rest) {
		case 0:
		case 1:
			parts = append(parts, style.NewNot(rest[0]))
		default:
			negs := make([]style.Filter, 0, len(rest))
			for _, f := range rest {
				negs = append(negs, style.NewNot(f))
			}
			parts = append(parts, style.NewOr(negs...))
		}
	}
	return style.NewAnd(parts...)
}

// combine enumerates satisfiable combinations of rules. Rules must be
// ordered by ascending specificity.
func (tr *translation) combine(rules []*selRule) ([]*combination, error) {
	combos := []*combination{{}}
	for _, r := range rules {
		if err := tr.ctx.Err(); err != nil {
			return nil, err
		}
		next := make([]*combination, 0, 2*len(combos))
		for _, c := range combos {
			if in, ok := c.with(r); ok {
				next = append(next, in)
			}
			if out, ok := c.without(r); ok {
				next = append(next, out)
			}
		}
		if len(next) > tr.maxCombinations {
			return nil, fmt.Errorf("%w: %d exceeds limit of %d", ErrTooManyCombinations, len(next), tr.maxCombinations)
		}
		combos = next
	}
	return combos, nil
}

// cascade produces non overlapping rules out of overlapping CSS rules.
func (tr *translation) cascade(rules []*selRule) ([]layer, error) {
	var layers []layer
	for gi, g := range groupByType(rules) {
		for _, slice := range sliceByScale(g.rules) {
			active := slices.Clone(slice.rules)
			slices.SortStableFunc(active, bySpecificity)

			combos, err := tr.combine(active)
			if err != nil {
				return nil, err
			}
			tr.log.Debug("Rule combinations",
				zap.String("type", g.name),
				zap.Float64("min scale", slice.lo),
				zap.Float64("max scale", slice.hi),
				zap.Int("rules", len(active)),
				zap.Int("combinations", len(combos)))

			minScale, maxScale := slice.bounds()
			for _, c := range combos {
				if len(c.included) == 0 {
					continue
				}
				layers = append(layers, tr.emit(g.name, gi, c.included, c.filter(), minScale, maxScale)...)
			}
		}
	}
	return layers, nil
}

// flat translates every rule on its own, in source order, without any
// cascading.
func (tr *translation) flat(rules []*selRule) ([]layer, error) {
	var (
		layers []layer
		groups []string
	)
	for _, r := range rules {
		if err := tr.ctx.Err(); err != nil {
			return nil, err
		}
		gi := slices.Index(groups, r.sel.TypeName)
		if gi < 0 {
			gi = len(groups)
			groups = append(groups, r.sel.TypeName)
		}

		var parts []style.Filter
		if len(r.sel.IDs) > 0 {
			parts = append(parts, style.FeatureID{IDs: r.sel.IDs})
		}
		parts = append(parts, r.sel.Filters...)

		minScale, maxScale := scaleBounds(r.sel.Scales)
		layers = append(layers, tr.emit(r.sel.TypeName, gi, []*selRule{r}, style.NewAnd(parts...), minScale, maxScale)...)
	}
	return layers, nil
}

// scaleBounds narrows scale range to satisfy all conditions.
func scaleBounds(conds []css.ScaleCondition) (minScale, maxScale float64) {
	for _, c := range conds {
		switch c.Op {
		case style.OpGT, style.OpGE:
			minScale = max(minScale, c.Value)
		case style.OpLT, style.OpLE:
			if maxScale == 0 || c.Value < maxScale {
				maxScale = c.Value
			}
		}
	}
	return minScale, maxScale
}

// emit merges declarations of included rules and creates one style rule per
// z-index level.
func (tr *translation) emit(typeName string, group int, included []*selRule, filter style.Filter, minScale, maxScale float64) []layer {
	syms := tr.symbolizers(mergeDeclarations(included))
	if len(syms) == 0 {
		return nil
	}

	var titles, abstracts []string
	for i := len(included) - 1; i >= 0; i-- {
		r := included[i]
		if r.title != "" && !slices.Contains(titles, r.title) {
			titles = append(titles, r.title)
		}
		if r.abstract != "" && !slices.Contains(abstracts, r.abstract) {
			abstracts = append(abstracts, r.abstract)
		}
	}

	var out []layer
	for _, s := range syms {
		i := slices.IndexFunc(out, func(l layer) bool { return l.z == s.z })
		if i < 0 {
			i = len(out)
			out = append(out, layer{
				typeName: typeName,
				group:    group,
				z:        s.z,
				rule: &style.Rule{
					Title:    strings.Join(titles, ", "),
					Abstract: strings.Join(abstracts, ", "),
					Filter:   filter,
					MinScale: minScale,
					MaxScale: maxScale,
				},
			})
		}
		out[i].rule.Symbolizers = append(out[i].rule.Symbolizers, s.sym)
	}
	return out
}

// declarations maps property names to their effective declarations.
type declarations map[string]css.Declaration

// merged holds declarations of a combination, plain ones and ones narrowed
// by pseudo classes keyed by pseudo class text (":mark", ":nth-mark(2)").
type merged struct {
	props  declarations
	pseudo map[string]declarations
}

// mergeDeclarations applies declarations of rules in order, so later rules
// override earlier ones.
func mergeDeclarations(rules []*selRule) merged {
	m := merged{props: declarations{}, pseudo: map[string]declarations{}}
	for _, r := range rules {
		if len(r.sel.Pseudo) == 0 {
			for _, d := range r.decls {
				m.props[d.Property] = d
			}
			continue
		}
		for _, p := range r.sel.Pseudo {
			key := p.String()
			target, ok := m.pseudo[key]
			if !ok {
				target = declarations{}
				m.pseudo[key] = target
			}
			for _, d := range r.decls {
				target[d.Property] = d
			}
		}
	}
	return m
}

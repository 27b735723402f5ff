package translate

import (
	"slices"
	"strconv"

	"geocss/style"
)

// conjunction is a set of conditions which all hold for a feature.
type conjunction struct {
	filters []style.Filter
	ids     []string
	hasIDs  bool
	// negations of excluded rules, only used to detect contradictions
	negs []style.Filter
}

// and adds conditions of the rule, false is returned when result can not be
// satisfied by any feature.
func (c conjunction) and(r *selRule) (conjunction, bool) {
	out := conjunction{
		filters: slices.Clip(c.filters),
		ids:     c.ids,
		hasIDs:  c.hasIDs,
		negs:    c.negs,
	}
	if len(r.sel.IDs) > 0 {
		if out.hasIDs {
			var common []string
			for _, id := range out.ids {
				if slices.Contains(r.sel.IDs, id) {
					common = append(common, id)
				}
			}
			if len(common) == 0 {
				return out, false
			}
			out.ids = common
		} else {
			out.ids, out.hasIDs = slices.Clone(r.sel.IDs), true
		}
	}

	touched := make(map[string]bool)
	for _, f := range r.sel.Filters {
		if !out.contains(f) {
			out.filters = append(out.filters, f)
			touched[filterProperty(f)] = true
		}
	}
	for prop := range touched {
		if !out.constraint(prop).satisfiable() {
			return out, false
		}
	}
	return out, true
}

// andNot adds negation of the rule when it is a single attribute condition,
// false is returned when result can not be satisfied by any feature. Other
// rules are left as is.
func (c conjunction) andNot(r *selRule) (conjunction, bool) {
	neg, ok := negation(r)
	if !ok || c.impliesFilter(neg) {
		return c, true
	}
	out := c
	out.negs = append(slices.Clip(c.negs), neg)
	return out, out.constraint(filterProperty(neg)).satisfiable()
}

// positive drops negations of excluded rules.
func (c conjunction) positive() conjunction {
	return conjunction{filters: c.filters, ids: c.ids, hasIDs: c.hasIDs}
}

// negation returns condition selecting features the rule does not apply to.
func negation(r *selRule) (style.Filter, bool) {
	if len(r.sel.IDs) > 0 || len(r.sel.Filters) != 1 {
		return nil, false
	}
	switch f := r.sel.Filters[0].(type) {
	case style.Compare, style.Like, style.IsNull:
		return style.NewNot(f), true
	}
	return nil, false
}

func (c conjunction) contains(f style.Filter) bool {
	s := f.String()
	for _, have := range c.filters {
		if have.String() == s {
			return true
		}
	}
	return false
}

// implies reports whether every feature satisfying c satisfies the rule.
func (c conjunction) implies(r *selRule) bool {
	if len(r.sel.IDs) > 0 && !c.idsWithin(r.sel.IDs) {
		return false
	}
	for _, f := range r.sel.Filters {
		if !c.impliesFilter(f) {
			return false
		}
	}
	return true
}

func (c conjunction) idsWithin(ids []string) bool {
	if !c.hasIDs {
		return false
	}
	for _, id := range c.ids {
		if !slices.Contains(ids, id) {
			return false
		}
	}
	return true
}

func (c conjunction) impliesFilter(f style.Filter) bool {
	if c.contains(f) {
		return true
	}
	cons := c.constraint(filterProperty(f))

	switch f := f.(type) {
	case style.Compare:
		return cons.impliesCompare(f.Op, f.Value)
	case style.IsNull:
		return cons.isNull
	case style.Not:
		if _, ok := f.Filter.(style.IsNull); ok {
			return cons.notNull || len(cons.eqs) > 0 || len(cons.nes) > 0 ||
				cons.lo.set || cons.hi.set || len(cons.likes) > 0 || cons.other
		}
	}
	return false
}

// filterProperty returns attribute filter condition is about.
func filterProperty(f style.Filter) string {
	switch f := f.(type) {
	case style.Compare:
		return f.Property
	case style.Like:
		return f.Property
	case style.IsNull:
		return f.Property
	case style.Not:
		return filterProperty(f.Filter)
	}
	return ""
}

type bound struct {
	v    float64
	incl bool
	set  bool
}

// constraint summarizes all conditions on a single attribute.
type constraint struct {
	isNull   bool
	notNull  bool
	eqs      []string
	nes      []string
	lo, hi   bound
	likes    []string
	notLikes []string
	// comparisons of text against text, nothing is deduced from them
	other bool
}

func (c conjunction) constraint(prop string) constraint {
	var cons constraint
	for _, f := range slices.Concat(c.filters, c.negs) {
		if filterProperty(f) != prop {
			continue
		}
		switch f := f.(type) {
		case style.IsNull:
			cons.isNull = true
		case style.Like:
			cons.likes = append(cons.likes, f.Pattern)
		case style.Not:
			switch inner := f.Filter.(type) {
			case style.IsNull:
				cons.notNull = true
			case style.Like:
				cons.notLikes = append(cons.notLikes, inner.Pattern)
			}
		case style.Compare:
			cons.addCompare(f.Op, f.Value)
		}
	}
	return cons
}

func (cons *constraint) addCompare(op style.CompareOp, value string) {
	switch op {
	case style.OpEQ:
		cons.eqs = append(cons.eqs, value)
		return
	case style.OpNE:
		cons.nes = append(cons.nes, value)
		return
	}

	v, ok := number(value)
	if !ok {
		cons.other = true
		return
	}
	switch op {
	case style.OpGT, style.OpGE:
		incl := op == style.OpGE
		if !cons.lo.set || v > cons.lo.v || (v == cons.lo.v && !incl) {
			cons.lo = bound{v: v, incl: incl, set: true}
		}
	case style.OpLT, style.OpLE:
		incl := op == style.OpLE
		if !cons.hi.set || v < cons.hi.v || (v == cons.hi.v && !incl) {
			cons.hi = bound{v: v, incl: incl, set: true}
		}
	}
}

func (cons constraint) satisfiable() bool {
	if cons.isNull && (cons.notNull || len(cons.eqs) > 0 || len(cons.nes) > 0 ||
		cons.lo.set || cons.hi.set || len(cons.likes) > 0 || cons.other) {
		return false
	}
	for _, p := range cons.likes {
		if slices.Contains(cons.notLikes, p) {
			return false
		}
	}
	if cons.lo.set && cons.hi.set {
		if cons.lo.v > cons.hi.v {
			return false
		}
		if cons.lo.v == cons.hi.v {
			if !cons.lo.incl || !cons.hi.incl {
				return false
			}
			for _, ne := range cons.nes {
				if n, ok := number(ne); ok && n == cons.lo.v {
					return false
				}
			}
		}
	}
	if len(cons.eqs) == 0 {
		return true
	}
	eq := cons.eqs[0]
	for _, other := range cons.eqs[1:] {
		if !literalEqual(eq, other) {
			return false
		}
	}
	for _, ne := range cons.nes {
		if literalEqual(eq, ne) {
			return false
		}
	}
	if v, ok := number(eq); ok && !cons.inRange(v) {
		return false
	}
	return true
}

func (cons constraint) inRange(v float64) bool {
	if cons.lo.set && (v < cons.lo.v || (v == cons.lo.v && !cons.lo.incl)) {
		return false
	}
	if cons.hi.set && (v > cons.hi.v || (v == cons.hi.v && !cons.hi.incl)) {
		return false
	}
	return true
}

func (cons constraint) impliesCompare(op style.CompareOp, value string) bool {
	if len(cons.eqs) > 0 {
		return compareLiterals(cons.eqs[0], op, value)
	}
	v, ok := number(value)
	if !ok {
		return op == style.OpNE && slices.ContainsFunc(cons.nes, func(ne string) bool { return literalEqual(ne, value) })
	}
	above := cons.lo.set && (cons.lo.v > v || (cons.lo.v == v && !cons.lo.incl))
	below := cons.hi.set && (cons.hi.v < v || (cons.hi.v == v && !cons.hi.incl))
	switch op {
	case style.OpGT:
		return above
	case style.OpGE:
		return cons.lo.set && cons.lo.v >= v
	case style.OpLT:
		return below
	case style.OpLE:
		return cons.hi.set && cons.hi.v <= v
	case style.OpNE:
		return above || below || slices.ContainsFunc(cons.nes, func(ne string) bool { return literalEqual(ne, value) })
	default:
		return cons.lo.set && cons.hi.set && cons.lo.incl && cons.hi.incl && cons.lo.v == v && cons.hi.v == v
	}
}

func number(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func literalEqual(a, b string) bool {
	x, okx := number(a)
	y, oky := number(b)
	if okx && oky {
		return x == y
	}
	return a == b
}

// compareLiterals evaluates "a op b".
func compareLiterals(a string, op style.CompareOp, b string) bool {
	x, okx := number(a)
	y, oky := number(b)
	var cmp int
	switch {
	case okx && oky:
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	default:
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	}
	switch op {
	case style.OpEQ:
		return cmp == 0
	case style.OpNE:
		return cmp != 0
	case style.OpLT:
		return cmp < 0
	case style.OpLE:
		return cmp <= 0
	case style.OpGT:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

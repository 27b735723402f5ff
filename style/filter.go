package style

import (
	"strconv"
	"strings"
)

// Filter selects features a rule applies to.
type Filter interface {
	// String returns CQL representation of the filter.
	String() string
	filter()
}

// CompareOp is a binary comparison operator.
type CompareOp int

const (
	OpEQ CompareOp = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
)

var compareOpSymbols = [...]string{"=", "<>", "<", "<=", ">", ">="}

var compareOpElements = [...]string{
	"PropertyIsEqualTo",
	"PropertyIsNotEqualTo",
	"PropertyIsLessThan",
	"PropertyIsLessThanOrEqualTo",
	"PropertyIsGreaterThan",
	"PropertyIsGreaterThanOrEqualTo",
}

func (op CompareOp) String() string {
	return compareOpSymbols[op]
}

// Element returns OGC filter element name for the operator.
func (op CompareOp) Element() string {
	return compareOpElements[op]
}

// Negate returns operator which is true exactly when op is false.
func (op CompareOp) Negate() CompareOp {
	switch op {
	case OpEQ:
		return OpNE
	case OpNE:
		return OpEQ
	case OpLT:
		return OpGE
	case OpLE:
		return OpGT
	case OpGT:
		return OpLE
	default:
		return OpLT
	}
}

// ParseCompareOp recognizes comparison operator symbol, "!=" is accepted as
// an alias of "<>".
func ParseCompareOp(s string) (CompareOp, bool) {
	if s == "!=" {
		return OpNE, true
	}
	for i, sym := range compareOpSymbols {
		if s == sym {
			return CompareOp(i), true
		}
	}
	return 0, false
}

// Include matches all features.
type Include struct{}

// FeatureID matches features by identifier.
type FeatureID struct {
	IDs []string
}

// Compare compares attribute with a literal.
type Compare struct {
	Property string
	Op       CompareOp
	Value    string
}

// Like matches attribute against pattern with '%' and '_' wildcards.
type Like struct {
	Property string
	Pattern  string
}

// IsNull matches features where attribute is absent or null.
type IsNull struct {
	Property string
}

// And matches when all children match.
type And struct {
	Filters []Filter
}

// Or matches when any child matches.
type Or struct {
	Filters []Filter
}

// Not inverts its child.
type Not struct {
	Filter Filter
}

func (Include) filter()   {}
func (FeatureID) filter() {}
func (Compare) filter()   {}
func (Like) filter()      {}
func (IsNull) filter()    {}
func (And) filter()       {}
func (Or) filter()        {}
func (Not) filter()       {}

func (Include) String() string { return "INCLUDE" }

func (f FeatureID) String() string {
	ids := make([]string, 0, len(f.IDs))
	for _, id := range f.IDs {
		ids = append(ids, quoteCQL(id))
	}
	return "IN (" + strings.Join(ids, ", ") + ")"
}

func (f Compare) String() string {
	return f.Property + " " + f.Op.String() + " " + literalCQL(f.Value)
}

func (f Like) String() string {
	return f.Property + " LIKE " + quoteCQL(f.Pattern)
}

func (f IsNull) String() string {
	return f.Property + " IS NULL"
}

func (f And) String() string {
	return joinFilters(f.Filters, " AND ")
}

func (f Or) String() string {
	return joinFilters(f.Filters, " OR ")
}

func (f Not) String() string {
	if n, ok := f.Filter.(IsNull); ok {
		return n.Property + " IS NOT NULL"
	}
	return "NOT (" + f.Filter.String() + ")"
}

func joinFilters(fs []Filter, sep string) string {
	parts := make([]string, 0, len(fs))
	for _, f := range fs {
		s := f.String()
		switch f.(type) {
		case And, Or:
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, sep)
}

func literalCQL(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return quoteCQL(v)
}

// NewAnd combines filters flattening nested conjunctions. Include children
// are dropped, nil is returned when nothing is left.
func NewAnd(fs ...Filter) Filter {
	var out []Filter
	for _, f := range fs {
		switch f := f.(type) {
		case nil, Include:
		case And:
			out = append(out, f.Filters...)
		default:
			out = append(out, f)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return And{Filters: out}
}

// NewOr combines filters flattening nested disjunctions.
func NewOr(fs ...Filter) Filter {
	var out []Filter
	for _, f := range fs {
		switch f := f.(type) {
		case nil:
		case Include:
			return nil
		case Or:
			out = append(out, f.Filters...)
		default:
			out = append(out, f)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return Or{Filters: out}
}

// NewNot negates filter. Comparisons are folded into inverse comparisons
// and double negation is removed.
func NewNot(f Filter) Filter {
	switch f := f.(type) {
	case Compare:
		f.Op = f.Op.Negate()
		return f
	case Not:
		return f.Filter
	}
	return Not{Filter: f}
}

package css

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"geocss/style"
)

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
func cssEscapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TermKind tells how a value term was written.
type TermKind int

const (
	TermIdent      TermKind = iota // bare identifier: red, butt, circle
	TermNumber                     // number with optional unit: 2, 2px, 10k
	TermPercentage                 // 50%
	TermString                     // quoted string
	TermColor                      // #rgb or #rrggbb
	TermURL                        // url(...)
	TermFunction                   // symbol(...), rgb(...)
	TermExpression                 // [...] CQL expression
)

// Term is a single space separated component of a property value.
type Term struct {
	Kind   TermKind
	Raw    string  // as written in source
	Text   string  // identifier, unquoted string, colour, url or function name
	Number float64 // numeric value for numbers and percentages
	Unit   string  // lower cased unit for numbers, empty when absent
	Args   []Value // comma separated function arguments
	Expr   style.Expression
}

// Value is a space separated list of terms. Property value is a comma
// separated list of those.
type Value []Term

func (v Value) String() string {
	parts := make([]string, 0, len(v))
	for _, t := range v {
		parts = append(parts, t.Raw)
	}
	return strings.Join(parts, " ")
}

// Declaration is a single property of a rule.
type Declaration struct {
	Property string
	Values   []Value
	Line     int
}

// Raw returns declaration value the way it would be written in CSS.
func (d Declaration) Raw() string {
	return joinValues(d.Values)
}

func joinValues(vs []Value) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, ", ")
}

// Pseudo is a pseudo class narrowing rule to a nested part of a symbolizer.
// Index is 1 based for nth- variants and 0 otherwise.
type Pseudo struct {
	Name  string // mark, stroke, fill, symbol, shield
	Index int
}

func (p Pseudo) String() string {
	if p.Index > 0 {
		return ":nth-" + p.Name + "(" + strconv.Itoa(p.Index) + ")"
	}
	return ":" + p.Name
}

// ScaleCondition restricts rule to a range of scale denominators.
type ScaleCondition struct {
	Op    style.CompareOp
	Value float64
}

// Holds reports whether scale denominator satisfies the condition.
func (c ScaleCondition) Holds(scale float64) bool {
	switch c.Op {
	case style.OpLT:
		return scale < c.Value
	case style.OpLE:
		return scale <= c.Value
	case style.OpGT:
		return scale > c.Value
	case style.OpGE:
		return scale >= c.Value
	case style.OpNE:
		return scale != c.Value
	default:
		return scale == c.Value
	}
}

// Selector is a conjunction of simple conditions. Parts written next to each
// other must all hold.
type Selector struct {
	Raw      string
	TypeName string   // empty when selector does not restrict feature type
	IDs      []string // feature identifiers, any of them matches
	Filters  []style.Filter
	Scales   []ScaleCondition
	Pseudo   []Pseudo
}

// IsCatchAll reports whether selector matches every feature.
func (s Selector) IsCatchAll() bool {
	return s.TypeName == "" && len(s.IDs) == 0 && len(s.Filters) == 0 && len(s.Scales) == 0
}

// Specificity orders selectors, more specific selectors win in cascade.
type Specificity [3]int

// Specificity counts identifiers, attribute, scale and pseudo conditions,
// and type names in that order of importance.
func (s Selector) Specificity() Specificity {
	var sp Specificity
	if len(s.IDs) > 0 {
		sp[0] = 1
	}
	sp[1] = len(s.Filters) + len(s.Scales) + len(s.Pseudo)
	if s.TypeName != "" {
		sp[2] = 1
	}
	return sp
}

// Less reports whether sp is less specific than other.
func (sp Specificity) Less(other Specificity) bool {
	for i := range sp {
		if sp[i] != other[i] {
			return sp[i] < other[i]
		}
	}
	return false
}

// Rule represents a single GeoCSS rule.
type Rule struct {
	Selectors    []Selector // any of them selects the rule
	Declarations []Declaration
	Title        string // from @title comment annotation
	Abstract     string // from @abstract comment annotation
	Line         int
}

// Declaration returns the last declaration of the named property.
func (r Rule) Declaration(name string) (Declaration, bool) {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if r.Declarations[i].Property == name {
			return r.Declarations[i], true
		}
	}
	return Declaration{}, false
}

// Directive is a top level at-rule without a block, such as
// @styleTitle "Roads".
type Directive struct {
	Name  string // without @
	Value string
}

// StylesheetItem is a single top-level item in a stylesheet.
// Exactly one of Rule, Import or Directive is non-nil.
type StylesheetItem struct {
	Rule      *Rule
	Import    *string
	Directive *Directive
}

// Stylesheet represents a parsed GeoCSS stylesheet.
type Stylesheet struct {
	Items    []StylesheetItem // All top-level items in source order
	Warnings []string         // Warnings for skipped or unsupported constructs
}

// Imports returns all @import URLs from the stylesheet in source order.
func (s *Stylesheet) Imports() []string {
	var urls []string
	for _, item := range s.Items {
		if item.Import != nil {
			urls = append(urls, *item.Import)
		}
	}
	return urls
}

// Rules returns all rules in source order.
func (s *Stylesheet) Rules() []Rule {
	var rules []Rule
	for _, item := range s.Items {
		if item.Rule != nil {
			rules = append(rules, *item.Rule)
		}
	}
	return rules
}

// Directive returns value of the last directive with given name.
func (s *Stylesheet) Directive(name string) (string, bool) {
	value, found := "", false
	for _, item := range s.Items {
		if item.Directive != nil && strings.EqualFold(item.Directive.Name, name) {
			value, found = item.Directive.Value, true
		}
	}
	return value, found
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, item := range s.Items {
		var n int
		var err error

		switch {
		case item.Import != nil:
			n, err = fmt.Fprintf(w, "@import url(\"%s\");\n", cssEscapeDoubleQuoted(*item.Import))
		case item.Directive != nil:
			n, err = fmt.Fprintf(w, "@%s \"%s\";\n", item.Directive.Name, cssEscapeDoubleQuoted(item.Directive.Value))
		case item.Rule != nil:
			n, err = writeRule(w, item.Rule)
		}

		total += int64(n)
		if err != nil {
			return total, err
		}

		if i < len(s.Items)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// writeRule writes a single rule to w, declarations keep source order.
func writeRule(w io.Writer, rule *Rule) (int, error) {
	var total int
	if rule.Title != "" || rule.Abstract != "" {
		var ann []string
		if rule.Title != "" {
			ann = append(ann, "@title "+rule.Title)
		}
		if rule.Abstract != "" {
			ann = append(ann, "@abstract "+rule.Abstract)
		}
		n, err := fmt.Fprintf(w, "/* %s */\n", strings.Join(ann, "\n   "))
		total += n
		if err != nil {
			return total, err
		}
	}

	sels := make([]string, 0, len(rule.Selectors))
	for _, sel := range rule.Selectors {
		sels = append(sels, sel.Raw)
	}
	n, err := fmt.Fprintf(w, "%s {\n", strings.Join(sels, ", "))
	total += n
	if err != nil {
		return total, err
	}
	for _, d := range rule.Declarations {
		n, err = fmt.Fprintf(w, "  %s: %s;\n", d.Property, d.Raw())
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprint(w, "}\n")
	total += n
	return total, err
}

// RewriteURLs applies fn to every @import target and url() reference.
func (s *Stylesheet) RewriteURLs(fn func(originalURL string) string) {
	for i := range s.Items {
		item := &s.Items[i]
		switch {
		case item.Import != nil:
			newURL := fn(*item.Import)
			item.Import = &newURL
		case item.Rule != nil:
			for j := range item.Rule.Declarations {
				for k := range item.Rule.Declarations[j].Values {
					rewriteURLsInValue(item.Rule.Declarations[j].Values[k], fn)
				}
			}
		}
	}
}

func rewriteURLsInValue(v Value, fn func(string) string) {
	for i := range v {
		switch v[i].Kind {
		case TermURL:
			v[i].Text = fn(v[i].Text)
			v[i].Raw = "url(\"" + cssEscapeDoubleQuoted(v[i].Text) + "\")"
		case TermFunction:
			for _, arg := range v[i].Args {
				rewriteURLsInValue(arg, fn)
			}
			v[i].Raw = v[i].Text + "(" + joinValues(v[i].Args) + ")"
		}
	}
}

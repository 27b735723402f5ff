package style

import (
	"strconv"
	"strings"
)

// Expression is a value computed per feature. Literal values are by far the
// most common ones.
type Expression interface {
	// String returns CQL representation of the expression.
	String() string
	expression()
}

// Literal is a constant value kept in its textual form.
type Literal struct {
	Value string
}

// PropertyName refers to a feature attribute.
type PropertyName struct {
	Name string
}

// Arithmetic combines two expressions with one of + - * /.
type Arithmetic struct {
	Op    byte
	Left  Expression
	Right Expression
}

// Function is a call of a renderer provided filter function.
type Function struct {
	Name string
	Args []Expression
}

func (Literal) expression()      {}
func (PropertyName) expression() {}
func (Arithmetic) expression()   {}
func (Function) expression()     {}

func (l Literal) String() string {
	if _, err := strconv.ParseFloat(l.Value, 64); err == nil {
		return l.Value
	}
	return quoteCQL(l.Value)
}

func (p PropertyName) String() string {
	return p.Name
}

func (a Arithmetic) String() string {
	return "(" + exprString(a.Left) + " " + string(a.Op) + " " + exprString(a.Right) + ")"
}

func (f Function) String() string {
	args := make([]string, 0, len(f.Args))
	for _, a := range f.Args {
		args = append(args, exprString(a))
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

// Lit is a shortcut for creating literal expression.
func Lit(v string) Literal {
	return Literal{Value: v}
}

// LitFloat creates literal expression from a number using shortest
// representation.
func LitFloat(f float64) Literal {
	return Literal{Value: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Prop is a shortcut for creating property name expression.
func Prop(name string) PropertyName {
	return PropertyName{Name: name}
}

// LiteralFloat returns numeric value of e when it is a numeric literal.
func LiteralFloat(e Expression) (float64, bool) {
	l, ok := e.(Literal)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(l.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// LiteralString returns textual value of e when it is a literal.
func LiteralString(e Expression) (string, bool) {
	if l, ok := e.(Literal); ok {
		return l.Value, true
	}
	return "", false
}

func exprString(e Expression) string {
	if e == nil {
		return ""
	}
	return e.String()
}

func quoteCQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

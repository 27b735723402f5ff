package css

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/tdewolff/parse/v2/css"

	"geocss/style"
)

// parseValues converts declaration tokens into comma separated list of
// values.
func parseValues(tokens []css.Token) ([]Value, error) {
	if len(significant(tokens)) == 0 {
		return nil, nil
	}
	var values []Value
	for _, part := range splitTopLevel(tokens) {
		v, err := parseValue(part)
		if err != nil {
			return nil, err
		}
		if len(v) == 0 {
			return nil, errors.New("empty entry in value list")
		}
		values = append(values, v)
	}
	return values, nil
}

// parseValue converts space separated terms.
func parseValue(tokens []css.Token) (Value, error) {
	var v Value
	for i := 0; i < len(tokens); {
		t := tokens[i]
		raw := string(t.Data)
		switch t.TokenType {
		case css.WhitespaceToken, css.CommentToken:
			i++
			continue

		case css.NumberToken:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", raw)
			}
			v = append(v, Term{Kind: TermNumber, Raw: raw, Number: n})

		case css.DimensionToken:
			n, unit := parseDimension(raw)
			v = append(v, Term{Kind: TermNumber, Raw: raw, Number: n, Unit: unit})

		case css.PercentageToken:
			n, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
			if err != nil {
				return nil, fmt.Errorf("bad percentage %q", raw)
			}
			v = append(v, Term{Kind: TermPercentage, Raw: raw, Number: n, Unit: "%"})

		case css.IdentToken:
			v = append(v, Term{Kind: TermIdent, Raw: raw, Text: raw})

		case css.StringToken:
			v = append(v, Term{Kind: TermString, Raw: raw, Text: unquote(raw)})

		case css.HashToken:
			v = append(v, Term{Kind: TermColor, Raw: raw, Text: raw})

		case css.URLToken:
			v = append(v, Term{Kind: TermURL, Raw: raw, Text: urlTokenTarget(raw)})

		case css.FunctionToken:
			end, err := matching(tokens, i)
			if err != nil {
				return nil, err
			}
			term, err := parseFunction(raw, tokens[i+1:end])
			if err != nil {
				return nil, err
			}
			v = append(v, term)
			i = end + 1
			continue

		case css.LeftBracketToken:
			end, err := matching(tokens, i)
			if err != nil {
				return nil, err
			}
			expr, err := ParseExpression(tokens[i+1 : end])
			if err != nil {
				return nil, err
			}
			v = append(v, Term{Kind: TermExpression, Raw: "[" + tokensString(tokens[i+1:end]) + "]", Expr: expr})
			i = end + 1
			continue

		default:
			return nil, fmt.Errorf("unexpected %q", raw)
		}
		i++
	}
	return v, nil
}

func parseFunction(fn string, args []css.Token) (Term, error) {
	name := strings.ToLower(strings.TrimSuffix(fn, "("))
	raw := name + "(" + tokensString(args) + ")"
	if name == "url" {
		sig := significant(args)
		if len(sig) != 1 || sig[0].TokenType != css.StringToken {
			return Term{}, errors.New("url() expects a single string")
		}
		return Term{Kind: TermURL, Raw: raw, Text: unquote(string(sig[0].Data))}, nil
	}
	values, err := parseValues(args)
	if err != nil {
		return Term{}, fmt.Errorf("%s(): %w", name, err)
	}
	return Term{Kind: TermFunction, Raw: raw, Text: name, Args: values}, nil
}

// parseDimension extracts numeric value and unit from dimension token.
func parseDimension(s string) (float64, string) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || ((r == '-' || r == '+') && i == 0) {
			numEnd = i + 1
		} else {
			break
		}
	}

	if numEnd == 0 {
		return 0, ""
	}

	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	unit := strings.ToLower(s[numEnd:])
	return num, unit
}

// ParseExpression parses tokens of a bracketed CQL expression: attribute
// names, literals, function calls and arithmetic.
func ParseExpression(tokens []css.Token) (style.Expression, error) {
	ep := &exprParser{tokens: significant(tokens)}
	if len(ep.tokens) == 0 {
		return nil, errors.New("empty expression")
	}
	e, err := ep.sum()
	if err != nil {
		return nil, err
	}
	if ep.pos < len(ep.tokens) {
		return nil, fmt.Errorf("unexpected %q in expression", ep.tokens[ep.pos].Data)
	}
	return e, nil
}

type exprParser struct {
	tokens []css.Token
	pos    int
}

func (ep *exprParser) peekOp(ops string) (byte, bool) {
	if ep.pos >= len(ep.tokens) {
		return 0, false
	}
	t := ep.tokens[ep.pos]
	switch t.TokenType {
	case css.DelimToken:
		if len(t.Data) == 1 && strings.IndexByte(ops, t.Data[0]) >= 0 {
			return t.Data[0], true
		}
	case css.NumberToken, css.DimensionToken:
		if len(t.Data) > 1 && (t.Data[0] == '+' || t.Data[0] == '-') && strings.IndexByte(ops, t.Data[0]) >= 0 {
			return t.Data[0], true
		}
	}
	return 0, false
}

// consumeOp moves past operator returned by peekOp. Signed numbers, as in
// a+1, keep their digits as the next operand.
func (ep *exprParser) consumeOp() {
	t := &ep.tokens[ep.pos]
	if t.TokenType == css.DelimToken {
		ep.pos++
		return
	}
	t.Data = t.Data[1:]
}

func (ep *exprParser) sum() (style.Expression, error) {
	left, err := ep.product()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ep.peekOp("+-")
		if !ok {
			return left, nil
		}
		ep.consumeOp()
		right, err := ep.product()
		if err != nil {
			return nil, err
		}
		left = style.Arithmetic{Op: op, Left: left, Right: right}
	}
}

func (ep *exprParser) product() (style.Expression, error) {
	left, err := ep.operand()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ep.peekOp("*/")
		if !ok {
			return left, nil
		}
		ep.consumeOp()
		right, err := ep.operand()
		if err != nil {
			return nil, err
		}
		left = style.Arithmetic{Op: op, Left: left, Right: right}
	}
}

func (ep *exprParser) operand() (style.Expression, error) {
	if ep.pos >= len(ep.tokens) {
		return nil, errors.New("unexpected end of expression")
	}
	t := ep.tokens[ep.pos]
	ep.pos++
	switch t.TokenType {
	case css.NumberToken:
		return style.Lit(string(t.Data)), nil
	case css.DimensionToken, css.PercentageToken:
		n, _ := parseDimension(string(t.Data))
		return style.LitFloat(n), nil
	case css.StringToken:
		return style.Lit(unquote(string(t.Data))), nil
	case css.IdentToken:
		name := string(t.Data)
		for ep.pos+1 < len(ep.tokens) && ep.tokens[ep.pos].TokenType == css.ColonToken &&
			ep.tokens[ep.pos+1].TokenType == css.IdentToken {
			name += ":" + string(ep.tokens[ep.pos+1].Data)
			ep.pos += 2
		}
		return style.Prop(name), nil
	case css.FunctionToken:
		return ep.call(strings.TrimSuffix(string(t.Data), "("))
	case css.LeftParenthesisToken:
		e, err := ep.sum()
		if err != nil {
			return nil, err
		}
		if ep.pos >= len(ep.tokens) || ep.tokens[ep.pos].TokenType != css.RightParenthesisToken {
			return nil, errors.New("missing ')' in expression")
		}
		ep.pos++
		return e, nil
	case css.DelimToken:
		if string(t.Data) == "-" {
			e, err := ep.operand()
			if err != nil {
				return nil, err
			}
			if f, ok := style.LiteralFloat(e); ok {
				return style.LitFloat(-f), nil
			}
			return style.Arithmetic{Op: '-', Left: style.LitFloat(0), Right: e}, nil
		}
	}
	return nil, fmt.Errorf("unexpected %q in expression", t.Data)
}

func (ep *exprParser) call(name string) (style.Expression, error) {
	fn := style.Function{Name: name}
	if ep.pos < len(ep.tokens) && ep.tokens[ep.pos].TokenType == css.RightParenthesisToken {
		ep.pos++
		return fn, nil
	}
	for {
		arg, err := ep.sum()
		if err != nil {
			return nil, err
		}
		fn.Args = append(fn.Args, arg)
		if ep.pos >= len(ep.tokens) {
			return nil, fmt.Errorf("missing ')' after arguments of %s", name)
		}
		switch ep.tokens[ep.pos].TokenType {
		case css.CommaToken:
			ep.pos++
		case css.RightParenthesisToken:
			ep.pos++
			return fn, nil
		default:
			return nil, fmt.Errorf("unexpected %q in arguments of %s", ep.tokens[ep.pos].Data, name)
		}
	}
}

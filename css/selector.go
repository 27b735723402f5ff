package css

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2/css"

	"geocss/style"
)

// pseudoClasses known to the translator, anything else after ':' is a
// namespace separator of a type name.
var pseudoClasses = map[string]bool{
	"mark":   true,
	"stroke": true,
	"fill":   true,
	"symbol": true,
	"shield": true,
}

// splitTopLevel splits tokens on commas not enclosed in brackets or
// parentheses.
func splitTopLevel(tokens []css.Token) [][]css.Token {
	var (
		parts [][]css.Token
		start int
		depth int
	)
	for i, t := range tokens {
		switch t.TokenType {
		case css.LeftBracketToken, css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightBracketToken, css.RightParenthesisToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				parts = append(parts, tokens[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, tokens[start:])
}

// significant drops whitespace and comments.
func significant(tokens []css.Token) []css.Token {
	out := make([]css.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken && t.TokenType != css.CommentToken {
			out = append(out, t)
		}
	}
	return out
}

// matching returns index of the token closing the group opened at tokens[start].
func matching(tokens []css.Token, start int) (int, error) {
	depth := 0
	for i := start; i < len(tokens); i++ {
		switch tokens[i].TokenType {
		case css.LeftBracketToken, css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightBracketToken, css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, errors.New("unbalanced brackets")
}

// parseSelectors parses comma separated selector list of a ruleset.
func parseSelectors(tokens []css.Token) ([]Selector, error) {
	var sels []Selector
	for _, part := range splitTopLevel(tokens) {
		sel, err := parseSelector(part)
		if err != nil {
			return nil, err
		}
		sels = append(sels, sel)
	}
	return sels, nil
}

func parseSelector(tokens []css.Token) (Selector, error) {
	sel := Selector{Raw: tokensString(tokens)}
	if sel.Raw == "" {
		return sel, errors.New("empty selector")
	}

	parts := 0
	for i := 0; i < len(tokens); {
		t := tokens[i]
		switch t.TokenType {
		case css.WhitespaceToken, css.CommentToken:
			i++
			continue

		case css.DelimToken:
			if string(t.Data) != "*" {
				return sel, fmt.Errorf("unexpected %q in selector %q", t.Data, sel.Raw)
			}
			i++

		case css.IdentToken:
			name := string(t.Data)
			i++
			// namespaced type name, topp:states
			for i+1 < len(tokens) && tokens[i].TokenType == css.ColonToken &&
				tokens[i+1].TokenType == css.IdentToken && !pseudoClasses[strings.ToLower(string(tokens[i+1].Data))] {
				name += ":" + string(tokens[i+1].Data)
				i += 2
			}
			if sel.TypeName != "" && sel.TypeName != name {
				return sel, fmt.Errorf("conflicting type names %q and %q in selector %q", sel.TypeName, name, sel.Raw)
			}
			sel.TypeName = name

		case css.HashToken:
			id := strings.TrimPrefix(string(t.Data), "#")
			i++
			// feature ids contain dots, #states.3 comes in several tokens
			for i < len(tokens) && isIDContinuation(tokens[i]) {
				id += string(tokens[i].Data)
				i++
			}
			if id == "" {
				return sel, fmt.Errorf("empty feature id in selector %q", sel.Raw)
			}
			sel.IDs = append(sel.IDs, id)

		case css.LeftBracketToken:
			end, err := matching(tokens, i)
			if err != nil {
				return sel, fmt.Errorf("%w in selector %q", err, sel.Raw)
			}
			if err := parseCondition(&sel, tokens[i+1:end]); err != nil {
				return sel, fmt.Errorf("%w in selector %q", err, sel.Raw)
			}
			i = end + 1

		case css.ColonToken:
			if i+1 >= len(tokens) {
				return sel, fmt.Errorf("dangling ':' in selector %q", sel.Raw)
			}
			next := tokens[i+1]
			switch next.TokenType {
			case css.IdentToken:
				name := strings.ToLower(string(next.Data))
				if !pseudoClasses[name] {
					return sel, fmt.Errorf("unknown pseudo class %q in selector %q", name, sel.Raw)
				}
				sel.Pseudo = append(sel.Pseudo, Pseudo{Name: name})
				i += 2
			case css.FunctionToken:
				end, err := matching(tokens, i+1)
				if err != nil {
					return sel, fmt.Errorf("%w in selector %q", err, sel.Raw)
				}
				ps, err := parseNthPseudo(string(next.Data), tokens[i+2:end])
				if err != nil {
					return sel, fmt.Errorf("%w in selector %q", err, sel.Raw)
				}
				sel.Pseudo = append(sel.Pseudo, ps)
				i = end + 1
			default:
				return sel, fmt.Errorf("unexpected %q after ':' in selector %q", next.Data, sel.Raw)
			}

		default:
			return sel, fmt.Errorf("unexpected %q in selector %q", t.Data, sel.Raw)
		}
		parts++
	}
	if parts == 0 {
		return sel, errors.New("empty selector")
	}
	return sel, nil
}

func isIDContinuation(t css.Token) bool {
	switch t.TokenType {
	case css.NumberToken, css.IdentToken, css.DimensionToken:
		return true
	case css.DelimToken:
		return string(t.Data) == "."
	}
	return false
}

// parseNthPseudo handles :nth-mark(2) and friends.
func parseNthPseudo(fn string, args []css.Token) (Pseudo, error) {
	name := strings.ToLower(strings.TrimSuffix(fn, "("))
	base, ok := strings.CutPrefix(name, "nth-")
	if !ok || !pseudoClasses[base] {
		return Pseudo{}, fmt.Errorf("unknown pseudo class %q", name)
	}
	args = significant(args)
	if len(args) != 1 || args[0].TokenType != css.NumberToken {
		return Pseudo{}, fmt.Errorf("%s expects a single index", name)
	}
	n, err := strconv.Atoi(string(args[0].Data))
	if err != nil || n < 1 {
		return Pseudo{}, fmt.Errorf("%s index must be a positive integer", name)
	}
	return Pseudo{Name: base, Index: n}, nil
}

// parseCondition parses content of [...] in selector.
func parseCondition(sel *Selector, tokens []css.Token) error {
	tokens = significant(tokens)
	if len(tokens) == 0 {
		return errors.New("empty condition")
	}

	if tokens[0].TokenType == css.AtKeywordToken {
		kw := strings.ToLower(string(tokens[0].Data))
		if kw != "@scale" && kw != "@sd" {
			return fmt.Errorf("unknown condition %s", tokens[0].Data)
		}
		op, rest, err := parseOperator(tokens[1:])
		if err != nil {
			return err
		}
		if len(rest) != 1 {
			return fmt.Errorf("%s expects a single number", kw)
		}
		v, err := parseScale(rest[0])
		if err != nil {
			return err
		}
		sel.Scales = append(sel.Scales, ScaleCondition{Op: op, Value: v})
		return nil
	}

	prop, rest, err := parsePropertyName(tokens)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		sel.Filters = append(sel.Filters, style.NewNot(style.IsNull{Property: prop}))
		return nil
	}

	if rest[0].TokenType == css.IdentToken {
		words := make([]string, 0, len(rest))
		for _, t := range rest {
			words = append(words, strings.ToUpper(string(t.Data)))
		}
		switch {
		case len(rest) == 2 && words[0] == "IS" && words[1] == "NULL":
			sel.Filters = append(sel.Filters, style.IsNull{Property: prop})
			return nil
		case len(rest) == 3 && words[0] == "IS" && words[1] == "NOT" && words[2] == "NULL":
			sel.Filters = append(sel.Filters, style.NewNot(style.IsNull{Property: prop}))
			return nil
		case len(rest) == 2 && words[0] == "LIKE" && rest[1].TokenType == css.StringToken:
			sel.Filters = append(sel.Filters, style.Like{Property: prop, Pattern: unquote(string(rest[1].Data))})
			return nil
		case len(rest) == 3 && words[0] == "NOT" && words[1] == "LIKE" && rest[2].TokenType == css.StringToken:
			sel.Filters = append(sel.Filters, style.NewNot(style.Like{Property: prop, Pattern: unquote(string(rest[2].Data))}))
			return nil
		}
		return fmt.Errorf("unsupported condition on %s", prop)
	}

	op, rest, err := parseOperator(rest)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("comparison of %s expects a single literal", prop)
	}
	var value string
	switch rest[0].TokenType {
	case css.NumberToken:
		value = string(rest[0].Data)
	case css.StringToken:
		value = unquote(string(rest[0].Data))
	case css.IdentToken:
		value = string(rest[0].Data)
	default:
		return fmt.Errorf("unsupported literal %q", rest[0].Data)
	}
	sel.Filters = append(sel.Filters, style.Compare{Property: prop, Op: op, Value: value})
	return nil
}

// parsePropertyName reads attribute name, possibly namespaced.
func parsePropertyName(tokens []css.Token) (string, []css.Token, error) {
	if tokens[0].TokenType != css.IdentToken {
		return "", nil, fmt.Errorf("attribute name expected, got %q", tokens[0].Data)
	}
	name := string(tokens[0].Data)
	i := 1
	for i+1 < len(tokens) && tokens[i].TokenType == css.ColonToken && tokens[i+1].TokenType == css.IdentToken {
		name += ":" + string(tokens[i+1].Data)
		i += 2
	}
	return name, tokens[i:], nil
}

// parseOperator collects comparison operator out of delimiter tokens.
func parseOperator(tokens []css.Token) (style.CompareOp, []css.Token, error) {
	var sb strings.Builder
	i := 0
	for i < len(tokens) && tokens[i].TokenType == css.DelimToken && strings.ContainsAny(string(tokens[i].Data), "<>=!") {
		sb.Write(tokens[i].Data)
		i++
	}
	op, ok := style.ParseCompareOp(sb.String())
	if !ok {
		return 0, nil, fmt.Errorf("comparison operator expected, got %q", sb.String())
	}
	return op, tokens[i:], nil
}

// parseScale reads scale denominator, k and M suffixes multiply by thousand
// and million.
func parseScale(t css.Token) (float64, error) {
	switch t.TokenType {
	case css.NumberToken:
		return strconv.ParseFloat(string(t.Data), 64)
	case css.DimensionToken:
		num, unit := parseDimension(string(t.Data))
		switch unit {
		case "k":
			return num * 1e3, nil
		case "m":
			if strings.HasSuffix(string(t.Data), "M") {
				return num * 1e6, nil
			}
		}
		return 0, fmt.Errorf("bad scale %q", t.Data)
	}
	return 0, fmt.Errorf("bad scale %q", t.Data)
}

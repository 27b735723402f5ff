package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses GeoCSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new GeoCSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// directives recognized as top level at-rules without block.
var directives = map[string]bool{
	"mode":          true,
	"stylename":     true,
	"styletitle":    true,
	"styleabstract": true,
}

// Parse parses GeoCSS text into a Stylesheet. The optional source parameter
// identifies what's being parsed (for logging and error messages).
// Malformed selectors and broken syntax are reported as *ParseError, values
// which could not be understood only produce warnings.
func (p *Parser) Parse(data []byte, source ...string) (*Stylesheet, error) {
	sheet := &Stylesheet{
		Items:    make([]StylesheetItem, 0),
		Warnings: make([]string, 0),
	}

	var name string
	if len(source) > 0 {
		name = source[0]
	}
	if name != "" {
		p.log.Debug("Parsing CSS", zap.String("source", name), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	var comment string
	for {
		gt, _, tokData := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				pe := &ParseError{Source: name, Msg: err.Error()}
				var perr *parse.Error
				if errors.As(err, &perr) {
					pe.Line, pe.Msg = perr.Line, perr.Message
				}
				return nil, pe
			}
			return sheet, nil

		case css.CommentGrammar:
			comment = string(tokData)
			continue

		case css.AtRuleGrammar:
			p.parseAtRule(sheet, strings.ToLower(string(tokData)), parser.Values())

		case css.BeginAtRuleGrammar:
			atRule := string(tokData)
			p.skipAtRuleBlock(parser)
			sheet.Warnings = append(sheet.Warnings, "unsupported block at-rule: "+atRule)
			p.log.Debug("Skipping @-rule", zap.String("rule", atRule))

		case css.BeginRulesetGrammar:
			line := lineAt(data, parser.Offset())
			selectors, err := parseSelectors(parser.Values())
			if err != nil {
				return nil, &ParseError{Source: name, Line: line, Msg: err.Error()}
			}
			rule := &Rule{
				Selectors:    selectors,
				Declarations: p.parseDeclarations(parser, sheet, data),
				Line:         line,
			}
			rule.Title, rule.Abstract = parseAnnotations(comment)
			sheet.Items = append(sheet.Items, StylesheetItem{Rule: rule})

		case css.QualifiedRuleGrammar:
			sheet.Warnings = append(sheet.Warnings, "selector without declaration block: "+tokensString(parser.Values()))

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			sheet.Warnings = append(sheet.Warnings, "declaration outside of rule: "+string(tokData))
		}
		comment = ""
	}
}

func (p *Parser) parseAtRule(sheet *Stylesheet, atRule string, values []css.Token) {
	name := strings.ToLower(strings.TrimPrefix(atRule, "@"))
	switch {
	case name == "import":
		url := extractImportURL(values)
		if url == "" {
			sheet.Warnings = append(sheet.Warnings, "@import without target")
			return
		}
		sheet.Items = append(sheet.Items, StylesheetItem{Import: &url})
		p.log.Debug("Parsed @import", zap.String("url", url))
	case name == "charset":
		// already taken care of when stylesheet was decoded
	case directives[name]:
		d := &Directive{Name: canonicalDirective(name), Value: directiveValue(values)}
		sheet.Items = append(sheet.Items, StylesheetItem{Directive: d})
		p.log.Debug("Parsed directive", zap.String("name", d.Name), zap.String("value", d.Value))
	default:
		sheet.Warnings = append(sheet.Warnings, "unsupported at-rule: "+atRule)
		p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
	}
}

func canonicalDirective(name string) string {
	switch name {
	case "stylename":
		return "styleName"
	case "styletitle":
		return "styleTitle"
	case "styleabstract":
		return "styleAbstract"
	default:
		return name
	}
}

func directiveValue(tokens []css.Token) string {
	var parts []string
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			parts = append(parts, unquote(string(t.Data)))
		case css.WhitespaceToken, css.CommentToken:
		default:
			parts = append(parts, string(t.Data))
		}
	}
	return strings.Join(parts, " ")
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for i, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			return urlTokenTarget(string(t.Data))
		case css.FunctionToken:
			if strings.EqualFold(string(t.Data), "url(") && i+1 < len(tokens) && tokens[i+1].TokenType == css.StringToken {
				return unquote(string(tokens[i+1].Data))
			}
		}
	}
	return ""
}

// urlTokenTarget strips url( prefix and ) suffix and unquotes the rest.
func urlTokenTarget(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "url(") {
		s = s[4:]
	}
	s = strings.TrimSuffix(s, ")")
	return unquote(strings.TrimSpace(s))
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (p *Parser) parseDeclarations(parser *css.Parser, sheet *Stylesheet, data []byte) []Declaration {
	var decls []Declaration

	for {
		gt, _, tokData := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return decls

		case css.DeclarationGrammar:
			prop := strings.ToLower(string(tokData))
			line := lineAt(data, parser.Offset())
			values, err := parseValues(parser.Values())
			if err != nil {
				msg := fmt.Sprintf("line %d: ignoring property %s: %v", line, prop, err)
				sheet.Warnings = append(sheet.Warnings, msg)
				p.log.Debug("Bad property value", zap.String("property", prop), zap.Int("line", line), zap.Error(err))
				continue
			}
			if len(values) == 0 {
				continue
			}
			decls = append(decls, Declaration{Property: prop, Values: values, Line: line})

		case css.BeginRulesetGrammar, css.BeginAtRuleGrammar:
			sheet.Warnings = append(sheet.Warnings, "nested blocks are not supported")
			p.skipAtRuleBlock(parser)

		case css.CustomPropertyGrammar:
			// CSS custom properties (--var) have no meaning in map styles
			continue
		}
	}
}

// parseAnnotations extracts @title and @abstract from a comment preceding a rule.
func parseAnnotations(comment string) (title, abstract string) {
	if comment == "" {
		return "", ""
	}
	comment = strings.TrimSuffix(strings.TrimPrefix(comment, "/*"), "*/")
	for line := range strings.SplitSeq(comment, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "*"))
		if v, ok := strings.CutPrefix(line, "@title"); ok {
			title = strings.TrimSpace(v)
		} else if v, ok := strings.CutPrefix(line, "@abstract"); ok {
			abstract = strings.TrimSpace(v)
		}
	}
	return title, abstract
}

// skipAtRuleBlock skips tokens until the matching end of a block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// lineAt returns 1 based line number for byte offset.
func lineAt(data []byte, offset int) int {
	offset = max(0, min(offset, len(data)))
	return bytes.Count(data[:offset], []byte{'\n'}) + 1
}

// unquote removes surrounding quotes from a string and resolves simple
// backslash escapes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		s = s[1 : len(s)-1]
		if strings.Contains(s, `\`) {
			var sb strings.Builder
			escaped := false
			for _, r := range s {
				if !escaped && r == '\\' {
					escaped = true
					continue
				}
				escaped = false
				sb.WriteRune(r)
			}
			s = sb.String()
		}
	}
	return s
}

// tokensString joins tokens back into source text with whitespace collapsed.
func tokensString(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		switch t.TokenType {
		case css.WhitespaceToken:
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case css.CommentToken:
		default:
			sb.Write(t.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}

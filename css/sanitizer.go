// Package css prepares user stylesheets for paginated content. Declarations
// governing multi-column layout are removed so geometry set by the paginator
// stays authoritative.
package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Report describes what Sanitize did.
type Report struct {
	// Removed lists dropped declarations as "selector { property }".
	Removed []string
	// Imports lists @import targets, they are kept but not sanitized.
	Imports []string
}

// Sanitizer removes column layout declarations from stylesheets.
type Sanitizer struct {
	log *zap.Logger
}

// NewSanitizer creates a new sanitizer.
func NewSanitizer(log *zap.Logger) *Sanitizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sanitizer{log: log.Named("css")}
}

// Blocked reports whether property controls column layout, vendor prefixes
// are ignored.
func Blocked(property string) bool {
	p := strings.ToLower(strings.TrimSpace(property))
	if strings.HasPrefix(p, "-") {
		if i := strings.IndexByte(p[1:], '-'); i >= 0 {
			p = p[i+2:]
		}
	}
	return p == "columns" || strings.HasPrefix(p, "column-")
}

// Sanitize rewrites stylesheet without blocked declarations. The optional
// source parameter identifies what's being sanitized (for debug logging).
func (s *Sanitizer) Sanitize(data []byte, source ...string) ([]byte, Report) {
	return s.run(data, false, source...)
}

// SanitizeInline does the same for style attribute value.
func (s *Sanitizer) SanitizeInline(style string) (string, Report) {
	out, rpt := s.run([]byte(style), true)
	return string(out), rpt
}

func (s *Sanitizer) run(data []byte, inline bool, source ...string) ([]byte, Report) {
	var (
		rpt      Report
		out      bytes.Buffer
		selector []string
	)

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), inline)
	for {
		gt, _, text := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				s.log.Debug("CSS parse error", zap.Error(err))
			}
			s.logReport(rpt, source...)
			return bytes.TrimSpace(out.Bytes()), rpt

		case css.CommentGrammar:
			// dropped

		case css.AtRuleGrammar:
			if string(text) == "@import" {
				if url := extractImportURL(parser.Values()); len(url) > 0 {
					rpt.Imports = append(rpt.Imports, url)
				}
			}
			out.Write(text)
			writeValues(&out, parser.Values(), true)
			out.WriteString(";\n")

		case css.BeginAtRuleGrammar:
			out.Write(text)
			writeValues(&out, parser.Values(), true)
			out.WriteString(" {\n")

		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			if gt == css.EndRulesetGrammar && len(selector) > 0 {
				selector = selector[:len(selector)-1]
			}
			out.WriteString("}\n")

		case css.QualifiedRuleGrammar:
			writeValues(&out, parser.Values(), false)
			out.WriteString(", ")

		case css.BeginRulesetGrammar:
			writeValues(&out, parser.Values(), false)
			out.WriteString(" {\n")
			selector = append(selector, lastLine(out.Bytes()))

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			name := string(text)
			if gt == css.DeclarationGrammar && Blocked(name) {
				where := "style"
				if len(selector) > 0 {
					where = selector[len(selector)-1]
				}
				rpt.Removed = append(rpt.Removed, where+" { "+name+" }")
				continue
			}
			if !inline {
				out.WriteString("  ")
			}
			out.Write(text)
			out.WriteByte(':')
			writeValues(&out, parser.Values(), false)
			out.WriteString(";")
			if !inline {
				out.WriteByte('\n')
			}

		case css.TokenGrammar:
			out.Write(text)
		}
	}
}

func (s *Sanitizer) logReport(rpt Report, source ...string) {
	if len(rpt.Removed) == 0 {
		return
	}
	name := "inline"
	if len(source) > 0 && source[0] != "" {
		name = source[0]
	}
	s.log.Debug("Removed column layout declarations", zap.String("source", name), zap.Strings("declarations", rpt.Removed))
}

// writeValues writes token data, whitespace tokens are collapsed.
func writeValues(out *bytes.Buffer, values []css.Token, lead bool) {
	space := lead
	for _, v := range values {
		if v.TokenType == css.WhitespaceToken {
			space = true
			continue
		}
		if space && out.Len() > 0 {
			out.WriteByte(' ')
		}
		space = false
		out.Write(v.Data)
	}
}

// lastLine returns selector text of the ruleset just opened.
func lastLine(b []byte) string {
	b = bytes.TrimSuffix(b, []byte(" {\n"))
	if i := bytes.LastIndexAny(b, "\n{};"); i >= 0 {
		b = b[i+1:]
	}
	return strings.TrimSpace(string(b))
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			s := strings.TrimSuffix(strings.TrimPrefix(string(t.Data), "url("), ")")
			return unquote(strings.TrimSpace(s))
		}
	}
	return ""
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

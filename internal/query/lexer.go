package query

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokLParen
	tokRParen
	tokCompare // one of < <= > >=
)

type token struct {
	kind tokenKind
	text string
	pos  int // byte offset in the filter string, for error messages
}

// keyword reports whether t is the given reserved word, case-insensitively.
// Quoted tokens are never keywords, which is how a literal "and" is matched.
func (t token) keyword(kw string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, kw)
}

func (t token) anyKeyword() bool {
	return t.keyword("and") || t.keyword("or") || t.keyword("not") ||
		t.keyword("time") || t.keyword("within")
}

// lex splits a filter string into tokens. Quoted literals keep their spacing;
// everything else breaks on whitespace, parentheses, comparison operators,
// and quotes.
func lex(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case unicode.IsSpace(rune(c)):
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '<' || c == '>':
			op := string(c)
			start := i
			i++
			if i < len(s) && s[i] == '=' {
				op += "="
				i++
			}
			toks = append(toks, token{tokCompare, op, start})
		case c == '"':
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote at offset %d", i)
			}
			toks = append(toks, token{tokQuoted, s[i+1 : i+1+end], i})
			i += end + 2
		default:
			start := i
			for i < len(s) && !strings.ContainsRune(`()<>"`, rune(s[i])) && !unicode.IsSpace(rune(s[i])) {
				i++
			}
			toks = append(toks, token{tokWord, s[start:i], start})
		}
	}
	return toks, nil
}

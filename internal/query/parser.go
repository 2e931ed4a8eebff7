package query

import (
	"fmt"
	"strings"
)

// Parser builds filter expressions. Case handling is fixed at construction:
// a folding parser lower-cases phrase literals and document tokens at match
// time, an exact parser does neither. Callers wanting both keep two parser
// instances.
type Parser struct {
	fold bool
}

// NewFoldingParser returns a parser whose phrase terms match
// case-insensitively.
func NewFoldingParser() *Parser { return &Parser{fold: true} }

// NewExactParser returns a parser whose phrase terms match case-sensitively.
func NewExactParser() *Parser { return &Parser{} }

// Parse compiles a filter string into an expression tree. All malformed
// input is rejected here, before any data is processed; evaluation never
// fails. The returned Expr is immutable and safe for concurrent use.
func (p *Parser) Parse(s string) (Expr, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, fmt.Errorf("parse filter %q: %w", s, err)
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("parse filter %q: empty expression", s)
	}
	st := &parseState{toks: toks, fold: p.fold}
	expr, err := st.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parse filter %q: %w", s, err)
	}
	if !st.done() {
		return nil, fmt.Errorf("parse filter %q: unexpected %q at offset %d", s, st.peek().text, st.peek().pos)
	}
	return expr, nil
}

type parseState struct {
	toks []token
	pos  int
	fold bool
}

func (st *parseState) done() bool { return st.pos >= len(st.toks) }

func (st *parseState) peek() token { return st.toks[st.pos] }

func (st *parseState) next() token {
	t := st.toks[st.pos]
	st.pos++
	return t
}

func (st *parseState) expect(kind tokenKind, what string) (token, error) {
	if st.done() {
		return token{}, fmt.Errorf("expected %s at end of expression", what)
	}
	t := st.next()
	if t.kind != kind {
		return token{}, fmt.Errorf("expected %s, got %q at offset %d", what, t.text, t.pos)
	}
	return t, nil
}

// parseOr handles the lowest-precedence level; OR is left-associative.
func (st *parseState) parseOr() (Expr, error) {
	left, err := st.parseAnd()
	if err != nil {
		return nil, err
	}
	for !st.done() && st.peek().keyword("or") {
		st.next()
		right, err := st.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left, right}
	}
	return left, nil
}

func (st *parseState) parseAnd() (Expr, error) {
	left, err := st.parseTerm()
	if err != nil {
		return nil, err
	}
	for !st.done() && st.peek().keyword("and") {
		st.next()
		right, err := st.parseTerm()
		if err != nil {
			return nil, err
		}
		left = andExpr{left, right}
	}
	return left, nil
}

func (st *parseState) parseTerm() (Expr, error) {
	if st.done() {
		return nil, fmt.Errorf("expected a term at end of expression")
	}

	t := st.peek()
	switch {
	case t.kind == tokLParen:
		st.next()
		inner, err := st.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := st.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return inner, nil

	case t.keyword("not"):
		st.next()
		inner, err := st.parseTerm()
		if err != nil {
			return nil, err
		}
		return notExpr{inner}, nil

	case t.keyword("time"):
		st.next()
		return st.parseTimeTerm()

	default:
		return st.parsePhrase()
	}
}

// parsePhrase consumes one or more adjacent word tokens as an ordered phrase.
func (st *parseState) parsePhrase() (Expr, error) {
	var words []string
	for !st.done() {
		t := st.peek()
		if t.kind != tokWord && t.kind != tokQuoted {
			break
		}
		if t.kind == tokWord && t.anyKeyword() {
			break
		}
		st.next()
		w := t.text
		if st.fold {
			w = strings.ToLower(w)
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		t := st.peek()
		return nil, fmt.Errorf("expected a term, got %q at offset %d", t.text, t.pos)
	}
	return phraseExpr{words: words, fold: st.fold}, nil
}

// parseTimeTerm parses what follows the TIME keyword: either a comparison
// against a time literal or a WITHIN interval.
func (st *parseState) parseTimeTerm() (Expr, error) {
	if st.done() {
		return nil, fmt.Errorf("expected a comparison or WITHIN after TIME")
	}

	t := st.next()
	if t.kind == tokCompare {
		lit, err := st.expect(tokWord, "a time literal")
		if err != nil {
			return nil, err
		}
		millis, err := ParseTimeLiteral(lit.text)
		if err != nil {
			return nil, fmt.Errorf("time literal %q at offset %d: %w", lit.text, lit.pos, err)
		}
		var op compareOp
		switch t.text {
		case "<":
			op = opLT
		case "<=":
			op = opLE
		case ">":
			op = opGT
		case ">=":
			op = opGE
		}
		return timeCompareExpr{op: op, t: millis}, nil
	}

	if t.keyword("within") {
		return st.parseWithin()
	}
	return nil, fmt.Errorf("expected a comparison or WITHIN after TIME, got %q at offset %d", t.text, t.pos)
}

// parseWithin parses either "point/offset" or "(a b)". Both forms denote a
// half-open interval.
func (st *parseState) parseWithin() (Expr, error) {
	if st.done() {
		return nil, fmt.Errorf("expected an interval after WITHIN")
	}

	t := st.next()
	if t.kind == tokLParen {
		aTok, err := st.expect(tokWord, "a time literal")
		if err != nil {
			return nil, err
		}
		bTok, err := st.expect(tokWord, "a time literal")
		if err != nil {
			return nil, err
		}
		if _, err := st.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		a, err := ParseTimeLiteral(aTok.text)
		if err != nil {
			return nil, fmt.Errorf("time literal %q at offset %d: %w", aTok.text, aTok.pos, err)
		}
		b, err := ParseTimeLiteral(bTok.text)
		if err != nil {
			return nil, fmt.Errorf("time literal %q at offset %d: %w", bTok.text, bTok.pos, err)
		}
		if b < a {
			a, b = b, a
		}
		return timeWithinExpr{lo: a, hi: b}, nil
	}

	if t.kind != tokWord {
		return nil, fmt.Errorf("expected an interval after WITHIN, got %q at offset %d", t.text, t.pos)
	}
	point, offset, found := strings.Cut(t.text, "/")
	if !found {
		return nil, fmt.Errorf("interval %q at offset %d: want point/offset or (a b)", t.text, t.pos)
	}
	pt, err := ParseTimeLiteral(point)
	if err != nil {
		return nil, fmt.Errorf("time literal %q at offset %d: %w", point, t.pos, err)
	}
	delta, err := ParseOffset(offset)
	if err != nil {
		return nil, fmt.Errorf("offset %q at offset %d: %w", offset, t.pos, err)
	}
	if delta >= 0 {
		return timeWithinExpr{lo: pt, hi: pt + delta}, nil
	}
	return timeWithinExpr{lo: pt + delta, hi: pt}, nil
}

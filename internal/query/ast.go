// Package query implements the boolean post-filter language: ordered phrase
// terms, AND/OR/NOT, and timestamp predicates, parsed once per filter string
// into an immutable expression tree that is safe to share across concurrent
// evaluations.
package query

import "strings"

// Doc bundles what a filter expression evaluates against: the candidate's
// word tokens plus its timestamp range. For an unmerged post MinTime equals
// MaxTime.
type Doc struct {
	Tokens  []string
	MinTime int64
	MaxTime int64
}

// Expr is one node of a parsed filter expression.
type Expr interface {
	// Matches reports whether the document satisfies this (sub)expression.
	Matches(d Doc) bool
}

// phraseExpr matches iff its words occur as a contiguous, order-preserving
// run of the document's tokens. With fold set, document tokens are
// lower-cased at match time; the parser lower-cases the literal words at
// construction.
type phraseExpr struct {
	words []string
	fold  bool
}

func (e phraseExpr) Matches(d Doc) bool {
	if len(e.words) == 0 {
		return true
	}
outer:
	for i := 0; i+len(e.words) <= len(d.Tokens); i++ {
		for j, w := range e.words {
			tok := d.Tokens[i+j]
			if e.fold {
				tok = strings.ToLower(tok)
			}
			if tok != w {
				continue outer
			}
		}
		return true
	}
	return false
}

type andExpr struct {
	left, right Expr
}

func (e andExpr) Matches(d Doc) bool {
	return e.left.Matches(d) && e.right.Matches(d)
}

type orExpr struct {
	left, right Expr
}

func (e orExpr) Matches(d Doc) bool {
	return e.left.Matches(d) || e.right.Matches(d)
}

type notExpr struct {
	inner Expr
}

func (e notExpr) Matches(d Doc) bool {
	return !e.inner.Matches(d)
}

type compareOp int

const (
	opLT compareOp = iota
	opLE
	opGT
	opGE
)

// timeCompareExpr applies a comparison against the document's whole time
// range: the predicate must hold for both endpoints. For a single-timestamp
// document this is ordinary point comparison.
type timeCompareExpr struct {
	op compareOp
	t  int64
}

func (e timeCompareExpr) Matches(d Doc) bool {
	switch e.op {
	case opLT:
		return d.MaxTime < e.t
	case opLE:
		return d.MaxTime <= e.t
	case opGT:
		return d.MinTime > e.t
	case opGE:
		return d.MinTime >= e.t
	}
	return false
}

// timeWithinExpr matches iff the document's whole time range lies in the
// half-open interval [lo, hi).
type timeWithinExpr struct {
	lo, hi int64
}

func (e timeWithinExpr) Matches(d Doc) bool {
	return d.MinTime >= e.lo && d.MaxTime < e.hi
}

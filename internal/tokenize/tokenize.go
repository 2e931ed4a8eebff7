// Package tokenize turns post text into normalized n-grams: a tweet-aware
// word split, token normalization (case folding, URL sentinel substitution,
// optional stemming), and sliding-window n-gram generation with sentinel
// rejection.
package tokenize

import (
	"strings"

	"github.com/kljensen/snowball/english"
)

// Sentinel replaces any token that carries a URL. N-grams made entirely of
// sentinels, or bounded by one, are rejected; the shorter n-gram inside the
// boundary already captures the non-sentinel remainder.
const Sentinel = "LINK"

// WordSplitter breaks raw text into an ordered sequence of word tokens.
type WordSplitter interface {
	Words(text string) []string
}

// Ngram is a contiguous run of normalized tokens.
type Ngram []string

// String joins the n-gram's words with spaces, for logging and tests.
func (n Ngram) String() string { return strings.Join(n, " ") }

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithMaxN sets the maximum n-gram length (default 1).
func WithMaxN(n int) Option {
	return func(t *Tokenizer) { t.maxN = n }
}

// WithPreserveCase disables the default lower-casing of tokens.
func WithPreserveCase() Option {
	return func(t *Tokenizer) { t.preserveCase = true }
}

// WithStemming reduces tokens to their English stem after normalization.
func WithStemming() Option {
	return func(t *Tokenizer) { t.stem = true }
}

// WithSplitter overrides the default tweet-aware word splitter.
func WithSplitter(s WordSplitter) Option {
	return func(t *Tokenizer) { t.split = s }
}

// Tokenizer converts text to n-grams. It is stateless after construction and
// safe for concurrent use.
type Tokenizer struct {
	split        WordSplitter
	maxN         int
	preserveCase bool
	stem         bool
}

// New builds a Tokenizer with the given options.
func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{split: TweetSplitter{}, maxN: 1}
	for _, opt := range opts {
		opt(t)
	}
	if t.maxN < 1 {
		t.maxN = 1
	}
	return t
}

// Words returns the normalized word tokens of text without n-gram expansion.
// Filter evaluation matches against these.
func (t *Tokenizer) Words(text string) []string {
	raw := t.split.Words(text)
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		out = append(out, t.normalize(w))
	}
	return out
}

// Tokenize returns every surviving n-gram of length 1..maxN, shortest lengths
// first. Empty text yields an empty sequence.
func (t *Tokenizer) Tokenize(text string) []Ngram {
	words := t.Words(text)
	var out []Ngram
	for n := 1; n <= t.maxN; n++ {
		for i := 0; i+n <= len(words); i++ {
			gram := Ngram(words[i : i+n])
			if rejectNgram(gram) {
				continue
			}
			out = append(out, gram)
		}
	}
	return out
}

func (t *Tokenizer) normalize(w string) string {
	lower := strings.ToLower(w)
	if strings.Contains(lower, "http://") || strings.Contains(lower, "https://") {
		return Sentinel
	}
	if !t.preserveCase {
		w = lower
	}
	if t.stem {
		w = english.Stem(w, false)
	}
	return w
}

// rejectNgram drops n-grams that are all sentinel or have a sentinel at
// either edge.
func rejectNgram(gram Ngram) bool {
	if gram[0] == Sentinel || gram[len(gram)-1] == Sentinel {
		return true
	}
	for _, w := range gram {
		if w != Sentinel {
			return false
		}
	}
	return true
}

// TweetSplitter is the default word splitter: whitespace-delimited tokens
// with surrounding punctuation trimmed, keeping hashtag and URL characters
// intact. Mentions and the bare retweet marker "rt" are dropped, matching
// how the upstream capture scripts prepared text.
type TweetSplitter struct{}

func (TweetSplitter) Words(text string) []string {
	var out []string
	for _, field := range strings.Fields(text) {
		tok := trimToken(field)
		if tok == "" {
			continue
		}
		if strings.HasPrefix(tok, "@") {
			continue
		}
		if strings.EqualFold(tok, "rt") {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// trimToken strips leading and trailing punctuation but leaves URL innards,
// hashtag markers, and mention markers alone.
func trimToken(tok string) string {
	lower := strings.ToLower(tok)
	if strings.Contains(lower, "http://") || strings.Contains(lower, "https://") {
		return tok
	}
	tok = strings.TrimLeftFunc(tok, func(r rune) bool {
		if r == '#' || r == '@' {
			return false
		}
		return !isWordRune(r)
	})
	return strings.TrimRightFunc(tok, func(r rune) bool {
		return !isWordRune(r)
	})
}

// isWordRune marks the characters allowed at token edges. Interior
// apostrophes and hyphens survive because trimming only touches the edges.
func isWordRune(r rune) bool {
	return r == '_' ||
		('0' <= r && r <= '9') ||
		('a' <= r && r <= 'z') ||
		('A' <= r && r <= 'Z') ||
		r > 127
}

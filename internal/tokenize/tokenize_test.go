package tokenize

import (
	"reflect"
	"testing"
)

// staticSplitter returns fixed tokens regardless of input, for isolating the
// n-gram stage from the word split.
type staticSplitter []string

func (s staticSplitter) Words(string) []string { return s }

func grams(t *testing.T, ngrams []Ngram) []string {
	t.Helper()
	out := make([]string, len(ngrams))
	for i, g := range ngrams {
		out[i] = g.String()
	}
	return out
}

func TestSentinelRejection(t *testing.T) {
	tok := New(
		WithMaxN(2),
		WithSplitter(staticSplitter{"check", "http://t.co/abc", "now"}),
	)

	got := grams(t, tok.Tokenize("ignored"))
	// Sentinel 1-gram rejected; both 2-grams have a sentinel at an edge.
	want := []string{"check", "now"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestAllSentinelNgramRejected(t *testing.T) {
	tok := New(
		WithMaxN(3),
		WithSplitter(staticSplitter{"http://a.io", "https://b.io"}),
	)
	if got := tok.Tokenize("ignored"); len(got) != 0 {
		t.Fatalf("all-sentinel input should yield nothing, got %v", grams(t, got))
	}
}

func TestInteriorSentinelSurvives(t *testing.T) {
	tok := New(
		WithMaxN(3),
		WithSplitter(staticSplitter{"check", "http://t.co/abc", "now"}),
	)
	got := grams(t, tok.Tokenize("ignored"))
	want := []string{"check", "now", "check LINK now"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestNgramOrderShortestFirst(t *testing.T) {
	tok := New(WithMaxN(2), WithSplitter(staticSplitter{"a", "b", "c"}))
	got := grams(t, tok.Tokenize("ignored"))
	want := []string{"a", "b", "c", "a b", "b c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestLowercaseDefaultAndPreserveCase(t *testing.T) {
	if got := New().Words("Hello WORLD"); !reflect.DeepEqual(got, []string{"hello", "world"}) {
		t.Fatalf("default Words = %v, want lower-cased", got)
	}
	if got := New(WithPreserveCase()).Words("Hello WORLD"); !reflect.DeepEqual(got, []string{"Hello", "WORLD"}) {
		t.Fatalf("preserve-case Words = %v", got)
	}
}

func TestURLBecomesSentinelEvenPreservingCase(t *testing.T) {
	tok := New(WithPreserveCase())
	got := tok.Words("see HTTPS://T.CO/ABC ok")
	want := []string{"see", Sentinel, "ok"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Words = %v, want %v", got, want)
	}
}

func TestEmptyText(t *testing.T) {
	tok := New(WithMaxN(3))
	if got := tok.Tokenize(""); len(got) != 0 {
		t.Fatalf("empty text should yield nothing, got %v", grams(t, got))
	}
}

func TestStemming(t *testing.T) {
	tok := New(WithStemming())
	got := tok.Words("running")
	if len(got) != 1 || got[0] != "run" {
		t.Fatalf("stemmed Words = %v, want [run]", got)
	}
}

func TestTweetSplitter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"plain words", "hello world", []string{"hello", "world"}},
		{"mentions dropped", "@alice hello @bob", []string{"hello"}},
		{"rt marker dropped", "RT @alice: breaking news", []string{"breaking", "news"}},
		{"hashtag kept", "big #news today", []string{"big", "#news", "today"}},
		{"edge punctuation trimmed", "wow!! (really) 'quote'", []string{"wow", "really", "quote"}},
		{"urls kept intact", "go http://t.co/x?a=1. now", []string{"go", "http://t.co/x?a=1.", "now"}},
		{"empty", "", nil},
		{"punctuation only", "!!! ...", nil},
	}
	var s TweetSplitter
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Words(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Words(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

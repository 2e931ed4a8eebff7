package domain

import "context"

// Source yields raw newline-delimited records, either from a capture file or
// a live firehose. Next returns one record at a time; io.EOF signals a clean
// end of input.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Encoder consumes a terminal group together with its n-gram frequency counts
// and writes one output row. Implementations own the row format.
type Encoder interface {
	EncodeRow(group Post, ngramCounts map[string]int) error
	Close() error
}

// VocabStore is the read-only shared state between the two corpus passes:
// pass one accumulates a global n-gram frequency table, pass two filters
// against it.
type VocabStore interface {
	// AddCounts folds a batch of n-gram counts into the global table.
	AddCounts(ctx context.Context, counts map[string]int) error

	// GlobalCounts returns the full frequency table accumulated so far.
	GlobalCounts(ctx context.Context) (map[string]int, error)

	Close() error
}

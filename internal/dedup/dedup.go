// Package dedup removes repeated posts sharing an upstream id.
package dedup

import "github.com/corpustools/tweetcorpus/internal/domain"

// Deduplicator keeps the first post seen for each id. Duplicates are
// content-identical upstream, so first-seen is deterministic enough; the
// selection is not semantically load-bearing.
type Deduplicator struct {
	seen map[string]struct{}

	// Dropped counts the duplicates discarded so far.
	Dropped int
}

// New returns an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Admit reports whether p is the first post with its id. Subsequent posts
// with the same id are rejected and counted.
func (d *Deduplicator) Admit(p domain.Post) bool {
	if _, dup := d.seen[p.ID]; dup {
		d.Dropped++
		return false
	}
	d.seen[p.ID] = struct{}{}
	return true
}

// Filter returns the subset of posts with distinct ids, preserving input
// order. Empty input yields empty output.
func Filter(posts []domain.Post) []domain.Post {
	d := New()
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if d.Admit(p) {
			out = append(out, p)
		}
	}
	return out
}

package domain

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// GroupingMode selects which posts get merged together.
type GroupingMode string

const (
	// GroupByAuthor merges all posts sharing an author handle.
	GroupByAuthor GroupingMode = "author"

	// GroupByTime merges posts falling in the same fixed-width time bucket.
	GroupByTime GroupingMode = "time"

	// GroupByPost assigns every post its own key, so nothing merges.
	GroupByPost GroupingMode = "none"
)

// ParseGroupingMode validates a grouping mode string from configuration.
func ParseGroupingMode(s string) (GroupingMode, error) {
	switch GroupingMode(s) {
	case GroupByAuthor, GroupByTime, GroupByPost:
		return GroupingMode(s), nil
	}
	return "", fmt.Errorf("unknown grouping mode %q (want author, time, or none)", s)
}

// KeyFunc derives the grouping key for a post.
type KeyFunc func(Post) string

// postKeySpace is the uuid namespace for per-post keys under GroupByPost.
var postKeySpace = uuid.MustParse("8c2e9d4a-5f1b-4c5e-9a7d-3b6f0e8d2c41")

// KeyFor returns the key derivation for the given mode. bucketWidth (millis)
// is only consulted under GroupByTime and must be positive there.
func KeyFor(mode GroupingMode, bucketWidth int64) (KeyFunc, error) {
	switch mode {
	case GroupByAuthor:
		return func(p Post) string { return p.Author }, nil
	case GroupByTime:
		if bucketWidth <= 0 {
			return nil, fmt.Errorf("time grouping requires a positive bucket width, got %d", bucketWidth)
		}
		return func(p Post) string {
			bucket := p.MinTime / bucketWidth * bucketWidth
			return strconv.FormatInt(bucket, 10)
		}, nil
	case GroupByPost:
		// Post ids are unique after deduplication, so a name-based uuid keeps
		// every post in its own group while staying stable across runs.
		return func(p Post) string {
			return uuid.NewSHA1(postKeySpace, []byte(p.ID)).String()
		}, nil
	}
	return nil, fmt.Errorf("unknown grouping mode %q", mode)
}

// Package corpus writes the final output: one tab-separated row per
// surviving group plus a companion schema descriptor.
package corpus

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/corpustools/tweetcorpus/internal/domain"
)

// NgramKey renders an n-gram as a single output token: words are
// percent-escaped and joined with ':', the same contract the count-map
// fields use.
func NgramKey(words []string) string {
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = domain.EscapeWord(w)
	}
	return strings.Join(escaped, ":")
}

// fieldNames lists the row fields in order, n-gram counts last.
var fieldNames = []string{
	"author",
	"min-timestamp",
	"max-timestamp",
	"geo-timestamp",
	"lat",
	"long",
	"followers",
	"following",
	"num-posts",
	"user-mentions",
	"retweet-mentions",
	"hashtags",
	"urls",
	"counts",
}

// Writer emits corpus rows to a file. It implements domain.Encoder.
type Writer struct {
	f  *os.File
	bw *bufio.Writer
}

// NewWriter creates (or truncates) the corpus file at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create corpus file: %w", err)
	}
	return &Writer{f: f, bw: bufio.NewWriterSize(f, 1<<20)}, nil
}

// EncodeRow writes one group and its n-gram frequency counts. Count keys are
// written in sorted order so output is reproducible.
func (w *Writer) EncodeRow(group domain.Post, ngramCounts map[string]int) error {
	lat, long := group.Coord.Encode()
	fields := []string{
		group.Author,
		strconv.FormatInt(group.MinTime, 10),
		strconv.FormatInt(group.MaxTime, 10),
		strconv.FormatInt(group.GeoTime, 10),
		lat,
		long,
		strconv.Itoa(group.Followers),
		strconv.Itoa(group.Following),
		strconv.Itoa(group.PostCount),
		domain.EncodeCountMap(group.Mentions),
		domain.EncodeCountMap(group.RetweetMentions),
		domain.EncodeCountMap(group.Hashtags),
		domain.EncodeCountMap(group.URLs),
		encodeCounts(ngramCounts),
	}
	if _, err := w.bw.WriteString(strings.Join(fields, "\t")); err != nil {
		return fmt.Errorf("write corpus row: %w", err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("write corpus row: %w", err)
	}
	return nil
}

// Close flushes and closes the corpus file.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("flush corpus file: %w", err)
	}
	return w.f.Close()
}

func encodeCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(counts[k]))
	}
	return sb.String()
}

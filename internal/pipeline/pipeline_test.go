package pipeline

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpustools/tweetcorpus/internal/domain"
	"github.com/corpustools/tweetcorpus/internal/normalize"
	"github.com/corpustools/tweetcorpus/internal/query"
	"github.com/corpustools/tweetcorpus/internal/tokenize"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memEncoder collects encoded rows in memory.
type memEncoder struct {
	groups []domain.Post
	counts []map[string]int
}

func (e *memEncoder) EncodeRow(group domain.Post, ngramCounts map[string]int) error {
	e.groups = append(e.groups, group)
	e.counts = append(e.counts, ngramCounts)
	return nil
}

func (e *memEncoder) Close() error { return nil }

// memVocab is an in-memory domain.VocabStore.
type memVocab struct {
	counts map[string]int
}

func newMemVocab() *memVocab { return &memVocab{counts: make(map[string]int)} }

func (v *memVocab) AddCounts(_ context.Context, counts map[string]int) error {
	for k, n := range counts {
		v.counts[k] += n
	}
	return nil
}

func (v *memVocab) GlobalCounts(context.Context) (map[string]int, error) {
	return v.counts, nil
}

func (v *memVocab) Close() error { return nil }

func checkpointLines(posts ...domain.Post) *LineSource {
	var sb strings.Builder
	for _, p := range posts {
		sb.WriteString(domain.EncodeCheckpoint(p))
		sb.WriteByte('\n')
	}
	return NewLineSource(strings.NewReader(sb.String()))
}

func simplePost(id, author string, ts int64, text string) domain.Post {
	return domain.Post{
		ID:              id,
		Author:          author,
		MinTime:         ts,
		MaxTime:         ts,
		GeoTime:         ts,
		PostCount:       1,
		Texts:           []string{text},
		Mentions:        domain.CountMap{},
		RetweetMentions: domain.CountMap{},
		Hashtags:        domain.CountMap{},
		URLs:            domain.CountMap{},
	}
}

func baseOptions(t *testing.T, mode domain.GroupingMode) Options {
	t.Helper()
	key, err := domain.KeyFor(mode, 3600_000)
	require.NoError(t, err)
	return Options{
		Normalizer: normalize.New(normalize.FormatCheckpoint),
		Tokenizer:  tokenize.New(),
		Key:        key,
		Workers:    4,
	}
}

func TestGroupByAuthorEndToEnd(t *testing.T) {
	a := simplePost("1", "alice", 100, "hello world")
	b := simplePost("2", "alice", 200, "world cup")
	b.Coord = domain.Coordinate{Lat: 10, Long: 20, Known: true}

	enc := &memEncoder{}
	p, err := New(baseOptions(t, domain.GroupByAuthor), nil, enc, testLogger())
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background(), checkpointLines(a, b)))

	require.Len(t, enc.groups, 1)
	g := enc.groups[0]
	assert.Equal(t, "alice", g.Author)
	assert.Equal(t, 2, g.PostCount)
	assert.Equal(t, int64(100), g.MinTime)
	assert.Equal(t, int64(200), g.MaxTime)
	require.True(t, g.Coord.Known)
	assert.Equal(t, 10.0, g.Coord.Lat)
	assert.Equal(t, 20.0, g.Coord.Long)
	assert.Equal(t, int64(200), g.GeoTime)

	assert.Equal(t, map[string]int{"hello": 1, "world": 2, "cup": 1}, enc.counts[0])
	assert.Equal(t, int64(1), p.Counters.GroupsWritten.Load())
}

func TestDistinctAuthorsStaySeparate(t *testing.T) {
	enc := &memEncoder{}
	p, err := New(baseOptions(t, domain.GroupByAuthor), nil, enc, testLogger())
	require.NoError(t, err)

	src := checkpointLines(
		simplePost("1", "alice", 100, "aaa"),
		simplePost("2", "bob", 100, "bbb"),
		simplePost("3", "alice", 300, "ccc"),
	)
	require.NoError(t, p.Run(context.Background(), src))

	require.Len(t, enc.groups, 2)
	byAuthor := map[string]domain.Post{}
	for _, g := range enc.groups {
		byAuthor[g.Author] = g
	}
	assert.Equal(t, 2, byAuthor["alice"].PostCount)
	assert.Equal(t, 1, byAuthor["bob"].PostCount)
}

func TestNoGroupingKeepsEveryPost(t *testing.T) {
	enc := &memEncoder{}
	p, err := New(baseOptions(t, domain.GroupByPost), nil, enc, testLogger())
	require.NoError(t, err)

	src := checkpointLines(
		simplePost("1", "alice", 100, "one"),
		simplePost("2", "alice", 200, "two"),
		simplePost("3", "alice", 300, "three"),
	)
	require.NoError(t, p.Run(context.Background(), src))
	assert.Len(t, enc.groups, 3)
}

func TestTimeBucketGrouping(t *testing.T) {
	enc := &memEncoder{}
	opts := baseOptions(t, domain.GroupByTime) // 1h buckets
	p, err := New(opts, nil, enc, testLogger())
	require.NoError(t, err)

	const hour = int64(3600_000)
	src := checkpointLines(
		simplePost("1", "alice", 1*hour+5, "early"),
		simplePost("2", "bob", 1*hour+3000, "also early"),
		simplePost("3", "carol", 2*hour+5, "late"),
	)
	require.NoError(t, p.Run(context.Background(), src))

	require.Len(t, enc.groups, 2)
	counts := []int{enc.groups[0].PostCount, enc.groups[1].PostCount}
	assert.ElementsMatch(t, []int{2, 1}, counts)
}

func TestDropCounters(t *testing.T) {
	enc := &memEncoder{}
	opts := baseOptions(t, domain.GroupByAuthor)

	postFilter, err := query.NewFoldingParser().Parse("keep")
	require.NoError(t, err)
	opts.PostFilter = postFilter

	p, err := New(opts, nil, enc, testLogger())
	require.NoError(t, err)

	good := simplePost("1", "alice", 100, "keep me")
	dup := simplePost("1", "alice", 100, "keep me")
	invalid := simplePost("2", "bob", 0, "keep but invalid time")
	filtered := simplePost("3", "carol", 100, "nothing relevant")

	var input bytes.Buffer
	input.WriteString("this is not a checkpoint line\n")
	for _, post := range []domain.Post{good, dup, invalid, filtered} {
		input.WriteString(domain.EncodeCheckpoint(post) + "\n")
	}

	require.NoError(t, p.Run(context.Background(), NewLineSource(&input)))

	assert.Equal(t, int64(1), p.Counters.BadRecords.Load())
	assert.Equal(t, int64(1), p.Counters.BadTimestamps.Load())
	assert.Equal(t, int64(1), p.Counters.Duplicates.Load())
	assert.Equal(t, int64(1), p.Counters.PostFiltered.Load())
	assert.Equal(t, int64(1), p.Counters.PostsKept.Load())
	require.Len(t, enc.groups, 1)
	assert.Equal(t, "alice", enc.groups[0].Author)
}

func TestGroupFilterAppliesAfterMerge(t *testing.T) {
	enc := &memEncoder{}
	opts := baseOptions(t, domain.GroupByAuthor)

	// The cutoff sits at t=1000ms. Alice's merged group spans [100,2000],
	// so its max timestamp violates the predicate even though one of her
	// posts alone would pass; bob's single post at 120 survives.
	groupFilter, err := query.NewFoldingParser().Parse("TIME <= 1970:01:01:00:00:01UTC")
	require.NoError(t, err)
	opts.GroupFilter = groupFilter

	p, err := New(opts, nil, enc, testLogger())
	require.NoError(t, err)

	src := checkpointLines(
		simplePost("1", "alice", 100, "aaa"),
		simplePost("2", "alice", 2000, "aaa"),
		simplePost("3", "bob", 120, "bbb"),
	)
	require.NoError(t, p.Run(context.Background(), src))

	require.Len(t, enc.groups, 1)
	assert.Equal(t, "bob", enc.groups[0].Author)
	assert.Equal(t, int64(1), p.Counters.GroupFiltered.Load())
}

func TestGroupFilterPhraseStopsAtTextBoundary(t *testing.T) {
	enc := &memEncoder{}
	opts := baseOptions(t, domain.GroupByAuthor)

	// Alice's merged group carries "world" and "cup" in different texts; the
	// phrase must not match across them. Carol has the phrase inside one text.
	groupFilter, err := query.NewFoldingParser().Parse(`"world cup"`)
	require.NoError(t, err)
	opts.GroupFilter = groupFilter

	p, err := New(opts, nil, enc, testLogger())
	require.NoError(t, err)

	src := checkpointLines(
		simplePost("1", "alice", 100, "hello world"),
		simplePost("2", "alice", 200, "cup final"),
		simplePost("3", "carol", 300, "world cup tonight"),
	)
	require.NoError(t, p.Run(context.Background(), src))

	require.Len(t, enc.groups, 1)
	assert.Equal(t, "carol", enc.groups[0].Author)
	assert.Equal(t, int64(1), p.Counters.GroupFiltered.Load())
}

func TestGroupFilterIndependentOfTextOrder(t *testing.T) {
	opts := baseOptions(t, domain.GroupByAuthor)
	p, err := New(opts, nil, &memEncoder{}, testLogger())
	require.NoError(t, err)

	expr, err := query.NewFoldingParser().Parse(`"world cup"`)
	require.NoError(t, err)

	// Texts arrive in whatever order the parallel fold produced; the verdict
	// must not depend on it.
	group := simplePost("1", "alice", 100, "hello world")
	group.Texts = []string{"hello world", "cup final"}
	reversed := group
	reversed.Texts = []string{"cup final", "hello world"}

	assert.False(t, expr.Matches(p.docFor(group)))
	assert.False(t, expr.Matches(p.docFor(reversed)))
}

func TestMinCountPruning(t *testing.T) {
	enc := &memEncoder{}
	opts := baseOptions(t, domain.GroupByAuthor)
	opts.MinNgramCount = 2

	p, err := New(opts, newMemVocab(), enc, testLogger())
	require.NoError(t, err)

	// "shared" appears in both groups (global count 2); the other words
	// appear once each and get pruned.
	src := checkpointLines(
		simplePost("1", "alice", 100, "shared rare1"),
		simplePost("2", "bob", 200, "shared rare2"),
	)
	require.NoError(t, p.Run(context.Background(), src))

	require.Len(t, enc.counts, 2)
	for _, c := range enc.counts {
		assert.Equal(t, map[string]int{"shared": 1}, c)
	}
}

func TestMinCountRequiresVocab(t *testing.T) {
	opts := baseOptions(t, domain.GroupByAuthor)
	opts.MinNgramCount = 2
	_, err := New(opts, nil, &memEncoder{}, testLogger())
	assert.Error(t, err)
}

func TestCheckpointOutput(t *testing.T) {
	var ckpt bytes.Buffer
	opts := baseOptions(t, domain.GroupByAuthor)
	opts.Checkpoint = &ckpt

	p, err := New(opts, nil, &memEncoder{}, testLogger())
	require.NoError(t, err)

	src := checkpointLines(
		simplePost("1", "alice", 100, "hello world"),
		simplePost("2", "alice", 200, "world cup"),
	)
	require.NoError(t, p.Run(context.Background(), src))

	lines := strings.Split(strings.TrimSuffix(ckpt.String(), "\n"), "\n")
	require.Len(t, lines, 1)

	merged, err := domain.DecodeCheckpoint(lines[0])
	require.NoError(t, err)
	assert.Equal(t, 2, merged.PostCount)
	assert.Equal(t, int64(100), merged.MinTime)
	assert.Equal(t, int64(200), merged.MaxTime)
	assert.ElementsMatch(t, []string{"hello world", "world cup"}, merged.Texts)
}

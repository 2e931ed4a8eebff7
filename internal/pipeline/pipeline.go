// Package pipeline orchestrates the corpus build: normalize, deduplicate,
// filter, group-and-combine, tokenize, and encode. The grouped aggregation
// is the in-process rendition of a distributed group-by-key-and-combine
// primitive: posts are sharded by key hash and each shard is folded
// independently, relying only on the combine function's associativity and
// commutativity.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/corpustools/tweetcorpus/internal/corpus"
	"github.com/corpustools/tweetcorpus/internal/dedup"
	"github.com/corpustools/tweetcorpus/internal/domain"
	"github.com/corpustools/tweetcorpus/internal/merge"
	"github.com/corpustools/tweetcorpus/internal/normalize"
	"github.com/corpustools/tweetcorpus/internal/query"
	"github.com/corpustools/tweetcorpus/internal/tokenize"
)

// Options configures a pipeline run. Nil filter expressions are identity
// filters and match everything.
type Options struct {
	Normalizer *normalize.Normalizer
	Tokenizer  *tokenize.Tokenizer
	Key        domain.KeyFunc

	PostFilter       query.Expr
	PostFilterExact  query.Expr
	GroupFilter      query.Expr
	GroupFilterExact query.Expr

	// MinNgramCount drops n-grams whose corpus-wide occurrence count falls
	// below it. Values above 1 require a vocabulary store for the two-pass
	// design.
	MinNgramCount int

	// Checkpoint, when set, receives one checkpoint line per surviving
	// group so a later pass can resume from the merged state.
	Checkpoint io.Writer

	Workers int
}

// Pipeline runs the corpus build over a record source.
type Pipeline struct {
	opts   Options
	vocab  domain.VocabStore
	enc    domain.Encoder
	logger *slog.Logger

	Counters Counters
}

// New wires a pipeline. vocab may be nil when MinNgramCount <= 1.
func New(opts Options, vocab domain.VocabStore, enc domain.Encoder, logger *slog.Logger) (*Pipeline, error) {
	if opts.Normalizer == nil || opts.Tokenizer == nil || opts.Key == nil {
		return nil, fmt.Errorf("pipeline requires a normalizer, tokenizer, and key function")
	}
	if opts.MinNgramCount > 1 && vocab == nil {
		return nil, fmt.Errorf("minimum n-gram count %d requires a vocabulary store", opts.MinNgramCount)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{opts: opts, vocab: vocab, enc: enc, logger: logger}, nil
}

// Run executes the full build and reports drop counts when done.
func (p *Pipeline) Run(ctx context.Context, src domain.Source) error {
	posts, err := p.collect(ctx, src)
	if err != nil {
		return err
	}
	p.logger.Info("posts collected", "count", len(posts))

	groups, err := p.groupCombine(ctx, posts)
	if err != nil {
		return err
	}
	p.logger.Info("groups combined", "count", len(groups))

	groups = p.filterGroups(groups)

	if p.opts.Checkpoint != nil {
		for _, g := range groups {
			if _, err := fmt.Fprintln(p.opts.Checkpoint, domain.EncodeCheckpoint(g)); err != nil {
				return fmt.Errorf("write checkpoint: %w", err)
			}
		}
	}

	counts, err := p.countNgrams(ctx, groups)
	if err != nil {
		return err
	}

	minCounts, err := p.globalMinCounts(ctx)
	if err != nil {
		return err
	}

	for i, g := range groups {
		rowCounts := counts[i]
		if minCounts != nil {
			rowCounts = pruneRare(rowCounts, minCounts, p.opts.MinNgramCount)
		}
		if err := p.enc.EncodeRow(g, rowCounts); err != nil {
			return fmt.Errorf("encode group: %w", err)
		}
		p.Counters.GroupsWritten.Add(1)
	}

	p.Counters.Report(p.logger)
	return nil
}

// collect drains the source, normalizing, validating, deduplicating, and
// applying the post-level filter. Malformed records are dropped and counted,
// never fatal.
func (p *Pipeline) collect(ctx context.Context, src domain.Source) ([]domain.Post, error) {
	var posts []domain.Post
	dd := dedup.New()

	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		if len(line) == 0 {
			continue
		}

		post, err := p.opts.Normalizer.Normalize(line)
		if err != nil {
			p.Counters.BadRecords.Add(1)
			continue
		}
		if !post.HasValidTime() {
			p.Counters.BadTimestamps.Add(1)
			continue
		}
		if !dd.Admit(post) {
			p.Counters.Duplicates.Add(1)
			continue
		}
		if !p.matchesPost(post) {
			p.Counters.PostFiltered.Add(1)
			continue
		}
		posts = append(posts, post)
		p.Counters.PostsKept.Add(1)
	}
	return posts, nil
}

func (p *Pipeline) matchesPost(post domain.Post) bool {
	if p.opts.PostFilter == nil && p.opts.PostFilterExact == nil {
		return true
	}
	d := p.docFor(post)
	return matchesAll(d, p.opts.PostFilter, p.opts.PostFilterExact)
}

// textBoundary separates the tokens of distinct texts in a filter document.
// No filter word can equal it (argv strings cannot carry NUL), so a phrase
// never matches across a text boundary and the verdict stays independent of
// the order texts were merged in.
const textBoundary = "\x00"

func (p *Pipeline) docFor(post domain.Post) query.Doc {
	var tokens []string
	for i, text := range post.Texts {
		if i > 0 {
			tokens = append(tokens, textBoundary)
		}
		tokens = append(tokens, p.opts.Tokenizer.Words(text)...)
	}
	return query.Doc{Tokens: tokens, MinTime: post.MinTime, MaxTime: post.MaxTime}
}

func matchesAll(d query.Doc, exprs ...query.Expr) bool {
	for _, e := range exprs {
		if e != nil && !e.Matches(d) {
			return false
		}
	}
	return true
}

// groupCombine is the group-by-key-and-combine primitive. Keys are derived
// once, posts are sharded by key hash, and each shard folds its groups
// independently. Because the combine is associative and commutative the
// fold order within a shard does not matter.
func (p *Pipeline) groupCombine(ctx context.Context, posts []domain.Post) ([]domain.Post, error) {
	workers := p.opts.Workers

	shards := make([][]int, workers)
	keys := make([]string, len(posts))
	for i, post := range posts {
		keys[i] = p.opts.Key(post)
		s := shardOf(keys[i], workers)
		shards[s] = append(shards[s], i)
	}

	results := make([]map[string]domain.Post, workers)
	g, gctx := errgroup.WithContext(ctx)
	for s := 0; s < workers; s++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			acc := make(map[string]domain.Post)
			for _, i := range shards[s] {
				key := keys[i]
				if cur, ok := acc[key]; ok {
					acc[key] = merge.Combine(cur, posts[i])
				} else {
					acc[key] = posts[i]
				}
			}
			results[s] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var groups []domain.Post
	for _, acc := range results {
		keyOrder := make([]string, 0, len(acc))
		for k := range acc {
			keyOrder = append(keyOrder, k)
		}
		sort.Strings(keyOrder)
		for _, k := range keyOrder {
			groups = append(groups, acc[k])
		}
	}
	return groups, nil
}

func shardOf(key string, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(workers))
}

func (p *Pipeline) filterGroups(groups []domain.Post) []domain.Post {
	if p.opts.GroupFilter == nil && p.opts.GroupFilterExact == nil {
		return groups
	}
	kept := groups[:0:0]
	for _, g := range groups {
		if matchesAll(p.docFor(g), p.opts.GroupFilter, p.opts.GroupFilterExact) {
			kept = append(kept, g)
		} else {
			p.Counters.GroupFiltered.Add(1)
		}
	}
	return kept
}

// countNgrams is pass one: per-group n-gram frequency counts, accumulated
// into the global vocabulary store when one is wired. N-grams never span
// text boundaries within a group.
func (p *Pipeline) countNgrams(ctx context.Context, groups []domain.Post) ([]map[string]int, error) {
	counts := make([]map[string]int, len(groups))
	workers := p.opts.Workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			batch := make(map[string]int)
			for i := w; i < len(groups); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				c := p.groupCounts(groups[i])
				counts[i] = c
				for k, v := range c {
					batch[k] += v
				}
			}
			if p.vocab != nil {
				if err := p.vocab.AddCounts(gctx, batch); err != nil {
					return fmt.Errorf("accumulate vocabulary: %w", err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (p *Pipeline) groupCounts(group domain.Post) map[string]int {
	c := make(map[string]int)
	for _, text := range group.Texts {
		for _, gram := range p.opts.Tokenizer.Tokenize(text) {
			c[corpus.NgramKey(gram)]++
		}
	}
	return c
}

// globalMinCounts loads the pass-one frequency table when minimum-occurrence
// pruning is enabled. Nil means no pruning.
func (p *Pipeline) globalMinCounts(ctx context.Context) (map[string]int, error) {
	if p.opts.MinNgramCount <= 1 {
		return nil, nil
	}
	global, err := p.vocab.GlobalCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load global vocabulary: %w", err)
	}
	return global, nil
}

func pruneRare(counts, global map[string]int, minCount int) map[string]int {
	kept := make(map[string]int, len(counts))
	for k, v := range counts {
		if global[k] >= minCount {
			kept[k] = v
		}
	}
	return kept
}
